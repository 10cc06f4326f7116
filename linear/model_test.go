package linear

import (
	"encoding/json"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/YuminosukeSato/glsfit/pkg/errors"
	"github.com/YuminosukeSato/glsfit/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// designWithIntercept は [x, 1] の計画行列を作る
func designWithIntercept(x []float64) *mat.Dense {
	d := mat.NewDense(len(x), 2, nil)
	for i, v := range x {
		d.Set(i, 0, v)
		d.Set(i, 1, 1)
	}
	return d
}

var (
	sampleX = []float64{1, 2, 3, 4, 5, 6, 7}
	sampleY = []float64{1, 3, 4, 5, 2, 3, 4}
)

func fitOLS(t *testing.T) *Results {
	t.Helper()
	m, err := NewOLS(designWithIntercept(sampleX))
	require.NoError(t, err)
	res, err := m.Fit(mat.NewVecDense(len(sampleY), sampleY))
	require.NoError(t, err)
	return res
}

func TestOLSReferenceStatistics(t *testing.T) {
	res := fitOLS(t)

	const tol = 1e-9
	assert.InDeltaSlice(t, []float64{0.25, 2.142857142857143}, res.Params(), tol)
	assert.InDeltaSlice(t, []float64{0.2550510153051019, 1.1406228159050942}, res.BSE(), tol)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"ssr", res.SSR(), 9.107142857142858},
		{"centered tss", res.CenteredTSS(), 10.857142857142858},
		{"uncentered tss", res.UncenteredTSS(), 80},
		{"rsquared", res.RSquared(), 0.16118421052631582},
		{"rsquared adj", res.RSquaredAdj(), -0.006578947368421018},
		{"ess", res.ESS(), 1.75},
		{"mse model", res.MSEModel(), 1.75},
		{"mse resid", res.MSEResid(), 1.8214285714285716},
		{"mse total", res.MSETotal(), 13.333333333333334},
		{"fvalue", res.FValue(), 0.9607843137254901},
		{"f density", res.FPValue(), 0.22857077241655635},
		{"scale", res.Scale(), 1.8214285714285716},
		{"llf", res.LogLikelihood(), -10.853590833180391},
		{"aic", res.AIC(), 25.707181666360782},
		{"bic", res.BIC(), 25.59900196447141},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.got, tol)
		})
	}

	assert.Equal(t, 5, res.DFResid())
	assert.Equal(t, 1, res.DFModel())
	assert.Equal(t, 7, res.NObs())
	assert.Equal(t, KindIdentity, res.Kind())
}

func TestOLSIdentities(t *testing.T) {
	res := fitOLS(t)

	// 切片付き OLS では R² = ESS / 中心化全平方和
	assert.InDelta(t, res.ESS()/res.CenteredTSS(), res.RSquared(), 1e-12)
	assert.InDelta(t, res.CenteredTSS(), res.ESS()+res.SSR(), 1e-12)
	assert.InDelta(t, res.SSR()/float64(res.DFResid()), res.Scale(), 1e-12)

	// 白色化残差は白色化計画行列の列空間と直交する
	m, err := NewOLS(designWithIntercept(sampleX))
	require.NoError(t, err)
	var xtr mat.VecDense
	xtr.MulVec(m.WhitenedDesign().T(), mat.NewVecDense(7, res.WhitenedResiduals()))
	assert.InDelta(t, 0, mat.Norm(&xtr, 2), 1e-10)
}

func TestRSquaredIdentity(t *testing.T) {
	design := designWithIntercept(sampleX)
	y := mat.NewVecDense(7, sampleY)

	wls, err := NewWLS(design, []float64{1, 2, 3, 4, 5, 6, 7})
	require.NoError(t, err)
	ar, err := NewAR(design, []float64{0.4, -0.3})
	require.NoError(t, err)
	ols, err := NewOLS(design)
	require.NoError(t, err)

	for _, m := range []*Model{ols, wls, ar} {
		res, err := m.Fit(y)
		require.NoError(t, err)
		assert.InDelta(t, 1, res.RSquared()+res.SSR()/res.CenteredTSS(), 1e-12, m.Name())
	}
}

func TestSyntheticRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	trueBeta := []float64{1.5, -0.7, 3}

	for _, n := range []int{50, 5000} {
		design := mat.NewDense(n, 3, nil)
		y := mat.NewVecDense(n, nil)
		for i := 0; i < n; i++ {
			x1, x2 := rng.NormFloat64(), rng.NormFloat64()
			design.SetRow(i, []float64{x1, x2, 1})
			y.SetVec(i, trueBeta[0]*x1+trueBeta[1]*x2+trueBeta[2]+0.5*rng.NormFloat64())
		}

		m, err := NewOLS(design)
		require.NoError(t, err)
		res, err := m.Fit(y)
		require.NoError(t, err)

		// 推定誤差は標準誤差の数倍に収まる
		params, bse := res.Params(), res.BSE()
		for j := range trueBeta {
			assert.InDelta(t, trueBeta[j], params[j], 5*bse[j], "n=%d coef %d", n, j)
		}
		if n == 5000 {
			assert.InDeltaSlice(t, trueBeta, params, 0.05)
		}
	}
}

func TestWLS(t *testing.T) {
	weights := []float64{1, 2, 3, 4, 5, 6, 7}
	design := designWithIntercept(sampleX)
	y := mat.NewVecDense(7, sampleY)

	m, err := NewWLS(design, weights)
	require.NoError(t, err)
	res, err := m.Fit(y)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.0952381, 2.9166667}, res.Params(), 1e-6)
	assert.Equal(t, KindDiagonal, res.Kind())

	t.Run("equals GLS with inverse weight covariance", func(t *testing.T) {
		sigma := mat.NewDense(7, 7, nil)
		for i, w := range weights {
			sigma.Set(i, i, 1/w)
		}
		gls, err := NewGLS(design, sigma)
		require.NoError(t, err)
		gres, err := gls.Fit(y)
		require.NoError(t, err)
		assert.InDeltaSlice(t, res.Params(), gres.Params(), 1e-9)
		assert.InDeltaSlice(t, res.BSE(), gres.BSE(), 1e-9)
		assert.InDelta(t, res.SSR(), gres.SSR(), 1e-9)
	})

	t.Run("weight length mismatch", func(t *testing.T) {
		_, err := NewWLS(design, []float64{1, 2, 3})
		var dimErr *errors.DimensionError
		assert.True(t, errors.As(err, &dimErr))
	})

	t.Run("negative weight", func(t *testing.T) {
		_, err := NewWLS(design, []float64{1, 1, 1, -1, 1, 1, 1})
		assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
	})
}

func TestScalarWLS(t *testing.T) {
	ols := fitOLS(t)

	m, err := NewScalarWLS(designWithIntercept(sampleX), 4)
	require.NoError(t, err)
	res, err := m.Fit(mat.NewVecDense(7, sampleY))
	require.NoError(t, err)

	assert.InDeltaSlice(t, ols.Params(), res.Params(), 1e-10)
	assert.InDelta(t, 4*ols.SSR(), res.SSR(), 1e-9)
	assert.InDeltaSlice(t, ols.BSE(), res.BSE(), 1e-10)
}

func TestEquivalentWhiteningMatchesOLS(t *testing.T) {
	ols := fitOLS(t)
	design := designWithIntercept(sampleX)
	y := mat.NewVecDense(7, sampleY)

	gls, err := NewGLS(design, eye(7))
	require.NoError(t, err)
	ar, err := NewAR(design, nil)
	require.NoError(t, err)
	unit, err := NewWLS(design, []float64{1, 1, 1, 1, 1, 1, 1})
	require.NoError(t, err)

	for _, m := range []*Model{gls, ar, unit} {
		t.Run(m.Name(), func(t *testing.T) {
			res, err := m.Fit(y)
			require.NoError(t, err)
			assert.InDeltaSlice(t, ols.Params(), res.Params(), 1e-9)
			assert.InDeltaSlice(t, ols.BSE(), res.BSE(), 1e-9)
			assert.InDelta(t, ols.LogLikelihood(), res.LogLikelihood(), 1e-9)
		})
	}
}

func TestARModel(t *testing.T) {
	design := designWithIntercept(sampleX)
	m, err := NewAR(design, []float64{0.5})
	require.NoError(t, err)

	// 白色化計画行列の2行目以降は x_i - 0.5·x_{i-1}
	wd := m.WhitenedDesign()
	assert.Equal(t, 1.0, wd.At(0, 0))
	assert.Equal(t, 1.5, wd.At(1, 0))
	assert.Equal(t, 0.5, wd.At(1, 1))

	res, err := m.Fit(mat.NewVecDense(7, sampleY))
	require.NoError(t, err)
	assert.Equal(t, KindAR, res.Kind())

	// 予測値は元のスケールで design·β
	p := res.Params()
	for i, x := range sampleX {
		assert.InDelta(t, p[0]*x+p[1], res.Predicted()[i], 1e-12)
	}
}

func TestRankDeficientDesign(t *testing.T) {
	d := mat.NewDense(7, 3, nil)
	for i, x := range sampleX {
		d.Set(i, 0, x)
		d.Set(i, 1, x)
		d.Set(i, 2, 1)
	}
	m, err := NewOLS(d)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Rank())
	assert.Equal(t, 5, m.DFResid())
	assert.Equal(t, 1, m.DFModel())
}

func TestFitErrors(t *testing.T) {
	design := designWithIntercept(sampleX)
	m, err := NewOLS(design)
	require.NoError(t, err)

	t.Run("response length mismatch", func(t *testing.T) {
		_, err := m.Fit(mat.NewVecDense(6, nil))
		var dimErr *errors.DimensionError
		require.True(t, errors.As(err, &dimErr))
		assert.Equal(t, 7, dimErr.Expected)
		assert.Equal(t, 6, dimErr.Got)
	})

	t.Run("nil response", func(t *testing.T) {
		_, err := m.Fit(nil)
		assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
	})

	t.Run("zero residual degrees of freedom", func(t *testing.T) {
		square, err := NewOLS(mat.NewDense(2, 2, []float64{1, 1, 2, 1}))
		require.NoError(t, err)
		assert.Equal(t, 0, square.DFResid())

		_, err = square.Fit(mat.NewVecDense(2, []float64{1, 2}))
		assert.True(t, errors.Is(err, errors.ErrDegenerateModel))
		var degErr *errors.DegenerateModelError
		require.True(t, errors.As(err, &degErr))
		assert.Equal(t, 2, degErr.Rank)
	})

	t.Run("zero residual sum of squares", func(t *testing.T) {
		_, err := m.Fit(mat.NewVecDense(7, nil))
		assert.True(t, errors.Is(err, errors.ErrNumerical))
	})

	t.Run("non-finite response", func(t *testing.T) {
		y := mat.NewVecDense(7, []float64{1, 2, math.NaN(), 4, 5, 6, 7})
		_, err := m.Fit(y)
		assert.True(t, errors.Is(err, errors.ErrNumerical))
	})
}

func TestNewModelValidation(t *testing.T) {
	_, err := NewModel(nil, nil)
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))

	_, err = NewOLS(&mat.Dense{})
	assert.True(t, errors.Is(err, errors.ErrEmptyData))

	_, err = NewOLS(designWithIntercept(sampleX), WithRankTolerance(-1))
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))

	m, err := NewModel(designWithIntercept(sampleX), nil)
	require.NoError(t, err)
	assert.Equal(t, KindIdentity, m.Whitener().Kind())
	assert.Equal(t, "OLS", m.Name())
}

// shapePanicWhitener panics the way gonum does on a shape mismatch.
type shapePanicWhitener struct{ IdentityWhitener }

func (shapePanicWhitener) Whiten(mat.Matrix) (*mat.Dense, error) {
	panic(mat.ErrShape)
}

func TestNewModelRecoversWhitenPanic(t *testing.T) {
	m, err := NewModel(designWithIntercept(sampleX), shapePanicWhitener{})
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
	assert.Nil(t, m)
}

func TestFitDoesNotMutateModel(t *testing.T) {
	design := designWithIntercept(sampleX)
	m, err := NewAR(design, []float64{0.3, 0.1})
	require.NoError(t, err)

	before := m.WhitenedDesign()
	pinv := m.PseudoInverse()
	y := mat.NewVecDense(7, sampleY)

	first, err := m.Fit(y)
	require.NoError(t, err)
	second, err := m.Fit(y)
	require.NoError(t, err)

	assert.True(t, mat.Equal(before, m.WhitenedDesign()))
	assert.True(t, mat.Equal(pinv, m.PseudoInverse()))
	assert.Equal(t, first.Params(), second.Params())
	assert.Equal(t, sampleY[0], y.AtVec(0))
}

func TestWithWhitener(t *testing.T) {
	m, err := NewOLS(designWithIntercept(sampleX), WithName("custom"))
	require.NoError(t, err)

	ar, err := m.WithWhitener(NewARWhitener([]float64{0.5}))
	require.NoError(t, err)

	assert.Equal(t, KindIdentity, m.Whitener().Kind())
	assert.Equal(t, KindAR, ar.Whitener().Kind())
	assert.False(t, mat.Equal(m.WhitenedDesign(), ar.WhitenedDesign()))
	assert.True(t, mat.Equal(m.Design(), ar.Design()))
	assert.Equal(t, "custom", ar.Name())

	_, err = m.WithWhitener(mustDiagonal(t, []float64{1, 2}))
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func mustDiagonal(t *testing.T, w []float64) *DiagonalWhitener {
	t.Helper()
	d, err := NewDiagonalWhitener(w)
	require.NoError(t, err)
	return d
}

func TestModelLogLikelihood(t *testing.T) {
	m, err := NewOLS(designWithIntercept(sampleX))
	require.NoError(t, err)
	y := mat.NewVecDense(7, sampleY)
	res, err := m.Fit(y)
	require.NoError(t, err)

	ll, err := m.LogLikelihood(mat.NewVecDense(2, res.Params()), y)
	require.NoError(t, err)
	assert.InDelta(t, res.LogLikelihood(), ll.LLF, 1e-12)
	assert.InDelta(t, res.AIC(), ll.AIC, 1e-12)
	assert.InDelta(t, res.BIC(), ll.BIC, 1e-12)

	// 最小二乗解から外れると対数尤度は下がる
	worse, err := m.LogLikelihood(mat.NewVecDense(2, []float64{1, 0}), y)
	require.NoError(t, err)
	assert.Less(t, worse.LLF, ll.LLF)

	_, err = m.LogLikelihood(mat.NewVecDense(3, nil), y)
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestResultsDerived(t *testing.T) {
	res := fitOLS(t)
	params, bse := res.Params(), res.BSE()

	tv := res.T()
	for i := range tv {
		assert.InDelta(t, params[i]/bse[i], tv[i], 1e-12)
	}

	cov := res.CovBeta()
	for i := range bse {
		assert.InDelta(t, bse[i]*bse[i], cov.At(i, i), 1e-12)
	}

	nr := res.NormResid()
	wr := res.WhitenedResiduals()
	for i := range nr {
		assert.InDelta(t, wr[i]/math.Sqrt(res.Scale()), nr[i], 1e-12)
	}

	pred, err := res.Predictors(designWithIntercept([]float64{10, 0}))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.25*10 + 2.142857142857143, 2.142857142857143}, pred.RawVector().Data, 1e-9)

	_, err = res.Predictors(mat.NewDense(2, 3, nil))
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestResultsAccessorsReturnCopies(t *testing.T) {
	res := fitOLS(t)

	p := res.Params()
	p[0] = 100
	assert.InDelta(t, 0.25, res.Params()[0], 1e-12)

	nc := res.NormalizedCovariance()
	nc.Set(0, 0, 100)
	assert.NotEqual(t, 100.0, res.NormalizedCovariance().At(0, 0))

	pred := res.Predicted()
	pred[0] = 100
	assert.NotEqual(t, 100.0, res.Predicted()[0])

	pinv := res.PseudoInverse()
	r, c := pinv.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 7, c)
}

func TestInterceptOnlyModel(t *testing.T) {
	ones := mat.NewDense(7, 1, []float64{1, 1, 1, 1, 1, 1, 1})
	m, err := NewOLS(ones)
	require.NoError(t, err)
	assert.Equal(t, 0, m.DFModel())

	res, err := m.Fit(mat.NewVecDense(7, sampleY))
	require.NoError(t, err)
	assert.InDelta(t, 22.0/7, res.Params()[0], 1e-12)
	f := res.FValue()
	assert.True(t, math.IsNaN(f) || math.IsInf(f, 0))
	assert.True(t, math.IsNaN(res.FPValue()))

	out, err := json.Marshal(res.Summary())
	require.NoError(t, err)
	assert.Contains(t, string(out), `"fvalue":null`)
}

func TestFitLogs(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	m, err := NewOLS(designWithIntercept(sampleX), WithLogger(logger))
	require.NoError(t, err)

	_, err = m.Fit(mat.NewVecDense(7, sampleY))
	require.NoError(t, err)
	assert.True(t, logger.ContainsMessage("fit completed"))
	assert.True(t, logger.ContainsField(log.RankKey, float64(2)))
	assert.True(t, logger.ContainsField(log.ModelNameKey, "OLS"))
	entries, err := logger.GetLogEntries()
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.InDelta(t, 0.16118421052631582, entries[len(entries)-1][log.R2ScoreKey], 1e-12)

	logger.Clear()
	_, err = m.Fit(mat.NewVecDense(3, nil))
	require.Error(t, err)
	assert.True(t, logger.ContainsMessage("fit failed"))
	assert.True(t, logger.ContainsField(log.ErrorCodeKey, log.ErrorDimensionMismatch))
}
