// Package linear implements whitening-based least squares estimation.
//
// OLS, WLS, GLS and regression with AR(p) errors share one pipeline: a
// Whitener transforms the design and the response so that the errors become
// uncorrelated with constant variance, and the coefficients are obtained from
// the Moore-Penrose pseudo-inverse of the whitened design.
package linear

import (
	"context"
	"math"
	"time"

	"github.com/YuminosukeSato/glsfit/metrics"
	"github.com/YuminosukeSato/glsfit/pkg/errors"
	"github.com/YuminosukeSato/glsfit/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// Model は計画行列と白色化変換、およびそこから導出される行列を保持する
//
// 導出値は構築時に一度だけ計算される。変換のパラメータを変える場合は
// WithWhitener で新しい Model を作る。
type Model struct {
	design   *mat.Dense
	whitener Whitener

	wdesign *mat.Dense
	pinv    *mat.Dense
	normCov *mat.Dense

	nobs    int
	rank    int
	dfResid int
	dfModel int

	settings settings
	opts     []Option
	logger   log.Logger
}

// NewModel は計画行列 design と白色化変換 w からモデルを作成する
//
// w が nil の場合は OLS として扱う。design はコピーされる。
func NewModel(design mat.Matrix, w Whitener, opts ...Option) (_ *Model, err error) {
	const op = "NewModel"
	defer errors.Recover(&err, op)

	if design == nil {
		return nil, errors.NewValueError(op, "design matrix is nil")
	}
	r, c := design.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if w == nil {
		w = IdentityWhitener{}
	}

	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	if !(s.rankTol >= 0) {
		return nil, errors.NewValidationError("rankTolerance", "must be non-negative", s.rankTol)
	}
	if s.name == "" {
		s.name = w.Kind().String()
	}
	if s.logger == nil {
		s.logger = log.GetLogger()
	}

	m := &Model{
		design:   mat.DenseCopyOf(design),
		whitener: w,
		nobs:     r,
		settings: s,
		opts:     opts,
		logger: s.logger.With(
			log.ModelNameKey, s.name,
			log.WhitenerKey, w.Kind().String(),
			log.ComponentKey, "linear",
		),
	}
	if err := m.derive(); err != nil {
		return nil, err
	}
	return m, nil
}

// NewOLS は通常最小二乗法のモデルを作成する
func NewOLS(design mat.Matrix, opts ...Option) (*Model, error) {
	return NewModel(design, IdentityWhitener{}, opts...)
}

// NewWLS は観測ごとの重みを持つ加重最小二乗法のモデルを作成する
func NewWLS(design mat.Matrix, weights []float64, opts ...Option) (*Model, error) {
	w, err := NewDiagonalWhitener(weights)
	if err != nil {
		return nil, err
	}
	return NewModel(design, w, opts...)
}

// NewScalarWLS はすべての観測に同じ重みを掛ける WLS モデルを作成する
func NewScalarWLS(design mat.Matrix, weight float64, opts ...Option) (*Model, error) {
	w, err := NewScalarDiagonalWhitener(weight)
	if err != nil {
		return nil, err
	}
	return NewModel(design, w, opts...)
}

// NewGLS は誤差共分散 sigma を持つ一般化最小二乗法のモデルを作成する
func NewGLS(design mat.Matrix, sigma mat.Matrix, opts ...Option) (*Model, error) {
	w, err := NewCholeskyWhitener(sigma)
	if err != nil {
		return nil, err
	}
	return NewModel(design, w, opts...)
}

// NewAR は AR(p) 誤差を持つモデルを係数 rho を固定して作成する
func NewAR(design mat.Matrix, rho []float64, opts ...Option) (*Model, error) {
	return NewModel(design, NewARWhitener(rho), opts...)
}

// WithWhitener は同じ計画行列と設定で変換だけを置き換えた新しいモデルを返す
func (m *Model) WithWhitener(w Whitener) (*Model, error) {
	return NewModel(m.design, w, m.opts...)
}

func (m *Model) derive() error {
	const op = "Model.derive"

	wdesign, err := m.whitener.Whiten(m.design)
	if err != nil {
		return err
	}
	if r, _ := wdesign.Dims(); r != m.nobs {
		return errors.NewDimensionError(op, m.nobs, r, 0)
	}
	_, c := m.design.Dims()
	if err := errors.CheckMatrix("whitened design", wdesign, m.nobs, c, 0); err != nil {
		return err
	}

	pinv, err := PseudoInverse(op, wdesign)
	if err != nil {
		return err
	}

	normCov := mat.NewDense(c, c, nil)
	normCov.Mul(pinv, pinv.T())

	rank, err := Rank(op, m.design, m.settings.rankTol)
	if err != nil {
		return err
	}

	m.wdesign = wdesign
	m.pinv = pinv
	m.normCov = normCov
	m.rank = rank
	m.dfResid = m.nobs - rank
	// 切片を含むことを前提とする
	m.dfModel = rank - 1

	m.logger.Debug("model derived",
		log.SamplesKey, m.nobs,
		log.FeaturesKey, c,
		log.RankKey, rank,
	)
	return nil
}

// Fit は応答 y に対して係数と適合統計量を推定する
//
// モデル自身は変更されない。
func (m *Model) Fit(y mat.Vector) (res *Results, err error) {
	const op = "Model.Fit"
	defer errors.Recover(&err, op)

	start := time.Now()
	res, err = m.fit(op, y)
	if err != nil {
		m.logger.Debug("fit failed",
			log.OperationKey, log.OperationFit,
			log.ErrAttrKey, err,
		)
		return nil, err
	}

	if m.logger.Enabled(context.Background(), log.LevelDebug) {
		m.logger.Debug("fit completed",
			log.OperationKey, log.OperationFit,
			log.SamplesKey, m.nobs,
			log.RankKey, m.rank,
			log.DFResidKey, m.dfResid,
			log.SSRKey, res.ssr,
			log.R2ScoreKey, res.rsquared,
			log.LogLikeKey, res.llf,
			log.DurationKey, float64(time.Since(start).Microseconds())/1000,
		)
	}
	return res, nil
}

func (m *Model) fit(op string, y mat.Vector) (*Results, error) {
	if y == nil {
		return nil, errors.NewValueError(op, "response is nil")
	}
	if y.Len() != m.nobs {
		return nil, errors.NewDimensionError(op, m.nobs, y.Len(), 0)
	}
	if m.dfResid <= 0 {
		return nil, errors.NewDegenerateModelError(op, m.dfResid, m.nobs, m.rank)
	}

	z, err := m.whitenResponse(y)
	if err != nil {
		return nil, err
	}
	if err := errors.CheckNumericalStability("whitened response", z.RawVector().Data, 0); err != nil {
		return nil, err
	}

	_, p := m.design.Dims()
	beta := mat.NewVecDense(p, nil)
	beta.MulVec(m.pinv, z)
	if err := errors.CheckNumericalStability("coefficients", beta.RawVector().Data, 0); err != nil {
		return nil, err
	}

	fitted := mat.NewVecDense(m.nobs, nil)
	fitted.MulVec(m.wdesign, beta)
	resid := mat.NewVecDense(m.nobs, nil)
	resid.SubVec(z, fitted)

	predicted := mat.NewVecDense(m.nobs, nil)
	predicted.MulVec(m.design, beta)

	return m.newResults(beta, z, resid, predicted)
}

func (m *Model) whitenResponse(y mat.Vector) (*mat.VecDense, error) {
	col := mat.NewDense(m.nobs, 1, metrics.VecData(y))
	wy, err := m.whitener.Whiten(col)
	if err != nil {
		return nil, err
	}
	return mat.VecDenseCopyOf(wy.ColView(0)), nil
}

// LogLikelihood は情報量規準とともに対数尤度を保持する
type LogLikelihood struct {
	LLF float64
	AIC float64
	BIC float64
}

// LogLikelihood は任意の係数 beta に対する白色化後の応答での対数尤度を返す
//
// 残差平方和が0以下の場合は対数が定義できないため NumericalInstabilityError を返す。
func (m *Model) LogLikelihood(beta, y mat.Vector) (ll LogLikelihood, err error) {
	const op = "Model.LogLikelihood"
	defer errors.Recover(&err, op)

	_, p := m.design.Dims()
	if beta == nil || y == nil {
		return LogLikelihood{}, errors.NewValueError(op, "nil argument")
	}
	if beta.Len() != p {
		return LogLikelihood{}, errors.NewDimensionError(op, p, beta.Len(), 0)
	}
	if y.Len() != m.nobs {
		return LogLikelihood{}, errors.NewDimensionError(op, m.nobs, y.Len(), 0)
	}

	z, err := m.whitenResponse(y)
	if err != nil {
		return LogLikelihood{}, err
	}
	fitted := mat.NewVecDense(m.nobs, nil)
	fitted.MulVec(m.wdesign, beta)
	resid := mat.NewVecDense(m.nobs, nil)
	resid.SubVec(z, fitted)

	return logLikelihood(op, m.nobs, m.dfModel, metrics.SumSquares(resid.RawVector().Data))
}

// logLikelihood は ℓ = -n/2·(1 + ln 2π - ln n) - n/2·ln SSR と AIC、BIC を計算する
func logLikelihood(op string, nobs, dfModel int, ssr float64) (LogLikelihood, error) {
	if err := errors.CheckPositive(op+": residual sum of squares", ssr); err != nil {
		return LogLikelihood{}, err
	}
	n := float64(nobs)
	llf := -n/2*(1+math.Log(2*math.Pi)-math.Log(n)) - n/2*math.Log(ssr)
	k := float64(dfModel + 1)
	return LogLikelihood{
		LLF: llf,
		AIC: -2*llf + 2*k,
		BIC: -2*llf + math.Log(n)*k,
	}, nil
}

// Design returns a copy of the design matrix.
func (m *Model) Design() *mat.Dense { return mat.DenseCopyOf(m.design) }

// WhitenedDesign returns a copy of the whitened design matrix.
func (m *Model) WhitenedDesign() *mat.Dense { return mat.DenseCopyOf(m.wdesign) }

// PseudoInverse returns a copy of the pseudo-inverse of the whitened design.
func (m *Model) PseudoInverse() *mat.Dense { return mat.DenseCopyOf(m.pinv) }

// NormalizedCovariance returns a copy of pinv·pinvᵀ.
func (m *Model) NormalizedCovariance() *mat.Dense { return mat.DenseCopyOf(m.normCov) }

// NObs returns the number of observations.
func (m *Model) NObs() int { return m.nobs }

// Rank returns the numerical rank of the design.
func (m *Model) Rank() int { return m.rank }

// DFResid returns n - rank.
func (m *Model) DFResid() int { return m.dfResid }

// DFModel returns rank - 1.
func (m *Model) DFModel() int { return m.dfModel }

// Whitener returns the whitening transform.
func (m *Model) Whitener() Whitener { return m.whitener }

// Name returns the model name used in logs.
func (m *Model) Name() string { return m.settings.name }
