package linear

import (
	"encoding/json"
	"math"

	"github.com/YuminosukeSato/glsfit/metrics"
	"github.com/YuminosukeSato/glsfit/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Results は一回の推定結果。返された後は変更されない。
//
// 配列や行列を返すアクセサはすべてコピーを返す。
type Results struct {
	kind Kind

	params    []float64
	bse       []float64
	wresp     []float64
	wresid    []float64
	predicted []float64

	scale         float64
	ssr           float64
	centeredTSS   float64
	uncenteredTSS float64
	rsquared      float64
	rsquaredAdj   float64
	ess           float64
	mseModel      float64
	mseResid      float64
	mseTotal      float64
	fvalue        float64
	fpvalue       float64
	llf           float64
	aic           float64
	bic           float64

	nobs    int
	dfResid int
	dfModel int

	normCov *mat.Dense
	pinv    *mat.Dense
}

func (m *Model) newResults(beta, z, resid, predicted *mat.VecDense) (*Results, error) {
	const op = "Model.Fit"

	n := float64(m.nobs)
	dfResid := float64(m.dfResid)
	dfModel := float64(m.dfModel)

	zData := z.RawVector().Data
	zMean := metrics.Mean(zData)
	predData := predicted.RawVector().Data

	res := &Results{
		kind:      m.whitener.Kind(),
		params:    copyFloats(beta.RawVector().Data),
		wresp:     copyFloats(zData),
		wresid:    copyFloats(resid.RawVector().Data),
		predicted: copyFloats(predData),
		nobs:      m.nobs,
		dfResid:   m.dfResid,
		dfModel:   m.dfModel,
		normCov:   mat.DenseCopyOf(m.normCov),
		pinv:      mat.DenseCopyOf(m.pinv),
	}

	res.ssr = metrics.SumSquares(res.wresid)
	res.uncenteredTSS = metrics.SumSquares(zData)
	res.centeredTSS = metrics.CenteredSumSquares(zData, zMean)
	res.ess = metrics.CenteredSumSquares(predData, zMean)
	res.scale = res.ssr / dfResid

	res.rsquared = 1 - res.ssr/res.centeredTSS
	res.rsquaredAdj = 1 - (n-1)/(n-dfModel-1)*(1-res.rsquared)
	res.mseModel = res.ess / dfModel
	res.mseResid = res.ssr / dfResid
	res.mseTotal = res.uncenteredTSS / (dfModel + dfResid)
	res.fvalue = res.mseModel / res.mseResid
	res.fpvalue = math.NaN()
	if m.dfModel > 0 {
		res.fpvalue = distuv.F{D1: dfModel, D2: dfResid}.Prob(res.fvalue)
	}

	res.bse = make([]float64, len(res.params))
	for i := range res.bse {
		res.bse[i] = math.Sqrt(res.scale * m.normCov.At(i, i))
	}

	ll, err := logLikelihood(op, m.nobs, m.dfModel, res.ssr)
	if err != nil {
		return nil, err
	}
	res.llf = ll.LLF
	res.aic = ll.AIC
	res.bic = ll.BIC

	return res, nil
}

func copyFloats(x []float64) []float64 {
	return append([]float64(nil), x...)
}

// Kind reports which whitening transform produced the results.
func (r *Results) Kind() Kind { return r.kind }

// Params returns the estimated coefficients.
func (r *Results) Params() []float64 { return copyFloats(r.params) }

// BSE returns the standard errors of the coefficients.
func (r *Results) BSE() []float64 { return copyFloats(r.bse) }

// WhitenedResponse returns Z, the whitened response.
func (r *Results) WhitenedResponse() []float64 { return copyFloats(r.wresp) }

// WhitenedResiduals returns Z minus the whitened fitted values.
func (r *Results) WhitenedResiduals() []float64 { return copyFloats(r.wresid) }

// Predicted returns design·β on the original scale.
func (r *Results) Predicted() []float64 { return copyFloats(r.predicted) }

// Scale returns SSR / df_resid.
func (r *Results) Scale() float64 { return r.scale }

// SSR returns the sum of squared whitened residuals.
func (r *Results) SSR() float64 { return r.ssr }

// CenteredTSS returns Σ(Z - mean(Z))².
func (r *Results) CenteredTSS() float64 { return r.centeredTSS }

// UncenteredTSS returns ΣZ².
func (r *Results) UncenteredTSS() float64 { return r.uncenteredTSS }

// RSquared returns 1 - SSR/CenteredTSS.
func (r *Results) RSquared() float64 { return r.rsquared }

// RSquaredAdj returns the degrees of freedom adjusted R².
func (r *Results) RSquaredAdj() float64 { return r.rsquaredAdj }

// ESS returns Σ(predicted - mean(Z))².
func (r *Results) ESS() float64 { return r.ess }

// MSEModel returns ESS / df_model.
func (r *Results) MSEModel() float64 { return r.mseModel }

// MSEResid returns SSR / df_resid.
func (r *Results) MSEResid() float64 { return r.mseResid }

// MSETotal returns UncenteredTSS / (df_model + df_resid).
func (r *Results) MSETotal() float64 { return r.mseTotal }

// FValue returns MSEModel / MSEResid.
func (r *Results) FValue() float64 { return r.fvalue }

// FPValue returns the F density with (df_model, df_resid) degrees of freedom
// evaluated at FValue.
func (r *Results) FPValue() float64 { return r.fpvalue }

// LogLikelihood returns ℓ.
func (r *Results) LogLikelihood() float64 { return r.llf }

// AIC returns the Akaike information criterion.
func (r *Results) AIC() float64 { return r.aic }

// BIC returns the Bayesian information criterion.
func (r *Results) BIC() float64 { return r.bic }

// NObs returns the number of observations.
func (r *Results) NObs() int { return r.nobs }

// DFResid returns the residual degrees of freedom.
func (r *Results) DFResid() int { return r.dfResid }

// DFModel returns the model degrees of freedom.
func (r *Results) DFModel() int { return r.dfModel }

// NormalizedCovariance returns a copy of pinv·pinvᵀ.
func (r *Results) NormalizedCovariance() *mat.Dense { return mat.DenseCopyOf(r.normCov) }

// PseudoInverse returns a copy of the pseudo-inverse of the whitened design.
func (r *Results) PseudoInverse() *mat.Dense { return mat.DenseCopyOf(r.pinv) }

// CovBeta returns scale·NormalizedCovariance.
func (r *Results) CovBeta() *mat.Dense {
	out := mat.DenseCopyOf(r.normCov)
	out.Scale(r.scale, out)
	return out
}

// T returns the t statistics β / bse.
func (r *Results) T() []float64 {
	return floats.DivTo(make([]float64, len(r.params)), r.params, r.bse)
}

// NormResid returns the whitened residuals divided by √scale.
func (r *Results) NormResid() []float64 {
	return floats.ScaleTo(make([]float64, len(r.wresid)), 1/math.Sqrt(r.scale), r.wresid)
}

// Predictors は新しい計画行列に対する design·β を返す
func (r *Results) Predictors(design mat.Matrix) (*mat.VecDense, error) {
	if design == nil {
		return nil, errors.NewValueError("Results.Predictors", "design matrix is nil")
	}
	rows, cols := design.Dims()
	if cols != len(r.params) {
		return nil, errors.NewDimensionError("Results.Predictors", len(r.params), cols, 1)
	}
	out := mat.NewVecDense(rows, nil)
	out.MulVec(design, mat.NewVecDense(len(r.params), copyFloats(r.params)))
	return out, nil
}

// Statistic は非有限値を JSON の null として書き出す float64
type Statistic float64

// MarshalJSON implements json.Marshaler.
func (s Statistic) MarshalJSON() ([]byte, error) {
	f := float64(s)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

func statistics(x []float64) []Statistic {
	out := make([]Statistic, len(x))
	for i, v := range x {
		out[i] = Statistic(v)
	}
	return out
}

// Summary は結果の出力用スナップショット
type Summary struct {
	Model       string      `json:"model" yaml:"model"`
	NObs        int         `json:"nobs" yaml:"nobs"`
	DFModel     int         `json:"df_model" yaml:"df_model"`
	DFResid     int         `json:"df_resid" yaml:"df_resid"`
	Params      []Statistic `json:"params" yaml:"params"`
	BSE         []Statistic `json:"bse" yaml:"bse"`
	T           []Statistic `json:"t" yaml:"t"`
	Scale       Statistic   `json:"scale" yaml:"scale"`
	SSR         Statistic   `json:"ssr" yaml:"ssr"`
	ESS         Statistic   `json:"ess" yaml:"ess"`
	RSquared    Statistic   `json:"rsquared" yaml:"rsquared"`
	RSquaredAdj Statistic   `json:"rsquared_adj" yaml:"rsquared_adj"`
	FValue      Statistic   `json:"fvalue" yaml:"fvalue"`
	FPValue     Statistic   `json:"f_pvalue" yaml:"f_pvalue"`
	LLF         Statistic   `json:"llf" yaml:"llf"`
	AIC         Statistic   `json:"aic" yaml:"aic"`
	BIC         Statistic   `json:"bic" yaml:"bic"`
}

// Summary returns a serializable snapshot of the headline statistics.
func (r *Results) Summary() Summary {
	return Summary{
		Model:       r.kind.String(),
		NObs:        r.nobs,
		DFModel:     r.dfModel,
		DFResid:     r.dfResid,
		Params:      statistics(r.params),
		BSE:         statistics(r.bse),
		T:           statistics(r.T()),
		Scale:       Statistic(r.scale),
		SSR:         Statistic(r.ssr),
		ESS:         Statistic(r.ess),
		RSquared:    Statistic(r.rsquared),
		RSquaredAdj: Statistic(r.rsquaredAdj),
		FValue:      Statistic(r.fvalue),
		FPValue:     Statistic(r.fpvalue),
		LLF:         Statistic(r.llf),
		AIC:         Statistic(r.aic),
		BIC:         Statistic(r.bic),
	}
}
