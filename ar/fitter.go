// Package ar fits regression models with AR(p) errors by alternating between
// a whitened least squares fit and a Yule-Walker estimate of the residual
// autocorrelation.
package ar

import (
	"time"

	"github.com/YuminosukeSato/glsfit/linear"
	"github.com/YuminosukeSato/glsfit/metrics"
	"github.com/YuminosukeSato/glsfit/pkg/errors"
	"github.com/YuminosukeSato/glsfit/pkg/log"
	"github.com/YuminosukeSato/glsfit/stats"
	"gonum.org/v1/gonum/mat"
)

// DefaultIterations is the number of refits when WithIterations is not given.
const DefaultIterations = 3

// State is the position of the fitter within one iteration.
type State int

const (
	StateInitializing State = iota
	StateFitting
	StateReestimating
	StateDone
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateFitting:
		return "fitting"
	case StateReestimating:
		return "reestimating"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// SampleSize selects the effective sample size given to the Yule-Walker step.
type SampleSize int

const (
	// SampleSizeObservations uses the number of residuals.
	SampleSizeObservations SampleSize = iota
	// SampleSizeResidualDF uses the residual degrees of freedom of the fit.
	SampleSizeResidualDF
)

// String returns the sample size mode name.
func (s SampleSize) String() string {
	switch s {
	case SampleSizeObservations:
		return "nobs"
	case SampleSizeResidualDF:
		return "df_resid"
	default:
		return "unknown"
	}
}

// ParseSampleSize accepts "nobs" or "df_resid".
func ParseSampleSize(s string) (SampleSize, error) {
	switch s {
	case "", "nobs":
		return SampleSizeObservations, nil
	case "df_resid":
		return SampleSizeResidualDF, nil
	default:
		return 0, errors.NewValidationError("sample_size", "must be 'nobs' or 'df_resid'", s)
	}
}

// Params は AR(p) のパラメータ。値として受け渡す。
type Params struct {
	Rho   []float64 `json:"rho" yaml:"rho"`
	Sigma float64   `json:"sigma" yaml:"sigma"`
}

// Clone returns a deep copy.
func (p Params) Clone() Params {
	return Params{Rho: append([]float64(nil), p.Rho...), Sigma: p.Sigma}
}

// Step is reported to the observer on every state transition.
type Step struct {
	Iteration int
	State     State
	Params    Params
	Results   *linear.Results
}

// Outcome は反復推定の結果
//
// Results と Model は最後に成功した Fit のもの、Params は最後に成功した
// Yule-Walker 推定の値。History は各反復で推定された Params を順に持つ。
type Outcome struct {
	Params     Params
	Results    *linear.Results
	Model      *linear.Model
	History    []Params
	State      State
	Iterations int
}

// Option configures a Fitter.
type Option func(*Fitter)

// WithIterations sets the fixed number of refits.
func WithIterations(n int) Option {
	return func(f *Fitter) {
		f.iterations = n
	}
}

// WithMethod sets the autocovariance method of the Yule-Walker step.
func WithMethod(m stats.Method) Option {
	return func(f *Fitter) {
		f.method = m
	}
}

// WithSampleSize sets the effective sample size of the Yule-Walker step.
func WithSampleSize(s SampleSize) Option {
	return func(f *Fitter) {
		f.sampleSize = s
	}
}

// WithLogger sets the logger. The inner fits and estimates use it too.
func WithLogger(l log.Logger) Option {
	return func(f *Fitter) {
		f.logger = l
	}
}

// WithObserver registers a callback invoked on every state transition.
func WithObserver(fn func(Step)) Option {
	return func(f *Fitter) {
		f.observer = fn
	}
}

// Fitter は AR(p) 誤差の回帰を固定回数の反復で推定する
type Fitter struct {
	order      int
	iterations int
	method     stats.Method
	sampleSize SampleSize
	logger     log.Logger
	observer   func(Step)
}

// NewFitter は次数 order の Fitter を作成する
func NewFitter(order int, opts ...Option) (*Fitter, error) {
	f := &Fitter{
		order:      order,
		iterations: DefaultIterations,
		method:     stats.MethodUnbiased,
		sampleSize: SampleSizeObservations,
	}
	for _, opt := range opts {
		opt(f)
	}

	if order < 0 {
		return nil, errors.NewValidationError("order", "must be non-negative", order)
	}
	if f.iterations < 1 {
		return nil, errors.NewValidationError("iterations", "must be at least 1", f.iterations)
	}
	method, err := stats.ParseMethod(string(f.method))
	if err != nil {
		return nil, err
	}
	f.method = method
	if f.sampleSize != SampleSizeObservations && f.sampleSize != SampleSizeResidualDF {
		return nil, errors.NewValidationError("sample_size", "unknown mode", int(f.sampleSize))
	}
	if f.logger == nil {
		f.logger = log.GetLogger()
	}
	f.logger = f.logger.With(
		log.ComponentKey, "ar",
		log.ModelNameKey, "AR",
		log.AROrderKey, order,
	)
	return f, nil
}

// Order returns p.
func (f *Fitter) Order() int { return f.order }

// Iterations returns the number of refits.
func (f *Fitter) Iterations() int { return f.iterations }

// Fit は ρ = 0 から開始して反復推定する
func (f *Fitter) Fit(design mat.Matrix, y mat.Vector) (*Outcome, error) {
	return f.FitFrom(design, y, Params{Rho: make([]float64, f.order)})
}

// FitFrom は初期値 initial から反復推定する
//
// 途中で失敗した場合も、最後に成功した推定値を持つ Outcome をエラーと共に返す。
func (f *Fitter) FitFrom(design mat.Matrix, y mat.Vector, initial Params) (*Outcome, error) {
	const op = "ar.Fitter.Fit"

	if len(initial.Rho) != f.order {
		return nil, errors.NewDimensionError(op, f.order, len(initial.Rho), 0)
	}
	if y == nil {
		return nil, errors.NewValueError(op, "response is nil")
	}

	start := time.Now()
	params := initial.Clone()
	out := &Outcome{Params: params.Clone(), State: StateInitializing}

	for it := 1; it <= f.iterations; it++ {
		out.Iterations = it

		f.transition(out, it, StateInitializing)
		model, err := linear.NewAR(design, params.Rho,
			linear.WithLogger(f.logger),
			linear.WithName("AR"),
		)
		if err != nil {
			return out, f.fail(err, it)
		}

		f.transition(out, it, StateFitting)
		res, err := model.Fit(y)
		if err != nil {
			return out, f.fail(err, it)
		}
		out.Model = model
		out.Results = res

		f.transition(out, it, StateReestimating)
		next, err := f.reestimate(y, model, res)
		if err != nil {
			return out, f.fail(err, it)
		}

		params = next
		out.Params = next.Clone()
		out.History = append(out.History, next.Clone())

		f.logger.Debug("iteration completed",
			log.OperationKey, log.OperationIterate,
			log.IterationKey, it,
			log.ARRhoKey, next.Rho,
			log.ARSigmaKey, next.Sigma,
		)
	}

	f.transition(out, f.iterations, StateDone)
	f.logger.Info("iterative fit completed",
		log.OperationKey, log.OperationIterate,
		log.IterationKey, f.iterations,
		log.ARRhoKey, out.Params.Rho,
		log.ARSigmaKey, out.Params.Sigma,
		log.DurationKey, float64(time.Since(start).Microseconds())/1000,
	)
	return out, nil
}

// reestimate は元のスケールの残差から次の Params を推定する
func (f *Fitter) reestimate(y mat.Vector, model *linear.Model, res *linear.Results) (Params, error) {
	residual, err := metrics.Difference(metrics.VecData(y), res.Predicted())
	if err != nil {
		return Params{}, err
	}

	opts := []stats.YuleWalkerOption{
		stats.WithMethod(f.method),
		stats.WithLogger(f.logger),
	}
	if f.sampleSize == SampleSizeResidualDF {
		opts = append(opts, stats.WithDF(model.DFResid()))
	}

	yw, err := stats.YuleWalker(residual, f.order, opts...)
	if err != nil {
		return Params{}, err
	}
	return Params{Rho: yw.Rho, Sigma: yw.Sigma}, nil
}

func (f *Fitter) transition(out *Outcome, it int, s State) {
	out.State = s
	if f.observer == nil {
		return
	}
	f.observer(Step{
		Iteration: it,
		State:     s,
		Params:    out.Params.Clone(),
		Results:   out.Results,
	})
}

func (f *Fitter) fail(err error, it int) error {
	f.logger.Error("iterative fit aborted",
		log.OperationKey, log.OperationIterate,
		log.IterationKey, it,
		log.ErrAttrKey, err,
	)
	return errors.Wrapf(err, "iteration %d", it)
}
