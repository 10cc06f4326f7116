package stats

import (
	"math"

	"github.com/YuminosukeSato/glsfit/linear"
	"github.com/YuminosukeSato/glsfit/pkg/errors"
	"github.com/YuminosukeSato/glsfit/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// YuleWalkerResult holds the AR(p) estimate.
type YuleWalkerResult struct {
	// Rho are the autoregressive coefficients ρ_1..ρ_p.
	Rho []float64
	// Sigma is the innovation standard deviation.
	Sigma float64
	// Autocov are r_0..r_p.
	Autocov []float64
	// Inverse is R⁻¹, set only when WithInverse is given and p > 0.
	Inverse *mat.Dense
	Method  Method
}

type yuleWalkerConfig struct {
	method  Method
	df      int
	inverse bool
	logger  log.Logger
}

// YuleWalkerOption configures YuleWalker.
type YuleWalkerOption func(*yuleWalkerConfig)

// WithMethod sets the autocovariance denominator. Defaults to MethodUnbiased.
func WithMethod(m Method) YuleWalkerOption {
	return func(c *yuleWalkerConfig) {
		c.method = m
	}
}

// WithDF replaces the sample size n in the denominators.
func WithDF(df int) YuleWalkerOption {
	return func(c *yuleWalkerConfig) {
		c.df = df
	}
}

// WithInverse also returns the inverse of the Toeplitz matrix.
func WithInverse() YuleWalkerOption {
	return func(c *yuleWalkerConfig) {
		c.inverse = true
	}
}

// WithLogger sets the logger for estimation diagnostics.
func WithLogger(l log.Logger) YuleWalkerOption {
	return func(c *yuleWalkerConfig) {
		c.logger = l
	}
}

// YuleWalker は Yule-Walker 方程式で系列 x の AR(order) 係数を推定する
//
// 系列は平均を引いてから自己共分散 r_0..r_p を求め、Toeplitz 行列 R について
// R·ρ = (r_1..r_p) を解く。σ² = r_0 - Σρ_k r_k が負になる場合はエラー。
func YuleWalker(x []float64, order int, opts ...YuleWalkerOption) (res *YuleWalkerResult, err error) {
	const op = "stats.YuleWalker"
	defer errors.Recover(&err, op)

	cfg := yuleWalkerConfig{method: MethodUnbiased}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = log.GetLogger()
	}
	if cfg.df < 0 {
		return nil, errors.NewValidationError("df", "must be non-negative", cfg.df)
	}

	r, err := Autocovariance(x, order, cfg.method, cfg.df)
	if err != nil {
		return nil, err
	}
	method, _ := ParseMethod(string(cfg.method))

	res = &YuleWalkerResult{
		Rho:     []float64{},
		Autocov: r,
		Method:  method,
	}

	sigmasq := r[0]
	if order > 0 {
		toeplitz := mat.NewDense(order, order, nil)
		for i := 0; i < order; i++ {
			for j := 0; j < order; j++ {
				lag := i - j
				if lag < 0 {
					lag = -lag
				}
				toeplitz.Set(i, j, r[lag])
			}
		}

		rho, err := linear.Solve(op, toeplitz, mat.NewVecDense(order, append([]float64(nil), r[1:]...)))
		if err != nil {
			return nil, err
		}
		res.Rho = append(res.Rho, rho.RawVector().Data...)

		for k, v := range res.Rho {
			sigmasq -= v * r[k+1]
		}

		if cfg.inverse {
			inv, err := linear.Inverse(op, toeplitz)
			if err != nil {
				return nil, err
			}
			res.Inverse = inv
		}
	}

	if err := errors.CheckNonNegative(op+": innovation variance", sigmasq); err != nil {
		return nil, err
	}
	res.Sigma = math.Sqrt(sigmasq)

	cfg.logger.Debug("yule-walker estimate",
		log.OperationKey, log.OperationYuleWalker,
		log.AROrderKey, order,
		log.ACFMethodKey, string(method),
		log.ARRhoKey, res.Rho,
		log.ARSigmaKey, res.Sigma,
	)
	return res, nil
}

// YuleWalkerMatrix は n×1 または 1×n の行列を系列として YuleWalker を呼ぶ
func YuleWalkerMatrix(x mat.Matrix, order int, opts ...YuleWalkerOption) (*YuleWalkerResult, error) {
	const op = "stats.YuleWalkerMatrix"
	if x == nil {
		return nil, errors.NewValueError(op, "nil input")
	}

	r, c := x.Dims()
	var series []float64
	switch {
	case c == 1:
		series = make([]float64, r)
		for i := range series {
			series[i] = x.At(i, 0)
		}
	case r == 1:
		series = make([]float64, c)
		for j := range series {
			series[j] = x.At(0, j)
		}
	default:
		return nil, errors.NewValueError(op, "expecting a vector to estimate AR parameters")
	}
	return YuleWalker(series, order, opts...)
}
