// Package log defines standard attribute keys for estimation runs.
//
// Keys follow a hierarchical naming convention ("model.name", "data.samples")
// so that log pipelines can filter on them.

package log

// Model and operation context.
const (
	// ModelNameKey identifies the model variant, e.g. "OLS", "WLS", "GLS", "AR".
	ModelNameKey = "model.name"

	// WhitenerKey identifies the whitening strategy applied to design and response.
	WhitenerKey = "model.whitener"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies the package performing the operation.
	ComponentKey = "ml.component"
)

// Data shape.
const (
	// SamplesKey is the number of observations (rows of the design).
	SamplesKey = "data.samples"

	// FeaturesKey is the number of predictors (columns of the design).
	FeaturesKey = "data.features"

	// RankKey is the numerical rank of the design.
	RankKey = "data.rank"
)

// Fit statistics.
const (
	DFResidKey  = "fit.df_resid"
	DFModelKey  = "fit.df_model"
	SSRKey      = "fit.ssr"
	R2ScoreKey  = "fit.r2"
	ScaleKey    = "fit.scale"
	LogLikeKey  = "fit.llf"
	DurationKey = "perf.duration_ms"
)

// Autoregressive estimation.
const (
	// IterationKey records the current iteration of the AR refit loop.
	IterationKey = "training.iteration"

	// AROrderKey is the autoregressive order p.
	AROrderKey = "ar.order"

	// ARRhoKey holds the current AR coefficient vector.
	ARRhoKey = "ar.rho"

	// ARSigmaKey holds the innovation standard deviation.
	ARSigmaKey = "ar.sigma"

	// ACFMethodKey is the autocovariance denominator method ("unbiased" or "mle").
	ACFMethodKey = "ar.method"
)

// Error context.
const (
	ErrorCodeKey  = "error.code"
	SuggestionKey = "error.suggestion"
)

// Standard attribute values.
const (
	OperationFit        = "fit"
	OperationWhiten     = "whiten"
	OperationYuleWalker = "yule_walker"
	OperationIterate    = "iterative_fit"

	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorSingularMatrix    = "SINGULAR_MATRIX"
	ErrorNumerical         = "NUMERICAL_ERROR"
	ErrorDegenerateModel   = "DEGENERATE_MODEL"
	ErrorInvalidArgument   = "INVALID_ARGUMENT"
)
