// Package config loads estimation jobs from YAML documents.
package config

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/YuminosukeSato/glsfit/ar"
	"github.com/YuminosukeSato/glsfit/linear"
	"github.com/YuminosukeSato/glsfit/pkg/errors"
	"github.com/YuminosukeSato/glsfit/stats"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// Model names accepted in Job.Model.
const (
	ModelOLS = "ols"
	ModelWLS = "wls"
	ModelGLS = "gls"
	ModelAR  = "ar"
)

// ARConfig configures the iterative AR fit.
type ARConfig struct {
	Order      int       `yaml:"order"`
	Iterations int       `yaml:"iterations,omitempty"`
	Method     string    `yaml:"method,omitempty"`
	SampleSize string    `yaml:"sample_size,omitempty"`
	Rho        []float64 `yaml:"rho,omitempty"`
}

// Job は1回の推定に必要な入力
type Job struct {
	Model    string      `yaml:"model"`
	Design   [][]float64 `yaml:"design"`
	Response []float64   `yaml:"response"`
	Weights  []float64   `yaml:"weights,omitempty"`
	Weight   *float64    `yaml:"weight,omitempty"`
	Sigma    [][]float64 `yaml:"sigma,omitempty"`
	AR       *ARConfig   `yaml:"ar,omitempty"`
	Series   []float64   `yaml:"series,omitempty"`
	LogLevel string      `yaml:"log_level,omitempty"`
}

// Load reads and validates the job file at path.
func Load(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML job. Unknown keys are rejected.
func Parse(data []byte) (*Job, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var job Job
	if err := dec.Decode(&job); err != nil {
		if err == io.EOF {
			return nil, errors.NewValidationError("config", "empty document", "")
		}
		return nil, errors.Wrap(err, "decode config")
	}
	job.Model = strings.ToLower(strings.TrimSpace(job.Model))

	if err := job.Validate(); err != nil {
		return nil, err
	}
	return &job, nil
}

// Validate はジョブの整合性を検査する
//
// model が空の場合は Yule-Walker 用のジョブとして series か response を要求する。
func (j *Job) Validate() error {
	if j.Model == "" {
		if len(j.SeriesData()) == 0 {
			return errors.NewValidationError("model", "required unless series is given", "")
		}
		return nil
	}

	switch j.Model {
	case ModelOLS, ModelWLS, ModelGLS, ModelAR:
	default:
		return errors.NewValidationError("model", "must be one of ols, wls, gls, ar", j.Model)
	}

	rows := len(j.Design)
	if rows == 0 || len(j.Design[0]) == 0 {
		return errors.NewValidationError("design", "must be a non-empty matrix", rows)
	}
	cols := len(j.Design[0])
	for _, row := range j.Design {
		if len(row) != cols {
			return errors.NewDimensionError("config.design", cols, len(row), 1)
		}
	}
	if len(j.Response) != rows {
		return errors.NewDimensionError("config.response", rows, len(j.Response), 0)
	}

	switch j.Model {
	case ModelWLS:
		if (j.Weight == nil) == (len(j.Weights) == 0) {
			return errors.NewValidationError("weights", "exactly one of weights or weight is required", len(j.Weights))
		}
		if len(j.Weights) > 0 && len(j.Weights) != rows {
			return errors.NewDimensionError("config.weights", rows, len(j.Weights), 0)
		}
	case ModelGLS:
		if len(j.Sigma) != rows {
			return errors.NewDimensionError("config.sigma", rows, len(j.Sigma), 0)
		}
		for _, row := range j.Sigma {
			if len(row) != rows {
				return errors.NewDimensionError("config.sigma", rows, len(row), 1)
			}
		}
	case ModelAR:
		if j.AR == nil {
			return errors.NewValidationError("ar", "required for model ar", nil)
		}
		if j.AR.Order < 0 {
			return errors.NewValidationError("ar.order", "must be non-negative", j.AR.Order)
		}
		if j.AR.Iterations < 0 {
			return errors.NewValidationError("ar.iterations", "must be positive", j.AR.Iterations)
		}
		if j.AR.Method != "" {
			if _, err := stats.ParseMethod(j.AR.Method); err != nil {
				return err
			}
		}
		if _, err := ar.ParseSampleSize(j.AR.SampleSize); err != nil {
			return err
		}
		if len(j.AR.Rho) > 0 && len(j.AR.Rho) != j.AR.Order {
			return errors.NewDimensionError("config.ar.rho", j.AR.Order, len(j.AR.Rho), 0)
		}
	}
	return nil
}

// DesignMatrix returns the design as a dense matrix.
func (j *Job) DesignMatrix() *mat.Dense {
	return denseOf(j.Design)
}

// ResponseVector returns the response as a vector.
func (j *Job) ResponseVector() *mat.VecDense {
	return mat.NewVecDense(len(j.Response), append([]float64(nil), j.Response...))
}

// SeriesData returns Series, falling back to Response.
func (j *Job) SeriesData() []float64 {
	if len(j.Series) > 0 {
		return append([]float64(nil), j.Series...)
	}
	return append([]float64(nil), j.Response...)
}

// BuildModel は model に対応する線形モデルを構築する
//
// ar の場合は ar.rho（なければ0）で白色化したモデルを返す。
func (j *Job) BuildModel(opts ...linear.Option) (*linear.Model, error) {
	design := j.DesignMatrix()
	switch j.Model {
	case ModelOLS:
		return linear.NewOLS(design, opts...)
	case ModelWLS:
		if j.Weight != nil {
			return linear.NewScalarWLS(design, *j.Weight, opts...)
		}
		return linear.NewWLS(design, j.Weights, opts...)
	case ModelGLS:
		return linear.NewGLS(design, denseOf(j.Sigma), opts...)
	case ModelAR:
		return linear.NewAR(design, j.initialRho(), opts...)
	default:
		return nil, errors.NewValidationError("model", "must be one of ols, wls, gls, ar", j.Model)
	}
}

// Fitter は ar セクションから反復推定器を構築する
func (j *Job) Fitter(opts ...ar.Option) (*ar.Fitter, error) {
	if j.AR == nil {
		return nil, errors.NewValidationError("ar", "required for model ar", nil)
	}
	var base []ar.Option
	if j.AR.Iterations > 0 {
		base = append(base, ar.WithIterations(j.AR.Iterations))
	}
	if j.AR.Method != "" {
		base = append(base, ar.WithMethod(stats.Method(j.AR.Method)))
	}
	size, err := ar.ParseSampleSize(j.AR.SampleSize)
	if err != nil {
		return nil, err
	}
	base = append(base, ar.WithSampleSize(size))
	return ar.NewFitter(j.AR.Order, append(base, opts...)...)
}

// InitialParams returns the starting AR parameters.
func (j *Job) InitialParams() ar.Params {
	return ar.Params{Rho: j.initialRho()}
}

func (j *Job) initialRho() []float64 {
	if j.AR == nil {
		return nil
	}
	if len(j.AR.Rho) > 0 {
		return append([]float64(nil), j.AR.Rho...)
	}
	return make([]float64, j.AR.Order)
}

func denseOf(rows [][]float64) *mat.Dense {
	r := len(rows)
	c := len(rows[0])
	data := make([]float64, 0, r*c)
	for _, row := range rows {
		data = append(data, row...)
	}
	return mat.NewDense(r, c, data)
}
