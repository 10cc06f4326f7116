// Package stats estimates autoregressive error structure from a series.
package stats

import (
	"strings"

	"github.com/YuminosukeSato/glsfit/pkg/errors"
	"github.com/viterin/vek"
)

// Method selects the denominator of the lag-k autocovariance.
type Method string

const (
	// MethodUnbiased divides the lag-k sum by n-k.
	MethodUnbiased Method = "unbiased"
	// MethodMLE divides every lag by n.
	MethodMLE Method = "mle"
)

// ParseMethod accepts "unbiased", "mle" or "biased" in any case.
// "biased" is an alias of "mle".
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unbiased":
		return MethodUnbiased, nil
	case "mle", "biased":
		return MethodMLE, nil
	default:
		return "", errors.NewValidationError("method", "ACF estimation method must be 'unbiased' or 'mle'", s)
	}
}

// Demean returns a copy of x with its mean subtracted.
func Demean(x []float64) []float64 {
	if len(x) == 0 {
		return []float64{}
	}
	return vek.SubNumber(x, vek.Mean(x))
}

// Autocovariance returns r_0..r_maxLag of the demeaned series.
//
// n is the effective sample size used in the denominators; n <= 0 means
// len(x). A lag whose denominator is not positive is rejected.
func Autocovariance(x []float64, maxLag int, method Method, n int) ([]float64, error) {
	const op = "stats.Autocovariance"

	if len(x) == 0 {
		return nil, errors.NewValueError(op, "empty series")
	}
	if maxLag < 0 {
		return nil, errors.NewValidationError("order", "must be non-negative", maxLag)
	}
	if maxLag >= len(x) {
		return nil, errors.NewValidationError("order", "must be smaller than the series length", maxLag)
	}
	method, err := ParseMethod(string(method))
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		n = len(x)
	}

	xc := Demean(x)
	m := len(xc)
	r := make([]float64, maxLag+1)
	for k := 0; k <= maxLag; k++ {
		denom := float64(n)
		if method == MethodUnbiased {
			denom = float64(n - k)
		}
		if denom <= 0 {
			return nil, errors.NewValueError(op, "non-positive autocovariance denominator")
		}
		r[k] = vek.Dot(xc[:m-k], xc[k:]) / denom
	}
	return r, nil
}
