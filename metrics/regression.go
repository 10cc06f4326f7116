// Package metrics provides the sum-of-squares primitives used by the
// estimation engine.
package metrics

import (
	"github.com/YuminosukeSato/glsfit/pkg/errors"
	"github.com/viterin/vek"
	"gonum.org/v1/gonum/mat"
)

// SumSquares は Σx² を返す
func SumSquares(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return vek.Dot(x, x)
}

// Mean は算術平均を返す（空の場合は0）
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return vek.Mean(x)
}

// CenteredSumSquares は Σ(x - center)² を返す
func CenteredSumSquares(x []float64, center float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return SumSquares(vek.SubNumber(x, center))
}

// Difference は a - b を新しいスライスとして返す
func Difference(a, b []float64) ([]float64, error) {
	if len(a) != len(b) {
		return nil, errors.NewDimensionError("metrics.Difference", len(a), len(b), 0)
	}
	if len(a) == 0 {
		return []float64{}, nil
	}
	return vek.Sub(a, b), nil
}

// VecData はベクトルの値を連続したスライスにコピーする
func VecData(v mat.Vector) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}
