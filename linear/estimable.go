package linear

import (
	"github.com/YuminosukeSato/glsfit/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// IsEstimable は対比 c が計画行列 d の下で推定可能かを判定する
//
// rank([c; d]) == rank(d) の場合に true を返す。長さ p の列ベクトルとして
// 渡された c は1行の対比として扱う。
func IsEstimable(c, d mat.Matrix) (ok bool, err error) {
	const op = "IsEstimable"
	defer errors.Recover(&err, op)

	if c == nil || d == nil {
		return false, errors.NewValueError(op, "nil argument")
	}

	dr, dc := d.Dims()
	cr, cc := c.Dims()
	if dr == 0 || dc == 0 || cr == 0 {
		return false, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if cc == 1 && cr == dc && dc != 1 {
		c = c.T()
		cr, cc = cc, cr
	}
	if cc != dc {
		return false, errors.NewDimensionError(op, dc, cc, 1)
	}

	stacked := mat.NewDense(cr+dr, dc, nil)
	stacked.Slice(0, cr, 0, dc).(*mat.Dense).Copy(c)
	stacked.Slice(cr, cr+dr, 0, dc).(*mat.Dense).Copy(d)

	rankStacked, err := Rank(op, stacked, DefaultRankTolerance)
	if err != nil {
		return false, err
	}
	rankD, err := Rank(op, d, DefaultRankTolerance)
	if err != nil {
		return false, err
	}
	return rankStacked == rankD, nil
}
