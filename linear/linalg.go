package linear

import (
	"math"

	"github.com/YuminosukeSato/glsfit/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const (
	// pinvRcond は擬似逆行列で切り捨てる特異値の相対閾値
	pinvRcond = 1e-15

	// DefaultRankTolerance は数値ランク判定に使う特異値の相対閾値
	DefaultRankTolerance = 1e-12
)

// factorizeSVD はthin SVDを計算する
func factorizeSVD(op string, a mat.Matrix) (*mat.SVD, error) {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, errors.NewModelError(op, "svd did not converge", errors.ErrNumerical)
	}
	return &svd, nil
}

// PseudoInverse はMoore-Penrose擬似逆行列 V Σ⁺ Uᵀ を計算する
func PseudoInverse(op string, a mat.Matrix) (*mat.Dense, error) {
	svd, err := factorizeSVD(op, a)
	if err != nil {
		return nil, err
	}
	return pinvFromSVD(svd, a), nil
}

func pinvFromSVD(svd *mat.SVD, a mat.Matrix) *mat.Dense {
	r, c := a.Dims()
	values := svd.Values(nil)

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	cutoff := 0.0
	if len(values) > 0 {
		cutoff = pinvRcond * values[0]
	}

	// V の各列を 1/σ でスケールする（閾値以下は0）
	k := len(values)
	scaled := mat.NewDense(c, k, nil)
	for j := 0; j < k; j++ {
		if values[j] <= cutoff {
			continue
		}
		inv := 1 / values[j]
		for i := 0; i < c; i++ {
			scaled.Set(i, j, v.At(i, j)*inv)
		}
	}

	out := mat.NewDense(c, r, nil)
	out.Mul(scaled, u.T())
	return out
}

// Rank は最大特異値に対して tol 倍を超える特異値の数を数値ランクとして返す
func Rank(op string, a mat.Matrix, tol float64) (int, error) {
	svd, err := factorizeSVD(op, a)
	if err != nil {
		return 0, err
	}
	values := svd.Values(nil)
	if len(values) == 0 || values[0] == 0 {
		return 0, nil
	}
	return svd.Rank(tol), nil
}

// upperCholeskyOfPinv は pinv(Σ) = UᵀU を満たす上三角 U を返す
func upperCholeskyOfPinv(op string, sigma mat.Matrix) (*mat.TriDense, error) {
	p, err := PseudoInverse(op, sigma)
	if err != nil {
		return nil, err
	}

	n, _ := p.Dims()
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, (p.At(i, j)+p.At(j, i))/2)
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return nil, errors.NewModelError(op, "cholesky factorization failed", errors.ErrNumerical)
	}

	var u mat.TriDense
	chol.UTo(&u)
	return &u, nil
}

// Solve は正方行列 a に対して a·x = b を解く
//
// 特異行列は SingularMatrixError を返す。悪条件だが解ける場合は
// IllConditionedWarning を errors.Warn に流して続行する。
func Solve(op string, a mat.Matrix, b mat.Vector) (*mat.VecDense, error) {
	var x mat.VecDense
	err := x.SolveVec(a, b)
	if err == nil {
		return &x, nil
	}

	var cond mat.Condition
	if errors.As(err, &cond) && !math.IsInf(float64(cond), 1) && !hasNaN(x.RawVector().Data) {
		errors.Warn(errors.NewIllConditionedWarning(op, float64(cond)))
		return &x, nil
	}
	return nil, errors.NewSingularMatrixError(op)
}

// Inverse は正方行列の逆行列を返す。エラーの扱いは Solve と同じ。
func Inverse(op string, a mat.Matrix) (*mat.Dense, error) {
	var inv mat.Dense
	err := inv.Inverse(a)
	if err == nil {
		return &inv, nil
	}

	var cond mat.Condition
	if errors.As(err, &cond) && !math.IsInf(float64(cond), 1) {
		errors.Warn(errors.NewIllConditionedWarning(op, float64(cond)))
		return &inv, nil
	}
	return nil, errors.NewSingularMatrixError(op)
}

func hasNaN(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}
