package linear

import (
	"math"

	"github.com/YuminosukeSato/glsfit/core/parallel"
	"github.com/YuminosukeSato/glsfit/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Kind は白色化変換の種類
type Kind int

const (
	KindIdentity Kind = iota
	KindDiagonal
	KindCholesky
	KindAR
)

// String returns the conventional model name for the whitening kind.
func (k Kind) String() string {
	switch k {
	case KindIdentity:
		return "OLS"
	case KindDiagonal:
		return "WLS"
	case KindCholesky:
		return "GLS"
	case KindAR:
		return "AR"
	default:
		return "unknown"
	}
}

// Whitener は誤差の共分散構造を単位行列に変換する線形変換
//
// 同じ変換が計画行列と応答ベクトル（n×1行列）の両方に適用される。
// 実装はこのパッケージ内の4種類に限られる。
type Whitener interface {
	// Whiten は x を変換した新しい行列を返す。x は変更しない。
	Whiten(x mat.Matrix) (*mat.Dense, error)

	// Kind は変換の種類を返す
	Kind() Kind

	sealed()
}

// IdentityWhitener は変換を行わない（OLS）
type IdentityWhitener struct{}

// NewIdentityWhitener returns the OLS whitener.
func NewIdentityWhitener() IdentityWhitener {
	return IdentityWhitener{}
}

// Whiten returns a copy of x.
func (IdentityWhitener) Whiten(x mat.Matrix) (*mat.Dense, error) {
	return mat.DenseCopyOf(x), nil
}

// Kind implements Whitener.
func (IdentityWhitener) Kind() Kind { return KindIdentity }

func (IdentityWhitener) sealed() {}

// DiagonalWhitener は各行に √w_i を掛ける（WLS）
type DiagonalWhitener struct {
	weights     []float64 // nil の場合はスカラー
	sqrtWeights []float64
	sqrtScalar  float64
}

// NewDiagonalWhitener は観測ごとの重みから WLS の変換を作成する
func NewDiagonalWhitener(weights []float64) (*DiagonalWhitener, error) {
	if len(weights) == 0 {
		return nil, errors.NewModelError("NewDiagonalWhitener", "empty weights", errors.ErrEmptyData)
	}
	sq := make([]float64, len(weights))
	for i, w := range weights {
		if !(w >= 0) || math.IsInf(w, 1) {
			return nil, errors.NewValidationError("weights", "must be finite and non-negative", w)
		}
		sq[i] = math.Sqrt(w)
	}
	return &DiagonalWhitener{
		weights:     append([]float64(nil), weights...),
		sqrtWeights: sq,
	}, nil
}

// NewScalarDiagonalWhitener はすべての行に同じ重みを掛ける変換を作成する
func NewScalarDiagonalWhitener(weight float64) (*DiagonalWhitener, error) {
	if !(weight >= 0) || math.IsInf(weight, 1) {
		return nil, errors.NewValidationError("weights", "must be finite and non-negative", weight)
	}
	return &DiagonalWhitener{sqrtScalar: math.Sqrt(weight)}, nil
}

// Weights returns the per-row weights, or nil for a scalar weight.
func (w *DiagonalWhitener) Weights() []float64 {
	if w.weights == nil {
		return nil
	}
	return append([]float64(nil), w.weights...)
}

// Whiten scales row i of x by √w_i.
func (w *DiagonalWhitener) Whiten(x mat.Matrix) (*mat.Dense, error) {
	r, c := x.Dims()
	if w.sqrtWeights != nil && len(w.sqrtWeights) != r {
		return nil, errors.NewDimensionError("DiagonalWhitener.Whiten", len(w.sqrtWeights), r, 0)
	}

	out := mat.DenseCopyOf(x)
	parallel.ParallelizeWithThreshold(r, parallel.DefaultThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			s := w.sqrtScalar
			if w.sqrtWeights != nil {
				s = w.sqrtWeights[i]
			}
			for j := 0; j < c; j++ {
				out.Set(i, j, out.At(i, j)*s)
			}
		}
	})
	return out, nil
}

// Kind implements Whitener.
func (*DiagonalWhitener) Kind() Kind { return KindDiagonal }

func (*DiagonalWhitener) sealed() {}

// CholeskyWhitener は任意の誤差共分散 Σ に対する変換（GLS）
//
// pinv(Σ) = UᵀU となる上三角 U を構築時に求め、Whiten(X) = U·X とする。
type CholeskyWhitener struct {
	sigma *mat.Dense
	upper *mat.TriDense
}

// NewCholeskyWhitener は共分散行列 sigma から GLS の変換を作成する
func NewCholeskyWhitener(sigma mat.Matrix) (w *CholeskyWhitener, err error) {
	const op = "NewCholeskyWhitener"
	defer errors.Recover(&err, op)

	r, c := sigma.Dims()
	if r == 0 {
		return nil, errors.NewModelError(op, "empty covariance", errors.ErrEmptyData)
	}
	if r != c {
		return nil, errors.NewDimensionError(op, r, c, 1)
	}

	u, err := upperCholeskyOfPinv(op, sigma)
	if err != nil {
		return nil, err
	}
	return &CholeskyWhitener{sigma: mat.DenseCopyOf(sigma), upper: u}, nil
}

// Sigma returns a copy of the error covariance.
func (w *CholeskyWhitener) Sigma() *mat.Dense {
	return mat.DenseCopyOf(w.sigma)
}

// Factor returns a copy of the upper triangular factor U.
func (w *CholeskyWhitener) Factor() *mat.TriDense {
	n, _ := w.upper.Dims()
	out := mat.NewTriDense(n, mat.Upper, nil)
	out.Copy(w.upper)
	return out
}

// Whiten returns U·x.
func (w *CholeskyWhitener) Whiten(x mat.Matrix) (*mat.Dense, error) {
	n, _ := w.upper.Dims()
	r, c := x.Dims()
	if r != n {
		return nil, errors.NewDimensionError("CholeskyWhitener.Whiten", n, r, 0)
	}
	out := mat.NewDense(r, c, nil)
	out.Mul(w.upper, x)
	return out, nil
}

// Kind implements Whitener.
func (*CholeskyWhitener) Kind() Kind { return KindCholesky }

func (*CholeskyWhitener) sealed() {}

// ARWhitener は AR(p) 誤差に対する準差分変換
//
// out = X、k = 1..p について out[k:] -= ρ_k · X[:n-k]。減算には常に元の X を使う。
type ARWhitener struct {
	rho []float64
}

// NewARWhitener は自己回帰係数 rho から変換を作成する。rho はコピーされる。
func NewARWhitener(rho []float64) *ARWhitener {
	return &ARWhitener{rho: append([]float64(nil), rho...)}
}

// Rho returns a copy of the autoregressive coefficients.
func (w *ARWhitener) Rho() []float64 {
	return append([]float64(nil), w.rho...)
}

// Order returns p.
func (w *ARWhitener) Order() int {
	return len(w.rho)
}

// Whiten applies the quasi-difference column by column.
func (w *ARWhitener) Whiten(x mat.Matrix) (*mat.Dense, error) {
	r, c := x.Dims()
	out := mat.DenseCopyOf(x)

	diff := func(start, end int) {
		for j := start; j < end; j++ {
			for k, rho := range w.rho {
				lag := k + 1
				for i := lag; i < r; i++ {
					out.Set(i, j, out.At(i, j)-rho*x.At(i-lag, j))
				}
			}
		}
	}

	if r*c <= parallel.DefaultThreshold {
		diff(0, c)
	} else {
		parallel.Parallelize(c, diff)
	}
	return out, nil
}

// Kind implements Whitener.
func (*ARWhitener) Kind() Kind { return KindAR }

func (*ARWhitener) sealed() {}
