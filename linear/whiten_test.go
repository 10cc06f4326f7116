package linear

import (
	"math/rand/v2"
	"testing"

	"github.com/YuminosukeSato/glsfit/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestIdentityWhitenerCopies(t *testing.T) {
	x := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	out, err := NewIdentityWhitener().Whiten(x)
	require.NoError(t, err)
	assert.True(t, mat.Equal(x, out))

	out.Set(0, 0, 99)
	assert.Equal(t, 1.0, x.At(0, 0), "input must not be aliased")
}

func TestDiagonalWhitener(t *testing.T) {
	x := mat.NewDense(3, 2, []float64{
		1, 1,
		2, 1,
		3, 1,
	})

	t.Run("per row weights", func(t *testing.T) {
		w, err := NewDiagonalWhitener([]float64{1, 4, 9})
		require.NoError(t, err)
		out, err := w.Whiten(x)
		require.NoError(t, err)
		want := mat.NewDense(3, 2, []float64{
			1, 1,
			4, 2,
			9, 3,
		})
		assert.True(t, mat.EqualApprox(want, out, 1e-12))
		assert.Equal(t, []float64{1, 4, 9}, w.Weights())
	})

	t.Run("weights are returned exactly", func(t *testing.T) {
		weights := []float64{2, 3, 0.1, 7}
		w, err := NewDiagonalWhitener(weights)
		require.NoError(t, err)
		got := w.Weights()
		assert.Equal(t, []float64{2, 3, 0.1, 7}, got)

		got[0] = 99
		weights[1] = 99
		assert.Equal(t, []float64{2, 3, 0.1, 7}, w.Weights())
	})

	t.Run("scalar weight", func(t *testing.T) {
		w, err := NewScalarDiagonalWhitener(4)
		require.NoError(t, err)
		out, err := w.Whiten(x)
		require.NoError(t, err)
		var want mat.Dense
		want.Scale(2, x)
		assert.True(t, mat.EqualApprox(&want, out, 1e-12))
		assert.Nil(t, w.Weights())
	})

	t.Run("length mismatch", func(t *testing.T) {
		w, err := NewDiagonalWhitener([]float64{1, 2})
		require.NoError(t, err)
		_, err = w.Whiten(x)
		var dimErr *errors.DimensionError
		assert.True(t, errors.As(err, &dimErr))
	})

	t.Run("negative weight", func(t *testing.T) {
		_, err := NewDiagonalWhitener([]float64{1, -1, 1})
		assert.True(t, errors.Is(err, errors.ErrInvalidArgument))

		_, err = NewScalarDiagonalWhitener(-2)
		assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
	})
}

func TestCholeskyWhitener(t *testing.T) {
	t.Run("factor satisfies UᵀU = pinv(Σ)", func(t *testing.T) {
		sigma := mat.NewDense(3, 3, []float64{
			2, 0.5, 0,
			0.5, 1, 0.2,
			0, 0.2, 3,
		})
		w, err := NewCholeskyWhitener(sigma)
		require.NoError(t, err)

		var inv, utu mat.Dense
		require.NoError(t, inv.Inverse(sigma))
		u := w.Factor()
		utu.Mul(u.T(), u)
		assert.True(t, mat.EqualApprox(&inv, &utu, 1e-10))

		// 白色化後の誤差共分散は単位行列になる: U Σ Uᵀ = I
		var us, usu mat.Dense
		us.Mul(u, sigma)
		usu.Mul(&us, u.T())
		assert.True(t, mat.EqualApprox(eye(3), &usu, 1e-10))
	})

	t.Run("non-square covariance", func(t *testing.T) {
		_, err := NewCholeskyWhitener(mat.NewDense(2, 3, nil))
		var dimErr *errors.DimensionError
		assert.True(t, errors.As(err, &dimErr))
	})

	t.Run("row mismatch", func(t *testing.T) {
		w, err := NewCholeskyWhitener(eye(3))
		require.NoError(t, err)
		_, err = w.Whiten(mat.NewDense(4, 1, nil))
		var dimErr *errors.DimensionError
		assert.True(t, errors.As(err, &dimErr))
	})

	t.Run("zero covariance cannot be factored", func(t *testing.T) {
		_, err := NewCholeskyWhitener(mat.NewDense(2, 2, nil))
		assert.True(t, errors.Is(err, errors.ErrNumerical))
	})
}

func TestARWhitener(t *testing.T) {
	t.Run("quasi-difference uses original values", func(t *testing.T) {
		w := NewARWhitener([]float64{0.5, -0.25})
		out, err := w.Whiten(mat.NewDense(4, 1, []float64{1, 2, 4, 8}))
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{1, 1.5, 3.25, 6.5}, out.RawMatrix().Data, 1e-12)
	})

	t.Run("order zero is identity", func(t *testing.T) {
		x := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
		out, err := NewARWhitener(nil).Whiten(x)
		require.NoError(t, err)
		assert.True(t, mat.Equal(x, out))
	})

	t.Run("order beyond length only touches reachable rows", func(t *testing.T) {
		w := NewARWhitener([]float64{1, 1, 1, 1})
		out, err := w.Whiten(mat.NewDense(2, 1, []float64{3, 5}))
		require.NoError(t, err)
		assert.Equal(t, []float64{3, 2}, out.RawMatrix().Data)
	})

	t.Run("rho is copied", func(t *testing.T) {
		rho := []float64{0.3}
		w := NewARWhitener(rho)
		rho[0] = 9
		assert.Equal(t, []float64{0.3}, w.Rho())
		assert.Equal(t, 1, w.Order())
	})

	t.Run("parallel path matches sequential", func(t *testing.T) {
		rng := rand.New(rand.NewPCG(1, 2))
		rows, cols := 600, 8
		x := mat.NewDense(rows, cols, nil)
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				x.Set(i, j, rng.NormFloat64())
			}
		}
		w := NewARWhitener([]float64{0.4, 0.1})
		out, err := w.Whiten(x)
		require.NoError(t, err)

		for j := 0; j < cols; j++ {
			col, err := w.Whiten(mat.DenseCopyOf(x.Slice(0, rows, j, j+1)))
			require.NoError(t, err)
			for i := 0; i < rows; i++ {
				assert.Equal(t, col.At(i, 0), out.At(i, j))
			}
		}
	})
}

func TestWhitenersAreLinear(t *testing.T) {
	chol, err := NewCholeskyWhitener(mat.NewDense(3, 3, []float64{
		1, 0.3, 0,
		0.3, 1, 0.3,
		0, 0.3, 1,
	}))
	require.NoError(t, err)
	diag, err := NewDiagonalWhitener([]float64{1, 2, 3})
	require.NoError(t, err)

	whiteners := []Whitener{
		NewIdentityWhitener(),
		diag,
		chol,
		NewARWhitener([]float64{0.7, -0.2}),
	}

	x := mat.NewDense(3, 2, []float64{1, -2, 3, 0.5, 4, 7})
	y := mat.NewDense(3, 2, []float64{0, 1, -1, 2, 5, -3})
	a, b := 2.5, -0.75

	for _, w := range whiteners {
		t.Run(w.Kind().String(), func(t *testing.T) {
			var ax, by, combo mat.Dense
			ax.Scale(a, x)
			by.Scale(b, y)
			combo.Add(&ax, &by)

			wc, err := w.Whiten(&combo)
			require.NoError(t, err)
			wx, err := w.Whiten(x)
			require.NoError(t, err)
			wy, err := w.Whiten(y)
			require.NoError(t, err)

			var want mat.Dense
			wx.Scale(a, wx)
			wy.Scale(b, wy)
			want.Add(wx, wy)
			assert.True(t, mat.EqualApprox(&want, wc, 1e-10))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "OLS", KindIdentity.String())
	assert.Equal(t, "WLS", KindDiagonal.String())
	assert.Equal(t, "GLS", KindCholesky.String())
	assert.Equal(t, "AR", KindAR.String())
	assert.Equal(t, "unknown", Kind(42).String())
}

func eye(n int) *mat.Dense {
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		d.Set(i, i, 1)
	}
	return d
}
