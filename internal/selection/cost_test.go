package selection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func literalTriple() NormalizedTriple {
	return NormalizedTriple{
		Members:     []string{"a", "b", "c"},
		Performance: diagonal(0.4, -1.2, 0.8),
		Independence: mat.NewDense(3, 3, []float64{
			0, 0.5, -0.25,
			0.5, 0, 0.1,
			-0.25, 0.1, 0,
		}),
		Spread: mat.NewDense(3, 3, []float64{
			0, -0.3, 0.6,
			-0.3, 0, 0.2,
			0.6, 0.2, 0,
		}),
	}
}

func TestBuildCostMatrix_Formula(t *testing.T) {
	triple := literalTriple()
	cost, err := BuildCostMatrix(0.3, 0.2, triple)
	require.NoError(t, err)

	for i := range 3 {
		for j := range 3 {
			want := 0.5*triple.Performance.At(i, j) - 0.3*triple.Independence.At(i, j) - 0.2*triple.Spread.At(i, j)
			assert.InDelta(t, want, cost.At(i, j), 1e-12, "entry (%d,%d)", i, j)
		}
	}
	assert.InDelta(t, -0.6, cost.At(1, 1), 1e-12)
	assert.InDelta(t, -0.09, cost.At(0, 1), 1e-12)
}

func TestBuildCostMatrix_Corners(t *testing.T) {
	triple := literalTriple()

	perfOnly, err := BuildCostMatrix(0, 0, triple)
	require.NoError(t, err)
	assert.True(t, mat.Equal(triple.Performance, perfOnly))

	indepOnly, err := BuildCostMatrix(1, 0, triple)
	require.NoError(t, err)
	var neg mat.Dense
	neg.Scale(-1, triple.Independence)
	assert.True(t, mat.EqualApprox(&neg, indepOnly, 1e-15))

	spreadOnly, err := BuildCostMatrix(0, 1, triple)
	require.NoError(t, err)
	neg.Scale(-1, triple.Spread)
	assert.True(t, mat.EqualApprox(&neg, spreadOnly, 1e-15))
}

func TestBuildCostMatrix_DoesNotModifyTriple(t *testing.T) {
	triple := literalTriple()
	before := mat.DenseCopyOf(triple.Independence)

	_, err := BuildCostMatrix(0.5, 0.5, triple)
	require.NoError(t, err)
	assert.True(t, mat.Equal(before, triple.Independence))
}

func TestValidateWeights(t *testing.T) {
	valid := [][2]float64{{0, 0}, {1, 0}, {0, 1}, {0.7, 0.3}, {0.1 * 7, 0.1 * 3}}
	for _, w := range valid {
		assert.NoError(t, ValidateWeights(w[0], w[1]), "alpha=%g beta=%g", w[0], w[1])
	}

	invalid := [][2]float64{{-0.1, 0}, {0, -0.1}, {0.6, 0.5}, {math.NaN(), 0}, {0, math.NaN()}}
	for _, w := range invalid {
		assert.ErrorIs(t, ValidateWeights(w[0], w[1]), ErrInvalidWeights, "alpha=%g beta=%g", w[0], w[1])
	}

	_, err := BuildCostMatrix(0.8, 0.8, literalTriple())
	assert.ErrorIs(t, err, ErrInvalidWeights)
}
