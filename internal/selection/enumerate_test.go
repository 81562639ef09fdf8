package selection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSelect_PairOracle(t *testing.T) {
	triple, err := Normalize(sampleMetrics(), math.Inf(1))
	require.NoError(t, err)

	for _, w := range [][2]float64{{0, 0}, {0.3, 0.2}, {1, 0}, {0, 1}, {0.5, 0.5}, {0.1, 0.6}} {
		cost, err := BuildCostMatrix(w[0], w[1], triple)
		require.NoError(t, err)

		bestCost := math.Inf(1)
		var best []int
		for i := range 5 {
			for j := i + 1; j < 5; j++ {
				c := cost.At(i, i) + cost.At(j, j) + cost.At(i, j) + cost.At(j, i)
				if c < bestCost-1e-12 {
					bestCost = c
					best = []int{i, j}
				}
			}
		}

		sel, err := Select(cost, triple.Members, 2)
		require.NoError(t, err)
		assert.Equal(t, best, sel.Best.Indices, "alpha=%g beta=%g", w[0], w[1])
		assert.InDelta(t, bestCost, sel.Best.Cost, 1e-12)
		assert.Equal(t, 10, sel.Evaluated)
		assert.Nil(t, sel.RunnerUp)
	}
}

func TestSelect_SubsetShape(t *testing.T) {
	triple, err := Normalize(sampleMetrics(), math.Inf(1))
	require.NoError(t, err)
	cost, err := BuildCostMatrix(0.2, 0.3, triple)
	require.NoError(t, err)

	for m := 1; m <= 5; m++ {
		sel, err := Select(cost, triple.Members, m)
		require.NoError(t, err)

		require.Len(t, sel.Best.Indices, m)
		require.Len(t, sel.Best.Members, m)
		for k := 1; k < m; k++ {
			assert.Less(t, sel.Best.Indices[k-1], sel.Best.Indices[k])
		}
		for k, idx := range sel.Best.Indices {
			assert.Equal(t, triple.Members[idx], sel.Best.Members[k])
		}
		total, err := Binomial(5, m)
		require.NoError(t, err)
		assert.Equal(t, total, sel.Evaluated)
	}
}

func TestSelect_FullSetIsOnlyCandidate(t *testing.T) {
	cost := diagonal(1, 2, 3)
	sel, err := Select(cost, []string{"a", "b", "c"}, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, sel.Best.Indices)
	assert.InDelta(t, 6.0, sel.Best.Cost, 1e-15)
	assert.Equal(t, 1, sel.Evaluated)
}

func TestSelect_TieKeepsFirstEncountered(t *testing.T) {
	members := []string{"a", "b", "c", "d"}

	sel, err := Select(mat.NewDense(4, 4, nil), members, 2, WithRunnerUp(true))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, sel.Best.Indices)
	assert.Nil(t, sel.RunnerUp, "every subset ties, so no strictly worse runner-up exists")

	sel, err = Select(diagonal(0, 0, 0, 5), members, 1, WithRunnerUp(true))
	require.NoError(t, err)
	assert.Equal(t, []int{0}, sel.Best.Indices)
	require.NotNil(t, sel.RunnerUp)
	assert.Equal(t, []int{3}, sel.RunnerUp.Indices)
	assert.Equal(t, []string{"d"}, sel.RunnerUp.Members)
}

func TestSelect_RunnerUp(t *testing.T) {
	members := []string{"a", "b", "c", "d"}

	sel, err := Select(diagonal(3, 1, 2, 4), members, 1, WithRunnerUp(true))
	require.NoError(t, err)
	assert.Equal(t, []int{1}, sel.Best.Indices)
	require.NotNil(t, sel.RunnerUp)
	assert.Equal(t, []int{2}, sel.RunnerUp.Indices)
	assert.InDelta(t, 2.0, sel.RunnerUp.Cost, 1e-15)

	// {b,c} = 3, {a,b} = 4, {b,d} = 5
	sel, err = Select(diagonal(3, 1, 2, 4), members, 2, WithRunnerUp(true))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, sel.Best.Indices)
	require.NotNil(t, sel.RunnerUp)
	assert.Equal(t, []int{0, 1}, sel.RunnerUp.Indices)
	assert.Less(t, sel.Best.Cost, sel.RunnerUp.Cost)
}

func TestSelect_RunnerUpDoesNotChangeBest(t *testing.T) {
	triple, err := Normalize(sampleMetrics(), math.Inf(1))
	require.NoError(t, err)
	cost, err := BuildCostMatrix(0.4, 0.4, triple)
	require.NoError(t, err)

	plain, err := Select(cost, triple.Members, 3)
	require.NoError(t, err)
	withSecond, err := Select(cost, triple.Members, 3, WithRunnerUp(true))
	require.NoError(t, err)

	assert.Equal(t, plain.Best, withSecond.Best)
	require.NotNil(t, withSecond.RunnerUp)
	assert.Greater(t, withSecond.RunnerUp.Cost, withSecond.Best.Cost)
}

func TestSelect_Progress(t *testing.T) {
	triple, err := Normalize(sampleMetrics(), math.Inf(1))
	require.NoError(t, err)
	cost, err := BuildCostMatrix(0.1, 0.1, triple)
	require.NoError(t, err)

	var reports []Progress
	sel, err := Select(cost, triple.Members, 2, WithProgress(1, func(p Progress) {
		reports = append(reports, p)
	}))
	require.NoError(t, err)

	quiet, err := Select(cost, triple.Members, 2)
	require.NoError(t, err)
	assert.Equal(t, quiet.Best, sel.Best)

	require.Len(t, reports, 9)
	for k, p := range reports {
		assert.Equal(t, k+1, p.Examined)
		assert.Equal(t, 10, p.Total)
		assert.InDelta(t, float64(k+1)/10, p.Fraction, 1e-15)
		assert.Len(t, p.Best.Members, 2)
	}

	reports = nil
	_, err = Select(cost, triple.Members, 2, WithProgress(3, func(p Progress) {
		reports = append(reports, p)
	}))
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, 4, reports[0].Examined)
	assert.Equal(t, 8, reports[1].Examined)
}

func TestSelect_Errors(t *testing.T) {
	members := []string{"a", "b", "c"}
	cost := diagonal(1, 2, 3)

	_, err := Select(cost, members, 4)
	assert.ErrorIs(t, err, ErrSubsetTooLarge)

	_, err = Select(cost, members, 0)
	assert.ErrorIs(t, err, ErrInvalidSubsetSize)

	_, err = Select(cost, members[:2], 1)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	nan := diagonal(math.NaN(), math.NaN(), math.NaN())
	_, err = Select(nan, members, 2)
	assert.ErrorIs(t, err, ErrNoFiniteSubset)
}

func TestProgressMask(t *testing.T) {
	assert.Equal(t, 0, progressMask(0))
	assert.Equal(t, 0, progressMask(1))
	assert.Equal(t, 1, progressMask(2))
	assert.Equal(t, 3, progressMask(3))
	assert.Equal(t, 1023, progressMask(1024))
	assert.Equal(t, 2047, progressMask(1025))
}

func TestBinomial(t *testing.T) {
	cases := []struct{ n, m, want int }{
		{5, 2, 10},
		{5, 5, 1},
		{5, 0, 1},
		{62, 7, 491796152},
		{3, 4, 0},
	}
	for _, c := range cases {
		got, err := Binomial(c.n, c.m)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "%d choose %d", c.n, c.m)
	}

	_, err := Binomial(200, 100)
	assert.ErrorIs(t, err, ErrTooManyCombinations)
}

func TestDescribe(t *testing.T) {
	raw := sampleMetrics()
	reps := Describe(Subset{Indices: []int{1, 3}}, raw)

	require.Len(t, reps, 2)
	assert.Equal(t, "CanESM5", reps[0].Member)
	assert.Equal(t, 1.2, reps[0].Performance)
	assert.Equal(t, 1.1, reps[0].Independence[1])
	assert.Equal(t, 0.8, reps[1].Spread[0])
	assert.True(t, math.IsNaN(reps[1].Spread[1]))
}
