package selection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopK(t *testing.T) {
	top := newTopK(2)

	idx := []int{0, 1}
	assert.True(t, top.offer(5, idx))
	idx[0] = 9 // admitted indices are copied
	assert.Equal(t, []int{0, 1}, top.at(0).indices)

	assert.True(t, top.offer(3, []int{0, 2}))
	assert.False(t, top.offer(5, []int{1, 2}), "ties never displace an earlier entry")
	assert.False(t, top.offer(3, []int{1, 3}))
	assert.False(t, top.offer(math.NaN(), []int{2, 3}))
	assert.False(t, top.offer(7, []int{2, 4}))

	assert.True(t, top.offer(4, []int{3, 4}))
	require.Equal(t, 2, top.len())
	assert.Equal(t, 3.0, top.at(0).cost)
	assert.Equal(t, []int{0, 2}, top.at(0).indices)
	assert.Equal(t, 4.0, top.at(1).cost)
	assert.Equal(t, []int{3, 4}, top.at(1).indices)

	assert.True(t, top.offer(-1, []int{5, 6}))
	assert.Equal(t, []int{5, 6}, top.at(0).indices)
	assert.Equal(t, []int{0, 2}, top.at(1).indices)
}

func TestTopK_Single(t *testing.T) {
	top := newTopK(1)
	assert.True(t, top.offer(math.Inf(1), []int{0}))
	assert.True(t, top.offer(2, []int{1}))
	assert.False(t, top.offer(2, []int{2}))
	assert.True(t, top.offer(1, []int{3}))
	require.Equal(t, 1, top.len())
	assert.Equal(t, []int{3}, top.at(0).indices)
}
