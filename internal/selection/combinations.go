package selection

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/combin"
)

// Binomial returns n choose m, failing instead of overflowing.
func Binomial(n, m int) (int, error) {
	if m < 0 || n < 0 || m > n {
		return 0, nil
	}
	if combin.GeneralizedBinomial(float64(n), float64(m)) > float64(math.MaxInt64/2) {
		return 0, fmt.Errorf("%w: %d choose %d", ErrTooManyCombinations, n, m)
	}
	return combin.Binomial(n, m), nil
}

// subsetCost sums the cost over every ordered pair (i, j) of the subset, diagonal included.
// Off-diagonal pairs are therefore counted twice, matching the halving in Normalize.
func subsetCost(data []float64, stride int, idx []int) float64 {
	var total float64
	for _, i := range idx {
		row := data[i*stride:]
		for _, j := range idx {
			total += row[j]
		}
	}
	return total
}
