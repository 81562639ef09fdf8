package selection

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// symmetric builds an n x n matrix from its strict upper triangle (row-major) with an
// undefined diagonal.
func symmetric(n int, upper ...float64) *mat.Dense {
	out := mat.NewDense(n, n, nil)
	k := 0
	for i := range n {
		out.Set(i, i, math.NaN())
		for j := i + 1; j < n; j++ {
			out.Set(i, j, upper[k])
			out.Set(j, i, upper[k])
			k++
		}
	}
	return out
}

func sampleMetrics() Metrics {
	return Metrics{
		Members:     []string{"ACCESS-CM2", "CanESM5", "CESM2", "MIROC6", "MPI-ESM1-2-HR"},
		Performance: []float64{0.5, 1.2, 0.8, 1.9, 0.3},
		Independence: symmetric(5,
			1.0, 2.0, 1.5, 0.7,
			0.9, 1.1, 2.2,
			1.3, 0.6,
			1.8,
		),
		Spread: symmetric(5,
			0.4, 1.6, 2.5, 0.9,
			1.2, 0.8, 1.7,
			2.1, 0.5,
			1.4,
		),
	}
}

func diagonal(values ...float64) *mat.Dense {
	n := len(values)
	out := mat.NewDense(n, n, nil)
	for i, v := range values {
		out.Set(i, i, v)
	}
	return out
}
