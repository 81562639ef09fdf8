package selection

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ValidateWeights reports whether (alpha, beta) lies on the weight simplex.
func ValidateWeights(alpha, beta float64) error {
	if math.IsNaN(alpha) || math.IsNaN(beta) || alpha < 0 || beta < 0 || alpha+beta > 1+weightTolerance {
		return fmt.Errorf("%w: got alpha=%g beta=%g", ErrInvalidWeights, alpha, beta)
	}
	return nil
}

// BuildCostMatrix combines the normalized triple into
// (1-alpha-beta)*performance - alpha*independence - beta*spread.
// Lower totals are better, so independence and spread enter with a negative sign.
func BuildCostMatrix(alpha, beta float64, t NormalizedTriple) (*mat.Dense, error) {
	if err := ValidateWeights(alpha, beta); err != nil {
		return nil, err
	}
	n := t.Len()
	if n == 0 {
		return nil, fmt.Errorf("%w: empty member list", ErrShapeMismatch)
	}

	cost := mat.NewDense(n, n, nil)
	cost.Scale(1-alpha-beta, t.Performance)

	var term mat.Dense
	term.Scale(alpha, t.Independence)
	cost.Sub(cost, &term)

	term.Scale(beta, t.Spread)
	cost.Sub(cost, &term)

	return cost, nil
}
