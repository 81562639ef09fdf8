package predictors

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Positions z-scores every projected-change target across members (population
// standard deviation). Row i holds member i's coordinates, one column per target.
func Positions(targets ...[]float64) (*mat.Dense, error) {
	if len(targets) == 0 {
		return nil, ErrNoPredictors
	}

	n := len(targets[0])
	out := mat.NewDense(n, len(targets), nil)
	for k, target := range targets {
		if len(target) != n {
			return nil, fmt.Errorf("%w: target %d has %d members, want %d", ErrShape, k, len(target), n)
		}
		mean, std := stat.PopMeanStdDev(target, nil)
		if std == 0 || math.IsNaN(std) {
			return nil, fmt.Errorf("%w: target %d has zero spread", ErrZeroScale, k)
		}
		for i, v := range target {
			out.Set(i, k, (v-mean)/std)
		}
	}
	return out, nil
}

// SpreadMaximizing places the anchors, then visits the families in order and places
// the candidate whose nearest already placed member is farthest away. Ties go to the
// earlier candidate; with nothing placed yet the first candidate is taken. The placed
// indices are returned in placement order.
func SpreadMaximizing(pos mat.Matrix, anchors []int, families [][]int) ([]int, error) {
	n, _ := pos.Dims()
	if err := checkIndices(n, anchors, families); err != nil {
		return nil, err
	}

	placed := append([]int(nil), anchors...)
	for _, family := range families {
		pick, farthest := family[0], -1.0
		for _, c := range family {
			nearest := math.Inf(1)
			for _, p := range placed {
				nearest = math.Min(nearest, floats.Distance(mat.Row(nil, c, pos), mat.Row(nil, p, pos), 2))
			}
			if nearest > farthest {
				pick, farthest = c, nearest
			}
		}
		placed = append(placed, pick)
	}
	return placed, nil
}

// MaxWarming places the anchors and, from every family, the candidate with the
// largest absolute warming. Ties go to the earlier candidate.
func MaxWarming(warming []float64, anchors []int, families [][]int) ([]int, error) {
	if err := checkIndices(len(warming), anchors, families); err != nil {
		return nil, err
	}

	placed := append([]int(nil), anchors...)
	for _, family := range families {
		pick := family[0]
		for _, c := range family[1:] {
			if math.Abs(warming[c]) > math.Abs(warming[pick]) {
				pick = c
			}
		}
		placed = append(placed, pick)
	}
	return placed, nil
}

func checkIndices(n int, anchors []int, families [][]int) error {
	check := func(i int) error {
		if i < 0 || i >= n {
			return fmt.Errorf("%w: member index %d out of range [0,%d)", ErrShape, i, n)
		}
		return nil
	}
	for _, a := range anchors {
		if err := check(a); err != nil {
			return err
		}
	}
	for k, family := range families {
		if len(family) == 0 {
			return fmt.Errorf("%w: family %d is empty", ErrShape, k)
		}
		for _, c := range family {
			if err := check(c); err != nil {
				return err
			}
		}
	}
	return nil
}
