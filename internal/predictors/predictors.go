// Package predictors aggregates raw per-predictor diagnostics into the three metrics
// consumed by the selection: a performance vector and independence and spread matrices.
package predictors

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrNoPredictors = errors.New("at least one predictor is required")
	ErrShape        = errors.New("predictor shapes disagree")
	ErrZeroScale    = errors.New("predictor has no scale to normalize by")
)

// Performance normalizes every predictor's member errors by the mean error of its
// reference ensemble and averages the normalized predictors per member. A nil or empty
// reference falls back to the predictor's own mean.
func Performance(deltas [][]float64, references [][]float64) ([]float64, error) {
	if len(deltas) == 0 {
		return nil, ErrNoPredictors
	}
	if references != nil && len(references) != len(deltas) {
		return nil, fmt.Errorf("%w: %d predictors, %d references", ErrShape, len(deltas), len(references))
	}

	n := len(deltas[0])
	out := make([]float64, n)
	norm := make([]float64, n)
	for k, d := range deltas {
		if len(d) != n {
			return nil, fmt.Errorf("%w: predictor %d has %d members, want %d", ErrShape, k, len(d), n)
		}
		ref := d
		if references != nil && len(references[k]) > 0 {
			ref = references[k]
		}
		scale := stat.Mean(ref, nil)
		if scale == 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
			return nil, fmt.Errorf("%w: predictor %d reference mean is %g", ErrZeroScale, k, scale)
		}

		floats.ScaleTo(norm, 1/scale, d)
		floats.Add(out, norm)
	}
	floats.Scale(1/float64(len(deltas)), out)
	return out, nil
}

// Independence divides every inter-member error matrix by the mean of its defined
// off-diagonal entries and averages the results. Diagonals come out undefined (NaN).
func Independence(errs ...mat.Matrix) (*mat.Dense, error) {
	if len(errs) == 0 {
		return nil, ErrNoPredictors
	}

	n, _ := errs[0].Dims()
	out := mat.NewDense(n, n, nil)
	for k, e := range errs {
		r, c := e.Dims()
		if r != n || c != n {
			return nil, fmt.Errorf("%w: error matrix %d is %dx%d, want %dx%d", ErrShape, k, r, c, n, n)
		}
		scale := offDiagonalMean(e)
		if scale == 0 || math.IsNaN(scale) {
			return nil, fmt.Errorf("%w: error matrix %d has no defined off-diagonal entries", ErrZeroScale, k)
		}

		var norm mat.Dense
		norm.Scale(1/scale, e)
		out.Add(out, &norm)
	}
	out.Scale(1/float64(len(errs)), out)
	undefineDiagonal(out)
	return out, nil
}

// Spread z-scores every projected-change target across members (population standard
// deviation), sums the squared pairwise differences over targets and takes the root.
func Spread(targets ...[]float64) (*mat.Dense, error) {
	if len(targets) == 0 {
		return nil, ErrNoPredictors
	}

	n := len(targets[0])
	out := mat.NewDense(n, n, nil)
	z := make([]float64, n)
	for k, target := range targets {
		if len(target) != n {
			return nil, fmt.Errorf("%w: target %d has %d members, want %d", ErrShape, k, len(target), n)
		}
		mean, std := stat.PopMeanStdDev(target, nil)
		if std == 0 || math.IsNaN(std) {
			return nil, fmt.Errorf("%w: target %d has zero spread", ErrZeroScale, k)
		}
		for i, v := range target {
			z[i] = (v - mean) / std
		}

		for i := range n {
			for j := range n {
				d := z[i] - z[j]
				out.Set(i, j, out.At(i, j)+d*d)
			}
		}
	}
	out.Apply(func(_, _ int, v float64) float64 { return math.Sqrt(v) }, out)
	undefineDiagonal(out)
	return out, nil
}

func offDiagonalMean(a mat.Matrix) float64 {
	n, _ := a.Dims()
	var sum float64
	var count int
	for i := range n {
		for j := range n {
			v := a.At(i, j)
			if i == j || math.IsNaN(v) || v == 0 {
				continue
			}
			sum += v
			count++
		}
	}
	if count == 0 {
		return math.NaN()
	}
	return sum / float64(count)
}

func undefineDiagonal(a *mat.Dense) {
	n, _ := a.Dims()
	for i := range n {
		a.Set(i, i, math.NaN())
	}
}
