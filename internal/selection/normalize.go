package selection

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// FilterByCutoff keeps the members whose performance is strictly below cutoff and
// re-indexes both pairwise matrices to them. The dropped member names are returned
// in input order.
func FilterByCutoff(m Metrics, cutoff float64) (Metrics, []string, error) {
	if err := checkShapes(m); err != nil {
		return Metrics{}, nil, err
	}

	var keep []int
	var dropped []string
	for i, p := range m.Performance {
		if p < cutoff {
			keep = append(keep, i)
		} else {
			dropped = append(dropped, m.Members[i])
		}
	}

	filtered := Metrics{
		Members:      make([]string, len(keep)),
		Performance:  make([]float64, len(keep)),
		Independence: submatrix(m.Independence, keep),
		Spread:       submatrix(m.Spread, keep),
	}
	for i, k := range keep {
		filtered.Members[i] = m.Members[k]
		filtered.Performance[i] = m.Performance[k]
	}

	return filtered, dropped, nil
}

// Normalize filters the metrics by the performance cutoff and rescales them onto
// comparable zero-mean, unit-variance scales.
//
// Independence and spread are standardized over their off-diagonal entries with the
// population deviation and halved, since each unordered pair is summed twice over a
// subset. Performance is standardized across members with the sample deviation and
// stored on the diagonal so that it contributes exactly once per member.
func Normalize(m Metrics, cutoff float64) (NormalizedTriple, error) {
	filtered, dropped, err := FilterByCutoff(m, cutoff)
	if err != nil {
		return NormalizedTriple{}, err
	}
	if len(dropped) > 0 {
		log.Debug().Strs("dropped", dropped).Float64("cutoff", cutoff).Msg("members dropped by performance cutoff")
	}

	n := len(filtered.Members)
	if n < 2 {
		return NormalizedTriple{}, fmt.Errorf("%w: %d of %d members have performance < %g, need at least 2",
			ErrInsufficientMembers, n, len(m.Members), cutoff)
	}
	log.Debug().Int("members", n).Float64("cutoff", cutoff).Msgf("using %d members with perf < %g", n, cutoff)

	independence, err := normalizePairwise("independence", filtered.Independence)
	if err != nil {
		return NormalizedTriple{}, err
	}
	spread, err := normalizePairwise("spread", filtered.Spread)
	if err != nil {
		return NormalizedTriple{}, err
	}
	performance, err := normalizeDiagonal("performance", filtered.Performance)
	if err != nil {
		return NormalizedTriple{}, err
	}

	return NormalizedTriple{
		Members:      filtered.Members,
		Performance:  performance,
		Independence: independence,
		Spread:       spread,
		Raw:          filtered,
	}, nil
}

func normalizePairwise(name string, a mat.Matrix) (*mat.Dense, error) {
	mean, std := stat.PopMeanStdDev(offDiagonal(a), nil)
	if err := checkMoments(name, mean, std); err != nil {
		return nil, err
	}

	n, _ := a.Dims()
	out := mat.NewDense(n, n, nil)
	for i := range n {
		for j := range n {
			if i == j {
				continue
			}
			out.Set(i, j, (a.At(i, j)-mean)/std/2)
		}
	}
	return out, nil
}

func normalizeDiagonal(name string, values []float64) (*mat.Dense, error) {
	mean, std := stat.MeanStdDev(values, nil)
	if err := checkMoments(name, mean, std); err != nil {
		return nil, err
	}

	scaled := make([]float64, len(values))
	copy(scaled, values)
	floats.AddConst(-mean, scaled)
	floats.Scale(1.0/std, scaled)

	n := len(values)
	out := mat.NewDense(n, n, nil)
	for i, v := range scaled {
		out.Set(i, i, v)
	}
	return out, nil
}

func checkMoments(name string, mean, std float64) error {
	if math.IsNaN(mean) || math.IsInf(mean, 0) || math.IsNaN(std) || math.IsInf(std, 0) {
		return fmt.Errorf("%w: %s has non-finite values", ErrDegenerateMetric, name)
	}
	if std == 0 {
		return fmt.Errorf("%w: %s has zero variance", ErrDegenerateMetric, name)
	}
	return nil
}

func offDiagonal(a mat.Matrix) []float64 {
	n, _ := a.Dims()
	if n < 2 {
		return nil
	}
	out := make([]float64, 0, n*(n-1))
	for i := range n {
		for j := range n {
			if i != j {
				out = append(out, a.At(i, j))
			}
		}
	}
	return out
}

func submatrix(a mat.Matrix, keep []int) *mat.Dense {
	n := len(keep)
	if n == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(n, n, nil)
	for i, ki := range keep {
		for j, kj := range keep {
			out.Set(i, j, a.At(ki, kj))
		}
	}
	return out
}

func checkShapes(m Metrics) error {
	n := len(m.Members)
	if len(m.Performance) != n {
		return fmt.Errorf("%w: %d members, %d performance values", ErrShapeMismatch, n, len(m.Performance))
	}
	for _, pair := range []struct {
		name string
		a    mat.Matrix
	}{{"independence", m.Independence}, {"spread", m.Spread}} {
		if pair.a == nil {
			return fmt.Errorf("%w: %s matrix missing", ErrShapeMismatch, pair.name)
		}
		r, c := pair.a.Dims()
		if r != n || c != n {
			return fmt.Errorf("%w: %s is %dx%d, want %dx%d", ErrShapeMismatch, pair.name, r, c, n, n)
		}
	}
	return nil
}
