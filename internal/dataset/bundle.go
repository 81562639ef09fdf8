// Package dataset loads the metric bundles a scan runs on: member list, performance
// vector and the independence and spread matrices, all in one member ordering.
package dataset

import (
	"errors"
	"fmt"
	"math"

	"github.com/bytedance/sonic"
	"gonum.org/v1/gonum/mat"

	"github.com/tensorplex-labs/climsips/internal/selection"
)

var (
	ErrInvalidBundle = errors.New("invalid metric bundle")
	ErrUnknownMember = errors.New("member not in bundle")
)

// symmetryTolerance bounds |a_ij - a_ji| for pairwise matrices.
const symmetryTolerance = 1e-9

type Bundle struct {
	Ensemble     string
	Choice       string
	SeasonRegion string

	Members      []string
	Performance  []float64
	Independence *mat.Dense
	Spread       *mat.Dense
}

// bundleJSON is the on-disk layout. Matrices are row-major with null for undefined
// entries such as the diagonal.
type bundleJSON struct {
	Ensemble     string       `json:"ensemble,omitempty"`
	Choice       string       `json:"choice,omitempty"`
	SeasonRegion string       `json:"season_region,omitempty"`
	Members      []string     `json:"members"`
	Performance  []float64    `json:"performance"`
	Independence [][]*float64 `json:"independence"`
	Spread       [][]*float64 `json:"spread"`
}

func Decode(data []byte) (*Bundle, error) {
	var raw bundleJSON
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode bundle: %w", err)
	}

	indep, err := denseFromRows("independence", raw.Independence)
	if err != nil {
		return nil, err
	}
	spread, err := denseFromRows("spread", raw.Spread)
	if err != nil {
		return nil, err
	}

	return &Bundle{
		Ensemble:     raw.Ensemble,
		Choice:       raw.Choice,
		SeasonRegion: raw.SeasonRegion,
		Members:      raw.Members,
		Performance:  raw.Performance,
		Independence: indep,
		Spread:       spread,
	}, nil
}

func Encode(b *Bundle) ([]byte, error) {
	raw := bundleJSON{
		Ensemble:     b.Ensemble,
		Choice:       b.Choice,
		SeasonRegion: b.SeasonRegion,
		Members:      b.Members,
		Performance:  b.Performance,
		Independence: rowsFromDense(b.Independence),
		Spread:       rowsFromDense(b.Spread),
	}
	data, err := sonic.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to encode bundle: %w", err)
	}
	return data, nil
}

func denseFromRows(name string, rows [][]*float64) (*mat.Dense, error) {
	n := len(rows)
	if n == 0 {
		return &mat.Dense{}, nil
	}
	out := mat.NewDense(n, n, nil)
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("%w: %s row %d has %d entries, want %d", ErrInvalidBundle, name, i, len(row), n)
		}
		for j, v := range row {
			if v == nil {
				out.Set(i, j, math.NaN())
				continue
			}
			out.Set(i, j, *v)
		}
	}
	return out, nil
}

func rowsFromDense(a *mat.Dense) [][]*float64 {
	if a == nil || a.IsEmpty() {
		return [][]*float64{}
	}
	r, c := a.Dims()
	rows := make([][]*float64, r)
	for i := range r {
		rows[i] = make([]*float64, c)
		for j := range c {
			v := a.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			rows[i][j] = &v
		}
	}
	return rows
}

func (b *Bundle) Len() int {
	return len(b.Members)
}

// Validate checks shapes, member uniqueness, non-negative finite performance and
// finite symmetric off-diagonal pairwise entries.
func (b *Bundle) Validate() error {
	n := len(b.Members)
	if n == 0 {
		return fmt.Errorf("%w: no members", ErrInvalidBundle)
	}
	seen := make(map[string]struct{}, n)
	for _, m := range b.Members {
		if _, ok := seen[m]; ok {
			return fmt.Errorf("%w: duplicate member %q", ErrInvalidBundle, m)
		}
		seen[m] = struct{}{}
	}

	if len(b.Performance) != n {
		return fmt.Errorf("%w: %d performance values for %d members", ErrInvalidBundle, len(b.Performance), n)
	}
	for i, p := range b.Performance {
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
			return fmt.Errorf("%w: performance of %s is %g", ErrInvalidBundle, b.Members[i], p)
		}
	}

	for _, pair := range []struct {
		name string
		a    *mat.Dense
	}{{"independence", b.Independence}, {"spread", b.Spread}} {
		if pair.a == nil || pair.a.IsEmpty() {
			return fmt.Errorf("%w: %s missing", ErrInvalidBundle, pair.name)
		}
		r, c := pair.a.Dims()
		if r != n || c != n {
			return fmt.Errorf("%w: %s is %dx%d for %d members", ErrInvalidBundle, pair.name, r, c, n)
		}
		for i := range n {
			for j := i + 1; j < n; j++ {
				v, w := pair.a.At(i, j), pair.a.At(j, i)
				if math.IsNaN(v) || math.IsInf(v, 0) || math.IsNaN(w) || math.IsInf(w, 0) {
					return fmt.Errorf("%w: %s(%s, %s) is undefined", ErrInvalidBundle, pair.name, b.Members[i], b.Members[j])
				}
				if math.Abs(v-w) > symmetryTolerance {
					return fmt.Errorf("%w: %s is not symmetric at (%s, %s)", ErrInvalidBundle, pair.name, b.Members[i], b.Members[j])
				}
			}
		}
	}
	return nil
}

// Restrict returns a bundle limited to the given members. The bundle's own ordering is kept.
func (b *Bundle) Restrict(members []string) (*Bundle, error) {
	want := make(map[string]struct{}, len(members))
	for _, m := range members {
		want[m] = struct{}{}
	}

	var keep []int
	for i, m := range b.Members {
		if _, ok := want[m]; ok {
			keep = append(keep, i)
			delete(want, m)
		}
	}
	if len(want) > 0 {
		missing := make([]string, 0, len(want))
		for _, m := range members {
			if _, ok := want[m]; ok {
				missing = append(missing, m)
			}
		}
		return nil, fmt.Errorf("%w: %v", ErrUnknownMember, missing)
	}

	out := &Bundle{
		Ensemble:     b.Ensemble,
		Choice:       b.Choice,
		SeasonRegion: b.SeasonRegion,
		Members:      make([]string, len(keep)),
		Performance:  make([]float64, len(keep)),
		Independence: pick(b.Independence, keep),
		Spread:       pick(b.Spread, keep),
	}
	for i, k := range keep {
		out.Members[i] = b.Members[k]
		out.Performance[i] = b.Performance[k]
	}
	return out, nil
}

func pick(a *mat.Dense, keep []int) *mat.Dense {
	if len(keep) == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(len(keep), len(keep), nil)
	for i, ki := range keep {
		for j, kj := range keep {
			out.Set(i, j, a.At(ki, kj))
		}
	}
	return out
}

// Metrics exposes the bundle as selection input.
func (b *Bundle) Metrics() selection.Metrics {
	return selection.Metrics{
		Members:      b.Members,
		Performance:  b.Performance,
		Independence: b.Independence,
		Spread:       b.Spread,
	}
}
