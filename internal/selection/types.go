package selection

import "gonum.org/v1/gonum/mat"

// Metrics is the raw input of a selection: one performance value per member and
// two pairwise matrices in the same member ordering. Diagonals of the pairwise
// matrices are not read.
type Metrics struct {
	Members      []string
	Performance  []float64  // 1D: error against observations, lower is better
	Independence mat.Matrix // 2D: inter-member distance of climatologies
	Spread       mat.Matrix // 2D: inter-member distance of projected changes
}

// NormalizedTriple holds the three normalized matrices sharing one member ordering.
// Performance is non-zero on the diagonal only, Independence and Spread are zero on it,
// so that any linear combination needs no special-casing of the diagonal.
type NormalizedTriple struct {
	Members      []string
	Performance  *mat.Dense
	Independence *mat.Dense
	Spread       *mat.Dense

	Raw Metrics // cutoff-filtered raw metrics, same ordering as Members
}

func (t NormalizedTriple) Len() int {
	return len(t.Members)
}

// Subset is a set of members identified by ascending indices into the filtered member list.
type Subset struct {
	Indices []int    `json:"indices"`
	Members []string `json:"members"`
	Cost    float64  `json:"cost"`
}

// Selection is the outcome of one exhaustive enumeration.
type Selection struct {
	Best      Subset
	RunnerUp  *Subset // nil unless requested and at least two subsets exist
	Evaluated int     // number of subsets scored
}
