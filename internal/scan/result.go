package scan

import (
	"github.com/tensorplex-labs/climsips/internal/results"
	"github.com/tensorplex-labs/climsips/internal/selection"
)

// Result is the outcome of one grid point and the payload of its checkpoint.
type Result struct {
	Point     GridPoint         `json:"point"`
	Best      selection.Subset  `json:"best"`
	RunnerUp  *selection.Subset `json:"runner_up,omitempty"`
	Evaluated int               `json:"evaluated"`
}

// Row converts the result into an output row. With runnerUp set the row carries the
// second-best subset, as the min2 result files always have.
func (r Result) Row(runnerUp bool) results.Row {
	sub := r.Best
	if runnerUp && r.RunnerUp != nil {
		sub = *r.RunnerUp
	}
	return results.Row{
		Alpha:   r.Point.Alpha,
		Beta:    r.Point.Beta,
		MinVal:  sub.Cost,
		Members: sub.Members,
	}
}
