package selection

import (
	"fmt"
	"math/bits"
	"time"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/combin"
)

// Progress is a snapshot of a running enumeration.
type Progress struct {
	Examined  int
	Total     int
	Fraction  float64
	Elapsed   time.Duration
	Remaining time.Duration // extrapolated from the rate so far
	Best      Subset
}

type ProgressFunc func(Progress)

type selectOptions struct {
	runnerUp    bool
	reportEvery int
	progress    ProgressFunc
}

type SelectOption func(*selectOptions)

// WithRunnerUp additionally tracks the second-best subset.
func WithRunnerUp(enabled bool) SelectOption {
	return func(o *selectOptions) {
		o.runnerUp = enabled
	}
}

// WithProgress calls fn roughly every `every` combinations; every is rounded up to a power of two.
// Progress reporting never influences the selected subset.
func WithProgress(every int, fn ProgressFunc) SelectOption {
	return func(o *selectOptions) {
		o.reportEvery = every
		o.progress = fn
	}
}

// LogProgress is a ProgressFunc writing to the global logger.
func LogProgress(p Progress) {
	log.Info().
		Float64("percent", 100*p.Fraction).
		Str("eta", p.Remaining.Round(time.Second).String()).
		Float64("best_score", p.Best.Cost).
		Strs("best_members", p.Best.Members).
		Msgf("%4.1f%% / eta in %.1f min / best score %.3f", 100*p.Fraction, p.Remaining.Minutes(), p.Best.Cost)
}

// Select exhaustively scores every size-m subset of members against cost and returns
// the cheapest one. Subsets are visited as ascending index tuples in lexicographic
// order and the first subset reaching the minimum wins ties.
func Select(cost mat.Matrix, members []string, m int, opts ...SelectOption) (Selection, error) {
	o := selectOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	n := len(members)
	r, c := cost.Dims()
	if r != n || c != n {
		return Selection{}, fmt.Errorf("%w: cost matrix is %dx%d for %d members", ErrShapeMismatch, r, c, n)
	}
	if m < 1 {
		return Selection{}, fmt.Errorf("%w: got %d", ErrInvalidSubsetSize, m)
	}
	if m > n {
		return Selection{}, fmt.Errorf("%w: m=%d but only %d members remain", ErrSubsetTooLarge, m, n)
	}
	total, err := Binomial(n, m)
	if err != nil {
		return Selection{}, err
	}

	dense := mat.DenseCopyOf(cost)
	raw := dense.RawMatrix()

	k := 1
	if o.runnerUp {
		k = 2
	}
	top := newTopK(k)

	var mask int
	if o.progress != nil {
		mask = progressMask(o.reportEvery)
	}

	start := time.Now()
	idx := make([]int, m)
	gen := combin.NewCombinationGenerator(n, m)
	examined := 0
	for gen.Next() {
		gen.Combination(idx)
		top.offer(subsetCost(raw.Data, raw.Stride, idx), idx)

		if o.progress != nil && examined > 0 && examined&mask == 0 && top.len() > 0 {
			o.progress(snapshot(examined, total, start, top.at(0), members))
		}
		examined++
	}

	if top.len() == 0 {
		return Selection{}, fmt.Errorf("%w: %d subsets examined", ErrNoFiniteSubset, examined)
	}

	sel := Selection{
		Best:      newSubset(top.at(0), members),
		Evaluated: examined,
	}
	if o.runnerUp && top.len() > 1 {
		second := newSubset(top.at(1), members)
		sel.RunnerUp = &second
	}

	log.Trace().
		Int("combinations", examined).
		Dur("took", time.Since(start)).
		Float64("min_val", sel.Best.Cost).
		Msgf("all %d combinations tested", examined)

	return sel, nil
}

func newSubset(r ranked, members []string) Subset {
	names := make([]string, len(r.indices))
	for i, idx := range r.indices {
		names[i] = members[idx]
	}
	return Subset{Indices: r.indices, Members: names, Cost: r.cost}
}

func snapshot(examined, total int, start time.Time, best ranked, members []string) Progress {
	elapsed := time.Since(start)
	fraction := float64(examined) / float64(total)
	remaining := time.Duration(float64(elapsed) * (1 - fraction) / fraction)
	return Progress{
		Examined:  examined,
		Total:     total,
		Fraction:  fraction,
		Elapsed:   elapsed,
		Remaining: remaining,
		Best:      newSubset(best, members),
	}
}

func progressMask(every int) int {
	if every <= 1 {
		return 0
	}
	return 1<<bits.Len(uint(every-1)) - 1
}
