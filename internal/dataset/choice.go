package dataset

import (
	"fmt"
	"math"
	"slices"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"

	"github.com/tensorplex-labs/climsips/internal/catalog"
	"github.com/tensorplex-labs/climsips/internal/predictors"
)

// ApplyChoice reduces the members of pf to the metric choice of t. EM averages every
// group into its ensemble-mean pseudo-member; IM keeps one representative member per
// group when the target names a representative. Members outside every group and
// groups without a member in pf are left alone.
func ApplyChoice(pf *PredictorFile, t catalog.Target) (*PredictorFile, error) {
	if err := pf.checkShapes(); err != nil {
		return nil, err
	}

	var (
		out *PredictorFile
		err error
	)
	switch t.Choice {
	case catalog.ChoiceEnsembleMean:
		out, err = pf.EnsembleMean(t.Groups)
	case catalog.ChoiceIndividual:
		out, err = pf.Representatives(t.Groups, t.Representative)
	default:
		return nil, fmt.Errorf("%w: %q", catalog.ErrUnsupportedChoice, t.Choice)
	}
	if err != nil {
		return nil, err
	}

	cp := *out
	out = &cp
	out.Ensemble = t.Ensemble
	out.Choice = t.Choice
	out.SeasonRegion = t.SeasonRegion
	log.Debug().
		Str("choice", t.Choice).
		Int("members_in", len(pf.Members)).
		Int("members_out", len(out.Members)).
		Msg("metric choice applied")
	return out, nil
}

// slot is one output member and the input rows it is built from.
type slot struct {
	name string
	rows []int
}

// presentGroups resolves every group to the indices of its members in pf, skipping
// groups with none, and reports which member indices are grouped.
func (pf *PredictorFile) presentGroups(groups []catalog.Group) ([]slot, map[int]int) {
	index := make(map[string]int, len(pf.Members))
	for i, m := range pf.Members {
		index[m] = i
	}

	var present []slot
	owner := make(map[int]int)
	for _, g := range groups {
		s := slot{name: g.Name}
		for _, m := range g.Members {
			if i, ok := index[m]; ok {
				s.rows = append(s.rows, i)
			}
		}
		if len(s.rows) == 0 {
			continue
		}
		slices.Sort(s.rows)
		for _, i := range s.rows {
			owner[i] = len(present)
		}
		present = append(present, s)
	}
	return present, owner
}

// EnsembleMean replaces every group by its pseudo-member, placed where the group's
// first member was. Performance deltas and projected changes are averaged over the
// group's members; inter-member errors are averaged over the defined entries between
// two groups. Reference errors are kept as they are.
func (pf *PredictorFile) EnsembleMean(groups []catalog.Group) (*PredictorFile, error) {
	present, owner := pf.presentGroups(groups)

	var slots []slot
	emitted := make(map[int]bool)
	for i, m := range pf.Members {
		g, grouped := owner[i]
		switch {
		case !grouped:
			slots = append(slots, slot{name: m, rows: []int{i}})
		case !emitted[g]:
			emitted[g] = true
			slots = append(slots, present[g])
		}
	}

	out := &PredictorFile{
		Ensemble:     pf.Ensemble,
		Choice:       pf.Choice,
		SeasonRegion: pf.SeasonRegion,
		Members:      make([]string, len(slots)),
	}
	for s, sl := range slots {
		out.Members[s] = sl.name
	}

	for _, p := range pf.Performance {
		out.Performance = append(out.Performance, PerformancePredictor{
			Name:      p.Name,
			Deltas:    averageRows(p.Deltas, slots),
			Reference: p.Reference,
		})
	}
	for _, p := range pf.Independence {
		out.Independence = append(out.Independence, IndependencePredictor{
			Name:   p.Name,
			Errors: averageBlocks(p.Errors, slots),
		})
	}
	for _, p := range pf.Spread {
		out.Spread = append(out.Spread, SpreadPredictor{
			Name:   p.Name,
			Change: averageRows(p.Change, slots),
		})
	}
	return out, nil
}

// Representatives keeps the ungrouped members and one member of every group, picked
// by rep from the projected changes. RepresentativeNone keeps every member.
func (pf *PredictorFile) Representatives(groups []catalog.Group, rep catalog.Representative) (*PredictorFile, error) {
	if rep == catalog.RepresentativeNone {
		return pf, nil
	}
	if len(pf.Spread) == 0 {
		return nil, fmt.Errorf("%w: %s representatives need projected changes", predictors.ErrNoPredictors, rep)
	}

	present, owner := pf.presentGroups(groups)
	var anchors []int
	for i := range pf.Members {
		if _, grouped := owner[i]; !grouped {
			anchors = append(anchors, i)
		}
	}
	families := make([][]int, len(present))
	for g, s := range present {
		families[g] = s.rows
	}

	var (
		placed []int
		err    error
	)
	switch rep {
	case catalog.RepresentativeSpread:
		changes := make([][]float64, len(pf.Spread))
		for k, p := range pf.Spread {
			changes[k] = p.Change
		}
		pos, perr := predictors.Positions(changes...)
		if perr != nil {
			return nil, fmt.Errorf("representative positions: %w", perr)
		}
		placed, err = predictors.SpreadMaximizing(pos, anchors, families)
	case catalog.RepresentativeMaxWarming:
		placed, err = predictors.MaxWarming(pf.Spread[0].Change, anchors, families)
	default:
		return nil, fmt.Errorf("unknown representative %q", rep)
	}
	if err != nil {
		return nil, err
	}

	for g, i := range placed[len(anchors):] {
		log.Debug().Str("group", present[g].name).Str("member", pf.Members[i]).Msg("representative member")
	}
	slices.Sort(placed)
	return pf.Select(placed), nil
}

// Select keeps the given member rows, in the order given.
func (pf *PredictorFile) Select(rows []int) *PredictorFile {
	out := &PredictorFile{
		Ensemble:     pf.Ensemble,
		Choice:       pf.Choice,
		SeasonRegion: pf.SeasonRegion,
		Members:      takeRows(pf.Members, rows),
	}
	for _, p := range pf.Performance {
		out.Performance = append(out.Performance, PerformancePredictor{
			Name:      p.Name,
			Deltas:    takeRows(p.Deltas, rows),
			Reference: p.Reference,
		})
	}
	for _, p := range pf.Independence {
		errs := make([][]*float64, len(rows))
		for a, i := range rows {
			errs[a] = takeRows(p.Errors[i], rows)
		}
		out.Independence = append(out.Independence, IndependencePredictor{Name: p.Name, Errors: errs})
	}
	for _, p := range pf.Spread {
		out.Spread = append(out.Spread, SpreadPredictor{Name: p.Name, Change: takeRows(p.Change, rows)})
	}
	return out
}

func (pf *PredictorFile) checkShapes() error {
	n := len(pf.Members)
	for _, p := range pf.Performance {
		if len(p.Deltas) != n {
			return fmt.Errorf("%w: performance %s has %d members, want %d", predictors.ErrShape, p.Name, len(p.Deltas), n)
		}
	}
	for _, p := range pf.Independence {
		if len(p.Errors) != n {
			return fmt.Errorf("%w: independence %s has %d rows, want %d", predictors.ErrShape, p.Name, len(p.Errors), n)
		}
		for i, row := range p.Errors {
			if len(row) != n {
				return fmt.Errorf("%w: independence %s row %d has %d entries, want %d", predictors.ErrShape, p.Name, i, len(row), n)
			}
		}
	}
	for _, p := range pf.Spread {
		if len(p.Change) != n {
			return fmt.Errorf("%w: spread %s has %d members, want %d", predictors.ErrShape, p.Name, len(p.Change), n)
		}
	}
	return nil
}

func takeRows[T any](values []T, rows []int) []T {
	out := make([]T, len(rows))
	for a, i := range rows {
		out[a] = values[i]
	}
	return out
}

func averageRows(values []float64, slots []slot) []float64 {
	out := make([]float64, len(slots))
	for s, sl := range slots {
		out[s] = stat.Mean(takeRows(values, sl.rows), nil)
	}
	return out
}

func averageBlocks(errs [][]*float64, slots []slot) [][]*float64 {
	out := make([][]*float64, len(slots))
	for a, sa := range slots {
		out[a] = make([]*float64, len(slots))
		for b, sb := range slots {
			if a == b {
				continue
			}
			var sum float64
			var count int
			for _, i := range sa.rows {
				for _, j := range sb.rows {
					if v := errs[i][j]; v != nil && !math.IsNaN(*v) {
						sum += *v
						count++
					}
				}
			}
			if count > 0 {
				mean := sum / float64(count)
				out[a][b] = &mean
			}
		}
	}
	return out
}
