package dataset

import (
	"fmt"

	"github.com/bytedance/sonic"
	"gonum.org/v1/gonum/mat"

	"github.com/tensorplex-labs/climsips/internal/predictors"
)

// PredictorFile carries the pre-processed diagnostics a bundle is aggregated from:
// per-member errors against observations, inter-member error matrices and projected
// changes, each per predictor variable.
type PredictorFile struct {
	Ensemble     string   `json:"ensemble,omitempty"`
	Choice       string   `json:"choice,omitempty"`
	SeasonRegion string   `json:"season_region,omitempty"`
	Members      []string `json:"members"`

	Performance  []PerformancePredictor  `json:"performance"`
	Independence []IndependencePredictor `json:"independence"`
	Spread       []SpreadPredictor       `json:"spread"`
}

type PerformancePredictor struct {
	Name   string    `json:"name"`
	Deltas []float64 `json:"deltas"`
	// Reference holds the errors of the ensemble the deltas are scaled by, usually
	// the pooled CMIP generations. Empty means the deltas themselves.
	Reference []float64 `json:"reference,omitempty"`
}

type IndependencePredictor struct {
	Name   string       `json:"name"`
	Errors [][]*float64 `json:"errors"`
}

type SpreadPredictor struct {
	Name   string    `json:"name"`
	Change []float64 `json:"change"`
}

func DecodePredictors(data []byte) (*PredictorFile, error) {
	var pf PredictorFile
	if err := sonic.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to decode predictor file: %w", err)
	}
	return &pf, nil
}

// BuildBundle aggregates the predictors into a validated metric bundle.
func BuildBundle(pf *PredictorFile) (*Bundle, error) {
	deltas := make([][]float64, len(pf.Performance))
	refs := make([][]float64, len(pf.Performance))
	for i, p := range pf.Performance {
		deltas[i] = p.Deltas
		refs[i] = p.Reference
	}
	perf, err := predictors.Performance(deltas, refs)
	if err != nil {
		return nil, fmt.Errorf("performance: %w", err)
	}

	errs := make([]mat.Matrix, len(pf.Independence))
	for i, p := range pf.Independence {
		m, err := denseFromRows("independence/"+p.Name, p.Errors)
		if err != nil {
			return nil, err
		}
		errs[i] = m
	}
	indep, err := predictors.Independence(errs...)
	if err != nil {
		return nil, fmt.Errorf("independence: %w", err)
	}

	changes := make([][]float64, len(pf.Spread))
	for i, p := range pf.Spread {
		changes[i] = p.Change
	}
	spread, err := predictors.Spread(changes...)
	if err != nil {
		return nil, fmt.Errorf("spread: %w", err)
	}

	b := &Bundle{
		Ensemble:     pf.Ensemble,
		Choice:       pf.Choice,
		SeasonRegion: pf.SeasonRegion,
		Members:      pf.Members,
		Performance:  perf,
		Independence: indep,
		Spread:       spread,
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}
