package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorplex-labs/climsips/internal/catalog"
	"github.com/tensorplex-labs/climsips/internal/predictors"
)

var sampleGroups = []catalog.Group{
	{Name: "A-r0i0p0f0", Members: []string{"A-r1", "A-r2"}},
	{Name: "B-r0i0p0f0", Members: []string{"B-r1", "B-r2", "B-r3"}},
	{Name: "C-r0i0p0f0", Members: []string{"C-r1"}},
}

// groupedPredictors has one ungrouped member followed by two families. Error (i, j) is i+j.
func groupedPredictors() *PredictorFile {
	members := []string{"X-r1", "A-r1", "A-r2", "B-r1", "B-r2", "B-r3"}
	errs := make([][]*float64, len(members))
	for i := range members {
		errs[i] = make([]*float64, len(members))
		for j := range members {
			if i != j {
				v := float64(i + j)
				errs[i][j] = &v
			}
		}
	}
	return &PredictorFile{
		Ensemble:     "TEST",
		Choice:       "raw",
		SeasonRegion: "JJA_CEU",
		Members:      members,
		Performance: []PerformancePredictor{
			{Name: "tas", Deltas: []float64{1, 2, 4, 3, 6, 9}, Reference: []float64{1, 3}},
		},
		Independence: []IndependencePredictor{{Name: "tas", Errors: errs}},
		Spread: []SpreadPredictor{
			{Name: "tas_change", Change: []float64{0, 1, 3, 2, 2.5, 3.2}},
		},
	}
}

func target(choice string, rep catalog.Representative) catalog.Target {
	return catalog.Target{
		Ensemble:       "TEST",
		Choice:         choice,
		SeasonRegion:   "JJA_CEU",
		Groups:         sampleGroups,
		Representative: rep,
	}
}

func TestApplyChoice_EnsembleMean(t *testing.T) {
	pf := groupedPredictors()

	em, err := ApplyChoice(pf, target(catalog.ChoiceEnsembleMean, catalog.RepresentativeSpread))
	require.NoError(t, err)

	assert.Equal(t, []string{"X-r1", "A-r0i0p0f0", "B-r0i0p0f0"}, em.Members)
	assert.Equal(t, catalog.ChoiceEnsembleMean, em.Choice)
	assert.InDeltaSlice(t, []float64{1, 3, 6}, em.Performance[0].Deltas, 1e-12)
	assert.Equal(t, []float64{1, 3}, em.Performance[0].Reference)
	assert.InDeltaSlice(t, []float64{0, 2, 7.7 / 3}, em.Spread[0].Change, 1e-12)

	errs := em.Independence[0].Errors
	require.Len(t, errs, 3)
	assert.Nil(t, errs[1][1])
	assert.InDelta(t, 1.5, *errs[0][1], 1e-12)
	assert.InDelta(t, 1.5, *errs[1][0], 1e-12)
	// rows {1,2} against columns {3,4,5}
	assert.InDelta(t, 5.5, *errs[1][2], 1e-12)

	assert.Equal(t, "raw", pf.Choice, "input is left alone")
	assert.Len(t, pf.Members, 6)

	b, err := BuildBundle(em)
	require.NoError(t, err)
	assert.Equal(t, 3, b.Len())
}

func TestApplyChoice_EnsembleMeanKeepsFirstPosition(t *testing.T) {
	pf := groupedPredictors().Select([]int{1, 0, 2})
	require.Equal(t, []string{"A-r1", "X-r1", "A-r2"}, pf.Members)

	em, err := ApplyChoice(pf, target(catalog.ChoiceEnsembleMean, catalog.RepresentativeNone))
	require.NoError(t, err)
	assert.Equal(t, []string{"A-r0i0p0f0", "X-r1"}, em.Members)
	assert.InDeltaSlice(t, []float64{3, 1}, em.Performance[0].Deltas, 1e-12)
}

func TestApplyChoice_Representatives(t *testing.T) {
	for _, tt := range []struct {
		name string
		rep  catalog.Representative
		want []string
	}{
		{"spread maximizing", catalog.RepresentativeSpread, []string{"X-r1", "A-r2", "B-r1"}},
		{"max warming", catalog.RepresentativeMaxWarming, []string{"X-r1", "A-r2", "B-r3"}},
		{"no representative", catalog.RepresentativeNone, []string{"X-r1", "A-r1", "A-r2", "B-r1", "B-r2", "B-r3"}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			pf := groupedPredictors()
			im, err := ApplyChoice(pf, target(catalog.ChoiceIndividual, tt.rep))
			require.NoError(t, err)

			assert.Equal(t, tt.want, im.Members)
			assert.Equal(t, catalog.ChoiceIndividual, im.Choice)
			assert.Equal(t, "raw", pf.Choice)
			require.Len(t, im.Independence[0].Errors, len(tt.want))
			require.Len(t, im.Performance[0].Deltas, len(tt.want))
		})
	}
}

func TestApplyChoice_RepresentativeRowsFollowMembers(t *testing.T) {
	im, err := ApplyChoice(groupedPredictors(), target(catalog.ChoiceIndividual, catalog.RepresentativeMaxWarming))
	require.NoError(t, err)

	// kept rows 0, 2 and 5
	assert.Equal(t, []float64{1, 4, 9}, im.Performance[0].Deltas)
	assert.Equal(t, []float64{0, 3, 3.2}, im.Spread[0].Change)
	assert.Nil(t, im.Independence[0].Errors[1][1])
	assert.Equal(t, 7.0, *im.Independence[0].Errors[1][2])
}

func TestApplyChoice_Errors(t *testing.T) {
	_, err := ApplyChoice(groupedPredictors(), target("XX", catalog.RepresentativeNone))
	assert.ErrorIs(t, err, catalog.ErrUnsupportedChoice)

	pf := groupedPredictors()
	pf.Performance[0].Deltas = pf.Performance[0].Deltas[:5]
	_, err = ApplyChoice(pf, target(catalog.ChoiceEnsembleMean, catalog.RepresentativeNone))
	assert.ErrorIs(t, err, predictors.ErrShape)

	pf = groupedPredictors()
	pf.Spread = nil
	_, err = ApplyChoice(pf, target(catalog.ChoiceIndividual, catalog.RepresentativeSpread))
	assert.ErrorIs(t, err, predictors.ErrNoPredictors)
}
