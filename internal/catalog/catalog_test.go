package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, []string{"CH202x", "CH202x_CMIP6", "CMIP5", "CMIP6", "RCM", "RCM_CMIP6"}, c.EnsembleNames())
	assert.Equal(t, []string{"IM", "EM"}, c.Choices)
	assert.Len(t, c.Ensembles["CH202x_CMIP6"].Members, 9)
	assert.Empty(t, c.Ensembles["CMIP6"].Members)

	cmip6 := c.Ensembles["CMIP6"]
	assert.Equal(t, RepresentativeSpread, cmip6.Representative)
	assert.Len(t, cmip6.Groups, 20)
	assert.Len(t, cmip6.Groups["CanESM5-r0i0p0f0"], 50)
	assert.Equal(t, RepresentativeMaxWarming, c.Ensembles["RCM"].Representative)
	assert.Empty(t, c.Ensembles["CH202x_CMIP6"].Groups)
}

func TestSortedGroups(t *testing.T) {
	e := Ensemble{Groups: map[string][]string{
		"MIROC6-r0i0p0f1": {"MIROC6-r2", "MIROC6-r1"},
		"CESM2-r0i0p0f1":  {"CESM2-r1"},
		"ACCESS-r0i0p0f1": {"ACCESS-r1", "ACCESS-r2"},
	}}

	groups := e.SortedGroups()
	require.Len(t, groups, 3)
	assert.Equal(t, "ACCESS-r0i0p0f1", groups[0].Name)
	assert.Equal(t, "CESM2-r0i0p0f1", groups[1].Name)
	assert.Equal(t, []string{"MIROC6-r2", "MIROC6-r1"}, groups[2].Members)
}

func TestTarget_EnsembleMeanMembers(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	im, err := c.Target("CH202x", ChoiceIndividual, "JJA_CH", false)
	require.NoError(t, err)
	assert.Len(t, im.Members, 11)
	assert.Equal(t, RepresentativeNone, im.Representative)

	em, err := c.Target("CH202x", ChoiceEnsembleMean, "JJA_CH", false)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"CNRM-CM5-r1i1p1",
		"CanESM2-r1i1p1",
		"EC-EARTH-r0i0p0",
		"HadGEM2-ES-r1i1p1",
		"IPSL-CM5A-MR-r1i1p1",
		"MIROC5-r1i1p1",
		"MPI-ESM-LR-r0i0p0",
		"NorESM1-M-r1i1p1",
	}, em.Members)
	require.Len(t, em.Groups, 2)
	assert.Equal(t, "EC-EARTH-r0i0p0", em.Groups[0].Name)

	cmip6, err := c.Target("CMIP6", ChoiceEnsembleMean, "JJA_CEU", false)
	require.NoError(t, err)
	assert.Empty(t, cmip6.Members)
	assert.Len(t, cmip6.Groups, 20)
}

func TestTarget(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	tgt, err := c.Target("CMIP6", "IM", "JJA_CEU", false)
	require.NoError(t, err)
	assert.Equal(t, "CMIP6_IM_JJA_CEU_alpha-beta-scan.csv", tgt.ResultFileName())
	assert.Equal(t, "CMIP6_JJA_CEU_IM", tgt.CheckpointPrefix())

	tgt, err = c.Target("RCM", "EM", "DJF_ALPS", true)
	require.NoError(t, err)
	assert.Equal(t, "RCM_EM_DJF_ALPS_min2_alpha-beta-scan.csv", tgt.ResultFileName())
	assert.Equal(t, "RCM_DJF_ALPS_min2_EM", tgt.CheckpointPrefix())

	tgt, err = c.Target("CH202x", "IM", "JJA_CH", false)
	require.NoError(t, err)
	assert.Contains(t, tgt.Members, "MIROC5-r1i1p1")
}

func TestTarget_Errors(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	_, err = c.Target("CMIP7", "IM", "JJA_CEU", false)
	assert.ErrorIs(t, err, ErrUnknownEnsemble)

	_, err = c.Target("RCM", "IM", "JJA_CEU", false)
	assert.ErrorIs(t, err, ErrUnsupportedRegion)

	_, err = c.Target("CMIP6", "XX", "JJA_CEU", false)
	assert.ErrorIs(t, err, ErrUnsupportedChoice)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
choices: [IM]
ensembles:
  TEST:
    regions: [JJA_CEU]
    members: [a, b, c]
`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	tgt, err := c.Target("TEST", "IM", "JJA_CEU", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, tgt.Members)

	c, err = Load("")
	require.NoError(t, err)
	assert.Contains(t, c.Ensembles, "CMIP5")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParse_Invalid(t *testing.T) {
	for name, doc := range map[string]string{
		"no choices":           "ensembles: {A: {regions: [X]}}",
		"no ensembles":         "choices: [IM]",
		"no regions":           "choices: [IM]\nensembles: {A: {description: x}}",
		"not yaml":             "choices: [IM",
		"bad representative":   "choices: [IM]\nensembles: {A: {regions: [X], representative: nearest}}",
		"empty group":          "choices: [IM]\nensembles: {A: {regions: [X], groups: {a0: []}}}",
		"member in two groups": "choices: [IM]\nensembles: {A: {regions: [X], groups: {a0: [a1, a2], b0: [a2]}}}",
	} {
		_, err := Parse([]byte(doc))
		assert.ErrorIs(t, err, ErrInvalidCatalog, name)
	}
}
