// Package catalog holds the lookup data naming what can be scanned: ensembles, their
// season/region combinations and candidate members, and the metric choices.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalog []byte

var (
	ErrUnknownEnsemble   = errors.New("unknown ensemble")
	ErrUnsupportedRegion = errors.New("unsupported season/region for ensemble")
	ErrUnsupportedChoice = errors.New("unsupported metric choice")
	ErrInvalidCatalog    = errors.New("invalid catalog")
)

const (
	ChoiceIndividual   = "IM"
	ChoiceEnsembleMean = "EM"
)

// Representative names how the IM choice reduces a group to one member.
type Representative string

const (
	RepresentativeNone       Representative = ""
	RepresentativeSpread     Representative = "spread"
	RepresentativeMaxWarming Representative = "max_warming"
)

type Catalog struct {
	Choices   []string            `yaml:"choices"`
	Ensembles map[string]Ensemble `yaml:"ensembles"`
}

type Ensemble struct {
	Description    string              `yaml:"description"`
	Regions        []string            `yaml:"regions"`
	Members        []string            `yaml:"members,omitempty"`
	Representative Representative      `yaml:"representative,omitempty"`
	Groups         map[string][]string `yaml:"groups,omitempty"`
}

// Group is one initial-condition family. Name is the ensemble-mean pseudo-member.
type Group struct {
	Name    string
	Members []string
}

// SortedGroups returns the groups ordered by pseudo-member name.
func (e Ensemble) SortedGroups() []Group {
	out := make([]Group, 0, len(e.Groups))
	for _, name := range slices.Sorted(maps.Keys(e.Groups)) {
		out = append(out, Group{Name: name, Members: e.Groups[name]})
	}
	return out
}

func (e Ensemble) validate(name string) error {
	if len(e.Regions) == 0 {
		return fmt.Errorf("%w: ensemble %s has no regions", ErrInvalidCatalog, name)
	}
	switch e.Representative {
	case RepresentativeNone, RepresentativeSpread, RepresentativeMaxWarming:
	default:
		return fmt.Errorf("%w: ensemble %s has unknown representative %q", ErrInvalidCatalog, name, e.Representative)
	}

	owner := make(map[string]string)
	for _, g := range e.SortedGroups() {
		if len(g.Members) == 0 {
			return fmt.Errorf("%w: ensemble %s group %s is empty", ErrInvalidCatalog, name, g.Name)
		}
		for _, m := range g.Members {
			if prev, ok := owner[m]; ok {
				return fmt.Errorf("%w: ensemble %s member %s is in groups %s and %s", ErrInvalidCatalog, name, m, prev, g.Name)
			}
			owner[m] = g.Name
		}
	}
	return nil
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog from path, or the built-in one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	if len(c.Choices) == 0 {
		return nil, fmt.Errorf("%w: no metric choices", ErrInvalidCatalog)
	}
	if len(c.Ensembles) == 0 {
		return nil, fmt.Errorf("%w: no ensembles", ErrInvalidCatalog)
	}
	for name, e := range c.Ensembles {
		if err := e.validate(name); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

// EnsembleNames lists the ensembles in lexical order.
func (c *Catalog) EnsembleNames() []string {
	return slices.Sorted(maps.Keys(c.Ensembles))
}

// Target validates the identifiers of one scan.
func (c *Catalog) Target(ensemble, choice, seasonRegion string, runnerUp bool) (Target, error) {
	e, ok := c.Ensembles[ensemble]
	if !ok {
		return Target{}, fmt.Errorf("%w: %q (known: %v)", ErrUnknownEnsemble, ensemble, c.EnsembleNames())
	}
	if !slices.Contains(e.Regions, seasonRegion) {
		return Target{}, fmt.Errorf("%w: %s has no %q (known: %v)", ErrUnsupportedRegion, ensemble, seasonRegion, e.Regions)
	}
	if !slices.Contains(c.Choices, choice) {
		return Target{}, fmt.Errorf("%w: %q (known: %v)", ErrUnsupportedChoice, choice, c.Choices)
	}

	groups := e.SortedGroups()
	members := e.Members
	if choice == ChoiceEnsembleMean {
		members = averagedMembers(members, groups)
	}
	return Target{
		Ensemble:       ensemble,
		Choice:         choice,
		SeasonRegion:   seasonRegion,
		RunnerUp:       runnerUp,
		Members:        members,
		Groups:         groups,
		Representative: e.Representative,
	}, nil
}

// averagedMembers replaces grouped members by their pseudo-member, keeping the
// position of the first one.
func averagedMembers(members []string, groups []Group) []string {
	if len(members) == 0 || len(groups) == 0 {
		return members
	}
	owner := make(map[string]string)
	for _, g := range groups {
		for _, m := range g.Members {
			owner[m] = g.Name
		}
	}

	out := make([]string, 0, len(members))
	for _, m := range members {
		if name, ok := owner[m]; ok {
			m = name
		}
		if !slices.Contains(out, m) {
			out = append(out, m)
		}
	}
	return out
}

// Target is a validated (ensemble, choice, season/region) triple.
type Target struct {
	Ensemble       string
	Choice         string
	SeasonRegion   string
	RunnerUp       bool
	Members        []string // empty means all bundle members
	Groups         []Group
	Representative Representative
}

func (t Target) min2() string {
	if t.RunnerUp {
		return "min2_"
	}
	return ""
}

// ResultFileName is the scan output name, e.g. CMIP6_IM_JJA_CEU_alpha-beta-scan.csv.
func (t Target) ResultFileName() string {
	return fmt.Sprintf("%s_%s_%s_%salpha-beta-scan.csv", t.Ensemble, t.Choice, t.SeasonRegion, t.min2())
}

// CheckpointPrefix namespaces the per-point checkpoints of the target.
func (t Target) CheckpointPrefix() string {
	return fmt.Sprintf("%s_%s_%s%s", t.Ensemble, t.SeasonRegion, t.min2(), t.Choice)
}
