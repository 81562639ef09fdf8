package selection

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MemberReport lists the raw metrics of one chosen member against the rest of its subset.
type MemberReport struct {
	Member       string
	Performance  float64
	Independence []float64 // raw distance to each subset member, subset order
	Spread       []float64
}

// Describe looks up the raw metrics behind a subset. raw must be the cutoff-filtered
// metrics the subset indices refer to, i.e. NormalizedTriple.Raw.
func Describe(sub Subset, raw Metrics) []MemberReport {
	out := make([]MemberReport, len(sub.Indices))
	for k, i := range sub.Indices {
		rep := MemberReport{
			Member:       raw.Members[i],
			Performance:  raw.Performance[i],
			Independence: make([]float64, len(sub.Indices)),
			Spread:       make([]float64, len(sub.Indices)),
		}
		for l, j := range sub.Indices {
			rep.Independence[l] = raw.Independence.At(i, j)
			rep.Spread[l] = raw.Spread.At(i, j)
		}
		out[k] = rep
	}
	return out
}

// LogReport writes Describe's output at debug level.
func LogReport(sub Subset, raw Metrics) {
	if zerolog.GlobalLevel() > zerolog.DebugLevel || raw.Independence == nil || raw.Spread == nil {
		return
	}
	for _, rep := range Describe(sub, raw) {
		log.Debug().
			Str("member", rep.Member).
			Float64("perf", rep.Performance).
			Floats64("dist", rep.Independence).
			Floats64("spread", rep.Spread).
			Msg("selected member")
	}
}
