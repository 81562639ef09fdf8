package results

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrDestinationExists = errors.New("result destination already exists")
	ErrMalformedRow      = errors.New("malformed result row")
)

// Row is one grid point of a scan: the weights, the minimal cost and the chosen members
// in enumeration order.
type Row struct {
	Alpha   float64
	Beta    float64
	MinVal  float64
	Members []string
}

// Header returns the column names for subsets of size m.
func Header(m int) []string {
	h := make([]string, 0, 3+m)
	h = append(h, "alpha", "beta", "min_val")
	for i := range m {
		h = append(h, fmt.Sprintf("member%d", i))
	}
	return h
}

// Record encodes the row with the shortest float representation that round-trips.
func (r Row) Record() []string {
	rec := make([]string, 0, 3+len(r.Members))
	rec = append(rec, formatFloat(r.Alpha), formatFloat(r.Beta), formatFloat(r.MinVal))
	return append(rec, r.Members...)
}

// ParseRecord is the inverse of Record for subsets of size m.
func ParseRecord(rec []string, m int) (Row, error) {
	if len(rec) != 3+m {
		return Row{}, fmt.Errorf("%w: %d fields, want %d", ErrMalformedRow, len(rec), 3+m)
	}
	var vals [3]float64
	for i := range vals {
		v, err := strconv.ParseFloat(rec[i], 64)
		if err != nil {
			return Row{}, fmt.Errorf("%w: field %d: %w", ErrMalformedRow, i, err)
		}
		vals[i] = v
	}
	return Row{
		Alpha:   vals[0],
		Beta:    vals[1],
		MinVal:  vals[2],
		Members: append([]string(nil), rec[3:]...),
	}, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
