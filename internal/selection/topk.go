package selection

import "math"

// topK keeps the k lowest-cost subsets seen so far in ascending cost order.
// Costs held are strictly increasing: a candidate tying an entry is rejected, so the
// subset encountered first keeps its place.
type topK struct {
	k       int
	entries []ranked
}

type ranked struct {
	cost    float64
	indices []int
}

func newTopK(k int) *topK {
	return &topK{k: k, entries: make([]ranked, 0, k)}
}

// offer inserts the candidate if it ranks within the first k. idx is copied on admission.
func (t *topK) offer(cost float64, idx []int) bool {
	if math.IsNaN(cost) {
		return false
	}

	pos := len(t.entries)
	for i, e := range t.entries {
		if cost == e.cost {
			return false
		}
		if cost < e.cost {
			pos = i
			break
		}
	}
	if pos >= t.k {
		return false
	}

	entry := ranked{cost: cost, indices: append([]int(nil), idx...)}
	if len(t.entries) < t.k {
		t.entries = append(t.entries, ranked{})
	}
	copy(t.entries[pos+1:], t.entries[pos:len(t.entries)-1])
	t.entries[pos] = entry
	return true
}

func (t *topK) len() int {
	return len(t.entries)
}

func (t *topK) at(i int) ranked {
	return t.entries[i]
}
