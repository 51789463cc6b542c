package wirefunc

import "sort"

// Record is a verified object: keys are logical field names and every
// declared field is present (Absent when it had no value).
type Record map[string]any

// Keys returns the record's keys in ascending order.
func (r Record) Keys() []string {
	ks := make([]string, 0, len(r))
	for k := range r {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}

// Present reports whether name holds a value other than Absent.
func (r Record) Present(name string) bool {
	v, ok := r[name]
	return ok && !IsAbsent(v)
}

// Tagged is a verified union value: the logical tag of the selected branch
// and the branch payload.
type Tagged struct {
	Tag   string `json:"tag"`
	Value any    `json:"value"`
}
