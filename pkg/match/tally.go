package match

import (
	"bytes"
	"encoding/json"
)

// Tally is a string-keyed counter that remembers the order in which keys were
// first inserted. Missing keys read as zero.
type Tally struct {
	keys   []string
	counts map[string]int
}

// NewTally returns an empty tally.
func NewTally() *Tally {
	return &Tally{counts: make(map[string]int)}
}

// Ensure inserts key with a zero count if it is not present yet.
func (t *Tally) Ensure(key string) {
	if _, ok := t.counts[key]; !ok {
		t.keys = append(t.keys, key)
		t.counts[key] = 0
	}
}

// Add adds delta to key, inserting it at zero first when missing.
func (t *Tally) Add(key string, delta int) {
	t.Ensure(key)
	t.counts[key] += delta
}

// Get returns the count for key, or 0.
func (t *Tally) Get(key string) int {
	return t.counts[key]
}

// Has reports whether key was ever inserted.
func (t *Tally) Has(key string) bool {
	_, ok := t.counts[key]
	return ok
}

// Keys returns keys in first-insertion order.
func (t *Tally) Keys() []string {
	return append([]string(nil), t.keys...)
}

// Len returns the number of keys.
func (t *Tally) Len() int {
	return len(t.keys)
}

// Sum returns the total over all keys.
func (t *Tally) Sum() int {
	total := 0
	for _, k := range t.keys {
		total += t.counts[k]
	}
	return total
}

// Map returns a copy of the counts.
func (t *Tally) Map() map[string]int {
	m := make(map[string]int, len(t.counts))
	for k, v := range t.counts {
		m[k] = v
	}
	return m
}

// MarshalJSON encodes the tally as a JSON object with keys in insertion order.
func (t *Tally) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range t.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(t.counts[k])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
