package greq

import (
	"bytes"
	"encoding/json"
	"strings"
)

// HeaderEntry is one header line as read from a file or a response.
// Name keeps the original casing for emission.
type HeaderEntry struct {
	Name  string
	Value string
}

// HeaderMap is a case-insensitive multi-map over HTTP headers that
// preserves insertion order and original casing. net/http.Header cannot
// serve here: it canonicalizes names and loses ordering.
type HeaderMap struct {
	entries []HeaderEntry
}

// NewHeaderMap returns an empty header map.
func NewHeaderMap() *HeaderMap {
	return &HeaderMap{}
}

// Add appends a header entry, keeping earlier entries with the same name.
func (m *HeaderMap) Add(name, value string) {
	m.entries = append(m.entries, HeaderEntry{Name: name, Value: value})
}

// Get returns the first value for name, matched case-insensitively.
func (m *HeaderMap) Get(name string) (string, bool) {
	for _, e := range m.entries {
		if strings.EqualFold(e.Name, name) {
			return e.Value, true
		}
	}
	return "", false
}

// Values returns all values for name in insertion order.
func (m *HeaderMap) Values(name string) []string {
	var vals []string
	for _, e := range m.entries {
		if strings.EqualFold(e.Name, name) {
			vals = append(vals, e.Value)
		}
	}
	return vals
}

// Replace removes every entry matching name and appends the given values
// under the new name, so the name is overridden as a whole, not per
// value.
func (m *HeaderMap) Replace(name string, values []string) {
	m.Del(name)
	for _, v := range values {
		m.Add(name, v)
	}
}

// Del removes all entries matching name case-insensitively.
func (m *HeaderMap) Del(name string) {
	kept := m.entries[:0]
	for _, e := range m.entries {
		if !strings.EqualFold(e.Name, name) {
			kept = append(kept, e)
		}
	}
	m.entries = kept
}

// Entries returns the underlying entries in insertion order.
func (m *HeaderMap) Entries() []HeaderEntry {
	return m.entries
}

// Len returns the number of entries, counting duplicates.
func (m *HeaderMap) Len() int {
	return len(m.entries)
}

// Clone returns a deep copy.
func (m *HeaderMap) Clone() *HeaderMap {
	c := &HeaderMap{entries: make([]HeaderEntry, len(m.entries))}
	copy(c.entries, m.entries)
	return c
}

// Names returns the distinct lowercased names in first-seen order.
func (m *HeaderMap) Names() []string {
	var names []string
	seen := make(map[string]bool)
	for _, e := range m.entries {
		lower := strings.ToLower(e.Name)
		if !seen[lower] {
			seen[lower] = true
			names = append(names, lower)
		}
	}
	return names
}

// MarshalJSON encodes the map as a JSON object of lowercased names to
// value arrays, in first-seen order. encoding/json's map marshalling
// sorts keys, so the object is built by hand.
func (m *HeaderMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range m.Names() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		vals, err := json.Marshal(m.Values(name))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(vals)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
