package greq

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderMap_CaseInsensitiveLookup(t *testing.T) {
	m := NewHeaderMap()
	m.Add("Content-Type", "application/json")

	for _, name := range []string{"content-type", "CONTENT-TYPE", "Content-Type"} {
		value, ok := m.Get(name)
		assert.True(t, ok, name)
		assert.Equal(t, "application/json", value)
	}

	_, ok := m.Get("accept")
	assert.False(t, ok)
}

func TestHeaderMap_DuplicatesKeepOrder(t *testing.T) {
	m := NewHeaderMap()
	m.Add("Set-Cookie", "a=1")
	m.Add("X-Other", "x")
	m.Add("set-cookie", "b=2")

	assert.Equal(t, []string{"a=1", "b=2"}, m.Values("SET-COOKIE"))
	first, _ := m.Get("set-cookie")
	assert.Equal(t, "a=1", first)
	assert.Equal(t, 3, m.Len())
}

func TestHeaderMap_ReplaceAndDel(t *testing.T) {
	m := NewHeaderMap()
	m.Add("Accept", "text/plain")
	m.Add("accept", "text/html")
	m.Add("Host", "x.example")

	m.Replace("ACCEPT", []string{"application/json"})
	assert.Equal(t, []string{"application/json"}, m.Values("accept"))
	assert.Equal(t, 2, m.Len())

	m.Del("host")
	_, ok := m.Get("host")
	assert.False(t, ok)
}

func TestHeaderMap_EntriesPreserveCasing(t *testing.T) {
	m := NewHeaderMap()
	m.Add("X-Request-ID", "1")
	m.Add("authorization", "Bearer t")

	entries := m.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "X-Request-ID", entries[0].Name)
	assert.Equal(t, "authorization", entries[1].Name)
}

func TestHeaderMap_MarshalJSONOrderedLowercase(t *testing.T) {
	m := NewHeaderMap()
	m.Add("Zulu", "z")
	m.Add("Alpha", "a1")
	m.Add("alpha", "a2")

	encoded, err := json.Marshal(m)

	require.NoError(t, err)
	// First-seen order, not alphabetical; names lowercased.
	assert.Equal(t, `{"zulu":["z"],"alpha":["a1","a2"]}`, string(encoded))
}

func TestHeaderMap_Clone(t *testing.T) {
	m := NewHeaderMap()
	m.Add("A", "1")

	c := m.Clone()
	c.Add("B", "2")

	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 2, c.Len())
}
