package greq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContent_SimpleGet(t *testing.T) {
	data := []byte("GET /api/users?page=2 HTTP/1.1\nhost: x.example\nAccept: application/json\n")

	c, err := parseContent(data, "get.greq", false)

	require.NoError(t, err)
	assert.Equal(t, "GET", c.Method)
	assert.Equal(t, "/api/users?page=2", c.URI)
	assert.Equal(t, "HTTP/1.1", c.Version)
	host, ok := c.Headers.Get("HOST")
	assert.True(t, ok)
	assert.Equal(t, "x.example", host)
	assert.Empty(t, c.Body)
}

func TestParseContent_PreservesHeaderCasing(t *testing.T) {
	data := []byte("GET /\nhost: x.example\nX-Custom-ID: abc\n")

	c, err := parseContent(data, "casing.greq", false)

	require.NoError(t, err)
	entries := c.Headers.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "X-Custom-ID", entries[1].Name)
	value, ok := c.Headers.Get("x-custom-id")
	assert.True(t, ok)
	assert.Equal(t, "abc", value)
}

func TestParseContent_BodyAfterBlankLine(t *testing.T) {
	data := []byte("POST /things\nhost: x.example\ncontent-type: application/json\n\n{\"name\": \"a\"}\n")

	c, err := parseContent(data, "body.greq", false)

	require.NoError(t, err)
	assert.Equal(t, `{"name": "a"}`, string(c.Body))
}

func TestParseContent_BodyTrailingNewlines(t *testing.T) {
	// Exactly one trailing newline is stripped; two are preserved minus one.
	data := []byte("POST /\nhost: x.example\n\nbody\n\n")

	c, err := parseContent(data, "trailing.greq", false)

	require.NoError(t, err)
	assert.Equal(t, "body\n", string(c.Body))
}

func TestParseContent_BodyKeepsInteriorBlankLines(t *testing.T) {
	data := []byte("POST /\nhost: x.example\n\nline one\n\nline two\n")

	c, err := parseContent(data, "interior.greq", false)

	require.NoError(t, err)
	assert.Equal(t, "line one\n\nline two", string(c.Body))
}

func TestParseContent_MethodValidation(t *testing.T) {
	for _, method := range []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"} {
		_, err := parseContent([]byte(method+" /\nhost: x\n"), "ok.greq", false)
		assert.NoError(t, err, method)
	}

	_, err := parseContent([]byte("TRACE /\nhost: x\n"), "trace.greq", false)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidRequestLine))
}

func TestParseContent_MalformedRequestLine(t *testing.T) {
	_, err := parseContent([]byte("GET\nhost: x\n"), "noline.greq", false)

	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidRequestLine))
}

func TestParseContent_MissingRequestLineAllowedWhenExtending(t *testing.T) {
	c, err := parseContent([]byte("\nauthorization: Bearer t\n"), "child.greq", true)

	require.NoError(t, err)
	assert.False(t, c.HasRequestLine())
}

func TestParseContent_MissingRequestLineRejectedOtherwise(t *testing.T) {
	_, err := parseContent([]byte(""), "empty.greq", false)

	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidRequestLine))
}

func TestParseContent_CRLF(t *testing.T) {
	data := []byte("GET / HTTP/1.1\r\nhost: x.example\r\n\r\nbody\r\n")

	c, err := parseContent(data, "crlf.greq", false)

	require.NoError(t, err)
	assert.Equal(t, "GET", c.Method)
	host, _ := c.Headers.Get("host")
	assert.Equal(t, "x.example", host)
	assert.Equal(t, "body", string(c.Body))
}
