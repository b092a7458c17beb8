package greq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSections_Basic(t *testing.T) {
	data := []byte("project: demo\n====\nGET /ok HTTP/1.1\nhost: x.example\n====\nstatus-code equals: 200\n")

	secs, err := splitSections(data, "basic.greq")

	require.NoError(t, err)
	assert.Equal(t, "project: demo\n", string(secs.header))
	assert.Equal(t, "GET /ok HTTP/1.1\nhost: x.example\n", string(secs.content))
	assert.Equal(t, "status-code equals: 200\n", string(secs.footer))
}

func TestSplitSections_CustomDelimiter(t *testing.T) {
	data := []byte("delimiter: #\n####\nGET /ok\nhost: x.example\n####\n")

	secs, err := splitSections(data, "custom.greq")

	require.NoError(t, err)
	assert.Equal(t, "delimiter: #\n", string(secs.header))
	assert.Contains(t, string(secs.content), "GET /ok")
}

func TestSplitSections_CustomDelimiterIgnoresDefault(t *testing.T) {
	// With delimiter overridden, '=' lines are plain content.
	data := []byte("delimiter: -\n----\nGET /ok\nhost: x.example\n\n====\n----\nfooter\n")

	secs, err := splitSections(data, "override.greq")

	require.NoError(t, err)
	assert.Contains(t, string(secs.content), "====")
	assert.Equal(t, "footer\n", string(secs.footer))
}

func TestSplitSections_TooFewDelimiters(t *testing.T) {
	data := []byte("project: demo\n====\nGET /ok\n")

	_, err := splitSections(data, "short.greq")

	require.Error(t, err)
	assert.True(t, IsKind(err, KindMalformedFile))
}

func TestSplitSections_ShortRunIsNotADelimiter(t *testing.T) {
	// Three repeats do not form a delimiter line.
	data := []byte("project: demo\n===\nGET /ok\n===\nfooter\n")

	_, err := splitSections(data, "short_run.greq")

	require.Error(t, err)
	assert.True(t, IsKind(err, KindMalformedFile))
}

func TestSplitSections_DelimiterLineMayBeLonger(t *testing.T) {
	data := []byte("====================\ncontent\n====================\n")

	secs, err := splitSections(data, "long.greq")

	require.NoError(t, err)
	assert.Empty(t, string(secs.header))
	assert.Equal(t, "content\n", string(secs.content))
}

func TestSplitSections_InvalidDelimiterProperty(t *testing.T) {
	data := []byte("delimiter: ab\n====\ncontent\n====\n")

	_, err := splitSections(data, "bad_delim.greq")

	require.Error(t, err)
	assert.True(t, IsKind(err, KindMalformedFile))
}

func TestSplitSections_DelimiterLineSurroundedByWhitespace(t *testing.T) {
	data := []byte("project: demo\n  ====  \ncontent\n====\n")

	secs, err := splitSections(data, "ws.greq")

	require.NoError(t, err)
	assert.Equal(t, "content\n", string(secs.content))
}
