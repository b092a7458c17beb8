package greq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseTestFile(t *testing.T, path, content string) *Test {
	t.Helper()
	parsed, err := ParseTest([]byte(content), path)
	require.NoError(t, err)
	return parsed
}

func TestMergeTests_ChildScalarWins(t *testing.T) {
	base := parseTestFile(t, "base.greq", `project: base-project
timeout: 1000
is-http: true
====
GET /base
host: a.example
====
`)
	child := parseTestFile(t, "child.greq", `extends: base
timeout: 2000
====
====
`)

	m := mergeTests(base, child)

	assert.Equal(t, "child.greq", m.Path)
	assert.Equal(t, uint32(2000), m.Header.TimeoutMillis)
	assert.Equal(t, "base-project", m.Header.Project)
	assert.True(t, m.Header.IsHTTP)
	assert.Empty(t, m.Header.Extends)
}

func TestMergeTests_ExplicitFalseOverridesBaseTrue(t *testing.T) {
	base := parseTestFile(t, "base.greq", "is-http: true\n====\nGET /\nhost: x\n====\n")
	child := parseTestFile(t, "child.greq", "extends: base\nis-http: false\n====\n====\n")

	m := mergeTests(base, child)

	assert.False(t, m.Header.IsHTTP)
}

func TestMergeTests_RequestLineFromBase(t *testing.T) {
	base := parseTestFile(t, "base.greq", "====\nPOST /submit HTTP/1.1\nhost: a.example\n====\n")
	child := parseTestFile(t, "child.greq", "extends: base\n====\nauthorization: Bearer t\n====\n")

	m := mergeTests(base, child)

	assert.Equal(t, "POST", m.Content.Method)
	assert.Equal(t, "/submit", m.Content.URI)
	auth, ok := m.Content.Headers.Get("authorization")
	assert.True(t, ok)
	assert.Equal(t, "Bearer t", auth)
	host, ok := m.Content.Headers.Get("host")
	assert.True(t, ok)
	assert.Equal(t, "a.example", host)
}

func TestMergeTests_ChildHeaderOverridesPerName(t *testing.T) {
	base := parseTestFile(t, "base.greq", "====\nGET /\nhost: a.example\naccept: text/plain\naccept: text/html\n====\n")
	child := parseTestFile(t, "child.greq", "extends: base\n====\nhost: b.example\naccept: application/json\n====\n")

	m := mergeTests(base, child)

	host, _ := m.Content.Headers.Get("host")
	assert.Equal(t, "b.example", host)
	// Both base accept values are replaced by the child's single one.
	assert.Equal(t, []string{"application/json"}, m.Content.Headers.Values("accept"))
}

func TestMergeTests_BodyFromChildElseBase(t *testing.T) {
	base := parseTestFile(t, "base.greq", "====\nPOST /\nhost: x\n\nbase body\n====\n")
	childEmpty := parseTestFile(t, "child.greq", "extends: base\n====\n====\n")
	childFull := parseTestFile(t, "child2.greq", "extends: base\n====\nPOST /\nhost: x\n\nchild body\n====\n")

	assert.Equal(t, "base body", string(mergeTests(base, childEmpty).Content.Body))
	assert.Equal(t, "child body", string(mergeTests(base, childFull).Content.Body))
}

func TestMergeTests_FooterConcatBaseFirst(t *testing.T) {
	base := parseTestFile(t, "base.greq", "====\nGET /\nhost: x\n====\nstatus-code equals: 200\n")
	child := parseTestFile(t, "child.greq", "extends: base\n====\n====\nlatency less-than: 500\n")

	m := mergeTests(base, child)

	require.Len(t, m.Footer.Clauses, 2)
	assert.Equal(t, TargetStatusCode, m.Footer.Clauses[0].Target.Kind)
	assert.Equal(t, TargetLatency, m.Footer.Clauses[1].Target.Kind)
}

func TestMergeTests_SetEnvironmentConcatBaseFirst(t *testing.T) {
	base := parseTestFile(t, "base.greq", "set-environment.a: 1\n====\nGET /\nhost: x\n====\n")
	child := parseTestFile(t, "child.greq", "extends: base\nset-environment.b: 2\n====\n====\n")

	m := mergeTests(base, child)

	require.Len(t, m.Header.SetEnvironment, 2)
	assert.Equal(t, "a", m.Header.SetEnvironment[0].Name)
	assert.Equal(t, "b", m.Header.SetEnvironment[1].Name)
}

func TestMergeTests_EmptyBaseIsIdentity(t *testing.T) {
	empty := &Test{Path: "empty.greq", Header: newHeader(), Content: Content{Headers: NewHeaderMap()}}
	child := parseTestFile(t, "child.greq", `project: p
timeout: 1234
====
GET /x HTTP/1.1
host: x.example

payload
====
status-code equals: 200
`)

	m := mergeTests(empty, child)

	assert.Equal(t, child.Header.Project, m.Header.Project)
	assert.Equal(t, child.Header.TimeoutMillis, m.Header.TimeoutMillis)
	assert.Equal(t, child.Content.Method, m.Content.Method)
	assert.Equal(t, child.Content.URI, m.Content.URI)
	assert.Equal(t, string(child.Content.Body), string(m.Content.Body))
	assert.Equal(t, child.Footer.Clauses, m.Footer.Clauses)
}

func TestMergeTests_RightmostLinkWins(t *testing.T) {
	// A <- B <- C: the final value of each property comes from the
	// right-most link that defines it.
	a := parseTestFile(t, "a.greq", "project: pa\ntimeout: 1\n====\nGET /\nhost: a\n====\n")
	b := parseTestFile(t, "b.greq", "extends: a\ntimeout: 2\n====\n====\n")
	c := parseTestFile(t, "c.greq", "extends: b\nnumber-of-retries: 9\n====\n====\n")

	m := mergeTests(mergeTests(a, b), c)

	assert.Equal(t, "pa", m.Header.Project)
	assert.Equal(t, uint32(2), m.Header.TimeoutMillis)
	assert.Equal(t, uint32(9), m.Header.NumberOfRetries)
}

func TestMergeTests_DependsOnInherited(t *testing.T) {
	base := parseTestFile(t, "base.greq", "depends-on: login\n====\nGET /\nhost: x\n====\n")
	child := parseTestFile(t, "child.greq", "extends: base\n====\n====\n")

	m := mergeTests(base, child)

	assert.Equal(t, "login", m.Header.DependsOn)
}
