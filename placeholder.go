package greq

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	scopeEnvironment = "environment"
	scopeDependency  = "dependency"
	scopeDepAlias    = "dep"
)

// subContext carries everything one test's substitution pass needs: the
// environment snapshot taken when the pass begins, and the captured
// dependency response (nil when the test has no dependency or the
// dependency failed).
type subContext struct {
	env EnvSnapshot
	dep *Response

	warnings       []string
	warnedDepEmpty bool
}

func (ctx *subContext) warnf(format string, args ...any) {
	ctx.warnings = append(ctx.warnings, fmt.Sprintf(format, args...))
}

// substituteText replaces $(scope.path) tokens in a single pass. The
// scanner is a character state machine rather than a regex so malformed
// tokens behave predictably: an unterminated `$(` is literal text, and
// substituted output is never re-scanned.
func substituteText(text string, ctx *subContext) string {
	dollar := strings.IndexByte(text, '$')
	if dollar < 0 {
		return text
	}

	var out strings.Builder
	out.Grow(len(text))
	i := 0
	for i < len(text) {
		if text[i] != '$' || i+1 >= len(text) || text[i+1] != '(' {
			out.WriteByte(text[i])
			i++
			continue
		}
		end := strings.IndexByte(text[i+2:], ')')
		if end < 0 {
			// Unterminated token: keep the rest literally.
			out.WriteString(text[i:])
			break
		}
		token := text[i+2 : i+2+end]
		if resolved, ok := resolveToken(token, ctx); ok {
			out.WriteString(resolved)
		} else {
			out.WriteString(text[i : i+2+end+1])
		}
		i += end + 3
	}
	return out.String()
}

// resolveToken resolves the inside of one $(...) token. The second
// return is false when the token is not a recognized scope.path form, in
// which case the caller keeps it literal.
func resolveToken(token string, ctx *subContext) (string, bool) {
	scope, path, ok := strings.Cut(token, ".")
	if !ok || path == "" {
		return "", false
	}
	switch strings.ToLower(scope) {
	case scopeEnvironment:
		value, found := ctx.env.Lookup(path)
		if !found {
			ctx.warnf("environment variable %q is not set, substituting empty string", path)
			return "", true
		}
		return value, true
	case scopeDependency, scopeDepAlias:
		if ctx.dep == nil {
			if !ctx.warnedDepEmpty {
				ctx.warnedDepEmpty = true
				ctx.warnf("no dependency response available, substituting empty string")
			}
			return "", true
		}
		return ctx.dep.GetVar(path), true
	}
	return "", false
}

// substituteTest applies placeholder substitution to every textual field
// of a merged test: the request-line URI, each content header value, the
// body (when it is valid UTF-8), every footer clause value, and the hook
// commands. Header property keys are never substituted.
func substituteTest(t *Test, ctx *subContext) {
	t.Content.URI = substituteText(t.Content.URI, ctx)
	for i, e := range t.Content.Headers.entries {
		t.Content.Headers.entries[i].Value = substituteText(e.Value, ctx)
	}

	if len(t.Content.Body) > 0 {
		if utf8.Valid(t.Content.Body) {
			t.Content.Body = []byte(substituteText(string(t.Content.Body), ctx))
		} else {
			ctx.warnf("request body is not valid UTF-8, skipping placeholder substitution")
		}
	}

	for i := range t.Footer.Clauses {
		t.Footer.Clauses[i].Value = substituteText(t.Footer.Clauses[i].Value, ctx)
	}

	t.Header.ExecuteBefore = substituteText(t.Header.ExecuteBefore, ctx)
	t.Header.ExecuteAfter = substituteText(t.Header.ExecuteAfter, ctx)
}
