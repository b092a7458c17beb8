package greq

import (
	"bytes"
	"strings"
)

// allowedMethods is the closed set of request verbs a .greq file may use.
var allowedMethods = map[string]bool{
	"GET":     true,
	"POST":    true,
	"PUT":     true,
	"PATCH":   true,
	"DELETE":  true,
	"HEAD":    true,
	"OPTIONS": true,
}

// Content is the raw HTTP request of a test: request line, headers in
// insertion order, optional body bytes.
type Content struct {
	Method  string
	URI     string
	Version string
	Headers *HeaderMap
	Body    []byte
}

// HasRequestLine reports whether the content carries a method and URI.
// A file that extends a base may leave the request line to the base.
func (c *Content) HasRequestLine() bool {
	return c.Method != "" && c.URI != ""
}

// parseContent reads the middle file section. Lines up to the first blank
// line are the request line and headers; everything after the blank line
// is the body, verbatim, minus a single trailing newline. allowEmpty
// permits a missing request line for tests that will inherit one via
// extends; merge validation catches the case where no link provides it.
func parseContent(data []byte, path string, allowEmpty bool) (Content, error) {
	c := Content{Headers: NewHeaderMap()}

	rest := data
	sawRequestLine := false
	headersStarted := false
	for len(rest) > 0 {
		line, remainder := cutLine(rest)

		if isBlankLine(line) {
			rest = remainder
			if !sawRequestLine && !headersStarted {
				continue
			}
			// Blank line after the headers: the body is whatever follows.
			c.Body = trimTrailingNewline(remainder)
			break
		}
		rest = remainder
		trimmed := strings.TrimSpace(string(line))

		if !sawRequestLine && !headersStarted {
			// An extending file may start straight with headers and
			// inherit the request line from its base.
			first, _, _ := strings.Cut(trimmed, " ")
			if allowedMethods[strings.ToUpper(first)] || !allowEmpty {
				if err := parseRequestLine(&c, trimmed, path); err != nil {
					return c, err
				}
				sawRequestLine = true
				continue
			}
			headersStarted = true
		}

		name, value, ok := strings.Cut(trimmed, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return c, newError(KindMalformedFile, path, "malformed request header line %q", trimmed)
		}
		c.Headers.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	if !sawRequestLine && !allowEmpty {
		return c, newError(KindInvalidRequestLine, path, "content section has no request line")
	}
	return c, nil
}

// parseRequestLine fills method, URI and optional HTTP version from the
// first non-blank content line.
func parseRequestLine(c *Content, line, path string) error {
	fields := strings.Fields(line)
	if len(fields) < 2 || len(fields) > 3 {
		return newError(KindInvalidRequestLine, path, "expected 'METHOD URI [HTTP/VERSION]', got %q", line)
	}
	method := strings.ToUpper(fields[0])
	if !allowedMethods[method] {
		return newError(KindInvalidRequestLine, path, "unsupported method %q", fields[0])
	}
	c.Method = method
	c.URI = fields[1]
	if len(fields) == 3 {
		version := fields[2]
		if !strings.HasPrefix(strings.ToUpper(version), "HTTP/") {
			return newError(KindInvalidRequestLine, path, "malformed HTTP version %q", version)
		}
		c.Version = version
	}
	return nil
}

// cutLine splits off the first line, excluding its newline. A trailing
// '\r' stays on the line so blank-line detection can see CRLF files.
func cutLine(data []byte) (line []byte, rest []byte) {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return data[:i], data[i+1:]
	}
	return data, nil
}

// isBlankLine reports whether the line bytes are empty or just '\r'.
func isBlankLine(line []byte) bool {
	return len(line) == 0 || len(line) == 1 && line[0] == '\r'
}

// trimTrailingNewline strips exactly one trailing newline (LF or CRLF).
// Two trailing newlines keep one.
func trimTrailingNewline(body []byte) []byte {
	body = bytes.TrimSuffix(body, []byte("\n"))
	return bytes.TrimSuffix(body, []byte("\r"))
}

// clone returns a deep copy of the content.
func (c *Content) clone() Content {
	out := Content{
		Method:  c.Method,
		URI:     c.URI,
		Version: c.Version,
		Headers: NewHeaderMap(),
	}
	if c.Headers != nil {
		out.Headers = c.Headers.Clone()
	}
	if c.Body != nil {
		out.Body = append([]byte(nil), c.Body...)
	}
	return out
}
