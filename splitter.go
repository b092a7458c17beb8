package greq

import (
	"strings"
)

const (
	defaultDelimiter  = '='
	minDelimiterRunes = 4
)

// sections holds the three raw byte regions of a .greq file, in file order.
type sections struct {
	header  []byte
	content []byte
	footer  []byte
}

// isDelimiterShaped reports whether a trimmed line consists solely of one
// non-alphanumeric character repeated at least four times, and returns
// that character.
func isDelimiterShaped(trimmed string) (byte, bool) {
	if len(trimmed) < minDelimiterRunes {
		return 0, false
	}
	c := trimmed[0]
	if isAlphanumeric(c) {
		return 0, false
	}
	for i := 1; i < len(trimmed); i++ {
		if trimmed[i] != c {
			return 0, false
		}
	}
	return c, true
}

func isAlphanumeric(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// splitSections cuts file bytes into header, content and footer. The
// delimiter character defaults to '=' and may be overridden by a
// `delimiter: X` property in the header; the property is honored before
// the full split so the override applies to the delimiter lines
// themselves.
func splitSections(data []byte, path string) (*sections, error) {
	delim, err := scanDelimiterProperty(data, path)
	if err != nil {
		return nil, err
	}

	var cuts []int // byte offsets: [end of header, start of content, end of content, start of footer]
	offset := 0
	for offset <= len(data) && len(cuts) < 4 {
		lineEnd := offset
		for lineEnd < len(data) && data[lineEnd] != '\n' {
			lineEnd++
		}
		trimmed := strings.TrimSpace(string(data[offset:lineEnd]))
		if c, ok := isDelimiterShaped(trimmed); ok && c == delim {
			next := lineEnd
			if next < len(data) {
				next++ // skip the newline
			}
			cuts = append(cuts, offset, next)
		}
		if lineEnd >= len(data) {
			break
		}
		offset = lineEnd + 1
	}

	if len(cuts) < 4 {
		return nil, newError(KindMalformedFile, path,
			"expected two %q delimiter lines, found %d", strings.Repeat(string(delim), minDelimiterRunes), len(cuts)/2)
	}

	return &sections{
		header:  data[:cuts[0]],
		content: data[cuts[1]:cuts[2]],
		footer:  data[cuts[3]:],
	}, nil
}

// scanDelimiterProperty looks for `delimiter: X` among the lines that
// precede the first delimiter-shaped line. X must be a single
// non-alphanumeric character.
func scanDelimiterProperty(data []byte, path string) (byte, error) {
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if _, ok := isDelimiterShaped(trimmed); ok {
			break
		}
		key, value, ok := strings.Cut(trimmed, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), "delimiter") {
			continue
		}
		value = strings.TrimSpace(value)
		if len(value) != 1 || isAlphanumeric(value[0]) {
			return 0, newError(KindMalformedFile, path,
				"delimiter property must be a single non-alphanumeric character, got %q", value)
		}
		return value[0], nil
	}
	return defaultDelimiter, nil
}
