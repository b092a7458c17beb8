package greq

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	propProject                = "project"
	propIsHTTP                 = "is-http"
	propDelimiter              = "delimiter"
	propExtends                = "extends"
	propDependsOn              = "depends-on"
	propAllowDependencyFailure = "allow-dependency-failure"
	propShowWarnings           = "show-warnings"
	propTimeout                = "timeout"
	propNumberOfRetries        = "number-of-retries"
	propExecuteBefore          = "execute-before"
	propExecuteAfter           = "execute-after"
	propSetEnvironmentPrefix   = "set-environment."

	headerCommentPrefix = "--"
)

const defaultTimeoutMillis = 30000

// EnvAssignment is one `set-environment.NAME: value` header entry. The
// value is a raw template; placeholders in it are substituted after the
// test's dependency completes.
type EnvAssignment struct {
	Name     string
	Template string
}

// Header holds the typed values of the first file section. The zero value
// is not usable; newHeader applies the documented defaults.
type Header struct {
	Project                string
	IsHTTP                 bool
	Delimiter              byte
	Extends                string
	DependsOn              string
	AllowDependencyFailure bool
	ShowWarnings           bool
	TimeoutMillis          uint32
	NumberOfRetries        uint32
	ExecuteBefore          string
	ExecuteAfter           string
	SetEnvironment         []EnvAssignment

	// set records which scalar properties were given explicitly, so the
	// merge engine can tell an explicit `false` from an absent property.
	set map[string]bool
}

func newHeader() Header {
	return Header{
		Delimiter:              defaultDelimiter,
		AllowDependencyFailure: true,
		ShowWarnings:           true,
		TimeoutMillis:          defaultTimeoutMillis,
		set:                    make(map[string]bool),
	}
}

// isSet reports whether the named scalar property appeared in the file.
func (h *Header) isSet(name string) bool {
	return h.set[name]
}

func (h *Header) markSet(name string) {
	if h.set == nil {
		h.set = make(map[string]bool)
	}
	h.set[name] = true
}

// parseHeader reads the header section into typed properties. Empty lines
// and lines starting with `--` are ignored. Unknown keys are errors
// unless they carry the set-environment prefix. Paths stay raw here;
// resolution happens at load time.
func parseHeader(data []byte, path string) (Header, error) {
	h := newHeader()
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, headerCommentPrefix) {
			continue
		}
		key, value, ok := strings.Cut(trimmed, ":")
		if !ok {
			return h, newError(KindMalformedFile, path, "header line missing ':': %q", trimmed)
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if err := h.apply(key, value, path); err != nil {
			return h, err
		}
	}
	return h, nil
}

func (h *Header) apply(key, value, path string) error {
	if name, ok := strings.CutPrefix(key, propSetEnvironmentPrefix); ok {
		if name == "" {
			return newError(KindUnknownHeaderKey, path, "set-environment key has no variable name")
		}
		h.SetEnvironment = append(h.SetEnvironment, EnvAssignment{Name: name, Template: value})
		return nil
	}

	switch key {
	case propProject:
		h.Project = value
	case propIsHTTP:
		b, err := parseBool(value)
		if err != nil {
			return newError(KindInvalidHeaderValue, path, "%s: %v", key, err)
		}
		h.IsHTTP = b
	case propDelimiter:
		if len(value) != 1 || isAlphanumeric(value[0]) {
			return newError(KindMalformedFile, path,
				"delimiter property must be a single non-alphanumeric character, got %q", value)
		}
		h.Delimiter = value[0]
	case propExtends:
		h.Extends = value
	case propDependsOn:
		h.DependsOn = value
	case propAllowDependencyFailure:
		b, err := parseBool(value)
		if err != nil {
			return newError(KindInvalidHeaderValue, path, "%s: %v", key, err)
		}
		h.AllowDependencyFailure = b
	case propShowWarnings:
		b, err := parseBool(value)
		if err != nil {
			return newError(KindInvalidHeaderValue, path, "%s: %v", key, err)
		}
		h.ShowWarnings = b
	case propTimeout:
		n, err := parseUint32(value)
		if err != nil {
			return newError(KindInvalidHeaderValue, path, "%s: %v", key, err)
		}
		h.TimeoutMillis = n
	case propNumberOfRetries:
		n, err := parseUint32(value)
		if err != nil {
			return newError(KindInvalidHeaderValue, path, "%s: %v", key, err)
		}
		h.NumberOfRetries = n
	case propExecuteBefore:
		h.ExecuteBefore = value
	case propExecuteAfter:
		h.ExecuteAfter = value
	default:
		return newError(KindUnknownHeaderKey, path, "unknown header property %q", key)
	}
	h.markSet(key)
	return nil
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, fmt.Errorf("expected true or false, got %q", value)
}

func parseUint32(value string) (uint32, error) {
	n, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("expected a non-negative integer, got %q", value)
	}
	return uint32(n), nil
}
