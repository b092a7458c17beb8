package greq

import (
	"errors"
	"fmt"
)

// Kind classifies every failure the pipeline can produce. Dependents match
// on the kind when deciding whether a failure propagates.
type Kind int

const (
	KindUnknown Kind = iota
	KindMalformedFile
	KindUnknownHeaderKey
	KindInvalidHeaderValue
	KindInvalidRequestLine
	KindMissingHost
	KindInvalidClause
	KindFileNotFound
	KindFileReadError
	KindCycleDetected
	KindDependencyFailed
	KindDependencyParseFailed
	KindHTTPTransport
	KindTimeout
	KindHookFailed
)

var kindNames = map[Kind]string{
	KindUnknown:               "Unknown",
	KindMalformedFile:         "MalformedFile",
	KindUnknownHeaderKey:      "UnknownHeaderKey",
	KindInvalidHeaderValue:    "InvalidHeaderValue",
	KindInvalidRequestLine:    "InvalidRequestLine",
	KindMissingHost:           "MissingHost",
	KindInvalidClause:         "InvalidClause",
	KindFileNotFound:          "FileNotFound",
	KindFileReadError:         "FileReadError",
	KindCycleDetected:         "CycleDetected",
	KindDependencyFailed:      "DependencyFailed",
	KindDependencyParseFailed: "DependencyParseFailed",
	KindHTTPTransport:         "HttpTransport",
	KindTimeout:               "Timeout",
	KindHookFailed:            "HookFailed",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is the single error type used across the pipeline. Path names the
// .greq file the error belongs to and may be empty for run-level failures.
type Error struct {
	Kind Kind
	Path string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	s := e.Kind.String()
	if e.Path != "" {
		s += " " + e.Path
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// newError builds a pipeline error with a formatted message.
func newError(kind Kind, path, format string, args ...any) *Error {
	return &Error{Kind: kind, Path: path, Msg: fmt.Sprintf(format, args...)}
}

// wrapError attaches a kind and path to an underlying error.
func wrapError(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

// KindOf extracts the kind from an error chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether the first *Error in err's chain has the given
// kind. Kinds of *Error values wrapped further down are not consulted.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
