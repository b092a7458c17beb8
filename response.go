package greq

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PaesslerAG/jsonpath"
)

// Response captures the outcome of one executed HTTP request. It doubles
// as the dependency response handed to dependents: values are immutable
// after capture and shared read-only.
type Response struct {
	StatusCode int
	Headers    *HeaderMap
	Body       []byte
	Latency    time.Duration

	jsonOnce sync.Once
	jsonVal  any
	jsonErr  error
}

// LatencyMillis returns the request latency in whole milliseconds.
func (r *Response) LatencyMillis() int64 {
	return r.Latency.Milliseconds()
}

// BodyText decodes the body as UTF-8, replacing invalid bytes.
func (r *Response) BodyText() string {
	return strings.ToValidUTF8(string(r.Body), "�")
}

// bodyJSON parses the body lazily on first access. Numbers stay
// json.Number so integers survive round-tripping.
func (r *Response) bodyJSON() (any, error) {
	r.jsonOnce.Do(func() {
		dec := json.NewDecoder(bytes.NewReader(r.Body))
		dec.UseNumber()
		r.jsonErr = dec.Decode(&r.jsonVal)
	})
	return r.jsonVal, r.jsonErr
}

// BodyPath resolves a parsed path against the JSON body. found is false
// when the body does not parse as JSON or the path has no value; scalar
// is false when the value is an object or array.
func (r *Response) BodyPath(segs []PathSeg) (value string, found, scalar bool) {
	doc, err := r.bodyJSON()
	if err != nil {
		return "", false, false
	}
	result, err := jsonpath.Get(pathQuery(segs), doc)
	if err != nil {
		return "", false, false
	}
	value, scalar = stringifyJSON(result)
	return value, true, scalar
}

// pathQuery compiles path segments to a JSONPath query. Every key is a
// literal object key; only [N] indexes arrays.
func pathQuery(segs []PathSeg) string {
	var q strings.Builder
	q.WriteByte('$')
	for _, seg := range segs {
		if seg.IsIndex {
			q.WriteByte('[')
			q.WriteString(strconv.Itoa(seg.Index))
			q.WriteByte(']')
			continue
		}
		key, _ := json.Marshal(seg.Key)
		q.WriteByte('[')
		q.Write(key)
		q.WriteByte(']')
	}
	return q.String()
}

// stringifyJSON renders a decoded JSON value for comparison: numbers
// without trailing zeros, booleans as true/false, objects and arrays as
// their minimized encoding (reported as non-scalar).
func stringifyJSON(v any) (s string, scalar bool) {
	switch val := v.(type) {
	case nil:
		return "null", true
	case string:
		return val, true
	case bool:
		return strconv.FormatBool(val), true
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return strconv.FormatInt(n, 10), true
		}
		if f, err := val.Float64(); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64), true
		}
		return val.String(), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return "", false
		}
		return string(encoded), false
	}
}

// GetVar resolves a dotted dependency path (status-code, latency,
// headers, headers.NAME, response-body, response-body.PATH) to a string.
// Unknown or unresolvable paths yield the empty string.
func (r *Response) GetVar(path string) string {
	target, err := parseTarget(path, "")
	if err != nil {
		return ""
	}
	value, found, _ := resolveTarget(r, target)
	if !found {
		return ""
	}
	return value
}

// resolveTarget renders the part of the response a clause target refers
// to as a string.
func resolveTarget(r *Response, t Target) (value string, found, scalar bool) {
	switch t.Kind {
	case TargetStatusCode:
		return strconv.Itoa(r.StatusCode), true, true
	case TargetLatency:
		return strconv.FormatInt(r.LatencyMillis(), 10), true, true
	case TargetHeaders:
		encoded, err := json.Marshal(r.Headers)
		if err != nil {
			return "", false, false
		}
		return string(encoded), true, true
	case TargetHeader:
		v, ok := r.Headers.Get(t.HeaderName)
		return v, ok, true
	case TargetBody:
		return r.BodyText(), true, true
	case TargetBodyPath:
		return r.BodyPath(t.Path)
	}
	return "", false, false
}
