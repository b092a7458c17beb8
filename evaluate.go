package greq

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ClauseResult is the outcome of one footer clause.
type ClauseResult struct {
	Index  int
	Passed bool
	Reason string
}

// Verdict is the complete outcome record for one test in a run.
type Verdict struct {
	Path       string
	Project    string
	StatusCode int
	Latency    time.Duration
	Clauses    []ClauseResult
	Passed     bool
	// Skipped marks a test that never issued its request (dependency or
	// load failure); Err carries the cause for skipped and errored runs.
	Skipped bool
	Err     error
}

// evaluateFooter checks every clause against the response. Clauses form
// AND-joined groups; a clause carrying `or` extends the previous group,
// so `A, or B, C` means (A OR B) AND C. The footer passes when every
// group has a passing member. The first clause's or flag is ignored.
func evaluateFooter(f Footer, resp *Response) ([]ClauseResult, bool) {
	results := make([]ClauseResult, 0, len(f.Clauses))

	allPassed := true
	groupPassed := false
	inGroup := false
	for i, clause := range f.Clauses {
		if inGroup && !clause.Or {
			allPassed = allPassed && groupPassed
			groupPassed = false
		}
		inGroup = true

		result := evaluateClause(clause, i, resp)
		results = append(results, result)
		groupPassed = groupPassed || result.Passed
	}
	if inGroup {
		allPassed = allPassed && groupPassed
	}
	return results, allPassed
}

// evaluateClause resolves the clause target to a string, applies the
// operator, then the not modifier.
func evaluateClause(c Clause, index int, resp *Response) ClauseResult {
	value, found, scalar := resolveTarget(resp, c.Target)

	var passed bool
	var reason string
	switch {
	case c.Operator == OpExists:
		passed, reason = applyExists(c, value, found)
	case !found:
		passed, reason = false, fmt.Sprintf("target %s not found", c.Target)
	case !scalar:
		passed, reason = false, "target is not scalar"
	default:
		passed, reason = applyOperator(c, value)
	}

	if c.Not {
		passed = !passed
		if passed {
			reason = ""
		} else {
			reason = fmt.Sprintf("negated clause matched: %s %s %q", c.Target, c.Operator, c.Value)
		}
	}
	return ClauseResult{Index: index, Passed: passed, Reason: reason}
}

// applyExists compares presence of the target (resolved to a non-empty
// string) against the clause's boolean literal.
func applyExists(c Clause, value string, found bool) (bool, string) {
	want, err := parseBool(c.Value)
	if err != nil {
		return false, fmt.Sprintf("exists requires true or false, got %q", c.Value)
	}
	present := found && value != ""
	if present == want {
		return true, ""
	}
	return false, fmt.Sprintf("expected exists:%v for %s, got exists:%v", want, c.Target, present)
}

// applyOperator runs the comparison. String comparisons fold case unless
// the case-sensitive modifier is present; numeric operators parse both
// sides as signed integers and fail on non-numeric input.
func applyOperator(c Clause, actual string) (bool, string) {
	if c.Operator.isNumeric() {
		return applyNumeric(c, actual)
	}

	expected := c.Value
	folded := actual
	if !c.CaseSensitive {
		folded = strings.ToLower(actual)
		expected = strings.ToLower(expected)
	}

	switch c.Operator {
	case OpEquals:
		if folded == expected {
			return true, ""
		}
		return false, fmt.Sprintf("expected %q, got %q", c.Value, actual)
	case OpContains:
		if strings.Contains(folded, expected) {
			return true, ""
		}
		return false, fmt.Sprintf("%q does not contain %q", actual, c.Value)
	case OpStartsWith:
		if strings.HasPrefix(folded, expected) {
			return true, ""
		}
		return false, fmt.Sprintf("%q does not start with %q", actual, c.Value)
	case OpEndsWith:
		if strings.HasSuffix(folded, expected) {
			return true, ""
		}
		return false, fmt.Sprintf("%q does not end with %q", actual, c.Value)
	case OpMatchesRegex:
		pattern := c.Value
		if !c.CaseSensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, fmt.Sprintf("bad regex %q: %v", c.Value, err)
		}
		if re.MatchString(actual) {
			return true, ""
		}
		return false, fmt.Sprintf("%q does not match %q", actual, c.Value)
	}
	return false, fmt.Sprintf("unknown operator %q", c.Operator)
}

func applyNumeric(c Clause, actual string) (bool, string) {
	left, err := strconv.ParseInt(strings.TrimSpace(actual), 10, 64)
	if err != nil {
		return false, fmt.Sprintf("target %s is not numeric: %q", c.Target, actual)
	}
	right, err := strconv.ParseInt(c.Value, 10, 64)
	if err != nil {
		return false, fmt.Sprintf("value is not numeric: %q", c.Value)
	}

	var ok bool
	switch c.Operator {
	case OpLessThan:
		ok = left < right
	case OpLessThanOrEqual:
		ok = left <= right
	case OpGreaterThan:
		ok = left > right
	case OpGreaterThanOrEqual:
		ok = left >= right
	}
	if ok {
		return true, ""
	}
	return false, fmt.Sprintf("expected %s %s %s", actual, c.Operator, c.Value)
}
