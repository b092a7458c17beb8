package greq

// scalarProperties are the header keys subject to child-wins override
// during merge. delimiter stays out: it only shapes the lexical split of
// its own file. extends is dropped from the merged result.
var scalarProperties = []string{
	propProject,
	propIsHTTP,
	propDependsOn,
	propAllowDependencyFailure,
	propShowWarnings,
	propTimeout,
	propNumberOfRetries,
	propExecuteBefore,
	propExecuteAfter,
}

// mergeTests combines a base test with a child that declared
// `extends: base`. The child keeps its identity (path); per-property the
// child wins when it set a value, otherwise the base's value carries
// over. set-environment entries concatenate base-first, content headers
// override per name, footers concatenate base-first.
func mergeTests(base, child *Test) *Test {
	m := child.clone()

	mergeHeader(&m.Header, &base.Header)
	mergeContent(&m.Content, &base.Content)
	m.Footer.Clauses = append(append([]Clause(nil), base.Footer.Clauses...), child.Footer.Clauses...)

	return m
}

func mergeHeader(m, base *Header) {
	for _, prop := range scalarProperties {
		if m.isSet(prop) || !base.isSet(prop) {
			continue
		}
		switch prop {
		case propProject:
			m.Project = base.Project
		case propIsHTTP:
			m.IsHTTP = base.IsHTTP
		case propDependsOn:
			m.DependsOn = base.DependsOn
		case propAllowDependencyFailure:
			m.AllowDependencyFailure = base.AllowDependencyFailure
		case propShowWarnings:
			m.ShowWarnings = base.ShowWarnings
		case propTimeout:
			m.TimeoutMillis = base.TimeoutMillis
		case propNumberOfRetries:
			m.NumberOfRetries = base.NumberOfRetries
		case propExecuteBefore:
			m.ExecuteBefore = base.ExecuteBefore
		case propExecuteAfter:
			m.ExecuteAfter = base.ExecuteAfter
		}
		m.markSet(prop)
	}

	m.SetEnvironment = append(append([]EnvAssignment(nil), base.SetEnvironment...), m.SetEnvironment...)
	m.Extends = ""
	delete(m.set, propExtends)
}

func mergeContent(m, base *Content) {
	if !m.HasRequestLine() && base.HasRequestLine() {
		m.Method = base.Method
		m.URI = base.URI
		m.Version = base.Version
	}

	// Start from the base's headers; each header name the child uses
	// replaces every base entry with that name.
	merged := base.Headers.Clone()
	for _, name := range m.Headers.Names() {
		merged.Del(name)
	}
	for _, e := range m.Headers.Entries() {
		merged.Add(e.Name, e.Value)
	}
	m.Headers = merged

	if len(m.Body) == 0 {
		m.Body = append([]byte(nil), base.Body...)
	}
}
