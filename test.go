package greq

// Test is the parsed representation of one .greq file.
type Test struct {
	// Path is the absolute source path of the file.
	Path    string
	Header  Header
	Content Content
	Footer  Footer
}

// ParseTest splits file bytes into the three sections and parses each.
// Path references inside the header stay raw; the loader resolves them.
func ParseTest(data []byte, path string) (*Test, error) {
	secs, err := splitSections(data, path)
	if err != nil {
		return nil, err
	}

	header, err := parseHeader(secs.header, path)
	if err != nil {
		return nil, err
	}

	content, err := parseContent(secs.content, path, header.Extends != "")
	if err != nil {
		return nil, err
	}

	footer, err := parseFooter(secs.footer, path)
	if err != nil {
		return nil, err
	}

	return &Test{Path: path, Header: header, Content: content, Footer: footer}, nil
}

// validateMerged checks the invariants that must hold once the extends
// chain has been applied: a request line and a host header.
func (t *Test) validateMerged() error {
	if !t.Content.HasRequestLine() {
		return newError(KindInvalidRequestLine, t.Path, "no request line after applying extends")
	}
	if _, ok := t.Content.Headers.Get("host"); !ok {
		return newError(KindMissingHost, t.Path, "no host header after applying extends")
	}
	return nil
}

// clone returns a deep copy of the test, used by the merge engine so the
// parse cache stays immutable.
func (t *Test) clone() *Test {
	out := &Test{Path: t.Path, Header: t.Header, Content: t.Content.clone()}
	out.Header.SetEnvironment = append([]EnvAssignment(nil), t.Header.SetEnvironment...)
	out.Header.set = make(map[string]bool, len(t.Header.set))
	for k, v := range t.Header.set {
		out.Header.set[k] = v
	}
	out.Footer.Clauses = append([]Clause(nil), t.Footer.Clauses...)
	return out
}
