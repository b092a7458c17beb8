package greq

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

const fileExtension = ".greq"

// loader reads and parses .greq files, resolving extends chains into
// merged tests. Parsed files are cached per absolute path so each file is
// read once per run; only successful parses are cached.
type loader struct {
	mu    sync.Mutex
	cache map[string]*Test
}

func newLoader() *loader {
	return &loader{cache: make(map[string]*Test)}
}

// resolveRef turns an extends/depends-on reference into an absolute
// path. Relative references resolve against the referring file's
// directory; the .greq extension is appended when missing.
func resolveRef(fromFile, ref string) string {
	if filepath.Ext(ref) != fileExtension {
		ref += fileExtension
	}
	if filepath.IsAbs(ref) {
		return filepath.Clean(ref)
	}
	return filepath.Join(filepath.Dir(fromFile), ref)
}

// load reads and parses one file, consulting the cache first.
func (l *loader) load(path string) (*Test, error) {
	l.mu.Lock()
	if t, ok := l.cache[path]; ok {
		l.mu.Unlock()
		return t, nil
	}
	l.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, wrapError(KindFileNotFound, path, err)
		}
		return nil, wrapError(KindFileReadError, path, err)
	}

	t, err := ParseTest(data, path)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.cache[path] = t
	l.mu.Unlock()
	return t, nil
}

// loadMerged loads a file and applies its extends chain, producing the
// canonical merged test. stack carries the absolute paths currently on
// the loading traversal, across both extends and depends-on edges;
// re-entering one of them is a cycle.
func (l *loader) loadMerged(path string, stack []string) (*Test, error) {
	if slices.Contains(stack, path) {
		return nil, newError(KindCycleDetected, path,
			"file is already being loaded (%s)", strings.Join(append(stack, path), " -> "))
	}

	child, err := l.load(path)
	if err != nil {
		return nil, err
	}
	if child.Header.Extends == "" {
		return child.clone(), nil
	}

	basePath := resolveRef(path, child.Header.Extends)
	base, err := l.loadMerged(basePath, append(stack, path))
	if err != nil {
		return nil, err
	}
	return mergeTests(base, child), nil
}
