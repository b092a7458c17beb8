package greq

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// EnvironmentScope is the process-wide variable store for one run. It is
// seeded from the OS environment and grows as executed tests apply their
// set-environment entries. Names are matched case-insensitively; later
// writes shadow earlier ones.
type EnvironmentScope struct {
	mu   sync.RWMutex
	vals map[string]string
}

// NewEnvironmentScope seeds a scope from the OS environment.
func NewEnvironmentScope() *EnvironmentScope {
	s := &EnvironmentScope{vals: make(map[string]string)}
	for _, kv := range os.Environ() {
		if name, value, ok := strings.Cut(kv, "="); ok {
			s.vals[strings.ToLower(name)] = value
		}
	}
	return s
}

// LoadDotEnv merges a .env file from the given directory, if present.
// OS environment entries keep precedence over .env entries.
func (s *EnvironmentScope) LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	loaded, err := godotenv.Read(path)
	if err != nil {
		return wrapError(KindFileReadError, path, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, value := range loaded {
		lower := strings.ToLower(name)
		if _, exists := s.vals[lower]; !exists {
			s.vals[lower] = value
		}
	}
	return nil
}

// Set writes one variable; the last write for a name wins.
func (s *EnvironmentScope) Set(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vals[strings.ToLower(name)] = value
}

// Snapshot returns a point-in-time copy handed to a test at the moment
// its substitution begins, so env lookups inside one test are stable.
func (s *EnvironmentScope) Snapshot() EnvSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(EnvSnapshot, len(s.vals))
	for name, value := range s.vals {
		snap[name] = value
	}
	return snap
}

// EnvSnapshot is an immutable view of the scope, keyed by lowercased name.
type EnvSnapshot map[string]string

// Lookup finds a variable case-insensitively.
func (e EnvSnapshot) Lookup(name string) (string, bool) {
	value, ok := e[strings.ToLower(name)]
	return value, ok
}
