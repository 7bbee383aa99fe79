package trust

import (
	"errors"
	"os"
	"sort"
	"sync"
)

// Removal failure modes. Callers distinguish a protected base directory
// from an entry that is simply not in the store.
var (
	ErrImmutablePath = errors.New("trust: base work directory cannot be removed")
	ErrUnknownPath   = errors.New("trust: path is not trusted")
)

// Store holds the set of trusted filesystem path prefixes. The base work
// directory is always a member and cannot be removed.
type Store struct {
	base string

	mu    sync.Mutex
	paths map[string]struct{}
}

func NewStore(baseWorkDir string) *Store {
	base := Normalize(baseWorkDir)
	return &Store{
		base:  base,
		paths: map[string]struct{}{base: {}},
	}
}

func (s *Store) Base() string { return s.base }

// IsTrusted reports whether path equals or is a descendant of any stored
// trusted path.
func (s *Store) IsTrusted(path string) bool {
	normalized := Normalize(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	for trusted := range s.paths {
		if normalized == trusted || len(normalized) > len(trusted) &&
			normalized[:len(trusted)] == trusted && normalized[len(trusted)] == os.PathSeparator {
			return true
		}
	}
	return false
}

// Add inserts a normalized path. Idempotent.
func (s *Store) Add(path string) {
	normalized := Normalize(path)
	s.mu.Lock()
	s.paths[normalized] = struct{}{}
	s.mu.Unlock()
}

// Remove deletes a trusted path. It returns ErrImmutablePath for the base
// work directory and ErrUnknownPath when the path is not in the store.
func (s *Store) Remove(path string) error {
	normalized := Normalize(path)
	if normalized == s.base {
		return ErrImmutablePath
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.paths[normalized]; !ok {
		return ErrUnknownPath
	}
	delete(s.paths, normalized)
	return nil
}

// List returns all trusted paths in sorted order.
func (s *Store) List() []string {
	s.mu.Lock()
	out := make([]string, 0, len(s.paths))
	for p := range s.paths {
		out = append(out, p)
	}
	s.mu.Unlock()
	sort.Strings(out)
	return out
}
