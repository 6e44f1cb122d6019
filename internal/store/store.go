// Package store owns the authoritative per-window desired-asset state.
//
// Every operation runs inside one critical section of a single RWMutex and
// reads hand back copies, so a poll never observes a list that a concurrent
// command has half-mutated.
package store

import (
	"sort"
	"sync"

	"github.com/EndPointCorp/kmlsync/internal/asset"
)

// Store maps window slugs to their ordered desired asset lists.
type Store struct {
	mu      sync.RWMutex
	windows map[string][]asset.Asset
}

// New returns an empty store.
func New() *Store {
	return &Store{
		windows: make(map[string][]asset.Asset),
	}
}

// Get returns a copy of the window's desired assets, empty when unknown.
func (s *Store) Get(window string) []asset.Asset {
	out, _ := s.Lookup(window)
	return out
}

// Lookup returns a copy of the window's desired assets and whether the
// window has an entry at all.
func (s *Store) Lookup(window string) ([]asset.Asset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	assets, ok := s.windows[window]
	return copyAssets(assets), ok
}

// Replace overwrites the window's list wholesale.
func (s *Store) Replace(window string, assets []asset.Asset) {
	next := copyAssets(assets)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows[window] = next
}

// Append adds one asset to the end of the window's list, creating it if absent.
func (s *Store) Append(window string, a asset.Asset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows[window] = append(s.windows[window], a)
}

// RemoveBySlug drops the first asset whose slug matches. known reports
// whether the window existed when the removal was attempted.
func (s *Store) RemoveBySlug(window, slug string) (found bool, known bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	assets, ok := s.windows[window]
	if !ok {
		return false, false
	}
	for i := range assets {
		if assets[i].Slug != slug {
			continue
		}
		next := make([]asset.Asset, 0, len(assets)-1)
		next = append(next, assets[:i]...)
		next = append(next, assets[i+1:]...)
		s.windows[window] = next
		return true, true
	}
	return false, true
}

// Clear empties the window's list without removing its key.
func (s *Store) Clear(window string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.windows[window]; !ok {
		return false
	}
	s.windows[window] = []asset.Asset{}
	return true
}

// Windows returns every known window slug, sorted.
func (s *Store) Windows() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.windows))
	for w := range s.windows {
		out = append(out, w)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}

func copyAssets(in []asset.Asset) []asset.Asset {
	if len(in) == 0 {
		return []asset.Asset{}
	}
	out := make([]asset.Asset, len(in))
	copy(out, in)
	return out
}
