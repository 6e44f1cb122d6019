// Package reconcile computes the create/delete delta that moves a viewer's
// reported network links to a window's desired asset list.
package reconcile

import (
	"github.com/EndPointCorp/kmlsync/internal/asset"
	"github.com/EndPointCorp/kmlsync/internal/store"
)

// Diff lists assets the client must create and slugs it must delete.
type Diff struct {
	Create []asset.Asset
	Delete []string
}

// Empty reports whether the client is already converged.
func (d Diff) Empty() bool {
	return len(d.Create) == 0 && len(d.Delete) == 0
}

// Compute diffs desired against reported. Create keeps desired order; Delete
// keeps reported order and checks every reported slug independently, so a
// slug reported twice is deleted twice.
func Compute(desired []asset.Asset, reported []string) Diff {
	have := make(map[string]struct{}, len(reported))
	for _, slug := range reported {
		have[slug] = struct{}{}
	}
	want := make(map[string]struct{}, len(desired))
	for i := range desired {
		want[desired[i].Slug] = struct{}{}
	}

	out := Diff{
		Create: make([]asset.Asset, 0),
		Delete: make([]string, 0),
	}
	for i := range desired {
		if _, ok := have[desired[i].Slug]; !ok {
			out.Create = append(out.Create, desired[i])
		}
	}
	for _, slug := range reported {
		if _, ok := want[slug]; !ok {
			out.Delete = append(out.Delete, slug)
		}
	}
	return out
}

// Apply models the viewer acting on d: deleted slugs are unloaded and created
// assets loaded.
func Apply(reported []string, d Diff) []string {
	drop := make(map[string]struct{}, len(d.Delete))
	for _, slug := range d.Delete {
		drop[slug] = struct{}{}
	}
	out := make([]string, 0, len(reported)+len(d.Create))
	for _, slug := range reported {
		if _, ok := drop[slug]; !ok {
			out = append(out, slug)
		}
	}
	for i := range d.Create {
		out = append(out, d.Create[i].Slug)
	}
	return out
}

// Engine reconciles against a live store.
type Engine struct {
	store *store.Store
}

func NewEngine(s *store.Store) *Engine {
	return &Engine{store: s}
}

// Reconcile takes one snapshot of window's desired list and diffs it against
// reported. The snapshot is returned so callers render from the same instant.
func (e *Engine) Reconcile(window string, reported []string) ([]asset.Asset, Diff) {
	desired := e.store.Get(window)
	return desired, Compute(desired, reported)
}
