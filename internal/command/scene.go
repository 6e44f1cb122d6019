package command

import (
	"strings"

	"github.com/EndPointCorp/kmlsync/internal/asset"
)

// SceneWindow is one window entry of a scene description.
type SceneWindow struct {
	Activity   string   `json:"activity"`
	WindowSlug string   `json:"window_slug"`
	Assets     []string `json:"assets"`
}

// Scene lists windows with their full desired asset names.
type Scene struct {
	Windows []SceneWindow `json:"windows"`
}

// ApplyScene replaces each window's assets by clearing it and adding every
// named asset, using the name as slug, title and storage. When activity is
// non-empty only windows for that activity are touched.
func (p *Processor) ApplyScene(scene Scene, activity string) Result {
	var res Result
	activity = strings.TrimSpace(activity)
	for _, w := range scene.Windows {
		if activity != "" && !strings.EqualFold(strings.TrimSpace(w.Activity), activity) {
			continue
		}
		if w.WindowSlug == "" {
			res.Merge(Warning("Scene window missing window_slug"))
			continue
		}
		res.Merge(p.Process(ActionClear, w.WindowSlug, "", nil))
		for _, name := range w.Assets {
			a := asset.Asset{Slug: name, Title: name, Storage: name}
			res.Merge(p.Process(ActionAdd, w.WindowSlug, "", &a))
		}
	}
	return res
}
