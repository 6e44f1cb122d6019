package command

import (
	"fmt"
	"strings"

	"github.com/EndPointCorp/kmlsync/internal/asset"
	"github.com/EndPointCorp/kmlsync/internal/observability"
	"github.com/EndPointCorp/kmlsync/internal/store"
)

// Processor applies commands to a store. Source labels metrics with the
// inbound channel that owns this processor.
type Processor struct {
	store  *store.Store
	source string
}

// NewProcessor binds a processor to store s.
func NewProcessor(s *store.Store, source string) *Processor {
	if strings.TrimSpace(source) == "" {
		source = "unknown"
	}
	return &Processor{store: s, source: source}
}

// WithSource returns a processor sharing the same store under another
// metrics source label.
func (p *Processor) WithSource(source string) *Processor {
	return NewProcessor(p.store, source)
}

// Apply processes one command value.
func (p *Processor) Apply(cmd Command) Result {
	return p.Process(cmd.Action, cmd.WindowSlug, cmd.AssetSlug, cmd.Asset)
}

// Process runs one action against window. Every branch returns a result and
// each mutation is a single store operation, so no command is half applied.
func (p *Processor) Process(action Action, window, assetSlug string, a *asset.Asset) Result {
	action = ParseAction(string(action))
	var res Result
	res.logf(fmt.Sprintf("Slug: %s; Command: %s", window, action))

	switch action {
	case ActionAdd:
		p.add(&res, window, a)
	case ActionDelete:
		p.delete(&res, window, assetSlug)
	case ActionClear:
		p.clear(&res, window)
	case ActionList:
		p.list(&res, window)
	default:
		res.warn(fmt.Sprintf("Unknown command %q", string(action)))
	}

	observability.RecordCommand(p.source, metricAction(action), res.Warning)
	return res
}

func (p *Processor) add(res *Result, window string, a *asset.Asset) {
	if a == nil {
		res.warn("No asset supplied to add command")
		return
	}
	if err := a.Validate(); err != nil {
		res.warn(fmt.Sprintf("Badly formatted asset: %v", err))
		return
	}
	p.store.Append(window, *a)
	res.logf(fmt.Sprintf("Adding asset %s", a))
}

func (p *Processor) delete(res *Result, window, assetSlug string) {
	if assetSlug == "" {
		res.warn("No asset supplied to delete command")
		return
	}
	found, known := p.store.RemoveBySlug(window, assetSlug)
	switch {
	case !known:
		res.logf(fmt.Sprintf("Window slug %s has no assets", window))
	case !found:
		res.logf(fmt.Sprintf("Didn't find asset slug %s for window %s", assetSlug, window))
	default:
		res.logf(fmt.Sprintf("Deleted asset slug %s from window %s", assetSlug, window))
	}
}

func (p *Processor) clear(res *Result, window string) {
	if !p.store.Clear(window) {
		res.logf(fmt.Sprintf("No such window %s", window))
		return
	}
	res.logf(fmt.Sprintf("Cleared window %s", window))
}

func (p *Processor) list(res *Result, window string) {
	assets, ok := p.store.Lookup(window)
	if !ok {
		res.logf(fmt.Sprintf("Cannot find window_slug %s", window))
		return
	}
	for _, a := range assets {
		res.logf(fmt.Sprintf("Asset: %s", a))
	}
}

// metricAction keeps label cardinality bounded for unknown verbs.
func metricAction(action Action) string {
	switch action {
	case ActionAdd, ActionDelete, ActionClear, ActionList:
		return string(action)
	default:
		return "unknown"
	}
}

// Replace swaps window's whole list in one store operation. Assets are
// validated first; any invalid entry rejects the replacement.
func (p *Processor) Replace(window string, assets []asset.Asset) Result {
	var res Result
	res.logf(fmt.Sprintf("Slug: %s; Command: replace", window))
	for i := range assets {
		if err := assets[i].Validate(); err != nil {
			res.warn(fmt.Sprintf("Badly formatted asset at index %d: %v", i, err))
			observability.RecordCommand(p.source, "replace", true)
			return res
		}
	}
	p.store.Replace(window, assets)
	res.logf(fmt.Sprintf("Replaced window %s with %d assets", window, len(assets)))
	observability.RecordCommand(p.source, "replace", false)
	return res
}
