// Package command validates and applies window asset commands.
//
// Every inbound channel (HTTP modify requests, bus batches, socket pushes)
// funnels through Processor so there is exactly one mutation path into the
// store.
package command

import (
	"strings"

	"github.com/EndPointCorp/kmlsync/internal/asset"
)

// Action names one command verb.
type Action string

const (
	ActionAdd    Action = "add"
	ActionDelete Action = "delete"
	ActionClear  Action = "clear"
	ActionList   Action = "list"
)

// ParseAction normalizes a raw verb. Unknown verbs are kept as-is so the
// processor can report them.
func ParseAction(raw string) Action {
	return Action(strings.ToLower(strings.TrimSpace(raw)))
}

// TargetSlug picks the slug a command acts on. Delete falls back to the
// asset value itself when no asset_slug was supplied, on every channel.
func TargetSlug(action Action, assetSlug, assetValue string) string {
	if action == ActionDelete && assetSlug == "" {
		return assetValue
	}
	return assetSlug
}

// Command is one validated request against a window.
type Command struct {
	Action     Action
	WindowSlug string
	AssetSlug  string
	Asset      *asset.Asset
}

// Result is the outcome of one or more commands.
type Result struct {
	Log     []string
	Warning bool
}

func (r *Result) logf(line string) {
	r.Log = append(r.Log, line)
}

func (r *Result) warn(line string) {
	r.Log = append(r.Log, line)
	r.Warning = true
}

// Merge appends other's log lines and carries its warning flag.
func (r *Result) Merge(other Result) {
	r.Log = append(r.Log, other.Log...)
	r.Warning = r.Warning || other.Warning
}

// String flattens the result for text replies, ending with a Warning marker
// when any command was flagged.
func (r Result) String() string {
	out := strings.Join(r.Log, "\n")
	if r.Warning {
		if out != "" {
			out += "\n"
		}
		out += "Warning"
	}
	return out
}

// Warning builds a warning-only result for payloads rejected before a
// command could be formed.
func Warning(line string) Result {
	return Result{Log: []string{line}, Warning: true}
}
