package kmlsync

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/EndPointCorp/kmlsync/internal/asset"
	"github.com/EndPointCorp/kmlsync/internal/command"
)

var ErrMissingParam = errors.New("kmlsync: missing required parameter")

const missingKeysLine = "Didn't find all required keys (command and window_slug) in parameter map"

// ParsePollQuery extracts the polling window and the slugs the viewer
// reports as loaded. Slugs are opaque and kept verbatim; empty asset_slug
// values are ignored.
func ParsePollQuery(q url.Values) (string, []string, error) {
	window := q.Get("window_slug")
	if window == "" {
		return "", nil, fmt.Errorf("%w: window_slug", ErrMissingParam)
	}
	reported := make([]string, 0, len(q["asset_slug"]))
	for _, slug := range q["asset_slug"] {
		if slug != "" {
			reported = append(reported, slug)
		}
	}
	return window, reported, nil
}

// ParseModifyQuery turns modify-route parameters into commands. Malformed
// asset payloads become warning lines in the returned result while the
// remaining assets still produce commands. Each asset value of an add yields
// one command. For delete, asset is accepted as the slug when asset_slug is
// absent.
func ParseModifyQuery(q url.Values) ([]command.Command, command.Result, error) {
	rawAction := strings.TrimSpace(q.Get("command"))
	window := q.Get("window_slug")
	if rawAction == "" || window == "" {
		return nil, command.Warning(missingKeysLine), fmt.Errorf("%w: command and window_slug", ErrMissingParam)
	}

	action := command.ParseAction(rawAction)
	assetSlug := command.TargetSlug(action, q.Get("asset_slug"), q.Get("asset"))

	var res command.Result
	if action != command.ActionAdd || len(q["asset"]) == 0 {
		return []command.Command{{Action: action, WindowSlug: window, AssetSlug: assetSlug}}, res, nil
	}

	cmds := make([]command.Command, 0, len(q["asset"]))
	for _, raw := range q["asset"] {
		a, err := asset.Parse([]byte(raw))
		if err != nil {
			res.Merge(command.Warning(fmt.Sprintf("Badly formatted asset: %s (%v)", raw, err)))
			continue
		}
		cmds = append(cmds, command.Command{Action: action, WindowSlug: window, AssetSlug: assetSlug, Asset: &a})
	}
	return cmds, res, nil
}
