package kmlsync

import (
	"errors"
	"net/url"
	"testing"

	"github.com/EndPointCorp/kmlsync/internal/command"
	"github.com/EndPointCorp/kmlsync/internal/testutil/testlog"
)

func TestParsePollQuery(t *testing.T) {
	testlog.Start(t)

	window, reported, err := ParsePollQuery(url.Values{
		"window_slug": {"w1"},
		"asset_slug":  {"a", "", " b", "a"},
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if window != "w1" {
		t.Fatalf("unexpected window: %q", window)
	}
	want := []string{"a", " b", "a"}
	if len(reported) != len(want) {
		t.Fatalf("unexpected reported: %v", reported)
	}
	for i := range want {
		if reported[i] != want[i] {
			t.Fatalf("unexpected reported: %v", reported)
		}
	}

	if _, _, err := ParsePollQuery(url.Values{"window_slug": {""}}); !errors.Is(err, ErrMissingParam) {
		t.Fatalf("expected ErrMissingParam, got %v", err)
	}
}

func TestParseModifyQueryAddsEachAsset(t *testing.T) {
	testlog.Start(t)

	cmds, res, err := ParseModifyQuery(url.Values{
		"command":     {"Add"},
		"window_slug": {"w1"},
		"asset": {
			`{"slug":"a","title":"A","storage":"sa"}`,
			`not json`,
			`{"slug":"b","title":"B","storage":"sb"}`,
		},
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(cmds) != 2 {
		t.Fatalf("expected 2 commands, got %d", len(cmds))
	}
	if cmds[0].Action != command.ActionAdd || cmds[0].Asset.Slug != "a" || cmds[1].Asset.Slug != "b" {
		t.Fatalf("unexpected commands: %+v", cmds)
	}
	if !res.Warning || len(res.Log) != 1 {
		t.Fatalf("expected one warning line, got %+v", res)
	}
}

func TestParseModifyQueryAddWithoutAsset(t *testing.T) {
	testlog.Start(t)

	cmds, res, err := ParseModifyQuery(url.Values{"command": {"add"}, "window_slug": {"w1"}})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(cmds) != 1 || cmds[0].Asset != nil || res.Warning {
		t.Fatalf("expected one bare add command, got %+v %+v", cmds, res)
	}
}

func TestParseModifyQueryDeleteSlugFallback(t *testing.T) {
	testlog.Start(t)

	cmds, _, err := ParseModifyQuery(url.Values{"command": {"delete"}, "window_slug": {"w1"}, "asset": {"a"}})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(cmds) != 1 || cmds[0].AssetSlug != "a" {
		t.Fatalf("expected asset fallback slug, got %+v", cmds)
	}

	cmds, _, err = ParseModifyQuery(url.Values{
		"command":     {"delete"},
		"window_slug": {"w1"},
		"asset_slug":  {"b"},
		"asset":       {"a"},
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cmds[0].AssetSlug != "b" {
		t.Fatalf("asset_slug must win over asset, got %+v", cmds)
	}
}

func TestParseModifyQueryMissingKeys(t *testing.T) {
	testlog.Start(t)

	_, res, err := ParseModifyQuery(url.Values{"command": {"clear"}, "window_slug": {""}})
	if !errors.Is(err, ErrMissingParam) {
		t.Fatalf("expected ErrMissingParam, got %v", err)
	}
	if !res.Warning || res.Log[0] != missingKeysLine {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestParseQueriesKeepSlugsVerbatim(t *testing.T) {
	testlog.Start(t)

	window, reported, err := ParsePollQuery(url.Values{"window_slug": {" w1"}, "asset_slug": {" a"}})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if window != " w1" || len(reported) != 1 || reported[0] != " a" {
		t.Fatalf("slugs must stay opaque, got %q %q", window, reported)
	}

	cmds, _, err := ParseModifyQuery(url.Values{"command": {" delete "}, "window_slug": {"w1 "}, "asset_slug": {" a"}})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cmds[0].Action != command.ActionDelete || cmds[0].WindowSlug != "w1 " || cmds[0].AssetSlug != " a" {
		t.Fatalf("unexpected command: %+v", cmds[0])
	}
}
