package asset

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrInvalidAsset = errors.New("asset: invalid asset")

// Asset is one network-linked document a window should display.
type Asset struct {
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Storage string `json:"storage"`
}

// Validate rejects only the zero Asset. Field contents are opaque; empty
// titles or storage strings are legal once the keys were supplied.
func (a Asset) Validate() error {
	if a == (Asset{}) {
		return fmt.Errorf("%w: empty asset", ErrInvalidAsset)
	}
	return nil
}

func (a Asset) String() string {
	return fmt.Sprintf("slug=%s title=%s storage=%s", a.Slug, a.Title, a.Storage)
}

// wireAsset keeps pointer fields so absent and null keys are distinguishable
// from empty strings during decode.
type wireAsset struct {
	Slug    *string `json:"slug"`
	Title   *string `json:"title"`
	Storage *string `json:"storage"`
}

// Parse decodes one serialized asset object. All three keys must be present
// and non-null.
func Parse(raw []byte) (Asset, error) {
	var w wireAsset
	if err := json.Unmarshal(raw, &w); err != nil {
		return Asset{}, fmt.Errorf("%w: %v", ErrInvalidAsset, err)
	}
	return w.asset()
}

// UnmarshalJSON applies the same required-field rules as Parse so assets
// embedded in bus payloads are validated at the boundary.
func (a *Asset) UnmarshalJSON(raw []byte) error {
	out, err := Parse(raw)
	if err != nil {
		return err
	}
	*a = out
	return nil
}

func (w wireAsset) asset() (Asset, error) {
	switch {
	case w.Slug == nil:
		return Asset{}, fmt.Errorf("%w: missing slug", ErrInvalidAsset)
	case w.Title == nil:
		return Asset{}, fmt.Errorf("%w: missing title", ErrInvalidAsset)
	case w.Storage == nil:
		return Asset{}, fmt.Errorf("%w: missing storage", ErrInvalidAsset)
	}
	return Asset{Slug: *w.Slug, Title: *w.Title, Storage: *w.Storage}, nil
}

// Slugs returns asset slugs in list order.
func Slugs(assets []Asset) []string {
	out := make([]string, 0, len(assets))
	for i := range assets {
		out = append(out, assets[i].Slug)
	}
	return out
}
