package kml

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/EndPointCorp/kmlsync/internal/asset"
	"github.com/EndPointCorp/kmlsync/internal/reconcile"
	"github.com/EndPointCorp/kmlsync/internal/testutil/testlog"
)

func testEncoder() Encoder {
	return Encoder{MasterHref: "http://lg-head:8765/kml/master.kml", AssetPrefix: "http://lg-head/assets/"}
}

func TestUpdateCreateOnly(t *testing.T) {
	testlog.Start(t)

	desired := []asset.Asset{{Slug: "a", Title: "A", Storage: "a.kml"}}
	out := string(testEncoder().Update(desired, reconcile.Compute(desired, nil)))

	want := `      <Create><Document targetId="master">
        <NetworkLink id="a">
          <name>A</name>
          <Link><href>http://lg-head/assets/a.kml</href></Link>
        </NetworkLink>
      </Document></Create>
`
	if !strings.Contains(out, want) {
		t.Fatalf("missing create block:\n%s", out)
	}
	if strings.Contains(out, "<Delete>") {
		t.Fatalf("unexpected delete block:\n%s", out)
	}
	if !strings.Contains(out, "<cookie><![CDATA[asset_slug=a]]></cookie>") {
		t.Fatalf("unexpected cookie:\n%s", out)
	}
	if !strings.Contains(out, "<targetHref>http://lg-head:8765/kml/master.kml</targetHref>") {
		t.Fatalf("unexpected target href:\n%s", out)
	}
	if !strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`+"\n<kml ") {
		t.Fatalf("unexpected document head:\n%s", out)
	}
}

func TestUpdateDeleteOnlyAndConverged(t *testing.T) {
	testlog.Start(t)

	out := string(testEncoder().Update(nil, reconcile.Compute(nil, []string{"x", "y"})))
	want := "      <Delete>\n        <NetworkLink targetId=\"x\" />\n        <NetworkLink targetId=\"y\" />\n      </Delete>\n"
	if !strings.Contains(out, want) {
		t.Fatalf("missing delete block:\n%s", out)
	}
	if strings.Contains(out, "<Create>") {
		t.Fatalf("unexpected create block:\n%s", out)
	}
	if !strings.Contains(out, "<cookie><![CDATA[]]></cookie>") {
		t.Fatalf("expected empty cookie:\n%s", out)
	}

	desired := []asset.Asset{{Slug: "a", Title: "A", Storage: "a.kml"}, {Slug: "b", Title: "B", Storage: "b.kml"}}
	out = string(testEncoder().Update(desired, reconcile.Compute(desired, []string{"a", "b"})))
	if strings.Contains(out, "<Create>") || strings.Contains(out, "<Delete>") {
		t.Fatalf("converged update should be empty:\n%s", out)
	}
	if !strings.Contains(out, "asset_slug=a&asset_slug=b") {
		t.Fatalf("cookie should list all desired slugs:\n%s", out)
	}
}

func TestUpdateEscapesAndIsWellFormed(t *testing.T) {
	testlog.Start(t)

	desired := []asset.Asset{{Slug: "a&b", Title: `<Tom & "Jerry">`, Storage: "x.kml?a=1&b=2"}}
	out := testEncoder().Update(desired, reconcile.Compute(desired, []string{"old<1>"}))
	if !strings.Contains(string(out), "<name>&lt;Tom &amp; &#34;Jerry&#34;&gt;</name>") {
		t.Fatalf("title not escaped:\n%s", out)
	}
	if !strings.Contains(string(out), "asset_slug=a%26b") {
		t.Fatalf("cookie slug not query-escaped:\n%s", out)
	}

	var doc struct {
		XMLName xml.Name `xml:"kml"`
		Control struct {
			Cookie string `xml:"cookie"`
			Update struct {
				TargetHref string `xml:"targetHref"`
				Create     struct {
					Document struct {
						TargetID string `xml:"targetId,attr"`
						Links    []struct {
							ID   string `xml:"id,attr"`
							Name string `xml:"name"`
							Href string `xml:"Link>href"`
						} `xml:"NetworkLink"`
					} `xml:"Document"`
				} `xml:"Create"`
				Delete struct {
					Links []struct {
						TargetID string `xml:"targetId,attr"`
					} `xml:"NetworkLink"`
				} `xml:"Delete"`
			} `xml:"Update"`
		} `xml:"NetworkLinkControl"`
	}
	if err := xml.Unmarshal(out, &doc); err != nil {
		t.Fatalf("update is not well-formed xml: %v\n%s", err, out)
	}
	links := doc.Control.Update.Create.Document.Links
	if len(links) != 1 || links[0].ID != "a&b" || links[0].Name != `<Tom & "Jerry">` {
		t.Fatalf("unexpected parsed create links: %+v", links)
	}
	if links[0].Href != "http://lg-head/assets/x.kml?a=1&b=2" {
		t.Fatalf("unexpected parsed href: %q", links[0].Href)
	}
	if del := doc.Control.Update.Delete.Links; len(del) != 1 || del[0].TargetID != "old<1>" {
		t.Fatalf("unexpected parsed delete links: %+v", del)
	}
	if doc.Control.Update.Create.Document.TargetID != MasterDocumentID {
		t.Fatalf("unexpected create target: %q", doc.Control.Update.Create.Document.TargetID)
	}
}

func TestMasterStub(t *testing.T) {
	testlog.Start(t)

	out := string(Master())
	if !strings.Contains(out, `<Document id="master">`) || !strings.HasSuffix(out, "</kml>\n") {
		t.Fatalf("unexpected master stub:\n%s", out)
	}
}

func TestCookieEscapesSlugSeparators(t *testing.T) {
	testlog.Start(t)

	desired := []asset.Asset{
		{Slug: "a&asset_slug=b", Title: "A", Storage: "a.kml"},
		{Slug: "c d", Title: "C", Storage: "c.kml"},
	}
	if got := Cookie(desired); got != "asset_slug=a%26asset_slug%3Db&asset_slug=c+d" {
		t.Fatalf("unexpected cookie: %q", got)
	}

	doc := string(testEncoder().Update(desired, reconcile.Diff{}))
	if !strings.Contains(doc, "<cookie><![CDATA[asset_slug=a%26asset_slug%3Db&asset_slug=c+d]]></cookie>") {
		t.Fatalf("unexpected cookie element: %s", doc)
	}
}
