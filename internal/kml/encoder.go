// Package kml renders reconciliation results as KML NetworkLinkControl
// documents for Google Earth family viewers.
//
// Element order and nesting are load-bearing for the viewer's parser, so the
// documents are written line by line rather than through encoding/xml.
package kml

import (
	"bytes"
	"encoding/xml"
	"net/url"
	"strings"

	"github.com/EndPointCorp/kmlsync/internal/asset"
	"github.com/EndPointCorp/kmlsync/internal/reconcile"
)

// ContentType is the KML MIME type served on update and master routes.
const ContentType = "application/vnd.google-earth.kml+xml"

// MasterDocumentID is the Document id every Create targets.
const MasterDocumentID = "master"

const (
	header  = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"
	kmlOpen = `<kml xmlns="http://www.opengis.net/kml/2.2" xmlns:gx="http://www.google.com/kml/ext/2.2" xmlns:kml="http://www.opengis.net/kml/2.2" xmlns:atom="http://www.w3.org/2005/Atom">` + "\n"
)

// Encoder renders update documents that target one master document.
type Encoder struct {
	MasterHref  string
	AssetPrefix string
}

// Update renders diff as a NetworkLinkControl. desired must be the same
// snapshot the diff was computed from; its slugs populate the cookie.
func (e Encoder) Update(desired []asset.Asset, diff reconcile.Diff) []byte {
	var b bytes.Buffer
	b.WriteString(header)
	b.WriteString(kmlOpen)
	b.WriteString("<NetworkLinkControl>\n")
	b.WriteString("  <minRefreshPeriod>1</minRefreshPeriod>\n")
	b.WriteString("  <maxSessionLength>-1</maxSessionLength>\n")

	b.WriteString("  <cookie><![CDATA[")
	b.WriteString(Cookie(desired))
	b.WriteString("]]></cookie>\n")

	b.WriteString("  <Update>\n")
	b.WriteString("    <targetHref>")
	escape(&b, e.MasterHref)
	b.WriteString("</targetHref>\n")

	if len(diff.Create) > 0 {
		b.WriteString(`      <Create><Document targetId="` + MasterDocumentID + `">` + "\n")
		for _, a := range diff.Create {
			b.WriteString(`        <NetworkLink id="`)
			escape(&b, a.Slug)
			b.WriteString("\">\n")
			b.WriteString("          <name>")
			escape(&b, a.Title)
			b.WriteString("</name>\n")
			b.WriteString("          <Link><href>")
			escape(&b, e.AssetPrefix+a.Storage)
			b.WriteString("</href></Link>\n")
			b.WriteString("        </NetworkLink>\n")
		}
		b.WriteString("      </Document></Create>\n")
	}

	if len(diff.Delete) > 0 {
		b.WriteString("      <Delete>\n")
		for _, slug := range diff.Delete {
			b.WriteString(`        <NetworkLink targetId="`)
			escape(&b, slug)
			b.WriteString("\" />\n")
		}
		b.WriteString("      </Delete>\n")
	}

	b.WriteString("  </Update>\n")
	b.WriteString("</NetworkLinkControl>\n")
	b.WriteString("</kml>\n")
	return b.Bytes()
}

// Master renders the empty document that update Creates are applied to.
func Master() []byte {
	var b bytes.Buffer
	b.WriteString(header)
	b.WriteString(kmlOpen)
	b.WriteString(`<Document id="` + MasterDocumentID + `">` + "\n")
	b.WriteString("</Document>\n")
	b.WriteString("</kml>\n")
	return b.Bytes()
}

// Cookie lists every desired slug as repeated asset_slug query parameters.
// Viewers append it to their next poll URL, so values are query-escaped.
func Cookie(desired []asset.Asset) string {
	parts := make([]string, 0, len(desired))
	for i := range desired {
		parts = append(parts, "asset_slug="+url.QueryEscape(desired[i].Slug))
	}
	return strings.Join(parts, "&")
}

func escape(b *bytes.Buffer, s string) {
	// EscapeText only fails when the writer does; bytes.Buffer never does.
	_ = xml.EscapeText(b, []byte(s))
}
