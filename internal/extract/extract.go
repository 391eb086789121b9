// Package extract holds the field-extraction heuristics for the archive's
// markup. Everything operates on parsed goquery documents or selections,
// never on a live browser handle, so the quirks of the markup can be
// unit-tested offline.
package extract

import (
	"net/url"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// Marker tokens the archive uses inside listing item name parts.
const (
	pagesMarker      = "páginas"
	numberMarker     = "n.º"
	numberMarkerAlt  = "nº"
	downloadLinkText = "Descargar"
)

// Selectors for the issue listing markup.
const (
	// ItemSelector matches one issue entry on a listing page.
	ItemSelector = "article.media"
	// nameSelector matches the composite name paragraph inside an item.
	nameSelector = "p.list-item-name"
	// partSelector matches the individual fragments of the name paragraph.
	partSelector = "span.name-part"
)

// IssueParts are the metadata fields carried by one listing item's name
// paragraph.
type IssueParts struct {
	Name   string
	Date   string
	Number string
	Pages  string
}

// ParseIssueParts disassembles the name paragraph of one listing item.
// Field disambiguation is attribute-based, not positional: a part wrapped
// in <strong> is the name, a part mentioning the pages marker is the page
// count, a part with a sequence token is the number, and the first
// remaining part that has at least four characters and contains a digit is
// taken as the date. Fields that cannot be resolved stay empty.
func ParseIssueParts(item *goquery.Selection) IssueParts {
	var parts IssueParts

	item.Find(nameSelector).First().Find(partSelector).Each(func(_ int, part *goquery.Selection) {
		text := strings.TrimSpace(part.Text())
		if text == "" {
			return
		}
		lower := strings.ToLower(text)

		switch {
		case part.Find("strong").Length() > 0 || part.ParentsFiltered("strong").Length() > 0:
			parts.Name = text
		case strings.Contains(lower, pagesMarker):
			// Containment is case-insensitive but the marker is stripped
			// from the original text, so the recorded value keeps its case.
			parts.Pages = strings.TrimSpace(strings.ReplaceAll(text, pagesMarker, ""))
		case strings.Contains(lower, numberMarker) || strings.Contains(lower, numberMarkerAlt):
			cleaned := strings.NewReplacer(numberMarker, "", numberMarkerAlt, "").Replace(text)
			parts.Number = strings.TrimSpace(cleaned)
		default:
			if parts.Date == "" && looksLikeDate(text) {
				parts.Date = text
			}
		}
	})
	return parts
}

// looksLikeDate applies the listing heuristic's minimal shape check.
func looksLikeDate(text string) bool {
	if len(text) < 4 {
		return false
	}
	return strings.IndexFunc(text, unicode.IsDigit) >= 0
}

// DownloadLink returns the href of the item's download anchor, or "" when
// the item has none.
func DownloadLink(item *goquery.Selection) string {
	href := ""
	item.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if !strings.Contains(a.Text(), downloadLinkText) {
			return true
		}
		href, _ = a.Attr("href")
		return false
	})
	return href
}

// DownloadID extracts the stable resource identifier from a download
// URL's "id" query parameter. Returns "" when the URL is unparseable or
// carries no id; the caller falls back to a random identifier in that
// degraded case.
func DownloadID(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Query().Get("id")
}
