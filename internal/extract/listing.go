package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Pagination control ids on listing pages.
const (
	nextControlID         = "top-next"
	nextDisabledControlID = "top-disabled-next"
)

// NextState classifies the pagination control found on a listing page.
type NextState int

// Pagination control states.
const (
	// NextMissing means neither an enabled nor a disabled control was
	// found. Ambiguous absence is treated as end-of-listing.
	NextMissing NextState = iota
	// NextDisabled is the archive's explicit end-of-pages marker.
	NextDisabled
	// NextEnabled means another page exists.
	NextEnabled
)

// NextControl inspects the listing page for its pagination control and
// returns the control state plus the next page's href when one exists.
// An href of "javascript:void(0)" carries no stable target; callers must
// interact with the control instead of navigating.
func NextControl(doc *goquery.Document) (NextState, string) {
	if next := doc.Find("#" + nextControlID); next.Length() > 0 {
		href, _ := next.First().Attr("href")
		if href == "javascript:void(0)" {
			href = ""
		}
		return NextEnabled, href
	}
	if doc.Find("#"+nextDisabledControlID).Length() > 0 {
		return NextDisabled, ""
	}
	return NextMissing, ""
}

// NextControlSelector is the selector for the enabled pagination control,
// used when the control must be clicked rather than followed.
const NextControlSelector = "#" + nextControlID

// ListingRow is one row of the archive's master publications table.
type ListingRow struct {
	ISSN  string
	Title string
	Link  string
}

// MasterList extracts the publication rows from the archive's full-text
// table: first cell is the ISSN, second holds the linked title. Rows
// without a link are skipped.
func MasterList(doc *goquery.Document) []ListingRow {
	var rows []ListingRow
	doc.Find("table tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 2 {
			return
		}
		link := cells.Eq(1).Find("a").First()
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return
		}
		rows = append(rows, ListingRow{
			ISSN:  strings.TrimSpace(cells.Eq(0).Text()),
			Title: strings.TrimSpace(link.Text()),
			Link:  href,
		})
	})
	return rows
}
