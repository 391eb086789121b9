package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Markup landmarks on the publication detail page.
const (
	detailTitleSelector = "h2.title"
	coverImageSelector  = "div.field.has-text-centered img.has-border"
	issuesButtonText    = "Ejemplares"
)

// LabeledField returns the value associated with a labeled field on a
// publication detail page. The markup pairs a <label class="label"> with a
// sibling <div class="control"> holding the value; the label is matched by
// substring. Returns "" when the label is absent.
func LabeledField(doc *goquery.Document, label string) string {
	value := ""
	doc.Find("label.label").EachWithBreak(func(_ int, l *goquery.Selection) bool {
		if !strings.Contains(l.Text(), label) {
			return true
		}
		value = strings.TrimSpace(l.Parent().Find("div.control").First().Text())
		return false
	})
	return value
}

// DetailTitle returns the page's main heading, or fallback when absent.
func DetailTitle(doc *goquery.Document, fallback string) string {
	title := strings.TrimSpace(doc.Find(detailTitleSelector).First().Text())
	if title == "" {
		return fallback
	}
	return title
}

// IssuesLink returns the href of the issues button on a detail page, or
// "" when the publication exposes no issue listing.
func IssuesLink(doc *goquery.Document) string {
	href := ""
	doc.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if !strings.Contains(a.Text(), issuesButtonText) {
			return true
		}
		href, _ = a.Attr("href")
		return false
	})
	return href
}

// CoverImage returns the src of the publication's representative image,
// or "" when the detail page carries none.
func CoverImage(doc *goquery.Document) string {
	src, _ := doc.Find(coverImageSelector).First().Attr("src")
	return src
}
