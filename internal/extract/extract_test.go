package extract

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docFrom(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func itemFrom(t *testing.T, html string) *goquery.Selection {
	return docFrom(t, html).Find(ItemSelector).First()
}

func TestParseIssuePartsFull(t *testing.T) {
	item := itemFrom(t, `
		<article class="media">
		  <p class="list-item-name">
		    <span class="name-part"><strong>El Clamor Público</strong></span>
		    <span class="name-part">01/03/1850</span>
		    <span class="name-part">n.º 12</span>
		    <span class="name-part">4 páginas</span>
		  </p>
		</article>`)

	parts := ParseIssueParts(item)
	assert.Equal(t, "El Clamor Público", parts.Name)
	assert.Equal(t, "01/03/1850", parts.Date)
	assert.Equal(t, "12", parts.Number)
	assert.Equal(t, "4", parts.Pages)
}

func TestParseIssuePartsStrongAncestor(t *testing.T) {
	item := itemFrom(t, `
		<article class="media">
		  <p class="list-item-name">
		    <strong><span class="name-part">La Gaceta</span></strong>
		    <span class="name-part">15/06/1890</span>
		  </p>
		</article>`)

	parts := ParseIssueParts(item)
	assert.Equal(t, "La Gaceta", parts.Name)
	assert.Equal(t, "15/06/1890", parts.Date)
}

func TestParseIssuePartsAlternateNumberToken(t *testing.T) {
	item := itemFrom(t, `
		<article class="media">
		  <p class="list-item-name">
		    <span class="name-part">nº 7</span>
		    <span class="name-part">201 páginas</span>
		  </p>
		</article>`)

	parts := ParseIssueParts(item)
	assert.Equal(t, "7", parts.Number)
	assert.Equal(t, "201", parts.Pages)
	assert.Empty(t, parts.Name)
	assert.Empty(t, parts.Date)
}

func TestParseIssuePartsKeepsValueCase(t *testing.T) {
	item := itemFrom(t, `
		<article class="media">
		  <p class="list-item-name">
		    <span class="name-part">n.º XIV</span>
		    <span class="name-part">8 páginas</span>
		  </p>
		</article>`)

	parts := ParseIssueParts(item)
	assert.Equal(t, "XIV", parts.Number)
	assert.Equal(t, "8", parts.Pages)
}

func TestParseIssuePartsFirstDateCandidateWins(t *testing.T) {
	item := itemFrom(t, `
		<article class="media">
		  <p class="list-item-name">
		    <span class="name-part">01/03/1850</span>
		    <span class="name-part">02/04/1851</span>
		  </p>
		</article>`)

	parts := ParseIssueParts(item)
	assert.Equal(t, "01/03/1850", parts.Date)
}

func TestParseIssuePartsDateHeuristicRejectsShortOrDigitless(t *testing.T) {
	item := itemFrom(t, `
		<article class="media">
		  <p class="list-item-name">
		    <span class="name-part">ab1</span>
		    <span class="name-part">sin fecha</span>
		    <span class="name-part">Año 1850</span>
		  </p>
		</article>`)

	parts := ParseIssueParts(item)
	assert.Equal(t, "Año 1850", parts.Date)
}

func TestParseIssuePartsEmptyItem(t *testing.T) {
	item := itemFrom(t, `<article class="media"><p class="list-item-name"></p></article>`)
	assert.Equal(t, IssueParts{}, ParseIssueParts(item))
}

func TestDownloadLink(t *testing.T) {
	item := itemFrom(t, `
		<article class="media">
		  <a href="/hd/es/card?id=x">Ver</a>
		  <a href="/hd/es/pdf?id=deb55424&amp;attachment=true">Descargar</a>
		</article>`)
	assert.Equal(t, "/hd/es/pdf?id=deb55424&attachment=true", DownloadLink(item))
}

func TestDownloadLinkMissing(t *testing.T) {
	item := itemFrom(t, `<article class="media"><a href="/x">Ver</a></article>`)
	assert.Empty(t, DownloadLink(item))
}

func TestDownloadID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"relative with id", "/hd/es/pdf?id=deb55424-418c-40e4-be09-05bfe87c9b11&attachment=x", "deb55424-418c-40e4-be09-05bfe87c9b11"},
		{"absolute with id", "http://archive.test/pdf?id=abc", "abc"},
		{"no id param", "/hd/es/pdf?attachment=x", ""},
		{"empty", "", ""},
		{"unparseable", "http://archive.test/%zz?id=abc", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DownloadID(tt.url))
		})
	}
}
