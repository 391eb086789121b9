package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextControlEnabled(t *testing.T) {
	doc := docFrom(t, `<a id="top-next" href="/hd/es/card?page=2">Siguiente</a>`)
	state, href := NextControl(doc)
	assert.Equal(t, NextEnabled, state)
	assert.Equal(t, "/hd/es/card?page=2", href)
}

func TestNextControlEnabledWithoutStableTarget(t *testing.T) {
	doc := docFrom(t, `<a id="top-next" href="javascript:void(0)">Siguiente</a>`)
	state, href := NextControl(doc)
	assert.Equal(t, NextEnabled, state)
	assert.Empty(t, href, "void href means the control must be clicked")
}

func TestNextControlDisabled(t *testing.T) {
	doc := docFrom(t, `<span id="top-disabled-next">Siguiente</span>`)
	state, href := NextControl(doc)
	assert.Equal(t, NextDisabled, state)
	assert.Empty(t, href)
}

func TestNextControlMissing(t *testing.T) {
	doc := docFrom(t, `<div>no pagination here</div>`)
	state, _ := NextControl(doc)
	assert.Equal(t, NextMissing, state)
}

func TestMasterList(t *testing.T) {
	doc := docFrom(t, `
		<table>
		  <tr><th>ISSN</th><th>Título</th></tr>
		  <tr>
		    <td>1111-1111</td>
		    <td><a href="/hd/es/card?issn=1111-1111">El Clamor Público</a></td>
		  </tr>
		  <tr>
		    <td>2222-2222</td>
		    <td>sin enlace</td>
		  </tr>
		</table>`)

	rows := MasterList(doc)
	require.Len(t, rows, 1)
	assert.Equal(t, "1111-1111", rows[0].ISSN)
	assert.Equal(t, "El Clamor Público", rows[0].Title)
	assert.Equal(t, "/hd/es/card?issn=1111-1111", rows[0].Link)
}

func TestLabeledField(t *testing.T) {
	doc := docFrom(t, `
		<div class="field">
		  <label class="label">Colección</label>
		  <div class="control">Educación</div>
		</div>
		<div class="field">
		  <label class="label">Idioma</label>
		  <div class="control">spa</div>
		</div>`)

	assert.Equal(t, "Educación", LabeledField(doc, "Colección"))
	assert.Equal(t, "spa", LabeledField(doc, "Idioma"))
	assert.Empty(t, LabeledField(doc, "Fecha"))
}

func TestDetailTitleAndIssuesLink(t *testing.T) {
	doc := docFrom(t, `
		<h2 class="title">El Clamor Público</h2>
		<a href="/hd/es/card?issn=1111&tab=issues" class="button">Ejemplares (120)</a>`)

	assert.Equal(t, "El Clamor Público", DetailTitle(doc, "fallback"))
	assert.Equal(t, "/hd/es/card?issn=1111&tab=issues", IssuesLink(doc))
}

func TestDetailTitleFallback(t *testing.T) {
	doc := docFrom(t, `<div>no heading</div>`)
	assert.Equal(t, "listed title", DetailTitle(doc, "listed title"))
}

func TestCoverImage(t *testing.T) {
	doc := docFrom(t, `
		<div class="field has-text-centered">
		  <img class="has-border" src="/images/cover.jpg" loading="lazy">
		</div>`)
	assert.Equal(t, "/images/cover.jpg", CoverImage(doc))

	assert.Empty(t, CoverImage(docFrom(t, `<div></div>`)))
}
