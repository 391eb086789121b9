package pubs

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/newsarchive/harvester/internal/store"
)

type fakePage struct {
	mu        sync.Mutex
	pages     map[string]string
	current   string
	navigated []string
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigated = append(p.navigated, url)
	html, ok := p.pages[url]
	if !ok {
		return fmt.Errorf("no such page: %s", url)
	}
	p.current = url
	_ = html
	return nil
}

func (p *fakePage) WaitVisible(_ context.Context, selector string, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pages[p.current] == "" {
		return fmt.Errorf("selector %s never became visible", selector)
	}
	return nil
}

func (p *fakePage) HTML(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pages[p.current], nil
}

func (p *fakePage) Click(context.Context, string) error { return nil }
func (p *fakePage) DownloadDir() string                 { return "" }
func (p *fakePage) Close() error                        { return nil }

func masterListHTML(rows ...[3]string) string {
	body := "<table>"
	for _, r := range rows {
		body += fmt.Sprintf(`<tr><td>%s</td><td><a href="%s">%s</a></td></tr>`, r[0], r[2], r[1])
	}
	return "<html><body>" + body + "</table></body></html>"
}

func detailHTML(title, collection, issuesLink, imageSrc string) string {
	img := ""
	if imageSrc != "" {
		img = fmt.Sprintf(`<div class="field has-text-centered"><img class="has-border" src="%s"></div>`, imageSrc)
	}
	issues := ""
	if issuesLink != "" {
		issues = fmt.Sprintf(`<a href="%s">Ejemplares</a>`, issuesLink)
	}
	return fmt.Sprintf(`<html><body>
<h2 class="title">%s</h2>
%s
<div class="field"><label class="label">Colección</label><div class="control">%s</div></div>
<div class="field"><label class="label">Idioma</label><div class="control">Español</div></div>
<div class="field"><label class="label">Ejemplares</label><div class="control">42</div></div>
%s
</body></html>`, title, img, collection, issues)
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestScraperHarvestsNewPublications(t *testing.T) {
	imageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("img-bytes"))
	}))
	defer imageSrv.Close()

	page := &fakePage{pages: map[string]string{
		"https://archive.test/fulltext": masterListHTML(
			[3]string{"0001-0001", "Gaceta", "/detail/A"},
			[3]string{"0002-0002", "Revista", "/detail/B"},
		),
		"https://archive.test/detail/A": detailHTML(
			"Gaceta de Madrid", "Prensa", "/issues/A", imageSrv.URL+"/cover.jpg"),
		"https://archive.test/detail/B": detailHTML(
			"Revista Moderna", "Revistas", "/issues/B", ""),
	}}

	dir := t.TempDir()
	logger := zap.NewNop()
	pubStore := store.NewPublicationStore(filepath.Join(dir, "list.csv"), logger)
	defer pubStore.Close()

	// 0002-0002 is already harvested; only the gazette is visited.
	require.NoError(t, pubStore.Append(store.Publication{
		UUID: "pre-existing", ISSN: "0002-0002", Title: "Revista Moderna",
	}.Record()))

	s := NewScraper(Config{
		BaseURL:   "https://archive.test",
		StartURL:  "https://archive.test/fulltext",
		ImagesDir: filepath.Join(dir, "images"),
	}, page, pubStore, nil, logger)
	s.newID = func() string { return "fixed-uuid" }

	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, []string{
		"https://archive.test/fulltext",
		"https://archive.test/detail/A",
	}, page.navigated)

	rows := readRows(t, pubStore.Path())
	require.Len(t, rows, 3, "header + seed + the new publication")
	row := rows[2]
	assert.Equal(t, "fixed-uuid", row[0])
	assert.Equal(t, "0001-0001", row[1])
	assert.Equal(t, "Gaceta de Madrid", row[2])
	assert.Equal(t, "Prensa", row[4])
	assert.Equal(t, "Español", row[9])
	assert.Equal(t, "42", row[10])
	assert.Equal(t, "https://archive.test/detail/A", row[12])
	assert.Equal(t, "/issues/A", row[13])

	img, err := os.ReadFile(filepath.Join(dir, "images", "fixed-uuid.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "img-bytes", string(img))
}

func TestScraperContinuesPastBrokenDetailPage(t *testing.T) {
	page := &fakePage{pages: map[string]string{
		"https://archive.test/fulltext": masterListHTML(
			[3]string{"0001-0001", "Gaceta", "/detail/missing"},
			[3]string{"0002-0002", "Revista", "/detail/B"},
		),
		"https://archive.test/detail/B": detailHTML("Revista Moderna", "Revistas", "", ""),
	}}

	dir := t.TempDir()
	logger := zap.NewNop()
	pubStore := store.NewPublicationStore(filepath.Join(dir, "list.csv"), logger)
	defer pubStore.Close()

	s := NewScraper(Config{
		BaseURL:  "https://archive.test",
		StartURL: "https://archive.test/fulltext",
	}, page, pubStore, nil, logger)

	require.NoError(t, s.Run(context.Background()))

	rows := readRows(t, pubStore.Path())
	require.Len(t, rows, 2, "the broken detail page is skipped, not fatal")
	assert.Equal(t, "0002-0002", rows[1][1])
}

func TestScraperMissingImageIsBestEffort(t *testing.T) {
	// Image URL points nowhere routable; the row must still be recorded.
	page := &fakePage{pages: map[string]string{
		"https://archive.test/fulltext": masterListHTML(
			[3]string{"0001-0001", "Gaceta", "/detail/A"},
		),
		"https://archive.test/detail/A": detailHTML(
			"Gaceta de Madrid", "Prensa", "", "http://127.0.0.1:1/cover.png"),
	}}

	dir := t.TempDir()
	logger := zap.NewNop()
	pubStore := store.NewPublicationStore(filepath.Join(dir, "list.csv"), logger)
	defer pubStore.Close()

	s := NewScraper(Config{
		BaseURL:   "https://archive.test",
		StartURL:  "https://archive.test/fulltext",
		ImagesDir: filepath.Join(dir, "images"),
	}, page, pubStore, &http.Client{Timeout: time.Second}, logger)

	require.NoError(t, s.Run(context.Background()))

	rows := readRows(t, pubStore.Path())
	require.Len(t, rows, 2)

	_, err := os.Stat(filepath.Join(dir, "images"))
	assert.True(t, os.IsNotExist(err), "no image directory when nothing downloaded")
}

func TestImageExt(t *testing.T) {
	assert.Equal(t, ".png", imageExt("https://x/img.png?x=1"))
	assert.Equal(t, ".gif", imageExt("https://x/anim.GIF"))
	assert.Equal(t, ".jpg", imageExt("https://x/cover"))
}
