package download

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakePage simulates a browser session whose click drops a file into the
// download directory.
type fakePage struct {
	downloadDir string
	clickErr    error
	onClick     func()
	clicked     []string
}

func (f *fakePage) Navigate(context.Context, string) error { return nil }
func (f *fakePage) WaitVisible(context.Context, string, time.Duration) error {
	return nil
}
func (f *fakePage) HTML(context.Context) (string, error) { return "", nil }
func (f *fakePage) Click(_ context.Context, selector string) error {
	f.clicked = append(f.clicked, selector)
	if f.clickErr != nil {
		return f.clickErr
	}
	if f.onClick != nil {
		f.onClick()
	}
	return nil
}
func (f *fakePage) DownloadDir() string { return f.downloadDir }
func (f *fakePage) Close() error        { return nil }

func newManager(t *testing.T, baseURL string, page *fakePage) *Manager {
	t.Helper()
	var p = page
	cfg := Config{
		BaseURL:      baseURL,
		UserAgent:    "harvester-test",
		Timeout:      3 * time.Second,
		PollInterval: 10 * time.Millisecond,
		SettleDelay:  time.Millisecond,
	}
	if p == nil {
		return New(cfg, nil, zap.NewNop())
	}
	return New(cfg, p, zap.NewNop())
}

func TestFetchDirectSuccess(t *testing.T) {
	body := []byte("%PDF-1.4 fake")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "harvester-test", r.Header.Get("User-Agent"))
		w.Write(body)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "issue.pdf")
	m := newManager(t, srv.URL, nil)

	require.True(t, m.Fetch(context.Background(), "/hd/es/pdf?id=abc", dest))
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestFetchNonOKStatusDoesNotFallBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	page := &fakePage{downloadDir: t.TempDir()}
	m := newManager(t, srv.URL, page)

	assert.False(t, m.Fetch(context.Background(), "/missing.pdf", filepath.Join(t.TempDir(), "x.pdf")))
	assert.Empty(t, page.clicked, "fallback must trigger only on transport errors")
}

func TestFetchFallbackOnTransportError(t *testing.T) {
	downloadDir := t.TempDir()
	page := &fakePage{downloadDir: downloadDir}
	page.onClick = func() {
		require.NoError(t, os.WriteFile(filepath.Join(downloadDir, "browser.pdf"), []byte("pdf"), 0o644))
	}

	// Port that refuses connections: direct strategy fails at transport.
	m := newManager(t, "http://127.0.0.1:1", page)

	dest := filepath.Join(t.TempDir(), "issue.pdf")
	require.True(t, m.Fetch(context.Background(), "/hd/es/pdf?id=abc", dest))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf"), got)
	require.NotEmpty(t, page.clicked)
	assert.Contains(t, page.clicked[0], "/hd/es/pdf?id=abc")
}

func TestFetchLocalWriteFailureFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("pdf"))
	}))
	defer srv.Close()

	page := &fakePage{downloadDir: t.TempDir()}
	m := newManager(t, srv.URL, page)

	// A directory as destination makes the direct write fail after a
	// perfectly good response.
	m.Fetch(context.Background(), "/hd/es/pdf?id=abc", t.TempDir())
	assert.NotEmpty(t, page.clicked, "write failures must reach the fallback")
}

func TestFetchFallbackClickRetriesWithPrefixSelector(t *testing.T) {
	downloadDir := t.TempDir()
	page := &fakePage{downloadDir: downloadDir, clickErr: errors.New("node not found")}
	m := newManager(t, "http://127.0.0.1:1", page)

	assert.False(t, m.Fetch(context.Background(), "/hd/es/pdf?id=abc", filepath.Join(t.TempDir(), "x.pdf")))
	require.Len(t, page.clicked, 2)
	assert.Contains(t, page.clicked[1], `a[href^="/hd/es/pdf"]`)
}

func TestFetchFallbackTimesOutWhenNothingAppears(t *testing.T) {
	page := &fakePage{downloadDir: t.TempDir()}
	cfg := Config{
		BaseURL:      "http://127.0.0.1:1",
		Timeout:      50 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
		SettleDelay:  time.Millisecond,
	}
	m := New(cfg, page, zap.NewNop())

	assert.False(t, m.Fetch(context.Background(), "/a.pdf", filepath.Join(t.TempDir(), "a.pdf")))
}

func TestFetchNoPageClientNoFallback(t *testing.T) {
	m := newManager(t, "http://127.0.0.1:1", nil)
	assert.False(t, m.Fetch(context.Background(), "/a.pdf", filepath.Join(t.TempDir(), "a.pdf")))
}

func TestFetchAbsoluteLinkBypassesBase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	m := newManager(t, "http://unused.test", nil)
	dest := filepath.Join(t.TempDir(), "a.pdf")
	require.True(t, m.Fetch(context.Background(), srv.URL+"/a.pdf", dest))
}
