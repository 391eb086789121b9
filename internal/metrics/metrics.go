// Package metrics exposes Prometheus collectors for the harvester.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	issuesDiscovered *prometheus.CounterVec
	issuesDownloaded prometheus.Counter
	issuesSkipped    prometheus.Counter
	issuesFailed     prometheus.Counter
	pagesSplit       prometheus.Counter
	pdfsSkipped      prometheus.Counter
	pdfsFailed       prometheus.Counter

	once sync.Once
)

// Init registers the collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		issuesDiscovered = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_issues_discovered_total",
				Help: "Issues discovered on listing pages, labeled by publication ISSN.",
			},
			[]string{"issn"},
		)
		issuesDownloaded = promauto.NewCounter(prometheus.CounterOpts{
			Name: "harvester_issues_downloaded_total",
			Help: "Issue PDFs downloaded successfully.",
		})
		issuesSkipped = promauto.NewCounter(prometheus.CounterOpts{
			Name: "harvester_issues_skipped_total",
			Help: "Issues skipped because their identifier was already collected.",
		})
		issuesFailed = promauto.NewCounter(prometheus.CounterOpts{
			Name: "harvester_issues_failed_total",
			Help: "Issue downloads that failed and were recorded to the failures table.",
		})
		pagesSplit = promauto.NewCounter(prometheus.CounterOpts{
			Name: "harvester_pages_split_total",
			Help: "Single-page PDFs written by the pagination post-processor.",
		})
		pdfsSkipped = promauto.NewCounter(prometheus.CounterOpts{
			Name: "harvester_pdfs_skipped_total",
			Help: "Source PDFs skipped because they were already fully split.",
		})
		pdfsFailed = promauto.NewCounter(prometheus.CounterOpts{
			Name: "harvester_pdfs_failed_total",
			Help: "Source PDFs that could not be read or split.",
		})
	})
}

// IncIssuesDiscovered records n issues found for a publication.
func IncIssuesDiscovered(issn string, n int) {
	if issuesDiscovered != nil {
		issuesDiscovered.WithLabelValues(issn).Add(float64(n))
	}
}

// IncIssuesDownloaded records one successful download.
func IncIssuesDownloaded() { inc(issuesDownloaded) }

// IncIssuesSkipped records one dedup skip.
func IncIssuesSkipped() { inc(issuesSkipped) }

// IncIssuesFailed records one failed download.
func IncIssuesFailed() { inc(issuesFailed) }

// AddPagesSplit records n pages written by the post-processor.
func AddPagesSplit(n int) {
	if pagesSplit != nil {
		pagesSplit.Add(float64(n))
	}
}

// IncPDFsSkipped records one already-complete source PDF.
func IncPDFsSkipped() { inc(pdfsSkipped) }

// IncPDFsFailed records one unreadable source PDF.
func IncPDFsFailed() { inc(pdfsFailed) }

func inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}
