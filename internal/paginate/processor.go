package paginate

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/newsarchive/harvester/internal/metrics"
)

// Config controls one pagination run.
type Config struct {
	// SourceDir is the downloaded-issues root to scan for PDFs.
	SourceDir string
	// DestDir receives the mirrored per-page tree.
	DestDir string
	// Collection, when set, restricts the run to PDFs whose path
	// contains that collection segment.
	Collection string
	// Workers bounds parallel PDF processing. Zero means NumCPU.
	Workers int
	// FailureLog is the plain-text failure artifact, cleared at the
	// start of each run.
	FailureLog string
}

// Status classifies one PDF's outcome.
type Status int

// PDF outcomes.
const (
	StatusProcessed Status = iota
	StatusSkipped
	StatusFailed
)

// Outcome is the per-PDF result collected from the worker pool.
type Outcome struct {
	Path    string
	Status  Status
	Pages   int
	Message string
}

// Summary tallies a whole run.
type Summary struct {
	Processed int
	Skipped   int
	Failed    int
}

// Processor runs the splitting batch.
type Processor struct {
	cfg      Config
	splitter Splitter
	logger   *zap.Logger
}

// New constructs a Processor.
func New(cfg Config, splitter Splitter, logger *zap.Logger) *Processor {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Processor{cfg: cfg, splitter: splitter, logger: logger}
}

// Run splits every matching source PDF and returns the tally. Individual
// PDF failures are logged to the failure artifact and do not abort the
// batch; only the inability to enumerate sources is an error.
func (p *Processor) Run(ctx context.Context) (Summary, error) {
	files, err := p.findPDFs()
	if err != nil {
		return Summary{}, err
	}
	p.logger.Info("Pagination run starting",
		zap.Int("pdfs", len(files)),
		zap.Int("workers", p.cfg.Workers),
		zap.String("source", p.cfg.SourceDir),
		zap.String("dest", p.cfg.DestDir),
	)

	failLog, err := p.resetFailureLog()
	if err != nil {
		return Summary{}, err
	}
	if failLog != nil {
		defer failLog.Close()
	}

	jobs := make(chan string)
	outcomes := make(chan Outcome)

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				outcomes <- p.processOne(path)
			}
		}()
	}
	go func() {
		defer close(jobs)
		for _, f := range files {
			select {
			case jobs <- f:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	var summary Summary
	done := 0
	for outcome := range outcomes {
		done++
		remaining := len(files) - done
		switch outcome.Status {
		case StatusProcessed:
			summary.Processed++
			metrics.AddPagesSplit(outcome.Pages)
			p.logger.Info("Processed",
				zap.String("pdf", outcome.Path),
				zap.Int("pages", outcome.Pages),
				zap.Int("remaining", remaining))
		case StatusSkipped:
			summary.Skipped++
			metrics.IncPDFsSkipped()
			p.logger.Debug("Skipped (already split)",
				zap.String("pdf", outcome.Path),
				zap.Int("remaining", remaining))
		case StatusFailed:
			summary.Failed++
			metrics.IncPDFsFailed()
			p.logger.Warn("Failed",
				zap.String("pdf", outcome.Path),
				zap.String("reason", outcome.Message),
				zap.Int("remaining", remaining))
			if failLog != nil {
				fmt.Fprintf(failLog, "FAILED: %s: %s\n", outcome.Path, outcome.Message)
			}
		}
	}

	p.logger.Info("Pagination run finished",
		zap.Int("processed", summary.Processed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("errors", summary.Failed),
	)
	if summary.Failed > 0 {
		p.logger.Warn("Failures recorded", zap.String("log", p.cfg.FailureLog))
	}
	return summary, nil
}

// processOne splits a single PDF. It never returns an error; unreadable
// sources become a failed Outcome with the underlying cause.
func (p *Processor) processOne(path string) Outcome {
	rel, err := filepath.Rel(p.cfg.SourceDir, path)
	if err != nil {
		return Outcome{Path: path, Status: StatusFailed, Message: err.Error()}
	}
	destDir := filepath.Dir(filepath.Join(p.cfg.DestDir, rel))
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	pages, err := p.splitter.PageCount(path)
	if err != nil {
		return Outcome{Path: path, Status: StatusFailed, Message: err.Error()}
	}

	// Whole-PDF skip: the destination already holds every page.
	if existing, _ := filepath.Glob(filepath.Join(destDir, stem+"-p*.pdf")); len(existing) == pages {
		return Outcome{Path: path, Status: StatusSkipped, Pages: pages}
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return Outcome{Path: path, Status: StatusFailed, Message: err.Error()}
	}

	for i := 1; i <= pages; i++ {
		out := filepath.Join(destDir, fmt.Sprintf("%s-p%d.pdf", stem, i))
		// Per-page skip supports resuming a partially split PDF.
		if _, err := os.Stat(out); err == nil {
			continue
		}
		if err := p.splitter.ExtractPage(path, i, out); err != nil {
			return Outcome{Path: path, Status: StatusFailed, Pages: pages, Message: err.Error()}
		}
	}
	return Outcome{Path: path, Status: StatusProcessed, Pages: pages}
}

// findPDFs walks the source tree, honoring the collection filter.
func (p *Processor) findPDFs() ([]string, error) {
	var files []string
	err := filepath.WalkDir(p.cfg.SourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".pdf") {
			return nil
		}
		if p.cfg.Collection != "" && !hasSegment(path, p.cfg.Collection) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", p.cfg.SourceDir, err)
	}
	return files, nil
}

func hasSegment(path, segment string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == segment {
			return true
		}
	}
	return false
}

// resetFailureLog clears and reopens the failure artifact for appending.
func (p *Processor) resetFailureLog() (*os.File, error) {
	if p.cfg.FailureLog == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(p.cfg.FailureLog), 0o755); err != nil {
		return nil, fmt.Errorf("create failure log dir: %w", err)
	}
	f, err := os.Create(p.cfg.FailureLog)
	if err != nil {
		return nil, fmt.Errorf("reset failure log %s: %w", p.cfg.FailureLog, err)
	}
	return f, nil
}
