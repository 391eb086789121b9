// Package paginate splits downloaded issue PDFs into one file per page,
// mirroring the source tree. Resume state is the filesystem itself: a
// page file that exists is done, a destination directory with the full
// page count skips the whole PDF.
package paginate

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Splitter is the PDF capability the post-processor needs: open a
// document for its page count and extract one page into a new document.
type Splitter interface {
	PageCount(path string) (int, error)
	ExtractPage(src string, page int, dest string) error
}

// pdfcpuSplitter implements Splitter with pdfcpu.
type pdfcpuSplitter struct {
	conf *model.Configuration
}

// NewPDFCPUSplitter returns the production Splitter. Validation runs in
// relaxed mode since archive scans are frequently sloppy PDFs.
func NewPDFCPUSplitter() Splitter {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &pdfcpuSplitter{conf: conf}
}

func (s *pdfcpuSplitter) PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("page count %s: %w", path, err)
	}
	return n, nil
}

func (s *pdfcpuSplitter) ExtractPage(src string, page int, dest string) error {
	if err := api.TrimFile(src, dest, []string{fmt.Sprintf("%d", page)}, s.conf); err != nil {
		return fmt.Errorf("extract page %d of %s: %w", page, src, err)
	}
	return nil
}
