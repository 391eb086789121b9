package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/newsarchive/harvester/internal/daterange"
)

// Column layout of the publications table.
var publicationColumns = []string{
	"uuid",
	"issn",
	"title",
	"other_title",
	"collection",
	"description",
	"geographic_scope",
	"publication_place",
	"date",
	"language",
	"issues_count",
	"total_pages",
	"detail_link",
	"issues_link",
}

const publicationKeyColumn = "issn"

// Publication is one row of the publications table. ISSN is the dedup key
// for publication harvesting; it is assigned by the archive and is not
// guaranteed unique or present.
type Publication struct {
	UUID             string
	ISSN             string
	Title            string
	OtherTitle       string
	Collection       string
	Description      string
	GeographicScope  string
	PublicationPlace string
	DateRange        string
	Language         string
	IssuesCount      string
	TotalPages       string
	DetailLink       string
	IssuesLink       string
}

// Record converts the publication into a CSV row.
func (p Publication) Record() Record {
	return Record{
		"uuid":              p.UUID,
		"issn":              p.ISSN,
		"title":             p.Title,
		"other_title":       p.OtherTitle,
		"collection":        p.Collection,
		"description":       p.Description,
		"geographic_scope":  p.GeographicScope,
		"publication_place": p.PublicationPlace,
		"date":              p.DateRange,
		"language":          p.Language,
		"issues_count":      p.IssuesCount,
		"total_pages":       p.TotalPages,
		"detail_link":       p.DetailLink,
		"issues_link":       p.IssuesLink,
	}
}

// NewPublicationStore opens the publications table at path. Publications
// have no checkpoint semantics; resume is set membership on the ISSN.
func NewPublicationStore(path string, logger *zap.Logger) *RecordStore {
	return NewRecordStore(path, publicationColumns, publicationKeyColumn, publicationKeyColumn, logger)
}

// LoadPublications reads the full publications table. A missing input
// table is fatal to the caller, unlike the output stores.
func LoadPublications(path string) ([]Publication, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open publications table %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read publications header %s: %w", path, err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}
	field := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var pubs []Publication
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read publications row %s: %w", path, err)
		}
		pubs = append(pubs, Publication{
			UUID:             field(row, "uuid"),
			ISSN:             strings.TrimSpace(field(row, "issn")),
			Title:            field(row, "title"),
			OtherTitle:       field(row, "other_title"),
			Collection:       strings.TrimSpace(field(row, "collection")),
			Description:      field(row, "description"),
			GeographicScope:  field(row, "geographic_scope"),
			PublicationPlace: field(row, "publication_place"),
			DateRange:        field(row, "date"),
			Language:         field(row, "language"),
			IssuesCount:      field(row, "issues_count"),
			TotalPages:       field(row, "total_pages"),
			DetailLink:       field(row, "detail_link"),
			IssuesLink:       strings.TrimSpace(field(row, "issues_link")),
		})
	}
	return pubs, nil
}

// WritePublications writes a complete publications table, replacing any
// existing file. Used by the filter command; the incremental stores never
// rewrite.
func WritePublications(path string, pubs []Publication) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create publications table %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(publicationColumns); err != nil {
		return fmt.Errorf("write header %s: %w", path, err)
	}
	for _, p := range pubs {
		rec := p.Record()
		row := make([]string, len(publicationColumns))
		for i, col := range publicationColumns {
			row[i] = rec[col]
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return nil
}

// FilterOptions narrows a publications list. Nil slices and boundaries
// leave that dimension unfiltered.
type FilterOptions struct {
	Collections []string
	Languages   []string
	From        *time.Time
	To          *time.Time
}

// Filter applies FilterOptions. Publications without a date are excluded
// when a date window is set, matching how the analysis treats unknown
// ranges.
func Filter(pubs []Publication, opts FilterOptions) []Publication {
	var out []Publication
	for _, p := range pubs {
		if len(opts.Collections) > 0 && !containsFold(opts.Collections, p.Collection) {
			continue
		}
		if opts.From != nil || opts.To != nil {
			if strings.TrimSpace(p.DateRange) == "" {
				continue
			}
			start, end := daterange.Parse(p.DateRange)
			if !daterange.Overlaps(start, end, opts.From, opts.To) {
				continue
			}
		}
		if len(opts.Languages) > 0 && !matchesLanguage(p.Language, opts.Languages) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// matchesLanguage handles the multi-valued language field, which the
// archive delimits with commas or pipes.
func matchesLanguage(field string, wanted []string) bool {
	field = strings.TrimSpace(field)
	if field == "" {
		return false
	}
	parts := strings.FieldsFunc(field, func(r rune) bool {
		return r == ',' || r == '|'
	})
	for _, part := range parts {
		if containsFold(wanted, strings.TrimSpace(part)) {
			return true
		}
	}
	return false
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}
