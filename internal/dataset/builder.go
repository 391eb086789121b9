// Package dataset assembles the harvested publication catalogue into a
// single self-contained Parquet file, embedding cover images as bytes,
// and uploads it to object storage.
package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"
	"go.uber.org/zap"

	"github.com/newsarchive/harvester/internal/store"
)

// Row is one publication in the published dataset. The internal UUID is
// deliberately absent; it only keys the image on disk. Count columns are
// nullable since the archive omits them for some publications.
type Row struct {
	Image            []byte `parquet:"image,optional"`
	ISSN             string `parquet:"issn"`
	Title            string `parquet:"title"`
	OtherTitle       string `parquet:"other_title"`
	Collection       string `parquet:"collection"`
	Description      string `parquet:"description"`
	GeographicScope  string `parquet:"geographic_scope"`
	PublicationPlace string `parquet:"publication_place"`
	Date             string `parquet:"date"`
	Language         string `parquet:"language"`
	IssuesCount      *int64 `parquet:"issues_count,optional"`
	TotalPages       *int64 `parquet:"total_pages,optional"`
	DetailLink       string `parquet:"detail_link"`
	IssuesLink       string `parquet:"issues_link"`
}

// Summary reports what went into the built file.
type Summary struct {
	Rows       int
	WithImages int
}

// imageExtensions are tried in order when locating a cover image.
var imageExtensions = []string{".jpg", ".png", ".gif"}

// Build reads the publications table at csvPath, pairs each row with its
// cover image from imagesDir when one exists, and writes the combined
// Parquet file to outPath.
func Build(csvPath, imagesDir, outPath string, logger *zap.Logger) (Summary, error) {
	pubs, err := store.LoadPublications(csvPath)
	if err != nil {
		return Summary{}, fmt.Errorf("load publications: %w", err)
	}

	rows := make([]Row, 0, len(pubs))
	withImages := 0
	for _, pub := range pubs {
		row := Row{
			ISSN:             pub.ISSN,
			Title:            pub.Title,
			OtherTitle:       pub.OtherTitle,
			Collection:       pub.Collection,
			Description:      pub.Description,
			GeographicScope:  pub.GeographicScope,
			PublicationPlace: pub.PublicationPlace,
			Date:             pub.DateRange,
			Language:         pub.Language,
			IssuesCount:      parseCount(pub.IssuesCount),
			TotalPages:       parseCount(pub.TotalPages),
			DetailLink:       pub.DetailLink,
			IssuesLink:       pub.IssuesLink,
		}
		if img := loadImage(imagesDir, pub.UUID); img != nil {
			row.Image = img
			withImages++
		}
		rows = append(rows, row)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return Summary{}, fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return Summary{}, fmt.Errorf("create dataset file: %w", err)
	}
	defer f.Close()

	w := parquet.NewGenericWriter[Row](f)
	if _, err := w.Write(rows); err != nil {
		return Summary{}, fmt.Errorf("write dataset rows: %w", err)
	}
	if err := w.Close(); err != nil {
		return Summary{}, fmt.Errorf("finalize dataset: %w", err)
	}

	logger.Info("Dataset built",
		zap.String("path", outPath),
		zap.Int("rows", len(rows)),
		zap.Int("with_images", withImages))
	return Summary{Rows: len(rows), WithImages: withImages}, nil
}

// loadImage returns the cover image bytes for a publication, or nil when
// no image was harvested. An unset UUID never matches anything.
func loadImage(imagesDir, id string) []byte {
	if imagesDir == "" || id == "" {
		return nil
	}
	for _, ext := range imageExtensions {
		data, err := os.ReadFile(filepath.Join(imagesDir, id+ext))
		if err == nil {
			return data
		}
	}
	return nil
}

// parseCount converts the archive's count fields to nullable integers.
// Blank or malformed values become null rather than zero.
func parseCount(raw string) *int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}
