// Package stats computes quick progress figures over the collected data.
package stats

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// SumDeclaredPages totals the number_of_pages column of the issues table.
// Rows with a missing or unparsable count are skipped, since the listing
// metadata is best-effort.
func SumDeclaredPages(csvPath string) (int, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return 0, fmt.Errorf("open issues table %s: %w", csvPath, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return 0, fmt.Errorf("read header %s: %w", csvPath, err)
	}
	col := -1
	for i, h := range header {
		if h == "number_of_pages" {
			col = i
			break
		}
	}
	if col < 0 {
		return 0, fmt.Errorf("table %s has no number_of_pages column", csvPath)
	}

	total := 0
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			continue
		}
		if col >= len(row) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(row[col]))
		if err != nil {
			continue
		}
		total += n
	}
	return total, nil
}

// CountPDFs counts PDF files under root, recursively. A root that does
// not exist yet counts as zero.
func CountPDFs(root string) (int, error) {
	if _, err := os.Stat(root); errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	count := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".pdf") {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walk %s: %w", root, err)
	}
	return count, nil
}
