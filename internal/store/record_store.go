// Package store implements the append-only CSV tables that back the
// harvester: the publications list, the issues list, and its failures
// sidecar. The tables double as the crawl's resume state, so every append
// is flushed before the caller continues.
package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
)

// Record is one row keyed by column name. Missing columns serialize as
// empty strings.
type Record map[string]string

// RecordStore is an append-only CSV table with a designated dedup-key
// column and a checkpoint column. It is safe for concurrent Append calls.
type RecordStore struct {
	path          string
	columns       []string
	keyColumn     string
	checkpointCol string
	logger        *zap.Logger

	mu   sync.Mutex
	file *os.File
	w    *csv.Writer
}

// NewRecordStore describes a CSV table at path. The file is not opened
// until the first Append; LoadExistingKeys reads it independently.
func NewRecordStore(path string, columns []string, keyColumn, checkpointCol string, logger *zap.Logger) *RecordStore {
	return &RecordStore{
		path:          path,
		columns:       columns,
		keyColumn:     keyColumn,
		checkpointCol: checkpointCol,
		logger:        logger,
	}
}

// Path returns the backing file path.
func (s *RecordStore) Path() string {
	return s.path
}

// LoadExistingKeys scans the table top to bottom and returns every value
// of the key column, plus the checkpoint column value taken from the last
// row read. A missing file is the fresh-start state: empty set, empty
// checkpoint. A malformed file degrades to fresh start with a warning
// rather than aborting, since the worst outcome is re-collecting rows the
// dedup key will catch anyway. A malformed row mid-file stops the scan
// but keeps the keys and checkpoint read so far, so the rows before the
// corruption are still deduplicated.
func (s *RecordStore) LoadExistingKeys() (map[string]struct{}, string) {
	keys := make(map[string]struct{})

	f, err := os.Open(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Could not open record store, starting fresh",
				zap.String("path", s.path), zap.Error(err))
		}
		return keys, ""
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			s.logger.Warn("Could not read record store header, starting fresh",
				zap.String("path", s.path), zap.Error(err))
		}
		return keys, ""
	}

	keyIdx := indexOf(header, s.keyColumn)
	ckptIdx := indexOf(header, s.checkpointCol)

	checkpoint := ""
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.logger.Warn("Malformed row in record store, stopping scan",
				zap.String("path", s.path), zap.Error(err))
			break
		}
		if keyIdx >= 0 && keyIdx < len(row) && row[keyIdx] != "" {
			keys[row[keyIdx]] = struct{}{}
		}
		if ckptIdx >= 0 && ckptIdx < len(row) && row[ckptIdx] != "" {
			checkpoint = row[ckptIdx]
		}
	}
	return keys, checkpoint
}

// Append writes one row and flushes it to durable storage before
// returning, so an interrupted run never loses confirmation of rows
// already written.
func (s *RecordStore) Append(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.open(); err != nil {
		return err
	}

	row := make([]string, len(s.columns))
	for i, col := range s.columns {
		row[i] = rec[col]
	}
	if err := s.w.Write(row); err != nil {
		return fmt.Errorf("write row to %s: %w", s.path, err)
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", s.path, err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", s.path, err)
	}
	return nil
}

// Close releases the underlying file. Safe to call when nothing was
// appended.
func (s *RecordStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	s.w.Flush()
	err := s.file.Close()
	s.file = nil
	s.w = nil
	return err
}

// open lazily opens the file in append mode, writing the header when the
// file is new or empty.
func (s *RecordStore) open() error {
	if s.file != nil {
		return nil
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open record store %s: %w", s.path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat record store %s: %w", s.path, err)
	}

	s.file = f
	s.w = csv.NewWriter(f)

	if info.Size() == 0 {
		if err := s.w.Write(s.columns); err != nil {
			return fmt.Errorf("write header to %s: %w", s.path, err)
		}
		s.w.Flush()
		if err := s.w.Error(); err != nil {
			return fmt.Errorf("flush header %s: %w", s.path, err)
		}
	}
	return nil
}

func indexOf(header []string, col string) int {
	for i, h := range header {
		if h == col {
			return i
		}
	}
	return -1
}
