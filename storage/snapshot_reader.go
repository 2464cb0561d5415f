package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"pharmacy-tracker/models"
	"pharmacy-tracker/utils"
)

// Table is one tabular file read into memory: a header row plus data rows.
// Rows may be ragged; column mapping is the ingestor's concern.
type Table struct {
	Path   string
	Header []string
	Rows   [][]string
}

// SnapshotFile pairs a parsed snapshot name with its raw table.
type SnapshotFile struct {
	Meta  models.SnapshotMeta
	Table *Table
}

// SnapshotReader loads snapshot CSV files from disk.
type SnapshotReader struct {
	logger *utils.Logger
}

// NewSnapshotReader creates a SnapshotReader with the given logger.
func NewSnapshotReader(logger *utils.Logger) *SnapshotReader {
	return &SnapshotReader{logger: logger}
}

// ReadTable reads one CSV file. An empty file yields an error since a
// snapshot without a header cannot be mapped to the schema.
func (r *SnapshotReader) ReadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read %q: file is empty", path)
	}

	return &Table{Path: path, Header: records[0], Rows: records[1:]}, nil
}

// ReadSnapshotDir lists a competitor's directory and returns its snapshot
// files sorted by sequence index. Files whose names fail the filename grammar
// are skipped with a warning, as are files that cannot be read; neither
// aborts the directory.
func (r *SnapshotReader) ReadSnapshotDir(dir string) ([]*SnapshotFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read snapshot dir %q: %w", dir, err)
	}

	var files []*SnapshotFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		meta, err := ParseSnapshotName(e.Name())
		if err != nil {
			r.logger.Warn("[snapshots] skipping %s: %v", e.Name(), err)
			continue
		}
		path := filepath.Join(dir, e.Name())
		table, err := r.ReadTable(path)
		if err != nil {
			r.logger.Warn("[snapshots] skipping unreadable file %s: %v", e.Name(), err)
			continue
		}
		files = append(files, &SnapshotFile{Meta: meta, Table: table})
	}

	// Order by index, never by timestamp: clocks drift, indexes do not.
	sort.Slice(files, func(i, j int) bool { return files[i].Meta.Index < files[j].Meta.Index })
	return files, nil
}
