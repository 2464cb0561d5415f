package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"pharmacy-tracker/models"
)

// Canonical snapshot filename grammar: {index}_parsed_data_{YYYY-MM-DD}_{HH-MM}.csv.
// Two legacy diff-prefixed variants from earlier pipeline iterations are
// accepted at ingestion via adapters; everything written uses the canonical form.
var (
	canonicalNameRe  = regexp.MustCompile(`^(\d+)_parsed_data_(\d{4}-\d{2}-\d{2})_(\d{2}-\d{2})\.[A-Za-z]+$`)
	legacyDiffIdxRe  = regexp.MustCompile(`^diff_(\d+)_parsed_data_(\d{4}-\d{2}-\d{2})_(\d{2}-\d{2})`)
	legacyDiffNameRe = regexp.MustCompile(`^diff_parsed_data_(\d+)_(\d{4}-\d{2}-\d{2})_(\d{2}-\d{2})`)
)

const snapshotTimeLayout = "2006-01-02_15-04"

// ParseSnapshotName extracts the sequence index and timestamp from a snapshot
// file name. The index orders snapshots; the timestamp only labels columns.
func ParseSnapshotName(name string) (models.SnapshotMeta, error) {
	base := filepath.Base(name)
	for _, re := range []*regexp.Regexp{canonicalNameRe, legacyDiffIdxRe, legacyDiffNameRe} {
		m := re.FindStringSubmatch(base)
		if m == nil {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			return models.SnapshotMeta{}, fmt.Errorf("snapshot name %q: bad index: %w", base, err)
		}
		taken, err := time.Parse(snapshotTimeLayout, m[2]+"_"+m[3])
		if err != nil {
			return models.SnapshotMeta{}, fmt.Errorf("snapshot name %q: bad timestamp: %w", base, err)
		}
		return models.SnapshotMeta{Index: idx, Taken: taken}, nil
	}
	return models.SnapshotMeta{}, fmt.Errorf("snapshot name %q does not match any known pattern", base)
}

// SnapshotFileName renders the canonical name for a new snapshot file.
func SnapshotFileName(index int, taken time.Time) string {
	return fmt.Sprintf("%d_parsed_data_%s.csv", index, taken.Format(snapshotTimeLayout))
}

// NextSnapshotIndex scans dir for existing snapshot files and returns
// 1 + the highest index found, or 0 for an empty directory.
func NextSnapshotIndex(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("scan snapshot dir %q: %w", dir, err)
	}
	next := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		meta, err := ParseSnapshotName(e.Name())
		if err != nil {
			continue
		}
		if meta.Index >= next {
			next = meta.Index + 1
		}
	}
	return next, nil
}
