package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseSnapshotName(t *testing.T) {
	tests := []struct {
		name      string
		wantIndex int
		wantTaken string
		wantErr   bool
	}{
		{"3_parsed_data_2026-08-29_09-20.csv", 3, "2026-08-29 09:20", false},
		{"0_parsed_data_2026-01-01_00-00.csv", 0, "2026-01-01 00:00", false},
		{"12_parsed_data_2026-08-29_23-20.CSV", 12, "2026-08-29 23:20", false},
		{"diff_5_parsed_data_2026-08-29_11-20.csv", 5, "2026-08-29 11:20", false},
		{"diff_parsed_data_7_2026-08-29_13-20.csv", 7, "2026-08-29 13:20", false},
		{"parsed_data_2026-08-29_09-20.csv", 0, "", true},
		{"3_parsed_data_2026-08-29.csv", 0, "", true},
		{"readme.txt", 0, "", true},
		{"", 0, "", true},
	}

	for _, tt := range tests {
		meta, err := ParseSnapshotName(tt.name)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseSnapshotName(%q): expected error, got %+v", tt.name, meta)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseSnapshotName(%q): %v", tt.name, err)
			continue
		}
		if meta.Index != tt.wantIndex {
			t.Errorf("ParseSnapshotName(%q) index: got %d, want %d", tt.name, meta.Index, tt.wantIndex)
		}
		want, _ := time.Parse("2006-01-02 15:04", tt.wantTaken)
		if !meta.Taken.Equal(want) {
			t.Errorf("ParseSnapshotName(%q) taken: got %v, want %v", tt.name, meta.Taken, want)
		}
	}
}

func TestSnapshotFileNameRoundTrip(t *testing.T) {
	taken := time.Date(2026, 8, 29, 9, 20, 0, 0, time.UTC)
	name := SnapshotFileName(4, taken)
	if name != "4_parsed_data_2026-08-29_09-20.csv" {
		t.Fatalf("SnapshotFileName: got %q", name)
	}

	meta, err := ParseSnapshotName(name)
	if err != nil {
		t.Fatalf("ParseSnapshotName(%q): %v", name, err)
	}
	if meta.Index != 4 || !meta.Taken.Equal(taken) {
		t.Errorf("round trip: got %+v", meta)
	}
}

func TestNextSnapshotIndex(t *testing.T) {
	dir := t.TempDir()

	next, err := NextSnapshotIndex(dir)
	if err != nil {
		t.Fatalf("NextSnapshotIndex(empty): %v", err)
	}
	if next != 0 {
		t.Errorf("empty dir: got %d, want 0", next)
	}

	for _, name := range []string{
		"0_parsed_data_2026-08-29_09-20.csv",
		"2_parsed_data_2026-08-29_13-20.csv",
		"notes.txt",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	next, err = NextSnapshotIndex(dir)
	if err != nil {
		t.Fatalf("NextSnapshotIndex: %v", err)
	}
	if next != 3 {
		t.Errorf("got %d, want 3 after highest index 2", next)
	}
}
