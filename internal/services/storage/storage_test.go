package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	base := t.TempDir()
	s, err := New(filepath.Join(base, "uploads"), filepath.Join(base, "output"))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return s
}

func TestNewRunID(t *testing.T) {
	ts := time.Date(2025, 8, 31, 14, 30, 15, 0, time.Local)
	if got := NewRunID(ts); got != "20250831143015" {
		t.Errorf("NewRunID() = %q, want 20250831143015", got)
	}
}

func TestCreateRunDirs(t *testing.T) {
	s := newTestService(t)

	up, out, err := s.CreateRunDirs("20250831143015")
	if err != nil {
		t.Fatalf("CreateRunDirs() error: %v", err)
	}
	for _, dir := range []string{up, out} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("run dir %s not created", dir)
		}
	}
}

func TestFolderSize(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.pdf"), make([]byte, 100), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.pdf"), make([]byte, 50), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := FolderSize(dir); got != 150 {
		t.Errorf("FolderSize() = %d, want 150", got)
	}
	if got := FolderSize(filepath.Join(dir, "missing")); got != 0 {
		t.Errorf("FolderSize(missing) = %d, want 0", got)
	}
}

func TestOldRuns(t *testing.T) {
	s := newTestService(t)
	now := time.Date(2025, 8, 31, 12, 0, 0, 0, time.Local)

	oldID := NewRunID(now.AddDate(0, 0, -45))
	freshID := NewRunID(now.AddDate(0, 0, -2))
	s.CreateRunDirs(oldID)
	s.CreateRunDirs(freshID)
	// A stray directory that is not a run id must be ignored.
	os.MkdirAll(filepath.Join(s.UploadRoot(), "not-a-run"), 0o755)

	os.WriteFile(filepath.Join(s.OutputRoot(), oldID, "x.pdf"), make([]byte, 10), 0o644)

	runs := s.OldRuns(now, 30*24*time.Hour)
	if len(runs) != 1 {
		t.Fatalf("OldRuns() returned %d runs, want 1", len(runs))
	}
	if runs[0].RunID != oldID {
		t.Errorf("OldRuns() picked %q, want %q", runs[0].RunID, oldID)
	}
	if runs[0].Bytes != 10 {
		t.Errorf("OldRuns() bytes = %d, want 10", runs[0].Bytes)
	}
}

func TestRemoveRun(t *testing.T) {
	s := newTestService(t)
	runID := "20250701080000"
	up, out, _ := s.CreateRunDirs(runID)
	os.WriteFile(filepath.Join(up, "in.pdf"), make([]byte, 20), 0o644)
	os.WriteFile(filepath.Join(out, "out.pdf"), make([]byte, 30), 0o644)

	freed, err := s.RemoveRun(runID)
	if err != nil {
		t.Fatalf("RemoveRun() error: %v", err)
	}
	if freed != 50 {
		t.Errorf("RemoveRun() freed = %d, want 50", freed)
	}
	if _, err := os.Stat(up); !os.IsNotExist(err) {
		t.Error("upload run dir still present")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("output run dir still present")
	}
}
