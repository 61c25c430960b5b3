// Package storage manages the per-run directory layout on disk.
//
// Each pipeline run gets two timestamp-named directories: the source PDF is
// saved under uploads/<run-id>/ and one output PDF per employee is written
// under output/<run-id>/. The run id doubles as the treatment's run_folder.
package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"
)

// runIDFormat is a sortable compact timestamp, e.g. 20250831143015.
const runIDFormat = "20060102150405"

// Service owns the uploads/ and output/ roots.
type Service struct {
	uploadRoot string
	outputRoot string
}

// New creates a storage service and ensures both roots exist.
func New(uploadRoot, outputRoot string) (*Service, error) {
	for _, dir := range []string{uploadRoot, outputRoot} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage root %s: %w", dir, err)
		}
	}
	return &Service{uploadRoot: uploadRoot, outputRoot: outputRoot}, nil
}

// NewRunID returns a run identifier for the current moment.
func NewRunID(now time.Time) string {
	return now.Format(runIDFormat)
}

// CreateRunDirs creates the upload and output directories for a run and
// returns their paths.
func (s *Service) CreateRunDirs(runID string) (uploadDir, outputDir string, err error) {
	uploadDir = filepath.Join(s.uploadRoot, runID)
	outputDir = filepath.Join(s.outputRoot, runID)
	for _, dir := range []string{uploadDir, outputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", "", fmt.Errorf("failed to create run directory %s: %w", dir, err)
		}
	}
	return uploadDir, outputDir, nil
}

// SaveUpload streams a multipart upload into the run's upload directory and
// returns the saved path plus the byte count.
func (s *Service) SaveUpload(file multipart.File, runID, filename string) (string, int64, error) {
	dst := filepath.Join(s.uploadRoot, runID, filepath.Base(filename))

	out, err := os.Create(dst)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create upload file: %w", err)
	}
	defer out.Close()

	n, err := io.Copy(out, file)
	if err != nil {
		os.Remove(dst)
		return "", 0, fmt.Errorf("failed to save upload: %w", err)
	}
	return dst, n, nil
}

// FolderSize returns the cumulative byte size of all regular files under dir.
// A missing directory counts as zero.
func FolderSize(dir string) int64 {
	var total int64
	filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err == nil && info.Mode().IsRegular() {
			total += info.Size()
		}
		return nil
	})
	return total
}

// OldRun is one run directory pair past the retention window.
type OldRun struct {
	RunID string
	Bytes int64
}

// OldRuns lists run directories older than the retention window, summing the
// sizes of both the upload and output side. Directory names that do not
// parse as run ids are ignored.
func (s *Service) OldRuns(now time.Time, retention time.Duration) []OldRun {
	cutoff := now.Add(-retention)
	seen := map[string]bool{}
	var runs []OldRun

	for _, root := range []string{s.uploadRoot, s.outputRoot} {
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() || seen[e.Name()] {
				continue
			}
			ts, err := time.ParseInLocation(runIDFormat, e.Name(), time.Local)
			if err != nil {
				continue
			}
			if ts.After(cutoff) {
				continue
			}
			seen[e.Name()] = true
			runs = append(runs, OldRun{
				RunID: e.Name(),
				Bytes: FolderSize(filepath.Join(s.uploadRoot, e.Name())) + FolderSize(filepath.Join(s.outputRoot, e.Name())),
			})
		}
	}
	return runs
}

// RemoveRun deletes both directories of a run and returns the bytes freed.
func (s *Service) RemoveRun(runID string) (int64, error) {
	freed := FolderSize(filepath.Join(s.uploadRoot, runID)) + FolderSize(filepath.Join(s.outputRoot, runID))
	for _, root := range []string{s.uploadRoot, s.outputRoot} {
		if err := os.RemoveAll(filepath.Join(root, runID)); err != nil {
			return 0, fmt.Errorf("failed to remove run %s: %w", runID, err)
		}
	}
	return freed, nil
}

// UploadRoot returns the uploads root path.
func (s *Service) UploadRoot() string { return s.uploadRoot }

// OutputRoot returns the output root path.
func (s *Service) OutputRoot() string { return s.outputRoot }
