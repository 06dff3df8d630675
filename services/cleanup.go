package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"vlmax-platform/internal/config"
	"vlmax-platform/internal/logger"
)

// CleanupReport lists what a cleanup run removed.
type CleanupReport struct {
	FilesRemoved []string `json:"files_removed"`
	Errors       []string `json:"errors,omitempty"`
}

// Cleaner empties the artifact directories and removes the shared index and
// merged HTML.
type Cleaner struct {
	dirs  []string
	files []string
}

func NewCleaner(cfg *config.Config) *Cleaner {
	return &Cleaner{
		dirs:  []string{cfg.UploadsDir, cfg.PreprocessDir, cfg.ResultsDir},
		files: []string{cfg.IndexPath, cfg.MergedPath},
	}
}

// Run deletes every regular file directly inside the artifact directories
// plus results.json and results.html. Missing paths are skipped. The first
// deletion error is returned after all paths have been attempted.
func (c *Cleaner) Run() (CleanupReport, error) {
	report := CleanupReport{FilesRemoved: []string{}}
	var firstErr error

	remove := func(path string) {
		if err := os.Remove(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return
			}
			logger.Error("Failed to remove file", "path", path, "error", err)
			report.Errors = append(report.Errors, err.Error())
			if firstErr == nil {
				firstErr = err
			}
			return
		}
		logger.Info("Removed file", "path", path)
		report.FilesRemoved = append(report.FilesRemoved, path)
	}

	for _, dir := range c.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				logger.Debug("Cleanup directory missing", "dir", dir)
				continue
			}
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to list %s: %w", dir, err)
			}
			continue
		}
		for _, e := range entries {
			if e.Type().IsRegular() {
				remove(filepath.Join(dir, e.Name()))
			}
		}
	}

	for _, file := range c.files {
		remove(file)
	}

	logger.Info("Cleanup finished", "removed", len(report.FilesRemoved))
	return report, firstErr
}
