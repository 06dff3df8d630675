package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"vlmax-platform/internal/config"
	"vlmax-platform/internal/logger"
	"vlmax-platform/models"
	"vlmax-platform/utils"
)

// RunContext carries the artifact index of a single pipeline run.
type RunContext struct {
	Document string
	Pages    int

	mu    sync.Mutex
	index models.ArtifactIndex
	crops []CroppedTable
}

func NewRunContext(document string) *RunContext {
	return &RunContext{
		Document: document,
		index:    make(models.ArtifactIndex),
	}
}

// Record sets one path of the record stored under key, creating the record
// on first use.
func (r *RunContext) Record(key models.ArtifactKey, field models.ArtifactField, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.index[key]
	if !ok {
		rec = &models.ArtifactRecord{}
		r.index[key] = rec
	}
	return rec.Set(field, path)
}

// Index returns a copy of the current index.
func (r *RunContext) Index() models.ArtifactIndex {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(models.ArtifactIndex, len(r.index))
	for k, v := range r.index {
		rec := *v
		out[k] = &rec
	}
	return out
}

// Tables returns the number of tables located so far.
func (r *RunContext) Tables() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.crops)
}

func (r *RunContext) addCrops(crops []CroppedTable) {
	r.mu.Lock()
	r.crops = append(r.crops, crops...)
	r.mu.Unlock()
}

// ArtifactStore owns the on-disk layout of generated artifacts: the
// content-addressed results directory plus the shared index and merged
// HTML files.
type ArtifactStore struct {
	cfg *config.Config
	mu  sync.Mutex
}

func NewArtifactStore(cfg *config.Config) *ArtifactStore {
	return &ArtifactStore{cfg: cfg}
}

// EnsureDirs creates the uploads, preprocess and results directories.
func (s *ArtifactStore) EnsureDirs() error {
	for _, dir := range []string{s.cfg.UploadsDir, s.cfg.PreprocessDir, s.cfg.ResultsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// RecordConversion stores the HTML for one table under its content hash,
// derives the CSV and XLSX exports from it and registers all three paths.
// Identical HTML maps to the same files, which are simply overwritten.
func (s *ArtifactStore) RecordConversion(run *RunContext, key models.ArtifactKey, html string) (string, error) {
	hash := utils.ContentHash(html)
	base := filepath.Join(s.cfg.ResultsDir, hash)

	if err := os.MkdirAll(s.cfg.ResultsDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create results dir: %w", err)
	}

	htmlPath := base + ".html"
	if err := os.WriteFile(htmlPath, []byte(html), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", htmlPath, err)
	}
	if err := run.Record(key, models.FieldHTML, s.cfg.PublicPath(htmlPath)); err != nil {
		return "", err
	}

	rows, err := ToCSV(html)
	if err != nil {
		return hash, fmt.Errorf("%s: %w", key, err)
	}

	csvPath := base + ".csv"
	if err := WriteCSV(rows, csvPath); err != nil {
		return hash, err
	}
	if err := run.Record(key, models.FieldCSV, s.cfg.PublicPath(csvPath)); err != nil {
		return hash, err
	}

	xlsxPath := base + ".xlsx"
	if err := WriteXLSX(rows, xlsxPath); err != nil {
		return hash, err
	}
	if err := run.Record(key, models.FieldXLSX, s.cfg.PublicPath(xlsxPath)); err != nil {
		return hash, err
	}

	return hash, nil
}

// WriteIndex writes the run's index to results.json.
func (s *ArtifactStore) WriteIndex(run *RunContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := run.Index()
	data, err := json.MarshalIndent(index, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	if err := os.WriteFile(s.cfg.IndexPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	logger.Info("Artifact index written", "path", s.cfg.IndexPath, "tables", len(index))
	return nil
}

// ReadIndex loads the last index written by WriteIndex.
func (s *ArtifactStore) ReadIndex() (models.ArtifactIndex, error) {
	data, err := os.ReadFile(s.cfg.IndexPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", s.cfg.IndexPath, models.ErrFileNotFound)
		}
		return nil, err
	}

	index := models.ArtifactIndex{}
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to decode index: %w", err)
	}
	return index, nil
}

// MergeHTML concatenates every .html file in the results directory in
// filename order.
func (s *ArtifactStore) MergeHTML() (string, error) {
	entries, err := os.ReadDir(s.cfg.ResultsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to list results: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), ".html") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var merged strings.Builder
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(s.cfg.ResultsDir, name))
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", name, err)
		}
		merged.Write(data)
	}
	return merged.String(), nil
}

// WriteMerged writes the merged HTML to results.html and returns it.
func (s *ArtifactStore) WriteMerged() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged, err := s.MergeHTML()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(s.cfg.MergedPath, []byte(merged), 0o644); err != nil {
		return "", fmt.Errorf("failed to write merged html: %w", err)
	}
	return merged, nil
}

// ReadMerged returns the merged HTML consumed by the chat endpoint.
func (s *ArtifactStore) ReadMerged() (string, error) {
	data, err := os.ReadFile(s.cfg.MergedPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", s.cfg.MergedPath, models.ErrFileNotFound)
		}
		return "", err
	}
	return string(data), nil
}
