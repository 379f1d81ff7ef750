// Package store persists the occurrence document: the occurrence list, the
// derived schedule summary, and the serialized generator plan. Two backends
// implement editor.Persister: an atomic JSON file and a PostgreSQL table.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"occal/internal/log"
	"occal/internal/model"
	"occal/internal/plan"
)

// Document is the storage-stable shape of one schedule. Occurrences keep the
// tolerant raw form on disk so documents written by older editors (combined
// start/end datetimes) still load.
type Document struct {
	Version     int                   `json:"version"`
	UpdatedAt   time.Time             `json:"updatedAt"`
	Summary     string                `json:"summary"`
	Plan        *plan.Serialized      `json:"plan,omitempty"`
	Occurrences []model.RawOccurrence `json:"occurrences"`
}

// documentVersion is bumped when the on-disk shape changes incompatibly.
const documentVersion = 1

// rawFrom converts occurrences back to the storage shape.
func rawFrom(occs []model.Occurrence) []model.RawOccurrence {
	raw := make([]model.RawOccurrence, 0, len(occs))
	for _, occ := range occs {
		raw = append(raw, model.RawOccurrence{
			ID:        occ.ID,
			Date:      occ.Date,
			StartTime: occ.StartTime,
			EndTime:   occ.EndTime,
			Status:    string(occ.Status),
			Reason:    occ.Reason,
		})
	}
	return raw
}

// FileStore keeps the document in a single JSON file with atomic writes
// (temp file + rename, 0600). Writes are mutex-guarded so overlapping
// persist calls cannot interleave bytes; the last writer wins.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store at the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads and normalizes the stored document. A missing file yields an
// empty document rather than an error (first run).
func (s *FileStore) Load(_ context.Context, ids model.IDGenerator) ([]model.Occurrence, string, *plan.Serialized, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", nil, nil
		}
		return nil, "", nil, err
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, "", nil, fmt.Errorf("store: decode %s: %w", s.path, err)
	}

	occs := model.NormalizeAll(doc.Occurrences, ids)
	if dropped := len(doc.Occurrences) - len(occs); dropped > 0 {
		log.Info("store load dropped unusable occurrences", "path", s.path, "dropped", dropped)
	}

	var p *plan.Serialized
	if doc.Plan != nil {
		normalized := doc.Plan.Normalize()
		p = &normalized
	}
	return occs, doc.Summary, p, nil
}

// Persist implements editor.Persister by overwriting the whole document.
func (s *FileStore) Persist(_ context.Context, occs []model.Occurrence, summary string, p plan.Serialized) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := Document{
		Version:     documentVersion,
		UpdatedAt:   time.Now().UTC(),
		Summary:     summary,
		Plan:        &p,
		Occurrences: rawFrom(occs),
	}
	return s.writeLocked(doc)
}

func (s *FileStore) writeLocked(doc Document) error {
	if s.path == "" {
		return errors.New("store: file path is empty")
	}

	data, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	// Atomic write: temp file in the same directory, then rename.
	tmp, err := os.CreateTemp(dir, ".occal-schedule-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, s.path)
}

// Snapshot copies the current document into dir under a timestamped name,
// used by the cron-driven backup job. Missing source is not an error.
func (s *FileStore) Snapshot(dir string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	name := filepath.Join(dir, "schedule-"+time.Now().UTC().Format("20060102T150405Z")+".json")
	if err := os.WriteFile(name, data, 0o600); err != nil {
		return "", err
	}
	return name, nil
}
