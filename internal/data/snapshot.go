package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/domain"
	"github.com/aronovda-spec/whatsapp-keyword-bot-sub000/internal/biz/repo"
)

const snapshotLockTimeout = time.Second

// snapshotFile writes the diagnostic reminder snapshot as JSON.
// Writes go to a temp file renamed into place, under a file lock so two
// instances pointed at the same path do not interleave.
type snapshotFile struct {
	path string
	lock *flock.Flock
}

// NewSnapshotRepo creates a snapshot writer for path
func NewSnapshotRepo(path string) (repo.SnapshotRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &snapshotFile{path: path, lock: flock.New(path + ".lock")}, nil
}

// Write replaces the snapshot file
func (s *snapshotFile) Write(ctx context.Context, entries map[string]domain.SnapshotEntry) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.lock.Unlock() //nolint:errcheck

	if entries == nil {
		entries = map[string]domain.SnapshotEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// Discard removes a snapshot left by a previous run
func (s *snapshotFile) Discard(ctx context.Context) (bool, bool, error) {
	if err := s.acquire(ctx); err != nil {
		return false, false, err
	}
	defer s.lock.Unlock() //nolint:errcheck

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, true, nil
	}
	valid := err == nil && json.Valid(data) && decodes(data)

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return true, valid, fmt.Errorf("failed to remove snapshot: %w", err)
	}
	return true, valid, nil
}

func (s *snapshotFile) acquire(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, snapshotLockTimeout)
	defer cancel()

	locked, err := s.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("failed to acquire snapshot lock: %w", err)
	}
	if !locked {
		return errors.New("snapshot lock busy")
	}
	return nil
}

func decodes(data []byte) bool {
	var entries map[string]domain.SnapshotEntry
	return json.Unmarshal(data, &entries) == nil
}
