// Package storage keeps the output files of asynchronous conversions on
// disk until they are downloaded or expire.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/google/uuid"
)

// ErrNotFound is returned when no file is stored under an id.
var ErrNotFound = errors.New("result file not found")

// DefaultTTL is how long results are kept.
const DefaultTTL = 24 * time.Hour

// Store is a flat directory of result files named by conversion id.
type Store struct {
	dir string
	now func() time.Time
}

// DefaultDir is the per-user cache directory for results.
func DefaultDir() string {
	return filepath.Join(xdg.CacheHome, "smartconverter", "results")
}

// New opens (creating if needed) a store in dir. An empty dir means
// DefaultDir.
func New(dir string) (*Store, error) {
	if dir == "" {
		dir = DefaultDir()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create result dir: %w", err)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string { return s.dir }

// path maps an id to its file. Only UUIDs are accepted so an id can never
// point outside the directory.
func (s *Store) path(id string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w: invalid id %q", ErrNotFound, id)
	}
	return filepath.Join(s.dir, u.String()), nil
}

// Save writes data under id, replacing any previous file. The write goes
// through a temp file so readers never see a partial result.
func (s *Store) Save(id string, data []byte) (string, error) {
	p, err := s.path(id)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write result: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write result: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return "", fmt.Errorf("failed to store result: %w", err)
	}
	return p, nil
}

// Open returns the stored bytes for id.
func (s *Store) Open(id string) ([]byte, error) {
	p, err := s.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// Remove deletes the file for id. Removing a missing file is not an error.
func (s *Store) Remove(id string) error {
	p, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Sweep deletes files last modified more than ttl ago and returns how many
// it removed.
func (s *Store) Sweep(ttl time.Duration) (int, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	cutoff := s.now().Add(-ttl)

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.dir, e.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// StartSweeper runs Sweep every interval until ctx is done.
func (s *Store) StartSweeper(ctx context.Context, interval, ttl time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.Sweep(ttl)
				if err != nil {
					log.Printf("⚠️  Result sweep failed: %v", err)
				} else if n > 0 {
					log.Printf("🧹 Removed %d expired result files", n)
				}
			}
		}
	}()
}
