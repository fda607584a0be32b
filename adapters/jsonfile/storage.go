package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Store persists every key to a single JSON object on disk. Writes go to a
// temp file first and are renamed into place, so a crash leaves either the
// old or the new document. Suitable for a single device or a small server.
type Store struct {
	path string
	mu   sync.Mutex
	// in-memory cache for speed
	data map[string]string
}

func New(path string) (*Store, error) {
	s := &Store{path: path, data: map[string]string{}}
	if err := s.load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

func (s *Store) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, &s.data); err != nil {
		return fmt.Errorf("parse %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) persist() error {
	tmp := s.path + ".tmp"
	b, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *Store) Load(_ context.Context, keys ...string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := s.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.Save(ctx, map[string]string{key: value})
}

// Save applies values and rewrites the file once.
func (s *Store) Save(_ context.Context, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := make(map[string]*string, len(values))
	for k, v := range values {
		if old, ok := s.data[k]; ok {
			prev[k] = &old
		} else {
			prev[k] = nil
		}
		s.data[k] = v
	}
	if err := s.persist(); err != nil {
		s.rollback(prev)
		return err
	}
	return nil
}

func (s *Store) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := make(map[string]*string, len(keys))
	for _, k := range keys {
		if old, ok := s.data[k]; ok {
			prev[k] = &old
			delete(s.data, k)
		}
	}
	if len(prev) == 0 {
		return nil
	}
	if err := s.persist(); err != nil {
		s.rollback(prev)
		return err
	}
	return nil
}

// rollback restores the cache when the file could not be written.
func (s *Store) rollback(prev map[string]*string) {
	for k, old := range prev {
		if old == nil {
			delete(s.data, k)
			continue
		}
		s.data[k] = *old
	}
}
