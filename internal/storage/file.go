package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"autokit/pkg/logx"
)

// fileStore is a dependency-free checkpoint backend: a single JSON snapshot,
// replaced atomically (write to tmp, rename) on every save. The checkpoint
// is small (one record per job), so a full rewrite per save is fine.
type fileStore struct {
	path string
	log  logx.Logger

	mu sync.Mutex
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &fileStore{path: path, log: log}, nil
}

func (s *fileStore) Load(ctx context.Context) (map[string]JobState, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			// No checkpoint yet: all jobs start as never-run.
			return map[string]JobState{}, nil
		}
		return nil, err
	}
	defer f.Close()

	var states map[string]JobState
	if err := json.NewDecoder(f).Decode(&states); err != nil {
		return nil, err
	}
	if states == nil {
		states = map[string]JobState{}
	}
	return states, nil
}

func (s *fileStore) Save(ctx context.Context, states map[string]JobState) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(states); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *fileStore) Close() error { return nil }
