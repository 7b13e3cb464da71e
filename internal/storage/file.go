package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	logx "weekplan/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Each key is kept in its own file:
//
//	<prefix>.<key>.json
//
// Writes go through a temp file followed by a rename so a crash mid-write
// never leaves a torn blob behind; readers see either the old or the new
// content.
type fileStore struct {
	log logx.Logger

	mu     sync.Mutex
	prefix string
	closed bool
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	return &fileStore{log: log, prefix: prefix}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fileStore) LoadBlob(ctx context.Context, key string) ([]byte, bool, error) {
	_ = ctx
	path, err := s.keyPath(key)
	if err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, errors.New("file store closed")
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *fileStore) SaveBlob(ctx context.Context, key string, data []byte) error {
	_ = ctx
	path, err := s.keyPath(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("file store closed")
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *fileStore) keyPath(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("empty storage key")
	}
	// Keys are internal constants; reject anything that could escape the prefix.
	if strings.ContainsAny(key, "/\\") {
		return "", errors.New("invalid storage key: " + key)
	}
	return s.prefix + "." + key + ".json", nil
}
