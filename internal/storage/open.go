package storage

import (
	"context"
	"errors"
	"strings"

	logx "weekplan/pkg/logx"
)

// Store is the minimal persistence API used by the planner.
type Store interface {
	// LoadBlob returns the blob stored under key. ok is false if the key
	// has never been written.
	LoadBlob(ctx context.Context, key string) (data []byte, ok bool, err error)
	// SaveBlob durably overwrites the blob under key.
	SaveBlob(ctx context.Context, key string, data []byte) error
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
