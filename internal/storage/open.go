package storage

import (
	"context"
	"fmt"
	"strings"

	"autokit/pkg/logx"
)

// Store persists per-job scheduler state across restarts.
type Store interface {
	Load(ctx context.Context) (map[string]JobState, error)
	Save(ctx context.Context, states map[string]JobState) error
	Close() error
}

var drivers = map[string]func(Config, logx.Logger) (Store, error){
	"file":    openFile,
	"sqlite":  openSQLite,
	"sqlite3": openSQLite,
}

// Open builds the store named by cfg.Driver. A nil Store with a nil error
// means checkpointing is turned off.
func Open(cfg Config, log logx.Logger) (Store, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if name == "" || name == "none" {
		return nil, nil
	}
	open, ok := drivers[name]
	if !ok {
		return nil, fmt.Errorf("storage: unknown driver %q", name)
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return open(cfg, log)
}
