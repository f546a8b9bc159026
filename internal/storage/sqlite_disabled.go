//go:build !sqlite
// +build !sqlite

package storage

import (
	"errors"

	"autokit/pkg/logx"
)

// Stub for builds without the sqlite tag. Configuring the sqlite driver in
// such a binary is a config error, not a silent fallback.
func openSQLite(Config, logx.Logger) (Store, error) {
	return nil, errors.New("sqlite driver unavailable: rebuild with -tags sqlite")
}
