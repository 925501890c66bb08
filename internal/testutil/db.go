// Package testutil provides test utilities for database setup.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/medequip/internal/config"
	"github.com/Additional-Code/medequip/internal/database"
	"github.com/Additional-Code/medequip/internal/migration"
)

// Config returns a configuration pointing at a fresh SQLite file in a temp directory.
func Config(t *testing.T) config.Config {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "medequip.db")
	return config.Config{
		Database: config.Database{Driver: "sqlite", WriterDSN: dsn, ReaderDSN: dsn},
		Cache:    config.Cache{Enabled: true, Driver: "memory"},
	}
}

// NewConnections opens a fresh SQLite database with all migrations applied.
// The database is closed when the test completes.
func NewConnections(t *testing.T) *database.Connections {
	t.Helper()

	cfg := Config(t)
	conns, err := database.Open(cfg.Database)
	require.NoError(t, err, "Failed to open test database")
	t.Cleanup(func() { _ = conns.Close() })

	mig, err := migration.New(cfg, conns, zap.NewNop())
	require.NoError(t, err, "Failed to build migrator")
	require.NoError(t, mig.Up(context.Background()), "Failed to apply migrations")

	return conns
}
