package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/medequip/internal/config"
)

func TestOpen_SQLite(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "open.db")
	conns, err := Open(config.Database{Driver: "sqlite", WriterDSN: dsn, ReaderDSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conns.Close() })

	require.Same(t, conns.Writer, conns.Reader, "identical DSNs share one pool")
	require.Equal(t, "sqlite", conns.Driver)
	require.NoError(t, conns.Ping(context.Background()))
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(config.Database{Driver: "oracle", WriterDSN: "x"})
	require.ErrorContains(t, err, "unsupported database driver")

	_, err = Open(config.Database{Driver: "sqlite"})
	require.ErrorContains(t, err, "empty DSN")
}
