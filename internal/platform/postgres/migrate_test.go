package postgres

import (
	"io/fs"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libraryapi/db"
)

func repoMigrationsDir(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	require.True(t, ok, "runtime.Caller failed")
	// this file lives in internal/platform/postgres/, so repo root is ../../..
	return filepath.Clean(filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "db", "migrations"))
}

func TestMigrationSource(t *testing.T) {
	embedded := MigrationSource("")
	assert.NotNil(t, embedded.FS)
	assert.Equal(t, db.MigrationsDir, embedded.Dir)

	disk := MigrationSource("/srv/migrations")
	assert.Nil(t, disk.FS)
	assert.Equal(t, "/srv/migrations", disk.Dir)
}

func TestCollect_EmbeddedAndDiskAgree(t *testing.T) {
	embedded, err := MigrationSource("").Collect()
	require.NoError(t, err)
	disk, err := MigrationSource(repoMigrationsDir(t)).Collect()
	require.NoError(t, err)

	require.Len(t, embedded, len(disk))
	for i := range embedded {
		assert.Equal(t, disk[i].Version, embedded[i].Version)
	}
	assert.EqualValues(t, 4, embedded[len(embedded)-1].Version)
}

func TestMigrations_HaveGooseDirectives(t *testing.T) {
	entries, err := fs.ReadDir(db.Migrations, db.MigrationsDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		b, err := fs.ReadFile(db.Migrations, db.MigrationsDir+"/"+e.Name())
		require.NoError(t, err)
		s := string(b)
		assert.Contains(t, s, "-- +goose Up", e.Name())
		assert.Contains(t, s, "-- +goose Down", e.Name())
	}
}

func TestCreate_RejectsEmbeddedSet(t *testing.T) {
	err := MigrationSource("").Create("add_index")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MIGRATIONS_DIR")
}
