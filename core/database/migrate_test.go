package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/postbot/core/config"
)

func TestListMigrationFilesSortsUpFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"000002_b.up.sql", "000001_a.up.sql", "000001_a.down.sql"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "000003_dir.up.sql"), 0o755))

	assert.Equal(t, []string{"000001_a.up.sql", "000002_b.up.sql"}, listMigrationFiles(dir))
	assert.Nil(t, listMigrationFiles(filepath.Join(dir, "missing")))
}

func TestSelectApplied(t *testing.T) {
	files := []string{"000001_a.up.sql", "000002_b.up.sql", "000003_c.up.sql", "junk.up.sql"}

	assert.Equal(t, []string{"000002_b.up.sql", "000003_c.up.sql"}, selectApplied(files, 1, 3))
	assert.Nil(t, selectApplied(files, 3, 3))
	assert.Equal(t, uint64(0), parseVersion("junk.up.sql"))
}

func TestConnectionStrings(t *testing.T) {
	cfg := coreconfig.DatabaseConfig{
		Host: "db", Port: "5432", User: "bot", Password: "p@ss", Name: "postbot", SSLMode: "disable",
	}
	assert.Equal(t, "user=bot password=p@ss host=db port=5432 dbname=postbot sslmode=disable", DSN(cfg))
	assert.Equal(t, "postgres://bot:p%40ss@db:5432/postbot?sslmode=disable", URL(cfg))
}
