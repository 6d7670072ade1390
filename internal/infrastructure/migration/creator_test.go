package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMigration(t *testing.T) {
	t.Run("creates an up/down pair", func(t *testing.T) {
		dir := t.TempDir()

		mf, err := CreateMigration(dir, "add tenant settings")

		require.NoError(t, err)
		assert.FileExists(t, mf.UpPath)
		assert.FileExists(t, mf.DownPath)
		assert.Contains(t, filepath.Base(mf.UpPath), "add_tenant_settings.up.sql")
		assert.Contains(t, filepath.Base(mf.DownPath), "add_tenant_settings.down.sql")

		content, err := os.ReadFile(mf.UpPath)
		require.NoError(t, err)
		assert.Equal(t, "-- add tenant settings\n\n", string(content))
	})

	t.Run("creates the directory when missing", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "tenant")

		_, err := CreateMigration(dir, "init")

		require.NoError(t, err)
		assert.DirExists(t, dir)
	})
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"add tenant settings", "add_tenant_settings"},
		{"Add-Tenant--Settings", "add_tenant_settings"},
		{"  spaces  everywhere  ", "spaces_everywhere"},
		{"drop;table", "droptable"},
		{"UPPER123", "upper123"},
		{"trailing_", "trailing"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, sanitizeName(tt.name), tt.name)
	}
}

func TestListMigrations(t *testing.T) {
	t.Run("lists up migrations only", func(t *testing.T) {
		dir := t.TempDir()
		files := []string{
			"000001_init.up.sql",
			"000001_init.down.sql",
			"000002_add_domains.up.sql",
			"000002_add_domains.down.sql",
			"README.md",
		}
		for _, f := range files {
			require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("-- x\n"), 0644))
		}
		require.NoError(t, os.Mkdir(filepath.Join(dir, "archive"), 0755))

		migrations, err := ListMigrations(dir)

		require.NoError(t, err)
		assert.Equal(t, []string{"000001_init", "000002_add_domains"}, migrations)
	})

	t.Run("missing directory is empty, not an error", func(t *testing.T) {
		migrations, err := ListMigrations(filepath.Join(t.TempDir(), "nope"))

		require.NoError(t, err)
		assert.Empty(t, migrations)
	})
}
