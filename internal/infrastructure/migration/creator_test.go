package migration

import (
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/exchange/migrations"
)

func newTestCreator(dir string) (*Creator, afero.Fs) {
	fsys := afero.NewMemMapFs()
	c := NewCreator(fsys, dir)
	c.now = func() time.Time { return time.Date(2024, 5, 1, 10, 4, 5, 0, time.UTC) }
	return c, fsys
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add id mappings", "add_id_mappings"},
		{"Add-Sync-Logs", "add_sync_logs"},
		{"ADD_ORDER_INDEX", "add_order_index"},
		{"add__export__guid", "add_export_guid"},
		{"Add Stock 123", "add_stock_123"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"товары", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreator_Create(t *testing.T) {
	c, fsys := newTestCreator("db/migrations")

	mf, err := c.Create("add order tracking", "Tracking number column")
	require.NoError(t, err)

	assert.Equal(t, "20240501100405", mf.Version)
	assert.Equal(t, "db/migrations/20240501100405_add_order_tracking.up.sql", mf.UpPath)
	assert.Equal(t, "db/migrations/20240501100405_add_order_tracking.down.sql", mf.DownPath)

	up, err := afero.ReadFile(fsys, mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- Migration: add_order_tracking")
	assert.Contains(t, string(up), "Tracking number column")

	down, err := afero.ReadFile(fsys, mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "(Rollback)")
}

func TestCreator_Create_RejectsEmptyName(t *testing.T) {
	c, _ := newTestCreator("migrations")

	_, err := c.Create("!!!", "")
	assert.Error(t, err)
}

func TestCreator_Create_RefusesToOverwrite(t *testing.T) {
	c, fsys := newTestCreator("migrations")

	_, err := c.Create("first", "")
	require.NoError(t, err)
	_, err = c.Create("first", "")
	assert.Error(t, err)

	names, err := c.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"20240501100405_first"}, names)
	exists, _ := afero.Exists(fsys, "migrations/20240501100405_first.down.sql")
	assert.True(t, exists)
}

func TestCreator_List(t *testing.T) {
	c, fsys := newTestCreator("migrations")
	files := []string{
		"000003_add_products.up.sql",
		"000003_add_products.down.sql",
		"000001_init.up.sql",
		"000001_init.down.sql",
		"README.md",
		".gitkeep",
	}
	for _, f := range files {
		require.NoError(t, afero.WriteFile(fsys, "migrations/"+f, []byte("-- test"), 0o644))
	}
	require.NoError(t, fsys.MkdirAll("migrations/subdir.up.sql", 0o755))

	names, err := c.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_init", "000003_add_products"}, names)
}

func TestCreator_List_MissingDirectory(t *testing.T) {
	c, _ := newTestCreator("/nonexistent/migrations")

	names, err := c.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestEmbeddedMigrations_ArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrations.FS, ".")
	require.NoError(t, err)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		if base, ok := strings.CutSuffix(e.Name(), ".up.sql"); ok {
			ups[base] = true
		}
		if base, ok := strings.CutSuffix(e.Name(), ".down.sql"); ok {
			downs[base] = true
		}
	}
	require.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)

	for base := range ups {
		body, err := fs.ReadFile(migrations.FS, base+".up.sql")
		require.NoError(t, err)
		assert.Contains(t, string(body), "CREATE TABLE", base)
	}
}

func TestSource_String(t *testing.T) {
	assert.Equal(t, "file://migrations", DirSource("migrations").String())
	assert.Equal(t, "embedded", EmbeddedSource(migrations.FS).String())
}
