package migration

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/erp/fulfillment/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add parcel index", "add_parcel_index"},
		{"Add-Parcel-Index", "add_parcel_index"},
		{"add__parcel__index", "add_parcel_index"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"_leading", "leading"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 6, 1, 8, 30, 0, 0, time.UTC)

	mf, err := CreateMigration(dir, "add parcel index", "Index parcels by last event", now)
	require.NoError(t, err)
	assert.Equal(t, "20260601083000", mf.Version)
	assert.Equal(t, filepath.Join(dir, "20260601083000_add_parcel_index.up.sql"), mf.UpPath)

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "Index parcels by last event")
	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "Rollback")

	_, err = CreateMigration(dir, "add parcel index", "", now)
	assert.Error(t, err, "existing files are never overwritten")

	_, err = CreateMigration(dir, "!!!", "", now)
	assert.Error(t, err)
}

func TestListVersions(t *testing.T) {
	fsys := fstest.MapFS{
		"20260301090100_b.up.sql":   {},
		"20260301090100_b.down.sql": {},
		"20260301090000_a.up.sql":   {},
		"20260301090000_a.down.sql": {},
		"README.md":                 {},
	}
	names, err := ListMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"20260301090000_a", "20260301090100_b"}, names)

	versions, err := ListVersions(fsys)
	require.NoError(t, err)
	assert.Equal(t, []uint{20260301090000, 20260301090100}, versions)

	_, err = ListVersions(fstest.MapFS{"bad.up.sql": {}})
	assert.Error(t, err)
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	names, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, names)
	for _, n := range names {
		_, err := migrations.FS.Open(n + ".down.sql")
		assert.NoError(t, err, "missing rollback for %s", n)
	}
}

func TestStatusFor(t *testing.T) {
	available := []uint{1, 2, 3}
	assert.Equal(t, Status{Version: 0, Latest: 3, Pending: 3}, statusFor(0, false, available))
	assert.Equal(t, Status{Version: 2, Dirty: true, Latest: 3, Pending: 1}, statusFor(2, true, available))
	assert.Equal(t, Status{Version: 3, Latest: 3}, statusFor(3, false, available))
}
