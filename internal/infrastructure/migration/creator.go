package migration

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"
)

const migrationUpTemplate = `-- Migration: {{.Name}}
-- Description: {{.Description}}

`

const migrationDownTemplate = `-- Migration: {{.Name}} (Rollback)

`

// MigrationFile represents a migration file pair
type MigrationFile struct {
	Version     string
	Name        string
	Description string
	UpPath      string
	DownPath    string
}

// CreateMigration writes an empty up/down pair named after the current
// time, matching the files under migrations/
func CreateMigration(migrationsDir, name, description string, now time.Time) (*MigrationFile, error) {
	slug := sanitizeName(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(migrationsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	version := now.UTC().Format("20060102150405")
	base := version + "_" + slug
	mf := &MigrationFile{
		Version:     version,
		Name:        slug,
		Description: description,
		UpPath:      filepath.Join(migrationsDir, base+".up.sql"),
		DownPath:    filepath.Join(migrationsDir, base+".down.sql"),
	}

	if err := writeTemplate(mf.UpPath, migrationUpTemplate, mf); err != nil {
		return nil, fmt.Errorf("failed to create up migration: %w", err)
	}
	if err := writeTemplate(mf.DownPath, migrationDownTemplate, mf); err != nil {
		_ = os.Remove(mf.UpPath)
		return nil, fmt.Errorf("failed to create down migration: %w", err)
	}
	return mf, nil
}

func writeTemplate(path, content string, data *MigrationFile) error {
	tmpl, err := template.New("migration").Parse(content)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	return tmpl.Execute(f, data)
}

// sanitizeName lower-cases name and keeps letters, digits and single underscores
func sanitizeName(name string) string {
	var b strings.Builder
	for _, c := range strings.ToLower(name) {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteRune(c)
		case c == ' ' || c == '-' || c == '_':
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
				b.WriteByte('_')
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// ListMigrations returns the base names of every up migration in fsys, in
// version order
func ListMigrations(fsys fs.FS) ([]string, error) {
	matches, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(m, ".up.sql"))
	}
	sort.Strings(names)
	return names, nil
}

// ListVersions returns the numeric versions of every up migration in fsys
func ListVersions(fsys fs.FS) ([]uint, error) {
	names, err := ListMigrations(fsys)
	if err != nil {
		return nil, err
	}
	versions := make([]uint, 0, len(names))
	for _, n := range names {
		prefix, _, ok := strings.Cut(n, "_")
		if !ok {
			return nil, fmt.Errorf("migration %q has no version prefix", n)
		}
		v, err := strconv.ParseUint(prefix, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("migration %q has an invalid version: %w", n, err)
		}
		versions = append(versions, uint(v))
	}
	return versions, nil
}

func dirFS(dir string) fs.FS {
	return os.DirFS(dir)
}
