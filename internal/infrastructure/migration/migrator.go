package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// Source selects where migration files are read from. Dir wins over FS
// when both are set.
type Source struct {
	Dir string
	FS  fs.FS
}

// Status describes the schema version of a database
type Status struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
	Latest  uint `json:"latest"`
	Pending int  `json:"pending"`
}

// Migrator applies the schema with golang-migrate
type Migrator struct {
	migrate  *migrate.Migrate
	versions []uint
	logger   *zap.Logger
}

// New creates a Migrator on an open PostgreSQL connection
func New(db *sql.DB, src Source, logger *zap.Logger) (*Migrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	var (
		m        *migrate.Migrate
		versions []uint
	)
	switch {
	case src.Dir != "":
		m, err = migrate.NewWithDatabaseInstance("file://"+src.Dir, "postgres", driver)
		if err == nil {
			versions, err = ListVersions(dirFS(src.Dir))
		}
	case src.FS != nil:
		d, ierr := iofs.New(src.FS, ".")
		if ierr != nil {
			return nil, fmt.Errorf("failed to open embedded migrations: %w", ierr)
		}
		m, err = migrate.NewWithInstance("iofs", d, "postgres", driver)
		if err == nil {
			versions, err = ListVersions(src.FS)
		}
	default:
		return nil, errors.New("migration source requires a directory or a filesystem")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return &Migrator{migrate: m, versions: versions, logger: logger}, nil
}

// Up runs all pending migrations
func (m *Migrator) Up() error {
	m.logger.Info("Running migrations up")
	err := m.migrate.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Info("No migrations to apply")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return m.logVersion("Migrations completed")
}

// Down rolls back all migrations
func (m *Migrator) Down() error {
	m.logger.Info("Running migrations down")
	err := m.migrate.Down()
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Info("No migrations to roll back")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration down failed: %w", err)
	}
	m.logger.Info("All migrations rolled back")
	return nil
}

// Steps applies n migrations (positive = up, negative = down)
func (m *Migrator) Steps(n int) error {
	m.logger.Info("Running migration steps", zap.Int("steps", n))
	err := m.migrate.Steps(n)
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Info("No migrations to apply")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration steps failed: %w", err)
	}
	return m.logVersion("Migration steps completed")
}

// GoTo migrates to a specific version
func (m *Migrator) GoTo(version uint) error {
	m.logger.Info("Migrating to version", zap.Uint("target_version", version))
	err := m.migrate.Migrate(version)
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Info("Already at target version")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration to version %d failed: %w", version, err)
	}
	return m.logVersion("Migration to version completed")
}

// Status reports the applied version against the newest available one
func (m *Migrator) Status() (Status, error) {
	version, dirty, err := m.migrate.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return Status{}, fmt.Errorf("failed to get migration version: %w", err)
	}
	return statusFor(version, dirty, m.versions), nil
}

// Force sets the migration version without running migrations. Only for
// repairing a dirty database after a failed migration.
func (m *Migrator) Force(version int) error {
	m.logger.Warn("Forcing migration version", zap.Int("version", version))
	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("failed to force version %d: %w", version, err)
	}
	return nil
}

// Close closes the migrator and releases resources
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	if sourceErr != nil {
		return fmt.Errorf("failed to close source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("failed to close database: %w", dbErr)
	}
	return nil
}

func (m *Migrator) logVersion(msg string) error {
	st, err := m.Status()
	if err != nil {
		return err
	}
	m.logger.Info(msg,
		zap.Uint("version", st.Version),
		zap.Bool("dirty", st.Dirty),
		zap.Int("pending", st.Pending))
	return nil
}

func statusFor(version uint, dirty bool, available []uint) Status {
	st := Status{Version: version, Dirty: dirty}
	for _, v := range available {
		if v > st.Latest {
			st.Latest = v
		}
		if v > version {
			st.Pending++
		}
	}
	return st
}
