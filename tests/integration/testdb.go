// Package integration runs the fulfillment services against a real
// PostgreSQL started with testcontainers and migrated with the embedded
// schema. Tests are skipped under -short.
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/erp/fulfillment/internal/infrastructure/migration"
	"github.com/erp/fulfillment/migrations"
)

// TestDB represents a test database connection
type TestDB struct {
	DB        *gorm.DB
	SqlDB     *sql.DB
	Container testcontainers.Container
	DSN       string
	t         *testing.T
}

// NewTestDB starts a fresh PostgreSQL container and applies every migration.
// The container is terminated when the test finishes.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("fulfillment_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "Failed to get connection string")

	runMigrations(t, dsn)
	db, sqlDB := connectToDatabase(t, dsn)

	tdb := &TestDB{DB: db, SqlDB: sqlDB, Container: container, DSN: dsn, t: t}
	t.Cleanup(tdb.Close)
	return tdb
}

// Close closes the database connection and terminates the container
func (tdb *TestDB) Close() {
	if tdb.SqlDB != nil {
		_ = tdb.SqlDB.Close()
	}
	if tdb.Container != nil {
		if err := tdb.Container.Terminate(context.Background()); err != nil {
			tdb.t.Logf("Warning: Failed to terminate container: %v", err)
		}
	}
}

// CleanTables truncates every table except the migration bookkeeping
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()

	var tables []string
	err := tdb.DB.Raw(`
		SELECT tablename FROM pg_tables
		WHERE schemaname = 'public'
		AND tablename != 'schema_migrations'
	`).Scan(&tables).Error
	require.NoError(tdb.t, err, "Failed to get table names")

	for _, table := range tables {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			tdb.t.Logf("Warning: Failed to truncate table %s: %v", table, err)
		}
	}
}

func connectToDatabase(t *testing.T, dsn string) (*gorm.DB, *sql.DB) {
	t.Helper()

	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}
	if os.Getenv("TEST_DB_DEBUG") != "" {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(gormpostgres.Open(dsn), gormConfig)
	require.NoError(t, err, "Failed to connect to database")

	sqlDB, err := db.DB()
	require.NoError(t, err, "Failed to get underlying SQL DB")
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	return db, sqlDB
}

// runMigrations applies the embedded schema on its own connection, since
// closing the migrator also closes the connection it was given
func runMigrations(t *testing.T, dsn string) {
	t.Helper()

	conn, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	m, err := migration.New(conn, migration.Source{FS: migrations.FS}, nil)
	require.NoError(t, err, "Failed to create migrator")
	defer func() { _ = m.Close() }()
	require.NoError(t, m.Up(), "Failed to run migrations")
}
