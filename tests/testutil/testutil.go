// Package testutil provides shared helpers for fulfillment tests: database
// fixtures, Gin test contexts, event recorders and polling assertions.
package testutil

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/fulfillment/internal/infrastructure/persistence"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// NewSQLiteDB opens an in-memory SQLite database with every fulfillment
// table migrated. It uses a single connection, so callers must not read
// outside a running transaction from inside it.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err, "Failed to open SQLite database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(persistence.Models()...), "Failed to migrate SQLite schema")
	return db
}

// MockDB wraps a GORM database with sqlmock for testing.
type MockDB struct {
	DB    *gorm.DB
	Mock  sqlmock.Sqlmock
	SqlDB *sql.DB
}

// NewMockDB creates a new mock PostgreSQL database for testing.
// The caller is responsible for calling Close() when done.
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create sqlmock")

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err, "Failed to open GORM connection")

	return &MockDB{DB: gormDB, Mock: mock, SqlDB: mockDB}
}

// Close closes the mock database connection.
func (m *MockDB) Close() error {
	return m.SqlDB.Close()
}

// ExpectationsWereMet verifies that all expectations were met.
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	require.NoError(t, m.Mock.ExpectationsWereMet(), "Unmet database expectations")
}

// TestContext wraps a Gin test context with HTTP recorder.
type TestContext struct {
	Context  *gin.Context
	Recorder *httptest.ResponseRecorder
	Engine   *gin.Engine
}

// NewTestContext creates a new Gin test context.
func NewTestContext(t *testing.T) *TestContext {
	t.Helper()

	w := httptest.NewRecorder()
	c, engine := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	return &TestContext{Context: c, Recorder: w, Engine: engine}
}

// SetHeader sets a header on the request.
func (tc *TestContext) SetHeader(key, value string) {
	tc.Context.Request.Header.Set(key, value)
}

// ResponseBody returns the response body as bytes.
func (tc *TestContext) ResponseBody() []byte {
	return tc.Recorder.Body.Bytes()
}

// ResponseCode returns the HTTP status code.
func (tc *TestContext) ResponseCode() int {
	return tc.Recorder.Code
}

// NewTestUUID generates a deterministic UUID from seed.
func NewTestUUID(seed string) uuid.UUID {
	namespace := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	return uuid.NewSHA1(namespace, []byte(seed))
}

// ContextWithTimeout creates a context with a timeout for tests.
func ContextWithTimeout(t *testing.T, timeout time.Duration) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), timeout)
}

// WaitForCondition polls condition until it holds or timeout elapses.
func WaitForCondition(t *testing.T, condition func() bool, timeout, interval time.Duration) bool {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(interval)
	}
	return condition()
}

// RequireEventually fails the test when condition does not hold within timeout.
func RequireEventually(t *testing.T, condition func() bool, timeout, interval time.Duration, msgAndArgs ...interface{}) {
	t.Helper()

	if !WaitForCondition(t, condition, timeout, interval) {
		require.Fail(t, "Condition not met within timeout", msgAndArgs...)
	}
}
