package testutil

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSQLiteDB(t *testing.T) {
	db := NewSQLiteDB(t)
	assert.True(t, db.Migrator().HasTable(&inventory.InventoryBatchItem{}))
	assert.True(t, db.Migrator().HasTable("stock_transactions"))
}

func TestNewMockDB(t *testing.T) {
	m := NewMockDB(t)
	defer m.Close()
	m.ExpectationsWereMet(t)
}

func TestNewTestUUID(t *testing.T) {
	assert.Equal(t, NewTestUUID("warehouse"), NewTestUUID("warehouse"))
	assert.NotEqual(t, NewTestUUID("warehouse"), NewTestUUID("product"))
}

func TestRequireEventually(t *testing.T) {
	var n atomic.Int32
	go func() {
		time.Sleep(20 * time.Millisecond)
		n.Store(1)
	}()
	RequireEventually(t, func() bool { return n.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestRecordingPublisher(t *testing.T) {
	p := &RecordingPublisher{}
	require.NoError(t, p.Publish(context.Background(), NewTestEvent("A"), NewTestEvent("B"), NewTestEvent("A")))
	assert.Equal(t, []string{"A", "B", "A"}, p.Types())
	assert.Len(t, p.OfType("A"), 2)
}

func TestMockEventHandler(t *testing.T) {
	h := NewMockEventHandler("A")
	assert.Equal(t, []string{"A"}, h.EventTypes())
	require.NoError(t, h.Handle(context.Background(), NewTestEvent("A")))
	assert.True(t, WaitForEventCount(h, 1, 100*time.Millisecond))
	assert.Len(t, h.Handled(), 1)
}

func TestRunHTTPTestCases(t *testing.T) {
	r := gin.New()
	r.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"n": 1}})
	})
	r.GET("/missing", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": gin.H{"code": "NOT_FOUND", "message": "nope"}})
	})

	RunHTTPTestCases(t, r, []HTTPTestCase{
		{Name: "success", Path: "/ok", ExpectedStatus: http.StatusOK},
		{Name: "error", Path: "/missing", ExpectedStatus: http.StatusNotFound, ExpectedCode: "NOT_FOUND"},
	})
}
