package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/fulfillment/internal/interfaces/http/handler"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func ok(body string) gin.HandlerFunc {
	return func(c *gin.Context) { c.String(http.StatusOK, body) }
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestNewRouter(t *testing.T) {
	t.Run("defaults to v1", func(t *testing.T) {
		r := NewRouter(gin.New())
		assert.Equal(t, "v1", r.apiVersion)
	})

	t.Run("custom api version", func(t *testing.T) {
		engine := gin.New()
		r := NewRouter(engine, WithAPIVersion("v2"))
		g := NewDomainGroup("test", "/test")
		g.GET("/ping", ok("pong"))
		r.Register(g).Setup()

		assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v2/test/ping").Code)
		assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/api/v1/test/ping").Code)
	})
}

func TestDomainGroup(t *testing.T) {
	t.Run("registers every method", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("test", "/test")
		g.GET("/a", ok("a")).
			POST("/b", ok("b")).
			PUT("/c", ok("c")).
			DELETE("/d", ok("d"))
		g.RegisterRoutes(engine.Group("/api/v1"))

		for _, tt := range []struct{ method, path string }{
			{http.MethodGet, "/api/v1/test/a"},
			{http.MethodPost, "/api/v1/test/b"},
			{http.MethodPut, "/api/v1/test/c"},
			{http.MethodDelete, "/api/v1/test/d"},
		} {
			assert.Equal(t, http.StatusOK, serve(engine, tt.method, tt.path).Code, "%s %s", tt.method, tt.path)
		}
	})

	t.Run("applies middleware", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("test", "/test")
		g.Use(func(c *gin.Context) {
			c.Header("X-Test-Middleware", "applied")
			c.Next()
		})
		g.GET("/items", ok("ok"))
		g.RegisterRoutes(engine.Group("/api/v1"))

		w := serve(engine, http.MethodGet, "/api/v1/test/items")
		assert.Equal(t, "applied", w.Header().Get("X-Test-Middleware"))
	})

	t.Run("subgroups nest under the parent prefix", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("trade", "/trade")
		g.Group("orders", "/orders").GET("", ok("orders"))
		g.RegisterRoutes(engine.Group("/api/v1"))

		w := serve(engine, http.MethodGet, "/api/v1/trade/orders")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "orders", w.Body.String())
		assert.Equal(t, []string{"GET /trade/orders"}, g.Routes())
	})

	t.Run("accessors", func(t *testing.T) {
		g := NewDomainGroup("shipping", "/shipping")
		assert.Equal(t, "shipping", g.Name())
		assert.Equal(t, "/shipping", g.Prefix())
	})
}

func TestMultipleDomainGroups(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	inventory := NewDomainGroup("inventory", "/inventory")
	inventory.GET("/batches", ok("batches"))
	shipping := NewDomainGroup("shipping", "/shipping")
	shipping.GET("/costs", ok("costs"))

	r.Register(inventory).Register(shipping)
	r.Setup()

	w := serve(engine, http.MethodGet, "/api/v1/inventory/batches")
	assert.Equal(t, "batches", w.Body.String())
	w = serve(engine, http.MethodGet, "/api/v1/shipping/costs")
	assert.Equal(t, "costs", w.Body.String())
}

func TestFulfillmentGroups(t *testing.T) {
	t.Run("nil handlers register nothing", func(t *testing.T) {
		groups := FulfillmentGroups(Handlers{})
		require.Len(t, groups, 4)
		for _, g := range groups {
			assert.Empty(t, g.Routes(), g.Name())
		}
	})

	t.Run("state-changing order and parcel routes are POST", func(t *testing.T) {
		groups := FulfillmentGroups(Handlers{
			Order:    handler.NewOrderHandler(nil),
			Shipping: handler.NewShippingHandler(nil, nil),
		})
		var routes []string
		for _, g := range groups {
			routes = append(routes, g.Routes()...)
		}
		assert.Contains(t, routes, "POST /trade/orders/:id/suggestions")
		assert.NotContains(t, routes, "GET /trade/orders/:id/suggestions")
		assert.Contains(t, routes, "POST /shipping/parcels/:id/tracking-number")
	})

	t.Run("system routes", func(t *testing.T) {
		sys := handler.NewSystemHandler("test", nil)
		groups := FulfillmentGroups(Handlers{System: sys})

		var routes []string
		for _, g := range groups {
			routes = append(routes, g.Routes()...)
		}
		assert.Contains(t, routes, "GET /system/ping")
		assert.Contains(t, routes, "GET /system/ready")

		engine := gin.New()
		r := NewRouter(engine)
		for _, g := range groups {
			r.Register(g)
		}
		r.Setup()
		assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v1/system/ping").Code)
	})
}
