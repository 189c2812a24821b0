package router

import (
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrars ...RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrars...)
	return r
}

// Setup registers all routes under /api/<version>
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// DomainGroup collects the routes of one domain under a prefix
type DomainGroup struct {
	name       string
	prefix     string
	routes     []routeDefinition
	subgroups  []*DomainGroup
	middleware []gin.HandlerFunc
}

type routeDefinition struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewDomainGroup creates a new domain-specific route group
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Use adds middleware to this group
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

func (dg *DomainGroup) handle(method, p string, handlers []gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, routeDefinition{method: method, path: p, handlers: handlers})
	return dg
}

// GET registers a GET route
func (dg *DomainGroup) GET(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodGet, path, handlers)
}

// POST registers a POST route
func (dg *DomainGroup) POST(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPost, path, handlers)
}

// PUT registers a PUT route
func (dg *DomainGroup) PUT(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPut, path, handlers)
}

// DELETE registers a DELETE route
func (dg *DomainGroup) DELETE(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodDelete, path, handlers)
}

// Group creates a sub-group within this domain
func (dg *DomainGroup) Group(name, prefix string) *DomainGroup {
	subgroup := NewDomainGroup(name, prefix)
	dg.subgroups = append(dg.subgroups, subgroup)
	return subgroup
}

// RegisterRoutes implements RouteRegistrar
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix)
	if len(dg.middleware) > 0 {
		group.Use(dg.middleware...)
	}
	for _, route := range dg.routes {
		group.Handle(route.method, route.path, route.handlers...)
	}
	for _, subgroup := range dg.subgroups {
		subgroup.RegisterRoutes(group)
	}
}

// Routes lists "METHOD /prefix/path" for this group and its subgroups
func (dg *DomainGroup) Routes() []string {
	var out []string
	for _, route := range dg.routes {
		out = append(out, route.method+" "+path.Join(dg.prefix, route.path))
	}
	for _, sub := range dg.subgroups {
		for _, r := range sub.Routes() {
			method, p, _ := strings.Cut(r, " ")
			out = append(out, method+" "+path.Join(dg.prefix, p))
		}
	}
	return out
}

// Name returns the group name
func (dg *DomainGroup) Name() string {
	return dg.name
}

// Prefix returns the group prefix
func (dg *DomainGroup) Prefix() string {
	return dg.prefix
}
