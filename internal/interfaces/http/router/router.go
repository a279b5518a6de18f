// Package router mounts the marketplace HTTP API. Each area of the API is a
// DomainGroup: a prefix, its middleware and its routes, assembled up front and
// attached to gin in one pass by Router.Setup.
package router

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
)

// RouteRegistrar attaches routes to a gin group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router collects registrars under one base path
type Router struct {
	engine     *gin.Engine
	basePath   string
	middleware []gin.HandlerFunc
	registrars []RouteRegistrar
}

// RouterOption configures a Router
type RouterOption func(*Router)

// WithBasePath changes the mount point, "/api" by default
func WithBasePath(p string) RouterOption {
	return func(r *Router) { r.basePath = p }
}

func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, basePath: "/api"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Use adds middleware in front of every registrar
func (r *Router) Use(mw ...gin.HandlerFunc) *Router {
	r.middleware = append(r.middleware, mw...)
	return r
}

func (r *Router) Register(reg RouteRegistrar) *Router {
	r.registrars = append(r.registrars, reg)
	return r
}

// Setup attaches everything registered so far to the engine
func (r *Router) Setup() {
	api := r.engine.Group(r.basePath, r.middleware...)
	for _, reg := range r.registrars {
		reg.RegisterRoutes(api)
	}
}

func (r *Router) BasePath() string { return r.basePath }

// Routes lists "METHOD /path" for every route of the registered DomainGroups,
// in registration order.
func (r *Router) Routes() []string {
	var out []string
	for _, reg := range r.registrars {
		if dg, ok := reg.(*DomainGroup); ok {
			out = dg.appendRoutes(out, r.basePath)
		}
	}
	return out
}

// DomainGroup is one area of the API, such as orders or vendors
type DomainGroup struct {
	name       string
	prefix     string
	middleware []gin.HandlerFunc
	routes     []route
	children   []*DomainGroup
}

type route struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Use adds middleware to the group's routes and to its subgroups
func (dg *DomainGroup) Use(mw ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, mw...)
	return dg
}

// Handle adds a route relative to the group prefix
func (dg *DomainGroup) Handle(method, p string, handlers ...gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, route{method: method, path: p, handlers: handlers})
	return dg
}

func (dg *DomainGroup) GET(p string, h ...gin.HandlerFunc) *DomainGroup {
	return dg.Handle(http.MethodGet, p, h...)
}

func (dg *DomainGroup) POST(p string, h ...gin.HandlerFunc) *DomainGroup {
	return dg.Handle(http.MethodPost, p, h...)
}

func (dg *DomainGroup) PUT(p string, h ...gin.HandlerFunc) *DomainGroup {
	return dg.Handle(http.MethodPut, p, h...)
}

func (dg *DomainGroup) PATCH(p string, h ...gin.HandlerFunc) *DomainGroup {
	return dg.Handle(http.MethodPatch, p, h...)
}

func (dg *DomainGroup) DELETE(p string, h ...gin.HandlerFunc) *DomainGroup {
	return dg.Handle(http.MethodDelete, p, h...)
}

// Group nests a subgroup. An empty prefix keeps the parent path, which is how
// a set of routes gets extra middleware such as a role check.
func (dg *DomainGroup) Group(name, prefix string) *DomainGroup {
	child := NewDomainGroup(name, prefix)
	dg.children = append(dg.children, child)
	return child
}

// RegisterRoutes implements RouteRegistrar
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group(dg.prefix, dg.middleware...)
	for _, rt := range dg.routes {
		g.Handle(rt.method, rt.path, rt.handlers...)
	}
	for _, child := range dg.children {
		child.RegisterRoutes(g)
	}
}

func (dg *DomainGroup) appendRoutes(out []string, parent string) []string {
	base := joinPath(parent, dg.prefix)
	for _, rt := range dg.routes {
		out = append(out, rt.method+" "+joinPath(base, rt.path))
	}
	for _, child := range dg.children {
		out = child.appendRoutes(out, base)
	}
	return out
}

func joinPath(base, rel string) string {
	if rel == "" {
		return base
	}
	return path.Join(base, rel)
}

func (dg *DomainGroup) Name() string   { return dg.name }
func (dg *DomainGroup) Prefix() string { return dg.prefix }
