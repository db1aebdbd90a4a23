// Package router assembles the gin engine: middleware chain and API routes.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RouteInfo describes one mounted route
type RouteInfo struct {
	Group  string
	Method string
	Path   string
}

// API mounts domain groups under /api/<version>
type API struct {
	version string
	groups  []*DomainGroup
}

// NewAPI creates an API for version ("v1") holding groups
func NewAPI(version string, groups ...*DomainGroup) *API {
	return &API{version: version, groups: groups}
}

// Prefix returns the path every group is mounted under
func (a *API) Prefix() string {
	return "/api/" + a.version
}

// Mount registers every group on engine and returns the mounted routes
func (a *API) Mount(engine *gin.Engine) []RouteInfo {
	api := engine.Group(a.Prefix())
	var mounted []RouteInfo
	for _, g := range a.groups {
		mounted = append(mounted, g.mount(api)...)
	}
	return mounted
}

// DomainGroup collects the routes of one business area under a prefix
type DomainGroup struct {
	name       string
	prefix     string
	routes     []route
	middleware []gin.HandlerFunc
}

type route struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewDomainGroup creates a group named name mounted at prefix
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Name returns the group name
func (dg *DomainGroup) Name() string {
	return dg.name
}

// Use adds middleware applied to every route of the group
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

func (dg *DomainGroup) GET(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.add(http.MethodGet, path, handlers)
}

func (dg *DomainGroup) POST(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.add(http.MethodPost, path, handlers)
}

func (dg *DomainGroup) PUT(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.add(http.MethodPut, path, handlers)
}

func (dg *DomainGroup) add(method, path string, handlers []gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, route{method: method, path: path, handlers: handlers})
	return dg
}

func (dg *DomainGroup) mount(rg *gin.RouterGroup) []RouteInfo {
	group := rg.Group(dg.prefix, dg.middleware...)
	mounted := make([]RouteInfo, 0, len(dg.routes))
	for _, r := range dg.routes {
		group.Handle(r.method, r.path, r.handlers...)
		mounted = append(mounted, RouteInfo{
			Group:  dg.name,
			Method: r.method,
			Path:   joinPath(group.BasePath(), r.path),
		})
	}
	return mounted
}

func joinPath(base, path string) string {
	if path == "" || path == "/" {
		return base
	}
	if base == "/" {
		return path
	}
	return base + path
}
