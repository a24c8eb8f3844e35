package router

import (
	"github.com/gin-gonic/gin"

	"github.com/CarsonReik/Compr-sub000/internal/interfaces/http/handler"
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
		registrars: make([]RouteRegistrar, 0),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup registers all routes with the engine under the versioned prefix
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)

	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// JobRoutes registers the job lifecycle endpoints
type JobRoutes struct {
	Jobs   *handler.JobHandler
	Events *handler.EventStreamHandler
}

// RegisterRoutes implements RouteRegistrar
func (jr *JobRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	jobs := rg.Group("/jobs")
	jobs.POST("", jr.Jobs.Enqueue)
	jobs.GET("/stats", jr.Jobs.Stats)
	jobs.GET("/:id", jr.Jobs.Get)
	jobs.GET("/:id/result", jr.Jobs.Result)
	jobs.POST("/:id/resume", jr.Jobs.Resume)
	if jr.Events != nil {
		jobs.GET("/:id/events", jr.Events.Stream)
	}

	rg.GET("/platforms", jr.Jobs.Platforms)
}

// ListingRoutes registers the per-listing query endpoints
type ListingRoutes struct {
	Listings *handler.ListingHandler
}

// RegisterRoutes implements RouteRegistrar
func (lr *ListingRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	listings := rg.Group("/listings")
	listings.GET("/:listingID/platforms", lr.Listings.Platforms)
	listings.GET("/:listingID/jobs", lr.Listings.Jobs)
}
