package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rangovai/internal/handler"
	"github.com/iliyamo/rangovai/internal/middleware"
	"github.com/iliyamo/rangovai/internal/model"
)

// Handlers bundles everything route registration needs.  Cache and
// ApplyLimiter may be nil, in which case the routes run without them.
type Handlers struct {
	Health       *handler.HealthHandler
	Events       *handler.EventHandler
	Applications *handler.ApplicationHandler
	Statistics   *handler.StatisticsHandler
	Cache        *middleware.ResponseCache
	ApplyLimiter echo.MiddlewareFunc
}

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo, h Handlers) {
	e.GET("/healthz", h.Health.Health)
}

// RegisterPublic registers unauthenticated browse endpoints.  The open
// events listing goes through the response cache.
func RegisterPublic(e *echo.Echo, h Handlers) {
	e.GET("/v1/events", h.Events.ListOpen, h.Cache.Middleware())
	e.GET("/v1/events/:id", h.Events.Get)
	e.GET("/v1/events/:id/attendees", h.Events.Attendees)
	e.GET("/v1/events/:id/location", h.Events.Location)
}

// RegisterVolunteer registers volunteer-scoped endpoints under /v1.  All
// routes require a valid JWT and the VOLUNTEER role.
func RegisterVolunteer(e *echo.Echo, h Handlers, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleVolunteer),
	)
	apply := []echo.MiddlewareFunc{}
	if h.ApplyLimiter != nil {
		apply = append(apply, h.ApplyLimiter)
	}
	g.POST("/events/:id/applications", h.Applications.Apply, apply...)
	g.GET("/my-applications", h.Applications.ListMine)
	g.DELETE("/applications/:id", h.Applications.Withdraw)
	g.GET("/my-statistics", h.Statistics.Mine)
}

// RegisterAttendee registers ticket endpoints under /v1.  Any authenticated
// role may hold tickets.
func RegisterAttendee(e *echo.Echo, h Handlers, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleVolunteer, model.RoleOrganizer),
	)
	g.POST("/events/:id/tickets", h.Events.IssueTicket)
	g.GET("/my-tickets", h.Events.MyTickets)
}

// RegisterOrganizer registers organizer-scoped endpoints under /v1.  All
// routes require a valid JWT and the ORGANIZER role.  Ownership of the
// event is checked by the services.
func RegisterOrganizer(e *echo.Echo, h Handlers, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleOrganizer),
	)
	g.POST("/events", h.Events.Create)
	g.PUT("/events/:id", h.Events.Update)
	g.DELETE("/events/:id", h.Events.Delete)
	g.GET("/organizer/events", h.Events.ListMine)
	g.GET("/events/:id/applications", h.Applications.ListForEvent)

	g.PATCH("/applications/:id/status", h.Applications.SetStatus)
	g.POST("/applications/:id/accept", h.Applications.Accept)
	g.POST("/applications/:id/decline", h.Applications.Decline)

	g.POST("/volunteers/:id/statistics", h.Statistics.Record)
}

// RegisterAll wires every route group.
func RegisterAll(e *echo.Echo, h Handlers, jwtSecret string) {
	RegisterRoutes(e, h)
	RegisterPublic(e, h)
	RegisterVolunteer(e, h, jwtSecret)
	RegisterAttendee(e, h, jwtSecret)
	RegisterOrganizer(e, h, jwtSecret)
}
