package handler // declare the package name; contains HTTP handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports liveness.  When DB is set the check also pings the
// database and answers 503 if it is unreachable.
type HealthHandler struct {
	DB Pinger
}

// Health is used by load balancers and monitoring systems to verify that
// the service is running.  It returns a plain text "ok" with status 200.
func (h *HealthHandler) Health(c echo.Context) error {
	if h != nil && h.DB != nil {
		if err := h.DB.PingContext(c.Request().Context()); err != nil {
			return c.String(http.StatusServiceUnavailable, "database unavailable")
		}
	}
	return c.String(http.StatusOK, "ok")
}
