// Package handler exposes HTTP handlers for both authenticated and public
// endpoints.  This file covers the event catalog: public browsing of open
// events and organizer management of their own events.
package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rangovai/internal/model"
	"github.com/iliyamo/rangovai/internal/service"
)

// EventHandler serves catalog endpoints.
type EventHandler struct {
	Catalog *service.Catalog
}

// NewEventHandler constructs an EventHandler and panics if catalog is nil.
func NewEventHandler(catalog *service.Catalog) *EventHandler {
	if catalog == nil {
		panic("nil catalog passed to NewEventHandler")
	}
	return &EventHandler{Catalog: catalog}
}

type locationRequest struct {
	Country           string  `json:"country"`
	City              string  `json:"city"`
	Address           string  `json:"address"`
	SpecifiedLocation string  `json:"specified_location"`
	Longitude         float64 `json:"longitude"`
	Latitude          float64 `json:"latitude"`
}

type eventRequest struct {
	Name              string           `json:"name"`
	Description       string           `json:"description"`
	Date              string           `json:"date"`
	StartTime         string           `json:"start_time"`
	EndTime           string           `json:"end_time"`
	IsFree            bool             `json:"is_free"`
	SeatsCount        *int             `json:"seats_count"`
	MaxVolunteerCount int              `json:"max_volunteer_count"`
	FormURL           *string          `json:"form_url"`
	Location          *locationRequest `json:"location"`
}

func (r eventRequest) input() (service.EventInput, error) {
	in := service.EventInput{
		Name:              r.Name,
		Description:       r.Description,
		StartTime:         r.StartTime,
		EndTime:           r.EndTime,
		IsFree:            r.IsFree,
		SeatsCount:        r.SeatsCount,
		MaxVolunteerCount: r.MaxVolunteerCount,
		FormURL:           r.FormURL,
	}
	if s := strings.TrimSpace(r.Date); s != "" {
		d, err := time.Parse(dateLayout, s)
		if err != nil {
			return in, &service.ValidationError{Field: "date", Message: "must be YYYY-MM-DD"}
		}
		in.Date = d
	}
	if l := r.Location; l != nil {
		in.Location = &model.EventLocation{
			Country:           strings.TrimSpace(l.Country),
			City:              l.City,
			Address:           l.Address,
			SpecifiedLocation: strings.TrimSpace(l.SpecifiedLocation),
			Longitude:         l.Longitude,
			Latitude:          l.Latitude,
		}
	}
	return in, nil
}

func parseDay(raw string) (*time.Time, error) {
	if raw = strings.TrimSpace(raw); raw == "" {
		return nil, nil
	}
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListOpen handles GET /v1/events.  Optional query parameters from and to
// (YYYY-MM-DD, inclusive) bound the date, q filters name and description.
func (h *EventHandler) ListOpen(c echo.Context) error {
	from, err := parseDay(c.QueryParam("from"))
	if err != nil {
		return badRequest(c, "from must be YYYY-MM-DD")
	}
	to, err := parseDay(c.QueryParam("to"))
	if err != nil {
		return badRequest(c, "to must be YYYY-MM-DD")
	}
	events, err := h.Catalog.ListOpen(c.Request().Context(), model.EventFilter{
		From:  from,
		To:    to,
		Query: c.QueryParam("q"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": toEventList(events)})
}

// Get handles GET /v1/events/:id.
func (h *EventHandler) Get(c echo.Context) error {
	id, err := parseEventID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	ev, err := h.Catalog.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toEventResponse(*ev))
}

// Attendees handles GET /v1/events/:id/attendees.
func (h *EventHandler) Attendees(c echo.Context) error {
	id, err := parseEventID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	n, err := h.Catalog.AttendeeCount(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"event_id": id, "attendees": n})
}

// Location handles GET /v1/events/:id/location.
func (h *EventHandler) Location(c echo.Context) error {
	id, err := parseEventID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	loc, err := h.Catalog.Location(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, LocationResponse{
		ID:                loc.ID,
		Country:           loc.Country,
		City:              loc.City,
		Address:           loc.Address,
		SpecifiedLocation: loc.SpecifiedLocation,
		Longitude:         loc.Longitude,
		Latitude:          loc.Latitude,
	})
}

// ListMine handles GET /v1/organizer/events.
func (h *EventHandler) ListMine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	events, err := h.Catalog.ListForOrganizer(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": toEventList(events)})
}

// Create handles POST /v1/events.
func (h *EventHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	var req eventRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid JSON")
	}
	in, err := req.input()
	if err != nil {
		return writeError(c, err)
	}
	ev, err := h.Catalog.Create(c.Request().Context(), uid, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toEventResponse(*ev))
}

// Update handles PUT /v1/events/:id.  The body replaces every editable field.
func (h *EventHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := parseEventID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	var req eventRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid JSON")
	}
	in, err := req.input()
	if err != nil {
		return writeError(c, err)
	}
	ev, err := h.Catalog.Update(c.Request().Context(), uid, id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toEventResponse(*ev))
}

// Delete handles DELETE /v1/events/:id.
func (h *EventHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := parseEventID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	if err := h.Catalog.Delete(c.Request().Context(), uid, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
