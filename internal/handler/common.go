package handler // handler defines http handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/rangovai/internal/middleware"
	"github.com/iliyamo/rangovai/internal/model"
	"github.com/iliyamo/rangovai/internal/repository"
	"github.com/iliyamo/rangovai/internal/service"
)

const dateLayout = "2006-01-02"

// getUserID returns the authenticated subject or ErrNotAuthenticated.
func getUserID(c echo.Context) (string, error) {
	if id := middleware.UserID(c); id != "" {
		return id, nil
	}
	return "", repository.ErrNotAuthenticated
}

// parseEventID reads the numeric :id path parameter.
func parseEventID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// applicationID reads the :id path parameter of application routes.
func applicationID(c echo.Context) (string, error) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return "", errors.New("invalid id")
	}
	return id, nil
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// writeError translates service and repository errors into the JSON error
// envelope.  Unknown errors become 500 without leaking their text.
func writeError(c echo.Context, err error) error {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Error()})
	case errors.Is(err, repository.ErrNotAuthenticated):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrEventNotFound),
		errors.Is(err, repository.ErrApplicationNotFound),
		errors.Is(err, repository.ErrLocationNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrNoSeats),
		errors.Is(err, repository.ErrSeatsAtCapacity),
		errors.Is(err, repository.ErrDuplicateApplication),
		errors.Is(err, repository.ErrInvalidTransition),
		errors.Is(err, repository.ErrConflict),
		errors.Is(err, repository.ErrSoldOut):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "request timed out"})
	}
	middleware.Logger(c).Error("unhandled error",
		zap.String("method", c.Request().Method),
		zap.String("route", c.Path()),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// EventResponse is the JSON shape of an event.
type EventResponse struct {
	ID                  uint64  `json:"id"`
	OrganizerID         string  `json:"organizer_id"`
	Name                string  `json:"name"`
	Description         string  `json:"description"`
	Date                string  `json:"date"`
	StartTime           string  `json:"start_time"`
	EndTime             string  `json:"end_time"`
	IsFree              bool    `json:"is_free"`
	SeatsCount          *int    `json:"seats_count,omitempty"`
	MaxVolunteerCount   int     `json:"max_volunteer_count"`
	AvailableVolunteers int     `json:"available_volunteers"`
	EventLocationID     *uint64 `json:"event_location_id,omitempty"`
	FormURL             *string `json:"form_url,omitempty"`
}

func toEventResponse(e model.Event) EventResponse {
	return EventResponse{
		ID:                  e.ID,
		OrganizerID:         e.OrganizerID,
		Name:                e.Name,
		Description:         e.Description,
		Date:                e.Date.Format(dateLayout),
		StartTime:           e.StartTime,
		EndTime:             e.EndTime,
		IsFree:              e.IsFree,
		SeatsCount:          e.SeatsCount,
		MaxVolunteerCount:   e.MaxVolunteerCount,
		AvailableVolunteers: e.AvailableVolunteers,
		EventLocationID:     e.EventLocationID,
		FormURL:             e.FormURL,
	}
}

func toEventList(events []model.Event) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toEventResponse(e))
	}
	return out
}

// LocationResponse is the JSON shape of an event location.
type LocationResponse struct {
	ID                uint64  `json:"id"`
	Country           string  `json:"country"`
	City              string  `json:"city"`
	Address           string  `json:"address"`
	SpecifiedLocation string  `json:"specified_location"`
	Longitude         float64 `json:"longitude"`
	Latitude          float64 `json:"latitude"`
}

// ApplicationResponse is the JSON shape of a volunteer application.
type ApplicationResponse struct {
	ID            string  `json:"id"`
	VolunteerID   string  `json:"volunteer_id"`
	VolunteerName *string `json:"volunteer_name,omitempty"`
	EventID       uint64  `json:"event_id"`
	Status        string  `json:"status"`
	Date          string  `json:"date"`
	FormURL       *string `json:"form_url,omitempty"`
}

func toApplicationResponse(a model.VolunteerApplication) ApplicationResponse {
	return ApplicationResponse{
		ID:          a.ID,
		VolunteerID: a.VolunteerID,
		EventID:     a.EventID,
		Status:      string(a.Status),
		Date:        a.Date.UTC().Format(time.RFC3339),
		FormURL:     a.FormURL,
	}
}
