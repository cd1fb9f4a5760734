package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rangovai/internal/model"
	"github.com/iliyamo/rangovai/internal/service"
)

// ApplicationHandler serves the volunteer application ledger to both
// volunteers (apply, list, withdraw) and organizers (review, decide).
type ApplicationHandler struct {
	Ledger *service.Ledger
}

// NewApplicationHandler constructs an ApplicationHandler and panics if
// ledger is nil.
func NewApplicationHandler(ledger *service.Ledger) *ApplicationHandler {
	if ledger == nil {
		panic("nil ledger passed to NewApplicationHandler")
	}
	return &ApplicationHandler{Ledger: ledger}
}

type statusRequest struct {
	Status string `json:"status"`
}

// TransitionResponse reports the outcome of a status change.
type TransitionResponse struct {
	Application         ApplicationResponse `json:"application"`
	AvailableVolunteers int                 `json:"available_volunteers"`
	Changed             bool                `json:"changed"`
}

// Apply handles POST /v1/events/:id/applications.
func (h *ApplicationHandler) Apply(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	eventID, err := parseEventID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	app, err := h.Ledger.Apply(c.Request().Context(), uid, eventID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toApplicationResponse(*app))
}

// ListMine handles GET /v1/my-applications.
func (h *ApplicationHandler) ListMine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	apps, err := h.Ledger.ListForVolunteer(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]ApplicationResponse, 0, len(apps))
	for _, a := range apps {
		out = append(out, toApplicationResponse(a))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Withdraw handles DELETE /v1/applications/:id.
func (h *ApplicationHandler) Withdraw(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := applicationID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	left, err := h.Ledger.Withdraw(c.Request().Context(), uid, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "available_volunteers": left})
}

// ListForEvent handles GET /v1/events/:id/applications.
func (h *ApplicationHandler) ListForEvent(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	eventID, err := parseEventID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	views, err := h.Ledger.ListForEvent(c.Request().Context(), uid, eventID)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]ApplicationResponse, 0, len(views))
	for _, v := range views {
		r := toApplicationResponse(v.VolunteerApplication)
		name := v.VolunteerName
		r.VolunteerName = &name
		out = append(out, r)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// SetStatus handles PATCH /v1/applications/:id/status.
func (h *ApplicationHandler) SetStatus(c echo.Context) error {
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid JSON")
	}
	status, err := model.ParseStatus(req.Status)
	if err != nil {
		return badRequest(c, "status must be one of laukiama, priimta, atmesta")
	}
	return h.transition(c, status)
}

// Accept handles POST /v1/applications/:id/accept.
func (h *ApplicationHandler) Accept(c echo.Context) error {
	return h.transition(c, model.StatusAccepted)
}

// Decline handles POST /v1/applications/:id/decline.
func (h *ApplicationHandler) Decline(c echo.Context) error {
	return h.transition(c, model.StatusDeclined)
}

func (h *ApplicationHandler) transition(c echo.Context, status model.Status) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := applicationID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	res, err := h.Ledger.SetStatus(c.Request().Context(), uid, id, status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, TransitionResponse{
		Application:         toApplicationResponse(res.Application),
		AvailableVolunteers: res.AvailableVolunteers,
		Changed:             res.Changed,
	})
}
