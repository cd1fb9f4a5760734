package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rangovai/internal/model"
)

// TicketResponse is the JSON shape of a ticket.  The event fields are only
// filled in holder listings.
type TicketResponse struct {
	ID        uint64 `json:"id"`
	EventID   uint64 `json:"event_id"`
	HolderID  string `json:"holder_id"`
	CreatedAt string `json:"created_at"`
	EventName string `json:"event_name,omitempty"`
	EventDate string `json:"event_date,omitempty"`
	StartTime string `json:"start_time,omitempty"`
}

func toTicketResponse(t model.Ticket) TicketResponse {
	return TicketResponse{
		ID:        t.ID,
		EventID:   t.EventID,
		HolderID:  t.HolderID,
		CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// IssueTicket handles POST /v1/events/:id/tickets.  409 once the event's
// seats_count is exhausted.
func (h *EventHandler) IssueTicket(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	id, err := parseEventID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	tk, err := h.Catalog.IssueTicket(c.Request().Context(), uid, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toTicketResponse(*tk))
}

// MyTickets handles GET /v1/my-tickets.
func (h *EventHandler) MyTickets(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	views, err := h.Catalog.Tickets(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]TicketResponse, 0, len(views))
	for _, v := range views {
		r := toTicketResponse(v.Ticket)
		r.EventName = v.EventName
		if !v.EventDate.IsZero() {
			r.EventDate = v.EventDate.Format(dateLayout)
		}
		r.StartTime = v.StartTime
		out = append(out, r)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}
