// Package client is a typed Go client for the /v1 API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/rangovai/internal/handler"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Client calls the API with a bearer token.  The zero HTTPClient falls
// back to a client with a 10s timeout.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// New returns a Client for baseURL authenticating with token.
func New(baseURL, token string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Event, Application and the other payloads share the server's JSON shapes.
type (
	Event             = handler.EventResponse
	Location          = handler.LocationResponse
	Application       = handler.ApplicationResponse
	Transition        = handler.TransitionResponse
	StatisticsRecord  = handler.StatisticsRecord
	StatisticsSummary = handler.StatisticsSummary
	Ticket            = handler.TicketResponse
)

// EventInput is the body of event create and update calls.
type EventInput struct {
	Name              string         `json:"name"`
	Description       string         `json:"description,omitempty"`
	Date              string         `json:"date"`
	StartTime         string         `json:"start_time"`
	EndTime           string         `json:"end_time"`
	IsFree            bool           `json:"is_free"`
	SeatsCount        *int           `json:"seats_count,omitempty"`
	MaxVolunteerCount int            `json:"max_volunteer_count"`
	FormURL           *string        `json:"form_url,omitempty"`
	Location          *LocationInput `json:"location,omitempty"`
}

// LocationInput is the optional location of a new event.
type LocationInput struct {
	Country           string  `json:"country,omitempty"`
	City              string  `json:"city,omitempty"`
	Address           string  `json:"address,omitempty"`
	SpecifiedLocation string  `json:"specified_location,omitempty"`
	Longitude         float64 `json:"longitude"`
	Latitude          float64 `json:"latitude"`
}

// StatisticsInput is the body of a statistics record call.
type StatisticsInput struct {
	Rating        int `json:"rating"`
	MinutesWorked int `json:"minutes_worked"`
	EventCount    int `json:"event_count"`
}

// EventQuery filters ListOpenEvents.  Dates are YYYY-MM-DD.
type EventQuery struct {
	From  string
	To    string
	Query string
}

// Withdrawal is the answer to a withdraw call.
type Withdrawal struct {
	ID                  string `json:"id"`
	AvailableVolunteers int    `json:"available_volunteers"`
}

// Attendees is the answer to an attendee count call.
type Attendees struct {
	EventID   uint64 `json:"event_id"`
	Attendees int    `json:"attendees"`
}

type items[T any] struct {
	Items []T `json:"items"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		bs, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(bs)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	hc := c.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	res, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		apiErr := &APIError{Status: res.StatusCode, Message: http.StatusText(res.StatusCode)}
		var env struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &env) == nil && env.Error != "" {
			apiErr.Message = env.Error
		}
		return apiErr
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

func eventPath(id uint64, suffix string) string {
	return "/v1/events/" + strconv.FormatUint(id, 10) + suffix
}

func applicationPath(id, suffix string) string {
	return "/v1/applications/" + url.PathEscape(id) + suffix
}

// ListOpenEvents calls GET /v1/events.
func (c *Client) ListOpenEvents(ctx context.Context, q EventQuery) ([]Event, error) {
	v := url.Values{}
	if q.From != "" {
		v.Set("from", q.From)
	}
	if q.To != "" {
		v.Set("to", q.To)
	}
	if q.Query != "" {
		v.Set("q", q.Query)
	}
	path := "/v1/events"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}
	var out items[Event]
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out.Items, err
}

// GetEvent calls GET /v1/events/:id.
func (c *Client) GetEvent(ctx context.Context, id uint64) (*Event, error) {
	var out Event
	if err := c.do(ctx, http.MethodGet, eventPath(id, ""), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Attendees calls GET /v1/events/:id/attendees.
func (c *Client) Attendees(ctx context.Context, id uint64) (int, error) {
	var out Attendees
	err := c.do(ctx, http.MethodGet, eventPath(id, "/attendees"), nil, &out)
	return out.Attendees, err
}

// EventLocation calls GET /v1/events/:id/location.
func (c *Client) EventLocation(ctx context.Context, id uint64) (*Location, error) {
	var out Location
	if err := c.do(ctx, http.MethodGet, eventPath(id, "/location"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Apply calls POST /v1/events/:id/applications.
func (c *Client) Apply(ctx context.Context, eventID uint64) (*Application, error) {
	var out Application
	if err := c.do(ctx, http.MethodPost, eventPath(eventID, "/applications"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MyApplications calls GET /v1/my-applications.
func (c *Client) MyApplications(ctx context.Context) ([]Application, error) {
	var out items[Application]
	err := c.do(ctx, http.MethodGet, "/v1/my-applications", nil, &out)
	return out.Items, err
}

// Withdraw calls DELETE /v1/applications/:id.
func (c *Client) Withdraw(ctx context.Context, applicationID string) (*Withdrawal, error) {
	var out Withdrawal
	if err := c.do(ctx, http.MethodDelete, applicationPath(applicationID, ""), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MyStatistics calls GET /v1/my-statistics.
func (c *Client) MyStatistics(ctx context.Context) (*StatisticsSummary, error) {
	var out StatisticsSummary
	if err := c.do(ctx, http.MethodGet, "/v1/my-statistics", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IssueTicket calls POST /v1/events/:id/tickets.
func (c *Client) IssueTicket(ctx context.Context, eventID uint64) (*Ticket, error) {
	var out Ticket
	if err := c.do(ctx, http.MethodPost, eventPath(eventID, "/tickets"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MyTickets calls GET /v1/my-tickets.
func (c *Client) MyTickets(ctx context.Context) ([]Ticket, error) {
	var out items[Ticket]
	err := c.do(ctx, http.MethodGet, "/v1/my-tickets", nil, &out)
	return out.Items, err
}

// CreateEvent calls POST /v1/events.
func (c *Client) CreateEvent(ctx context.Context, in EventInput) (*Event, error) {
	var out Event
	if err := c.do(ctx, http.MethodPost, "/v1/events", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateEvent calls PUT /v1/events/:id.
func (c *Client) UpdateEvent(ctx context.Context, id uint64, in EventInput) (*Event, error) {
	var out Event
	if err := c.do(ctx, http.MethodPut, eventPath(id, ""), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteEvent calls DELETE /v1/events/:id.
func (c *Client) DeleteEvent(ctx context.Context, id uint64) error {
	return c.do(ctx, http.MethodDelete, eventPath(id, ""), nil, nil)
}

// OrganizerEvents calls GET /v1/organizer/events.
func (c *Client) OrganizerEvents(ctx context.Context) ([]Event, error) {
	var out items[Event]
	err := c.do(ctx, http.MethodGet, "/v1/organizer/events", nil, &out)
	return out.Items, err
}

// EventApplications calls GET /v1/events/:id/applications.
func (c *Client) EventApplications(ctx context.Context, eventID uint64) ([]Application, error) {
	var out items[Application]
	err := c.do(ctx, http.MethodGet, eventPath(eventID, "/applications"), nil, &out)
	return out.Items, err
}

// SetStatus calls PATCH /v1/applications/:id/status.
func (c *Client) SetStatus(ctx context.Context, applicationID, status string) (*Transition, error) {
	var out Transition
	body := map[string]string{"status": status}
	if err := c.do(ctx, http.MethodPatch, applicationPath(applicationID, "/status"), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Accept calls POST /v1/applications/:id/accept.
func (c *Client) Accept(ctx context.Context, applicationID string) (*Transition, error) {
	var out Transition
	if err := c.do(ctx, http.MethodPost, applicationPath(applicationID, "/accept"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Decline calls POST /v1/applications/:id/decline.
func (c *Client) Decline(ctx context.Context, applicationID string) (*Transition, error) {
	var out Transition
	if err := c.do(ctx, http.MethodPost, applicationPath(applicationID, "/decline"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RecordStatistics calls POST /v1/volunteers/:id/statistics.
func (c *Client) RecordStatistics(ctx context.Context, volunteerID string, in StatisticsInput) (*StatisticsRecord, error) {
	var out StatisticsRecord
	path := "/v1/volunteers/" + url.PathEscape(volunteerID) + "/statistics"
	if err := c.do(ctx, http.MethodPost, path, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
