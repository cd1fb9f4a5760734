package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/rangovai/internal/handler"
	"github.com/iliyamo/rangovai/internal/middleware"
	"github.com/iliyamo/rangovai/internal/model"
	"github.com/iliyamo/rangovai/internal/repository/memory"
	"github.com/iliyamo/rangovai/internal/router"
	"github.com/iliyamo/rangovai/internal/service"
	"github.com/iliyamo/rangovai/internal/utils"
)

const secret = "handler-secret"

type api struct {
	t     *testing.T
	e     *echo.Echo
	store *memory.Store
}

func newAPI(t *testing.T) *api {
	t.Helper()
	store := memory.New()
	seats := service.NewSeatAccountant(store, nil, nil)
	h := router.Handlers{
		Health:       &handler.HealthHandler{},
		Events:       handler.NewEventHandler(service.NewCatalog(store, nil, nil)),
		Applications: handler.NewApplicationHandler(service.NewLedger(store, seats, nil, nil, nil)),
		Statistics:   &handler.StatisticsHandler{Statistics: service.NewStatistics(store, nil)},
	}
	e := echo.New()
	router.RegisterAll(e, h, secret)
	return &api{t: t, e: e, store: store}
}

func (a *api) token(sub, role string) string {
	tok, err := utils.NewAccessToken(secret, sub, role, time.Hour)
	require.NoError(a.t, err)
	return tok.Token
}

func (a *api) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	return decode[map[string]string](t, rec)["error"]
}

func (a *api) createEvent(org string, max int) handler.EventResponse {
	body := `{"name":"Talka parke","date":"2026-11-05","start_time":"10:00","end_time":"13:00","max_volunteer_count":` +
		jsonInt(max) + `,"form_url":"https://forms.example/talka"}`
	rec := a.do(http.MethodPost, "/v1/events", a.token(org, model.RoleOrganizer), body)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[handler.EventResponse](a.t, rec)
}

func jsonInt(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

type list[T any] struct {
	Items []T `json:"items"`
}

func TestHealth(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestVolunteerFlowOverHTTP(t *testing.T) {
	a := newAPI(t)
	ev := a.createEvent("org-1", 1)
	assert.Equal(t, "2026-11-05", ev.Date)
	assert.Equal(t, "10:00:00", ev.StartTime)
	assert.Equal(t, 1, ev.AvailableVolunteers)

	open := decode[list[handler.EventResponse]](t, a.do(http.MethodGet, "/v1/events", "", ""))
	require.Len(t, open.Items, 1)

	vol := a.token("vol-1", model.RoleVolunteer)
	rec := a.do(http.MethodPost, "/v1/events/"+jsonUint(ev.ID)+"/applications", vol, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	app := decode[handler.ApplicationResponse](t, rec)
	assert.Equal(t, "laukiama", app.Status)
	require.NotNil(t, app.FormURL)

	rec = a.do(http.MethodPost, "/v1/events/"+jsonUint(ev.ID)+"/applications", vol, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	org := a.token("org-1", model.RoleOrganizer)
	rec = a.do(http.MethodPost, "/v1/applications/"+app.ID+"/accept", org, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tr := decode[handler.TransitionResponse](t, rec)
	assert.True(t, tr.Changed)
	assert.Equal(t, 0, tr.AvailableVolunteers)
	assert.Equal(t, "priimta", tr.Application.Status)

	// full events drop out of the public listing
	open = decode[list[handler.EventResponse]](t, a.do(http.MethodGet, "/v1/events", "", ""))
	assert.Empty(t, open.Items)

	rec = a.do(http.MethodPost, "/v1/events/"+jsonUint(ev.ID)+"/applications", a.token("vol-2", model.RoleVolunteer), "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "no available volunteer seats", errorOf(t, rec))

	mine := decode[list[handler.ApplicationResponse]](t, a.do(http.MethodGet, "/v1/my-applications", vol, ""))
	require.Len(t, mine.Items, 1)
	assert.Equal(t, "priimta", mine.Items[0].Status)

	rec = a.do(http.MethodDelete, "/v1/applications/"+app.ID, vol, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"`+app.ID+`","available_volunteers":1}`, rec.Body.String())
}

func TestStatusPatchAndErrors(t *testing.T) {
	a := newAPI(t)
	ev := a.createEvent("org-1", 2)
	vol := a.token("vol-1", model.RoleVolunteer)
	org := a.token("org-1", model.RoleOrganizer)
	app := decode[handler.ApplicationResponse](t, a.do(http.MethodPost, "/v1/events/"+jsonUint(ev.ID)+"/applications", vol, ""))

	rec := a.do(http.MethodPatch, "/v1/applications/"+app.ID+"/status", org, `{"status":"nezinoma"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPatch, "/v1/applications/"+app.ID+"/status", a.token("org-2", model.RoleOrganizer), `{"status":"priimta"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodPatch, "/v1/applications/"+app.ID+"/status", org, `{"status":"atmesta"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[handler.TransitionResponse](t, rec).AvailableVolunteers)

	rec = a.do(http.MethodPost, "/v1/applications/"+app.ID+"/accept", org, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodPost, "/v1/applications/missing/accept", org, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// role checks
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, "/v1/applications/"+app.ID+"/accept", vol, "").Code)
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/v1/my-applications", "", "").Code)
}

func TestOrganizerViews(t *testing.T) {
	a := newAPI(t)
	ev := a.createEvent("org-1", 3)
	require.NoError(t, a.store.UpsertUser(t.Context(), model.User{ID: "vol-1", Name: "Ona"}))
	a.do(http.MethodPost, "/v1/events/"+jsonUint(ev.ID)+"/applications", a.token("vol-1", model.RoleVolunteer), "")
	a.do(http.MethodPost, "/v1/events/"+jsonUint(ev.ID)+"/applications", a.token("vol-2", model.RoleVolunteer), "")

	org := a.token("org-1", model.RoleOrganizer)
	views := decode[list[handler.ApplicationResponse]](t, a.do(http.MethodGet, "/v1/events/"+jsonUint(ev.ID)+"/applications", org, ""))
	require.Len(t, views.Items, 2)
	names := map[string]string{}
	for _, v := range views.Items {
		require.NotNil(t, v.VolunteerName)
		names[v.VolunteerID] = *v.VolunteerName
	}
	assert.Equal(t, map[string]string{"vol-1": "Ona", "vol-2": ""}, names)

	rec := a.do(http.MethodGet, "/v1/events/"+jsonUint(ev.ID)+"/applications", a.token("org-2", model.RoleOrganizer), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	mine := decode[list[handler.EventResponse]](t, a.do(http.MethodGet, "/v1/organizer/events", org, ""))
	require.Len(t, mine.Items, 1)

	rec = a.do(http.MethodPut, "/v1/events/"+jsonUint(ev.ID), org,
		`{"name":"Talka","date":"2026-11-06","start_time":"09:00","end_time":"12:00","max_volunteer_count":5}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	up := decode[handler.EventResponse](t, rec)
	assert.Equal(t, 5, up.AvailableVolunteers)
	assert.Equal(t, "2026-11-06", up.Date)

	rec = a.do(http.MethodPost, "/v1/events", org, `{"name":"X","date":"06/11/2026","start_time":"09:00","end_time":"12:00"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, "/v1/events/"+jsonUint(ev.ID), org, "").Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/v1/events/"+jsonUint(ev.ID), "", "").Code)
}

func TestPublicEventEndpoints(t *testing.T) {
	a := newAPI(t)
	org := a.token("org-1", model.RoleOrganizer)
	rec := a.do(http.MethodPost, "/v1/events", org,
		`{"name":"Koncertas","description":"Lauko scena","date":"2026-12-01","start_time":"18:00","end_time":"22:00","max_volunteer_count":4,`+
			`"location":{"country":"Lietuva","city":"Kaunas","address":"Laisvės al. 1","latitude":54.9,"longitude":23.9}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ev := decode[handler.EventResponse](t, rec)
	a.createEvent("org-1", 2)
	vol := a.token("vol-9", model.RoleVolunteer)
	for i := 0; i < 12; i++ {
		require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/v1/events/"+jsonUint(ev.ID)+"/tickets", vol, "").Code)
	}

	rec = a.do(http.MethodGet, "/v1/events/"+jsonUint(ev.ID)+"/attendees", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"event_id":`+jsonUint(ev.ID)+`,"attendees":12}`, rec.Body.String())

	loc := decode[handler.LocationResponse](t, a.do(http.MethodGet, "/v1/events/"+jsonUint(ev.ID)+"/location", "", ""))
	assert.Equal(t, "Kaunas", loc.City)

	filtered := decode[list[handler.EventResponse]](t, a.do(http.MethodGet, "/v1/events?q=scena", "", ""))
	require.Len(t, filtered.Items, 1)
	assert.Equal(t, ev.ID, filtered.Items[0].ID)

	ranged := decode[list[handler.EventResponse]](t, a.do(http.MethodGet, "/v1/events?from=2026-11-01&to=2026-11-30", "", ""))
	require.Len(t, ranged.Items, 1)
	assert.NotEqual(t, ev.ID, ranged.Items[0].ID)

	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/v1/events?from=tomorrow", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/v1/events?from=2026-12-01&to=2026-11-01", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/v1/events/abc", "", "").Code)
}

func TestStatisticsEndpoints(t *testing.T) {
	a := newAPI(t)
	org := a.token("org-1", model.RoleOrganizer)
	vol := a.token("vol-1", model.RoleVolunteer)

	rec := a.do(http.MethodPost, "/v1/volunteers/vol-1/statistics", org, `{"rating":5,"minutes_worked":90,"event_count":1}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = a.do(http.MethodPost, "/v1/volunteers/vol-1/statistics", org, `{"rating":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	sum := decode[handler.StatisticsSummary](t, a.do(http.MethodGet, "/v1/my-statistics", vol, ""))
	assert.Equal(t, 90, sum.TotalMinutes)
	assert.Len(t, sum.Records, 1)
	assert.InDelta(t, 5.0, sum.AverageRating, 0.0001)
}

func jsonUint(n uint64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestTicketEndpoints(t *testing.T) {
	a := newAPI(t)
	org := a.token("org-1", model.RoleOrganizer)
	vol := a.token("vol-1", model.RoleVolunteer)
	rec := a.do(http.MethodPost, "/v1/events", org,
		`{"name":"Koncertas","date":"2026-12-01","start_time":"18:00","end_time":"22:00","seats_count":2}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ev := decode[handler.EventResponse](t, rec)
	path := "/v1/events/" + jsonUint(ev.ID) + "/tickets"

	rec = a.do(http.MethodPost, path, vol, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tk := decode[handler.TicketResponse](t, rec)
	assert.Equal(t, ev.ID, tk.EventID)
	assert.Equal(t, "vol-1", tk.HolderID)

	assert.Equal(t, http.StatusCreated, a.do(http.MethodPost, path, org, "").Code)
	rec = a.do(http.MethodPost, path, vol, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "no tickets left for this event", errorOf(t, rec))

	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodPost, path, "", "").Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/v1/events/abc/tickets", vol, "").Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodPost, "/v1/events/999/tickets", vol, "").Code)

	mine := decode[list[handler.TicketResponse]](t, a.do(http.MethodGet, "/v1/my-tickets", vol, ""))
	require.Len(t, mine.Items, 1)
	assert.Equal(t, "Koncertas", mine.Items[0].EventName)
	assert.Equal(t, "2026-12-01", mine.Items[0].EventDate)

	count := decode[map[string]int](t, a.do(http.MethodGet, "/v1/events/"+jsonUint(ev.ID)+"/attendees", "", ""))
	assert.Equal(t, 2, count["attendees"])
}

// brokenStore fails every open events read.
type brokenStore struct{ *memory.Store }

func (brokenStore) ListOpenEvents(context.Context, model.EventFilter) ([]model.Event, error) {
	return nil, errors.New("connection reset by peer")
}

func TestUnhandledErrorLoggedWithRequestID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	store := brokenStore{memory.New()}
	e := echo.New()
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(zap.New(core)))
	router.RegisterPublic(e, router.Handlers{Events: handler.NewEventHandler(service.NewCatalog(store, nil, nil))})

	req := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", errorOf(t, rec))
	assert.NotContains(t, rec.Body.String(), "connection reset")

	unhandled := logs.FilterMessage("unhandled error").All()
	require.Len(t, unhandled, 1)
	fields := unhandled[0].ContextMap()
	assert.Equal(t, "/v1/events", fields["route"])
	assert.Equal(t, rec.Header().Get(echo.HeaderXRequestID), fields["request_id"])
	assert.Contains(t, fields["error"], "connection reset by peer")
}
