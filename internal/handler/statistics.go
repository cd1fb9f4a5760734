package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rangovai/internal/model"
	"github.com/iliyamo/rangovai/internal/service"
)

// StatisticsHandler serves volunteer performance records.
type StatisticsHandler struct {
	Statistics *service.Statistics
}

type statisticsRequest struct {
	Rating        int `json:"rating"`
	MinutesWorked int `json:"minutes_worked"`
	EventCount    int `json:"event_count"`
}

// StatisticsRecord is the JSON shape of one performance record.
type StatisticsRecord struct {
	ID            string `json:"id"`
	VolunteerID   string `json:"volunteer_id"`
	Rating        int    `json:"rating"`
	MinutesWorked int    `json:"minutes_worked"`
	EventCount    int    `json:"event_count"`
	CreatedAt     string `json:"created_at"`
}

// StatisticsSummary is the JSON shape of a volunteer's aggregate.
type StatisticsSummary struct {
	VolunteerID   string             `json:"volunteer_id"`
	Records       []StatisticsRecord `json:"records"`
	TotalMinutes  int                `json:"total_minutes"`
	TotalEvents   int                `json:"total_events"`
	AverageRating float64            `json:"average_rating"`
}

func toStatisticsRecord(r model.VolunteerStatistics) StatisticsRecord {
	return StatisticsRecord{
		ID:            r.ID,
		VolunteerID:   r.VolunteerID,
		Rating:        r.Rating,
		MinutesWorked: r.MinutesWorked,
		EventCount:    r.EventCount,
		CreatedAt:     r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Record handles POST /v1/volunteers/:id/statistics.
func (h *StatisticsHandler) Record(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	var req statisticsRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid JSON")
	}
	rec, err := h.Statistics.Record(c.Request().Context(), uid, c.Param("id"), service.StatisticsInput{
		Rating:        req.Rating,
		MinutesWorked: req.MinutesWorked,
		EventCount:    req.EventCount,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toStatisticsRecord(*rec))
}

// Mine handles GET /v1/my-statistics.
func (h *StatisticsHandler) Mine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	sum, err := h.Statistics.Summary(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, err)
	}
	out := StatisticsSummary{
		VolunteerID:   sum.VolunteerID,
		Records:       make([]StatisticsRecord, 0, len(sum.Records)),
		TotalMinutes:  sum.TotalMinutes,
		TotalEvents:   sum.TotalEvents,
		AverageRating: sum.AverageRating,
	}
	for _, r := range sum.Records {
		out.Records = append(out.Records, toStatisticsRecord(r))
	}
	return c.JSON(http.StatusOK, out)
}
