package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/rangovai/internal/model"
	"github.com/iliyamo/rangovai/internal/repository"
)

// Statistics records volunteer performance and summarizes it.
type Statistics struct {
	store StatisticsStore
	log   *zap.Logger
	now   func() time.Time
}

// NewStatistics wires a Statistics service.
func NewStatistics(store StatisticsStore, log *zap.Logger) *Statistics {
	if log == nil {
		log = zap.NewNop()
	}
	return &Statistics{store: store, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// StatisticsInput is one performance record filed by an organizer.
type StatisticsInput struct {
	Rating        int
	MinutesWorked int
	EventCount    int
}

// Record stores a performance record for volunteerID.
func (s *Statistics) Record(ctx context.Context, organizerID, volunteerID string, in StatisticsInput) (*model.VolunteerStatistics, error) {
	if organizerID == "" {
		return nil, repository.ErrNotAuthenticated
	}
	volunteerID = strings.TrimSpace(volunteerID)
	if volunteerID == "" {
		return nil, invalid("volunteer_id", "is required")
	}
	if in.Rating < 1 || in.Rating > 5 {
		return nil, invalid("rating", "must be between 1 and 5")
	}
	if in.MinutesWorked < 0 {
		return nil, invalid("minutes_worked", "must be >= 0")
	}
	if in.EventCount < 0 {
		return nil, invalid("event_count", "must be >= 0")
	}
	rec := &model.VolunteerStatistics{
		ID:            uuid.NewString(),
		VolunteerID:   volunteerID,
		Rating:        in.Rating,
		MinutesWorked: in.MinutesWorked,
		EventCount:    in.EventCount,
		CreatedAt:     s.now(),
	}
	if err := s.store.InsertStatistics(ctx, rec); err != nil {
		return nil, wrap("record statistics", err)
	}
	s.log.Info("volunteer statistics recorded",
		zap.String("volunteer_id", volunteerID),
		zap.String("organizer_id", organizerID),
		zap.Int("rating", in.Rating))
	return rec, nil
}

// Summary aggregates every record of volunteerID.
func (s *Statistics) Summary(ctx context.Context, volunteerID string) (model.StatisticsSummary, error) {
	if volunteerID == "" {
		return model.StatisticsSummary{}, repository.ErrNotAuthenticated
	}
	recs, err := s.store.ListStatistics(ctx, volunteerID)
	if err != nil {
		return model.StatisticsSummary{}, wrap("list statistics", err)
	}
	return model.Summarize(volunteerID, recs), nil
}
