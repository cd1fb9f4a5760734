package model

import "time"

// VolunteerStatistics is a single performance record an organizer files for
// a volunteer after an engagement.
type VolunteerStatistics struct {
	ID            string    // volunteer_statistics.id
	VolunteerID   string    // volunteer_statistics.volunteer_id
	Rating        int       // volunteer_statistics.rating (1..5)
	MinutesWorked int       // volunteer_statistics.minutes_worked
	EventCount    int       // volunteer_statistics.event_count
	CreatedAt     time.Time // volunteer_statistics.created_at
}

// StatisticsSummary aggregates all records of one volunteer.
type StatisticsSummary struct {
	VolunteerID   string
	Records       []VolunteerStatistics
	TotalMinutes  int
	TotalEvents   int
	AverageRating float64
}

// Summarize folds records into a StatisticsSummary.  The average rating is
// zero when there are no records.
func Summarize(volunteerID string, records []VolunteerStatistics) StatisticsSummary {
	sum := StatisticsSummary{VolunteerID: volunteerID, Records: records}
	if sum.Records == nil {
		sum.Records = []VolunteerStatistics{}
	}
	ratings := 0
	for _, r := range records {
		sum.TotalMinutes += r.MinutesWorked
		sum.TotalEvents += r.EventCount
		ratings += r.Rating
	}
	if len(records) > 0 {
		sum.AverageRating = float64(ratings) / float64(len(records))
	}
	return sum
}
