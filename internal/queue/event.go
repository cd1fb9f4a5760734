// Package queue defines message payloads exchanged over the message broker
// together with the publisher and the background consumer.
package queue

// ApplicationQueueName is the durable queue carrying ledger transitions.
const ApplicationQueueName = "volunteer.application"

// Actions carried in ApplicationEvent.Action.
const (
	ActionApplied   = "applied"
	ActionAccepted  = "accepted"
	ActionDeclined  = "declined"
	ActionWithdrawn = "withdrawn"
)

// ApplicationEvent is published after a ledger transition commits.  It
// carries enough information for downstream consumers to log or notify
// without querying the primary database.
type ApplicationEvent struct {
	Action              string `json:"action"`
	ApplicationID       string `json:"application_id"`
	VolunteerID         string `json:"volunteer_id"`
	EventID             uint64 `json:"event_id"`
	EventName           string `json:"event_name"`
	Status              string `json:"status"`
	AvailableVolunteers int    `json:"available_volunteers"`
	OccurredAt          string `json:"occurred_at"`
}
