package model

import "time"

// Ticket admits its holder to an event.  Corresponds to a row in the
// `ticket` table.  The number of tickets of an event never exceeds
// Event.SeatsCount when that is set.
type Ticket struct {
	ID        uint64    // ticket.id
	EventID   uint64    // ticket.event_id
	HolderID  string    // ticket.holder_id
	CreatedAt time.Time // ticket.created_at
}

// TicketView is a ticket joined with the event it admits to, as listed to
// its holder.
type TicketView struct {
	Ticket
	EventName string
	EventDate time.Time
	StartTime string
}
