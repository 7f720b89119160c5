package domain

import "time"

type EventStatus string

const (
	EventUpcoming  EventStatus = "upcoming"
	EventOngoing   EventStatus = "ongoing" // reserved; no transition reaches it yet
	EventCompleted EventStatus = "completed"
)

func ParseEventStatus(s string) (EventStatus, bool) {
	switch EventStatus(s) {
	case EventUpcoming, EventOngoing, EventCompleted:
		return EventStatus(s), true
	default:
		return "", false
	}
}

// Event is an announced activity. QRCodeData is the opaque check-in token
// rendered as a scannable image by the client; treat it as a secret
// credential, never a sequential id. PenaltyAmount only matters when
// IsRequired is set.
type Event struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	Date          time.Time   `json:"date"`
	Venue         string      `json:"venue"`
	CreatedBy     string      `json:"created_by"`
	IsRequired    bool        `json:"is_required"`
	PenaltyAmount float64     `json:"penalty_amount"`
	QRCodeData    string      `json:"qr_code_data"`
	Status        EventStatus `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
}

type CreateEventRequest struct {
	Title         string  `json:"title" validate:"required,max=200"`
	Description   string  `json:"description" validate:"max=2000"`
	Date          string  `json:"date" validate:"required"` // RFC 3339
	Venue         string  `json:"venue" validate:"required,max=200"`
	IsRequired    bool    `json:"is_required"`
	PenaltyAmount float64 `json:"penalty_amount" validate:"gte=0"`
}
