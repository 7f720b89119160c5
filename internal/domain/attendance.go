package domain

import "time"

type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendancePending AttendanceStatus = "pending"
)

// AttendanceRecord is one student's outcome for one event. At most one
// record exists per (EventID, StudentID) pair; the status never changes
// after creation and only PenaltyPaid may flip, false to true.
type AttendanceRecord struct {
	ID          string           `json:"id"`
	EventID     string           `json:"event_id"`
	StudentID   string           `json:"student_id"`
	Status      AttendanceStatus `json:"status"`
	RecordedAt  *time.Time       `json:"recorded_at,omitempty"`
	PenaltyPaid bool             `json:"penalty_paid"`
}

// EventAttendanceEntry is a record joined with the student's display name
// for the faculty attendance sheet.
type EventAttendanceEntry struct {
	Record      AttendanceRecord `json:"record"`
	StudentName string           `json:"student_name"`
}

// OutstandingFine is the derived view of an unpaid absence on a mandatory
// event. It is computed on read; the amount reflects the event's current
// penalty terms, not a snapshot taken at absence time.
type OutstandingFine struct {
	RecordID      string     `json:"record_id"`
	EventID       string     `json:"event_id"`
	EventTitle    string     `json:"event_title"`
	EventDate     time.Time  `json:"event_date"`
	PenaltyAmount float64    `json:"penalty_amount"`
	RecordedAt    *time.Time `json:"recorded_at,omitempty"`
}

type CheckInRequest struct {
	QRCodeData string `json:"qr_code_data" validate:"required"`
}
