package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/campusops/attendance-portal/pkg/logger"
	"github.com/nats-io/nats.go"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Subjects
const (
	UserRegistered   = "user.registered"
	EventCreated     = "event.created"
	EventFinalized   = "event.finalized"
	StudentCheckedIn = "attendance.checked_in"
	AbsenceMarked    = "attendance.absent"
	FineSettled      = "fine.settled"
)

// Payloads
type UserRegisteredEvent struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

type EventCreatedEvent struct {
	EventID    string    `json:"event_id"`
	Title      string    `json:"title"`
	Date       time.Time `json:"date"`
	Venue      string    `json:"venue"`
	IsRequired bool      `json:"is_required"`
	CreatedBy  string    `json:"created_by"`
}

type EventFinalizedEvent struct {
	EventID       string    `json:"event_id"`
	Title         string    `json:"title"`
	AbsenteeCount int       `json:"absentee_count"`
	FinalizedAt   time.Time `json:"finalized_at"`
}

type StudentCheckedInEvent struct {
	EventID   string    `json:"event_id"`
	StudentID string    `json:"student_id"`
	RecordID  string    `json:"record_id"`
	CheckedAt time.Time `json:"checked_at"`
}

type AbsenceMarkedEvent struct {
	EventID       string  `json:"event_id"`
	EventTitle    string  `json:"event_title"`
	StudentID     string  `json:"student_id"`
	StudentEmail  string  `json:"student_email"`
	StudentName   string  `json:"student_name"`
	PenaltyAmount float64 `json:"penalty_amount"`
}

type FineSettledEvent struct {
	RecordID  string    `json:"record_id"`
	StudentID string    `json:"student_id"`
	SettledAt time.Time `json:"settled_at"`
}
