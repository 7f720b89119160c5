package service

import (
	"context"
	"fmt"
	"time"

	"github.com/campusops/attendance-portal/internal/domain"
	"github.com/campusops/attendance-portal/internal/payments"
	"github.com/campusops/attendance-portal/internal/repo/postgres"
	"github.com/campusops/attendance-portal/pkg/events"
	"github.com/campusops/attendance-portal/pkg/logger"
	"github.com/campusops/attendance-portal/pkg/metrics"
)

const unknownStudentName = "Unknown Student"

// LedgerService owns all writes to attendance records: idempotent check-in,
// absence synthesis at finalization, and fine settlement.
type LedgerService interface {
	CheckIn(ctx context.Context, eventID, studentID string) (*domain.AttendanceRecord, error)
	CheckInByQRToken(ctx context.Context, qrToken, studentID string) (*domain.AttendanceRecord, error)
	SynthesizeAbsences(ctx context.Context, event *domain.Event, students []domain.User) (int, error)
	RecordsForStudent(ctx context.Context, studentID string) ([]domain.AttendanceRecord, error)
	RecordsForEvent(ctx context.Context, eventID string) ([]domain.EventAttendanceEntry, error)
	OutstandingFines(ctx context.Context, studentID string) ([]domain.OutstandingFine, error)
	SettleFine(ctx context.Context, recordID, actorStudentID string) error
}

type ledgerService struct {
	records postgres.AttendanceRepo
	eventsR postgres.EventRepo
	users   postgres.UserRepo
	charger payments.Charger
	bus     events.Publisher
}

func NewLedgerService(records postgres.AttendanceRepo, eventsRepo postgres.EventRepo, users postgres.UserRepo, charger payments.Charger, bus events.Publisher) LedgerService {
	return &ledgerService{
		records: records,
		eventsR: eventsRepo,
		users:   users,
		charger: charger,
		bus:     bus,
	}
}

func (s *ledgerService) CheckIn(ctx context.Context, eventID, studentID string) (*domain.AttendanceRecord, error) {
	event, err := s.eventsR.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up event: %w", err)
	}
	if event == nil {
		return nil, fmt.Errorf("%w: event %s", domain.ErrNotFound, eventID)
	}
	return s.checkIn(ctx, event, studentID)
}

// CheckInByQRToken resolves the scanned QR payload to its event. The token
// identifies the event only; the student comes from the session.
func (s *ledgerService) CheckInByQRToken(ctx context.Context, qrToken, studentID string) (*domain.AttendanceRecord, error) {
	event, err := s.eventsR.GetByQRToken(ctx, qrToken)
	if err != nil {
		return nil, fmt.Errorf("failed to look up event: %w", err)
	}
	if event == nil {
		return nil, fmt.Errorf("%w: unrecognized check-in code", domain.ErrNotFound)
	}
	return s.checkIn(ctx, event, studentID)
}

func (s *ledgerService) checkIn(ctx context.Context, event *domain.Event, studentID string) (*domain.AttendanceRecord, error) {
	rec, created, err := s.records.InsertPresentIfAbsent(ctx, event.ID, studentID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to record check-in: %w", err)
	}
	if !created {
		// Repeat scan of the same code: return the record unchanged.
		return rec, nil
	}

	metrics.CheckIns.Inc()
	checkedAt := time.Now()
	if rec.RecordedAt != nil {
		checkedAt = *rec.RecordedAt
	}
	if err := s.bus.Publish(ctx, events.StudentCheckedIn, events.StudentCheckedInEvent{
		EventID:   event.ID,
		StudentID: studentID,
		RecordID:  rec.ID,
		CheckedAt: checkedAt,
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish check-in event", "error", err, "record_id", rec.ID)
	}
	return rec, nil
}

// SynthesizeAbsences creates absent records for every listed student that
// has no record for the event. Students with an existing record, present or
// absent, are skipped, which is what makes finalize safe to repeat.
func (s *ledgerService) SynthesizeAbsences(ctx context.Context, event *domain.Event, students []domain.User) (int, error) {
	byID := make(map[string]domain.User, len(students))
	ids := make([]string, 0, len(students))
	for _, st := range students {
		byID[st.ID] = st
		ids = append(ids, st.ID)
	}

	marked, err := s.records.InsertAbsentees(ctx, event.ID, ids, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to synthesize absences: %w", err)
	}

	metrics.AbsencesSynthesized.Add(float64(len(marked)))
	for _, sid := range marked {
		st := byID[sid]
		if err := s.bus.Publish(ctx, events.AbsenceMarked, events.AbsenceMarkedEvent{
			EventID:       event.ID,
			EventTitle:    event.Title,
			StudentID:     sid,
			StudentEmail:  st.Email,
			StudentName:   st.Name,
			PenaltyAmount: event.PenaltyAmount,
		}); err != nil {
			logger.ErrorContext(ctx, "Failed to publish absence event", "error", err, "student_id", sid)
		}
	}
	return len(marked), nil
}

func (s *ledgerService) RecordsForStudent(ctx context.Context, studentID string) ([]domain.AttendanceRecord, error) {
	return s.records.ListByStudent(ctx, studentID)
}

// RecordsForEvent joins each record with the student's display name. A
// missing student renders as a placeholder rather than failing the sheet.
func (s *ledgerService) RecordsForEvent(ctx context.Context, eventID string) ([]domain.EventAttendanceEntry, error) {
	recs, err := s.records.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}

	names := make(map[string]string, len(recs))
	entries := make([]domain.EventAttendanceEntry, 0, len(recs))
	for _, rec := range recs {
		name, ok := names[rec.StudentID]
		if !ok {
			student, err := s.users.FindByID(ctx, rec.StudentID)
			if err != nil || student == nil {
				if err != nil {
					logger.WarnContext(ctx, "Failed to resolve student name", "error", err, "student_id", rec.StudentID)
				}
				name = unknownStudentName
			} else {
				name = student.Name
			}
			names[rec.StudentID] = name
		}
		entries = append(entries, domain.EventAttendanceEntry{Record: rec, StudentName: name})
	}
	return entries, nil
}

func (s *ledgerService) OutstandingFines(ctx context.Context, studentID string) ([]domain.OutstandingFine, error) {
	return s.records.ListOutstandingFines(ctx, studentID)
}

// SettleFine marks a fine paid. actorStudentID, when non-empty, restricts
// settlement to the record's own student; faculty callers pass "".
func (s *ledgerService) SettleFine(ctx context.Context, recordID, actorStudentID string) error {
	rec, err := s.records.GetByID(ctx, recordID)
	if err != nil {
		return fmt.Errorf("failed to look up record: %w", err)
	}
	if rec == nil {
		return fmt.Errorf("%w: record %s", domain.ErrNotFound, recordID)
	}
	if actorStudentID != "" && rec.StudentID != actorStudentID {
		// Same failure as an unknown id so record ids can't be probed.
		return fmt.Errorf("%w: record %s", domain.ErrNotFound, recordID)
	}
	if rec.PenaltyPaid {
		return nil
	}

	event, err := s.eventsR.GetByID(ctx, rec.EventID)
	if err != nil {
		return fmt.Errorf("failed to look up event: %w", err)
	}
	if event != nil && event.IsRequired && event.PenaltyAmount > 0 && rec.Status == domain.AttendanceAbsent {
		receipt, err := s.charger.Charge(ctx, event.PenaltyAmount, fmt.Sprintf("Absentee fine: %s", event.Title))
		if err != nil {
			return fmt.Errorf("failed to collect payment: %w", err)
		}
		logger.InfoContext(ctx, "Fine payment collected", "record_id", recordID, "receipt", receipt)
	}

	updated, err := s.records.MarkPaid(ctx, recordID)
	if err != nil {
		return fmt.Errorf("failed to settle fine: %w", err)
	}
	if !updated {
		// Raced with another settlement; already paid is a no-op.
		return nil
	}

	metrics.FinesSettled.Inc()
	if err := s.bus.Publish(ctx, events.FineSettled, events.FineSettledEvent{
		RecordID:  recordID,
		StudentID: rec.StudentID,
		SettledAt: time.Now(),
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish fine settled event", "error", err, "record_id", recordID)
	}
	return nil
}
