package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/campusops/attendance-portal/internal/domain"
	"github.com/campusops/attendance-portal/internal/service"
	"github.com/campusops/attendance-portal/pkg/events"
)

type ledgerStack struct {
	ledger  service.LedgerService
	users   *mockUserRepo
	events  *mockEventRepo
	records *mockAttendanceRepo
	charger *mockCharger
	bus     *mockBus
}

func newLedgerStack() *ledgerStack {
	users := newMockUserRepo()
	eventsRepo := newMockEventRepo()
	records := newMockAttendanceRepo(eventsRepo)
	charger := &mockCharger{}
	bus := &mockBus{}
	return &ledgerStack{
		ledger:  service.NewLedgerService(records, eventsRepo, users, charger, bus),
		users:   users,
		events:  eventsRepo,
		records: records,
		charger: charger,
		bus:     bus,
	}
}

func (s *ledgerStack) addStudent(t *testing.T, name, email string) *domain.User {
	t.Helper()
	u, err := s.users.Create(context.Background(), name, email, "hash", domain.RoleStudent, "", "")
	if err != nil {
		t.Fatalf("create student: %v", err)
	}
	return u
}

func (s *ledgerStack) addEvent(t *testing.T, required bool, penalty float64) *domain.Event {
	t.Helper()
	e, err := s.events.Create(context.Background(), "Assembly", "", time.Now().Add(time.Hour), "Gym", "faculty-1", required, penalty)
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	return e
}

func TestCheckInIsIdempotent(t *testing.T) {
	s := newLedgerStack()
	ctx := context.Background()
	student := s.addStudent(t, "Troy", "troy@campus.edu")
	event := s.addEvent(t, true, 150)

	first, err := s.ledger.CheckIn(ctx, event.ID, student.ID)
	if err != nil {
		t.Fatalf("check-in: %v", err)
	}
	if first.Status != domain.AttendancePresent {
		t.Fatalf("status = %q, want present", first.Status)
	}

	second, err := s.ledger.CheckIn(ctx, event.ID, student.ID)
	if err != nil {
		t.Fatalf("repeat check-in: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("repeat check-in returned a different record: %q vs %q", second.ID, first.ID)
	}

	recs, _ := s.records.ListByEvent(ctx, event.ID)
	if len(recs) != 1 {
		t.Fatalf("record count = %d, want 1", len(recs))
	}
	if got := s.bus.published(events.StudentCheckedIn); got != 1 {
		t.Fatalf("published %d check-in events, want 1", got)
	}
}

func TestCheckInUnknownEvent(t *testing.T) {
	s := newLedgerStack()
	student := s.addStudent(t, "Troy", "troy@campus.edu")

	if _, err := s.ledger.CheckIn(context.Background(), "no-such-event", student.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCheckInByQRToken(t *testing.T) {
	s := newLedgerStack()
	ctx := context.Background()
	student := s.addStudent(t, "Troy", "troy@campus.edu")
	event := s.addEvent(t, false, 0)

	rec, err := s.ledger.CheckInByQRToken(ctx, event.QRCodeData, student.ID)
	if err != nil {
		t.Fatalf("check-in by token: %v", err)
	}
	if rec.EventID != event.ID {
		t.Fatalf("record bound to %q, want %q", rec.EventID, event.ID)
	}

	if _, err := s.ledger.CheckInByQRToken(ctx, "bogus-token", student.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for bogus token, got %v", err)
	}
}

func TestSynthesizeAbsencesSkipsExistingRecords(t *testing.T) {
	s := newLedgerStack()
	ctx := context.Background()
	present := s.addStudent(t, "Present", "present@campus.edu")
	absentA := s.addStudent(t, "Absent A", "a@campus.edu")
	absentB := s.addStudent(t, "Absent B", "b@campus.edu")
	event := s.addEvent(t, true, 150)

	if _, err := s.ledger.CheckIn(ctx, event.ID, present.ID); err != nil {
		t.Fatalf("check-in: %v", err)
	}

	students, _ := s.users.ListStudents(ctx)
	count, err := s.ledger.SynthesizeAbsences(ctx, event, students)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if count != 2 {
		t.Fatalf("synthesized %d absences, want 2", count)
	}

	// Overlapping call creates nothing new.
	count, err = s.ledger.SynthesizeAbsences(ctx, event, students)
	if err != nil {
		t.Fatalf("repeat synthesize: %v", err)
	}
	if count != 0 {
		t.Fatalf("repeat synthesized %d absences, want 0", count)
	}

	for _, sid := range []string{absentA.ID, absentB.ID} {
		recs, _ := s.records.ListByStudent(ctx, sid)
		if len(recs) != 1 || recs[0].Status != domain.AttendanceAbsent || recs[0].PenaltyPaid {
			t.Fatalf("student %s: unexpected records %+v", sid, recs)
		}
	}
	presentRecs, _ := s.records.ListByStudent(ctx, present.ID)
	if len(presentRecs) != 1 || presentRecs[0].Status != domain.AttendancePresent {
		t.Fatalf("present student gained extra records: %+v", presentRecs)
	}
	if got := s.bus.published(events.AbsenceMarked); got != 2 {
		t.Fatalf("published %d absence events, want 2", got)
	}
}

func TestRecordsForEventJoinsStudentNames(t *testing.T) {
	s := newLedgerStack()
	ctx := context.Background()
	student := s.addStudent(t, "Troy Justine Au", "troy@campus.edu")
	event := s.addEvent(t, true, 150)

	if _, err := s.ledger.CheckIn(ctx, event.ID, student.ID); err != nil {
		t.Fatalf("check-in: %v", err)
	}
	// A record whose student no longer resolves.
	if _, _, err := s.records.InsertPresentIfAbsent(ctx, event.ID, "ghost-student", time.Now()); err != nil {
		t.Fatalf("insert ghost record: %v", err)
	}

	entries, err := s.ledger.RecordsForEvent(ctx, event.ID)
	if err != nil {
		t.Fatalf("records for event: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entry count = %d, want 2", len(entries))
	}

	names := map[string]string{}
	for _, e := range entries {
		names[e.Record.StudentID] = e.StudentName
	}
	if names[student.ID] != "Troy Justine Au" {
		t.Fatalf("student name = %q", names[student.ID])
	}
	if names["ghost-student"] != "Unknown Student" {
		t.Fatalf("ghost name = %q, want placeholder", names["ghost-student"])
	}
}

func TestSettleFine(t *testing.T) {
	s := newLedgerStack()
	ctx := context.Background()
	student := s.addStudent(t, "Troy", "troy@campus.edu")
	event := s.addEvent(t, true, 150)

	students, _ := s.users.ListStudents(ctx)
	if _, err := s.ledger.SynthesizeAbsences(ctx, event, students); err != nil {
		t.Fatalf("synthesize: %v", err)
	}

	fines, err := s.ledger.OutstandingFines(ctx, student.ID)
	if err != nil {
		t.Fatalf("fines: %v", err)
	}
	if len(fines) != 1 || fines[0].PenaltyAmount != 150 {
		t.Fatalf("fines view = %+v, want one 150.00 entry", fines)
	}

	if err := s.ledger.SettleFine(ctx, fines[0].RecordID, student.ID); err != nil {
		t.Fatalf("settle: %v", err)
	}

	fines, _ = s.ledger.OutstandingFines(ctx, student.ID)
	if len(fines) != 0 {
		t.Fatalf("fines view still has %d entries after settlement", len(fines))
	}
	rec, _ := s.records.GetByID(ctx, "rec-1")
	if rec == nil || !rec.PenaltyPaid {
		t.Fatalf("record not marked paid: %+v", rec)
	}
	if len(s.charger.charges) != 1 || s.charger.charges[0] != 150 {
		t.Fatalf("charges = %v, want one for 150.00", s.charger.charges)
	}

	// Second settlement is a no-op: no second charge, no second event.
	if err := s.ledger.SettleFine(ctx, rec.ID, student.ID); err != nil {
		t.Fatalf("repeat settle: %v", err)
	}
	if len(s.charger.charges) != 1 {
		t.Fatalf("repeat settle charged again: %v", s.charger.charges)
	}
	if got := s.bus.published(events.FineSettled); got != 1 {
		t.Fatalf("published %d fine.settled events, want 1", got)
	}
}

func TestSettleFineOwnership(t *testing.T) {
	s := newLedgerStack()
	ctx := context.Background()
	victim := s.addStudent(t, "Victim", "v@campus.edu")
	other := s.addStudent(t, "Other", "o@campus.edu")
	event := s.addEvent(t, true, 150)

	students := []domain.User{*victim}
	if _, err := s.ledger.SynthesizeAbsences(ctx, event, students); err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	fines, _ := s.ledger.OutstandingFines(ctx, victim.ID)

	// Another student cannot settle (or probe) someone else's record.
	if err := s.ledger.SettleFine(ctx, fines[0].RecordID, other.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// A faculty-scoped call (no actor restriction) succeeds.
	if err := s.ledger.SettleFine(ctx, fines[0].RecordID, ""); err != nil {
		t.Fatalf("unrestricted settle: %v", err)
	}
}

func TestSettleFineUnknownRecord(t *testing.T) {
	s := newLedgerStack()
	if err := s.ledger.SettleFine(context.Background(), "no-such-record", ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestChargeFailureLeavesFineUnpaid(t *testing.T) {
	s := newLedgerStack()
	ctx := context.Background()
	student := s.addStudent(t, "Troy", "troy@campus.edu")
	event := s.addEvent(t, true, 150)

	students, _ := s.users.ListStudents(ctx)
	if _, err := s.ledger.SynthesizeAbsences(ctx, event, students); err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	fines, _ := s.ledger.OutstandingFines(ctx, student.ID)

	s.charger.err = errors.New("card declined")
	if err := s.ledger.SettleFine(ctx, fines[0].RecordID, student.ID); err == nil {
		t.Fatal("expected settlement to fail when the charge fails")
	}

	fines, _ = s.ledger.OutstandingFines(ctx, student.ID)
	if len(fines) != 1 {
		t.Fatalf("fine disappeared despite failed charge: %+v", fines)
	}
}
