package service_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/campusops/attendance-portal/internal/domain"
)

// ---------- Mocks ----------

type mockUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[string]*domain.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{nextID: 1, users: make(map[string]*domain.User)}
}

func (m *mockUserRepo) Create(_ context.Context, name, email, passwordHash string, role domain.Role, identifier, details string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return nil, domain.ErrConflict
		}
	}
	u := &domain.User{
		ID:           fmt.Sprintf("user-%d", m.nextID),
		Name:         name,
		Email:        email,
		Role:         role,
		Identifier:   identifier,
		Details:      details,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	m.nextID++
	m.users[u.ID] = u
	return u, nil
}

func (m *mockUserRepo) FindByEmailAndRole(_ context.Context, email string, role domain.Role) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email && u.Role == role {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, nil
}

func (m *mockUserRepo) ListStudents(_ context.Context) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var students []domain.User
	for _, u := range m.users {
		if u.Role == domain.RoleStudent {
			students = append(students, *u)
		}
	}
	return students, nil
}

type mockEventRepo struct {
	mu     sync.Mutex
	nextID int
	events map[string]*domain.Event

	// completeRaced makes MarkCompleted behave as if a concurrent finalize
	// committed first: the event ends up completed but no row is reported.
	completeRaced bool
}

func newMockEventRepo() *mockEventRepo {
	return &mockEventRepo{nextID: 1, events: make(map[string]*domain.Event)}
}

func (m *mockEventRepo) Create(_ context.Context, title, description string, date time.Time, venue, createdBy string, isRequired bool, penaltyAmount float64) (*domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := &domain.Event{
		ID:            fmt.Sprintf("event-%d", m.nextID),
		Title:         title,
		Description:   description,
		Date:          date,
		Venue:         venue,
		CreatedBy:     createdBy,
		IsRequired:    isRequired,
		PenaltyAmount: penaltyAmount,
		QRCodeData:    fmt.Sprintf("EVT-token-%d", m.nextID),
		Status:        domain.EventUpcoming,
		CreatedAt:     time.Now(),
	}
	m.nextID++
	m.events[e.ID] = e
	return e, nil
}

func (m *mockEventRepo) GetByID(_ context.Context, id string) (*domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.events[id]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, nil
}

func (m *mockEventRepo) GetByQRToken(_ context.Context, token string) (*domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.QRCodeData == token {
			copied := *e
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockEventRepo) List(_ context.Context) ([]domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var es []domain.Event
	for _, e := range m.events {
		es = append(es, *e)
	}
	return es, nil
}

func (m *mockEventRepo) MarkCompleted(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok || e.Status != domain.EventUpcoming {
		return false, nil
	}
	e.Status = domain.EventCompleted
	if m.completeRaced {
		return false, nil
	}
	return true, nil
}

type mockAttendanceRepo struct {
	mu      sync.Mutex
	nextID  int
	records map[string]*domain.AttendanceRecord          // by record id
	byPair  map[string]*domain.AttendanceRecord          // eventID|studentID
	events  *mockEventRepo                               // for the fines join
}

func newMockAttendanceRepo(events *mockEventRepo) *mockAttendanceRepo {
	return &mockAttendanceRepo{
		nextID:  1,
		records: make(map[string]*domain.AttendanceRecord),
		byPair:  make(map[string]*domain.AttendanceRecord),
		events:  events,
	}
}

func pairKey(eventID, studentID string) string { return eventID + "|" + studentID }

func (m *mockAttendanceRepo) InsertPresentIfAbsent(_ context.Context, eventID, studentID string, at time.Time) (*domain.AttendanceRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.byPair[pairKey(eventID, studentID)]; ok {
		copied := *rec
		return &copied, false, nil
	}
	rec := &domain.AttendanceRecord{
		ID:         fmt.Sprintf("rec-%d", m.nextID),
		EventID:    eventID,
		StudentID:  studentID,
		Status:     domain.AttendancePresent,
		RecordedAt: &at,
	}
	m.nextID++
	m.records[rec.ID] = rec
	m.byPair[pairKey(eventID, studentID)] = rec
	copied := *rec
	return &copied, true, nil
}

func (m *mockAttendanceRepo) InsertAbsentees(_ context.Context, eventID string, studentIDs []string, at time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var marked []string
	for _, sid := range studentIDs {
		if _, ok := m.byPair[pairKey(eventID, sid)]; ok {
			continue
		}
		rec := &domain.AttendanceRecord{
			ID:         fmt.Sprintf("rec-%d", m.nextID),
			EventID:    eventID,
			StudentID:  sid,
			Status:     domain.AttendanceAbsent,
			RecordedAt: &at,
		}
		m.nextID++
		m.records[rec.ID] = rec
		m.byPair[pairKey(eventID, sid)] = rec
		marked = append(marked, sid)
	}
	return marked, nil
}

func (m *mockAttendanceRepo) GetByID(_ context.Context, id string) (*domain.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[id]; ok {
		copied := *rec
		return &copied, nil
	}
	return nil, nil
}

func (m *mockAttendanceRepo) ListByStudent(_ context.Context, studentID string) ([]domain.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var recs []domain.AttendanceRecord
	for _, rec := range m.records {
		if rec.StudentID == studentID {
			recs = append(recs, *rec)
		}
	}
	return recs, nil
}

func (m *mockAttendanceRepo) ListByEvent(_ context.Context, eventID string) ([]domain.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var recs []domain.AttendanceRecord
	for _, rec := range m.records {
		if rec.EventID == eventID {
			recs = append(recs, *rec)
		}
	}
	return recs, nil
}

func (m *mockAttendanceRepo) ListOutstandingFines(_ context.Context, studentID string) ([]domain.OutstandingFine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var fines []domain.OutstandingFine
	for _, rec := range m.records {
		if rec.StudentID != studentID || rec.Status != domain.AttendanceAbsent || rec.PenaltyPaid {
			continue
		}
		e, ok := m.events.events[rec.EventID]
		if !ok || !e.IsRequired || e.PenaltyAmount <= 0 {
			continue
		}
		fines = append(fines, domain.OutstandingFine{
			RecordID:      rec.ID,
			EventID:       e.ID,
			EventTitle:    e.Title,
			EventDate:     e.Date,
			PenaltyAmount: e.PenaltyAmount,
			RecordedAt:    rec.RecordedAt,
		})
	}
	return fines, nil
}

func (m *mockAttendanceRepo) MarkPaid(_ context.Context, recordID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[recordID]
	if !ok || rec.PenaltyPaid {
		return false, nil
	}
	rec.PenaltyPaid = true
	return true, nil
}

type mockSessionStore struct {
	mu       sync.Mutex
	sessions map[string]string
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{sessions: make(map[string]string)}
}

func (m *mockSessionStore) Put(_ context.Context, tokenID, userID string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[tokenID] = userID
	return nil
}

func (m *mockSessionStore) Get(_ context.Context, tokenID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[tokenID], nil
}

func (m *mockSessionStore) Delete(_ context.Context, tokenID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, tokenID)
	return nil
}

type mockBus struct {
	mu       sync.Mutex
	subjects []string
}

func (m *mockBus) Publish(_ context.Context, subject string, _ interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects = append(m.subjects, subject)
	return nil
}

func (m *mockBus) Close() error { return nil }

func (m *mockBus) published(subject string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.subjects {
		if s == subject {
			n++
		}
	}
	return n
}

type mockCharger struct {
	mu      sync.Mutex
	charges []float64
	err     error
}

func (m *mockCharger) Charge(_ context.Context, amount float64, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.charges = append(m.charges, amount)
	return fmt.Sprintf("receipt-%d", len(m.charges)), nil
}
