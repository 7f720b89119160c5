package service

import (
	"context"
	"fmt"
	"time"

	"github.com/campusops/attendance-portal/internal/domain"
	"github.com/campusops/attendance-portal/internal/repo/postgres"
	"github.com/campusops/attendance-portal/pkg/events"
	"github.com/campusops/attendance-portal/pkg/logger"
	"github.com/campusops/attendance-portal/pkg/metrics"
)

// CatalogService owns event lifecycle: creation in the upcoming state and
// the one-way, idempotent transition to completed.
type CatalogService interface {
	ListEvents(ctx context.Context) ([]domain.Event, error)
	CreateEvent(ctx context.Context, createdBy string, req *domain.CreateEventRequest) (*domain.Event, error)
	GetEvent(ctx context.Context, id string) (*domain.Event, error)
	Finalize(ctx context.Context, eventID string) error
}

type catalogService struct {
	eventsR postgres.EventRepo
	users   postgres.UserRepo
	ledger  LedgerService
	bus     events.Publisher
}

func NewCatalogService(eventsRepo postgres.EventRepo, users postgres.UserRepo, ledger LedgerService, bus events.Publisher) CatalogService {
	return &catalogService{
		eventsR: eventsRepo,
		users:   users,
		ledger:  ledger,
		bus:     bus,
	}
}

func (s *catalogService) ListEvents(ctx context.Context) ([]domain.Event, error) {
	return s.eventsR.List(ctx)
}

func (s *catalogService) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	event, err := s.eventsR.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to look up event: %w", err)
	}
	if event == nil {
		return nil, fmt.Errorf("%w: event %s", domain.ErrNotFound, id)
	}
	return event, nil
}

func (s *catalogService) CreateEvent(ctx context.Context, createdBy string, req *domain.CreateEventRequest) (*domain.Event, error) {
	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: date must be RFC 3339", domain.ErrInvalidInput)
	}
	if req.PenaltyAmount < 0 {
		return nil, fmt.Errorf("%w: penalty amount must not be negative", domain.ErrInvalidInput)
	}

	creator, err := s.users.FindByID(ctx, createdBy)
	if err != nil {
		return nil, fmt.Errorf("failed to look up creator: %w", err)
	}
	if creator == nil || creator.Role != domain.RoleFaculty {
		return nil, fmt.Errorf("%w: events can only be created by faculty", domain.ErrInvalidInput)
	}

	// Penalty amount is meaningless for optional events; store zero so the
	// fines view never has to special-case it.
	penalty := req.PenaltyAmount
	if !req.IsRequired {
		penalty = 0
	}

	event, err := s.eventsR.Create(ctx, req.Title, req.Description, date, req.Venue, createdBy, req.IsRequired, penalty)
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	if err := s.bus.Publish(ctx, events.EventCreated, events.EventCreatedEvent{
		EventID:    event.ID,
		Title:      event.Title,
		Date:       event.Date,
		Venue:      event.Venue,
		IsRequired: event.IsRequired,
		CreatedBy:  event.CreatedBy,
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish event created event", "error", err, "event_id", event.ID)
	}

	return event, nil
}

// Finalize closes an event. The status guard makes it idempotent: absences
// are only synthesized while the event is still upcoming, and synthesis
// itself skips students that already have a record, so repeating the call
// can never double-penalize.
func (s *catalogService) Finalize(ctx context.Context, eventID string) error {
	event, err := s.eventsR.GetByID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to look up event: %w", err)
	}
	if event == nil {
		return fmt.Errorf("%w: event %s", domain.ErrNotFound, eventID)
	}
	if event.Status != domain.EventUpcoming {
		return nil
	}

	absentees := 0
	if event.IsRequired {
		students, err := s.users.ListStudents(ctx)
		if err != nil {
			return fmt.Errorf("failed to list students: %w", err)
		}
		absentees, err = s.ledger.SynthesizeAbsences(ctx, event, students)
		if err != nil {
			return err
		}
	}

	// Completed unconditionally, required or not, so faculty can see the
	// event is over. A concurrent finalize may have won the update; the
	// absence inserts above are conflict-free either way.
	completed, err := s.eventsR.MarkCompleted(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to complete event: %w", err)
	}
	if !completed {
		// Lost the race to a concurrent finalize; the winner announces it.
		return nil
	}

	metrics.EventsFinalized.Inc()
	if err := s.bus.Publish(ctx, events.EventFinalized, events.EventFinalizedEvent{
		EventID:       event.ID,
		Title:         event.Title,
		AbsenteeCount: absentees,
		FinalizedAt:   time.Now(),
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish event finalized event", "error", err, "event_id", event.ID)
	}

	logger.InfoContext(ctx, "Event finalized", "event_id", event.ID, "absentees", absentees)
	return nil
}
