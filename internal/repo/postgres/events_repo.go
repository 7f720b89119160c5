package postgres

import (
	"context"
	"time"

	"github.com/campusops/attendance-portal/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EventRepo interface {
	Create(ctx context.Context, title, description string, date time.Time, venue, createdBy string, isRequired bool, penaltyAmount float64) (*domain.Event, error)
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	GetByQRToken(ctx context.Context, token string) (*domain.Event, error)
	List(ctx context.Context) ([]domain.Event, error)
	MarkCompleted(ctx context.Context, id string) (bool, error)
}

type EventRepoImpl struct{ pool *pgxpool.Pool }

func NewEventRepo(pool *pgxpool.Pool) *EventRepoImpl { return &EventRepoImpl{pool: pool} }

const eventCols = `id, title, description, date, venue, created_by,
is_required, penalty_amount, qr_code_data, status, created_at`

func (r *EventRepoImpl) Create(ctx context.Context, title, description string, date time.Time, venue, createdBy string, isRequired bool, penaltyAmount float64) (*domain.Event, error) {
	const q = `INSERT INTO events (
    id, title, description, date, venue, created_by,
    is_required, penalty_amount, qr_code_data, status
  ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,'upcoming')
  RETURNING ` + eventCols

	// The QR payload is the check-in credential. Two random UUIDs keep it
	// unguessable while staying an opaque string on the wire.
	qrToken := "EVT-" + uuid.NewString() + "-" + uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var e domain.Event
	err := r.pool.QueryRow(ctx, q, uuid.NewString(), title, description, date, venue, createdBy,
		isRequired, penaltyAmount, qrToken,
	).Scan(
		&e.ID, &e.Title, &e.Description, &e.Date, &e.Venue, &e.CreatedBy,
		&e.IsRequired, &e.PenaltyAmount, &e.QRCodeData, &e.Status, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EventRepoImpl) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	const q = `SELECT ` + eventCols + ` FROM events WHERE id=$1`
	return r.getOne(ctx, q, id)
}

func (r *EventRepoImpl) GetByQRToken(ctx context.Context, token string) (*domain.Event, error) {
	const q = `SELECT ` + eventCols + ` FROM events WHERE qr_code_data=$1`
	return r.getOne(ctx, q, token)
}

func (r *EventRepoImpl) getOne(ctx context.Context, q string, arg any) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var e domain.Event
	err := r.pool.QueryRow(ctx, q, arg).Scan(
		&e.ID, &e.Title, &e.Description, &e.Date, &e.Venue, &e.CreatedBy,
		&e.IsRequired, &e.PenaltyAmount, &e.QRCodeData, &e.Status, &e.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EventRepoImpl) List(ctx context.Context) ([]domain.Event, error) {
	const q = `SELECT ` + eventCols + ` FROM events ORDER BY date DESC`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var es []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(
			&e.ID, &e.Title, &e.Description, &e.Date, &e.Venue, &e.CreatedBy,
			&e.IsRequired, &e.PenaltyAmount, &e.QRCodeData, &e.Status, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		es = append(es, e)
	}
	return es, rows.Err()
}

// MarkCompleted flips an upcoming event to completed. The status condition
// makes concurrent finalize calls serialize: exactly one caller sees a
// rows-affected count of 1 and owns absence synthesis.
func (r *EventRepoImpl) MarkCompleted(ctx context.Context, id string) (bool, error) {
	const q = `UPDATE events SET status='completed' WHERE id=$1 AND status='upcoming'`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

var _ EventRepo = (*EventRepoImpl)(nil)
