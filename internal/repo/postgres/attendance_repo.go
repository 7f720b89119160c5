package postgres

import (
	"context"
	"time"

	"github.com/campusops/attendance-portal/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AttendanceRepo interface {
	// InsertPresentIfAbsent is the check-then-act primitive for check-in.
	// When a record already exists for the pair it is returned unchanged
	// and created is false.
	InsertPresentIfAbsent(ctx context.Context, eventID, studentID string, at time.Time) (rec *domain.AttendanceRecord, created bool, err error)
	// InsertAbsentees creates absent records for every listed student that
	// has no record yet and reports which students were actually marked.
	InsertAbsentees(ctx context.Context, eventID string, studentIDs []string, at time.Time) ([]string, error)
	GetByID(ctx context.Context, id string) (*domain.AttendanceRecord, error)
	ListByStudent(ctx context.Context, studentID string) ([]domain.AttendanceRecord, error)
	ListByEvent(ctx context.Context, eventID string) ([]domain.AttendanceRecord, error)
	ListOutstandingFines(ctx context.Context, studentID string) ([]domain.OutstandingFine, error)
	MarkPaid(ctx context.Context, recordID string) (bool, error)
}

type AttendanceRepoImpl struct{ pool *pgxpool.Pool }

func NewAttendanceRepo(pool *pgxpool.Pool) *AttendanceRepoImpl {
	return &AttendanceRepoImpl{pool: pool}
}

const recordCols = `id, event_id, student_id, status, recorded_at, penalty_paid`

func (r *AttendanceRepoImpl) InsertPresentIfAbsent(ctx context.Context, eventID, studentID string, at time.Time) (*domain.AttendanceRecord, bool, error) {
	const ins = `INSERT INTO attendance_records (id, event_id, student_id, status, recorded_at)
VALUES ($1,$2,$3,'present',$4)
ON CONFLICT (event_id, student_id) DO NOTHING
RETURNING ` + recordCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var rec domain.AttendanceRecord
	err := r.pool.QueryRow(ctx, ins, uuid.NewString(), eventID, studentID, at).Scan(
		&rec.ID, &rec.EventID, &rec.StudentID, &rec.Status, &rec.RecordedAt, &rec.PenaltyPaid,
	)
	if err == nil {
		return &rec, true, nil
	}
	if err != pgx.ErrNoRows {
		return nil, false, err
	}

	// Lost the race or scanned twice: hand back the existing record.
	const sel = `SELECT ` + recordCols + ` FROM attendance_records WHERE event_id=$1 AND student_id=$2`
	err = r.pool.QueryRow(ctx, sel, eventID, studentID).Scan(
		&rec.ID, &rec.EventID, &rec.StudentID, &rec.Status, &rec.RecordedAt, &rec.PenaltyPaid,
	)
	if err != nil {
		return nil, false, err
	}
	return &rec, false, nil
}

func (r *AttendanceRepoImpl) InsertAbsentees(ctx context.Context, eventID string, studentIDs []string, at time.Time) ([]string, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}

	ids := make([]string, len(studentIDs))
	for i := range studentIDs {
		ids[i] = uuid.NewString()
	}

	const q = `INSERT INTO attendance_records (id, event_id, student_id, status, recorded_at)
SELECT t.id, $1, t.student_id, 'absent', $2
FROM unnest($3::text[], $4::text[]) AS t(id, student_id)
ON CONFLICT (event_id, student_id) DO NOTHING
RETURNING student_id`

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, eventID, at, ids, studentIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var marked []string
	for rows.Next() {
		var sid string
		if err := rows.Scan(&sid); err != nil {
			return nil, err
		}
		marked = append(marked, sid)
	}
	return marked, rows.Err()
}

func (r *AttendanceRepoImpl) GetByID(ctx context.Context, id string) (*domain.AttendanceRecord, error) {
	const q = `SELECT ` + recordCols + ` FROM attendance_records WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var rec domain.AttendanceRecord
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&rec.ID, &rec.EventID, &rec.StudentID, &rec.Status, &rec.RecordedAt, &rec.PenaltyPaid,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *AttendanceRepoImpl) ListByStudent(ctx context.Context, studentID string) ([]domain.AttendanceRecord, error) {
	const q = `SELECT ` + recordCols + ` FROM attendance_records WHERE student_id=$1 ORDER BY recorded_at DESC NULLS LAST`
	return r.list(ctx, q, studentID)
}

func (r *AttendanceRepoImpl) ListByEvent(ctx context.Context, eventID string) ([]domain.AttendanceRecord, error) {
	const q = `SELECT ` + recordCols + ` FROM attendance_records WHERE event_id=$1 ORDER BY recorded_at DESC NULLS LAST`
	return r.list(ctx, q, eventID)
}

func (r *AttendanceRepoImpl) list(ctx context.Context, q, arg string) ([]domain.AttendanceRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []domain.AttendanceRecord
	for rows.Next() {
		var rec domain.AttendanceRecord
		if err := rows.Scan(
			&rec.ID, &rec.EventID, &rec.StudentID, &rec.Status, &rec.RecordedAt, &rec.PenaltyPaid,
		); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// ListOutstandingFines computes the derived fines view on read: an unpaid
// absence on a required event with a positive penalty. No amount snapshot
// exists, so the event's current penalty terms always apply.
func (r *AttendanceRepoImpl) ListOutstandingFines(ctx context.Context, studentID string) ([]domain.OutstandingFine, error) {
	const q = `
SELECT ar.id, e.id, e.title, e.date, e.penalty_amount, ar.recorded_at
FROM attendance_records ar
JOIN events e ON e.id = ar.event_id
WHERE ar.student_id = $1
  AND ar.status = 'absent'
  AND ar.penalty_paid = FALSE
  AND e.is_required = TRUE
  AND e.penalty_amount > 0
ORDER BY e.date DESC`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fines []domain.OutstandingFine
	for rows.Next() {
		var f domain.OutstandingFine
		if err := rows.Scan(
			&f.RecordID, &f.EventID, &f.EventTitle, &f.EventDate, &f.PenaltyAmount, &f.RecordedAt,
		); err != nil {
			return nil, err
		}
		fines = append(fines, f)
	}
	return fines, rows.Err()
}

// MarkPaid is one-way; paying an already-paid record is a no-op and there
// is no unpay.
func (r *AttendanceRepoImpl) MarkPaid(ctx context.Context, recordID string) (bool, error) {
	const q = `UPDATE attendance_records SET penalty_paid=TRUE WHERE id=$1 AND penalty_paid=FALSE`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, recordID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

var _ AttendanceRepo = (*AttendanceRepoImpl)(nil)
