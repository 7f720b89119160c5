package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/campusops/attendance-portal/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepo interface {
	Create(ctx context.Context, name, email, passwordHash string, role domain.Role, identifier, details string) (*domain.User, error)
	FindByEmailAndRole(ctx context.Context, email string, role domain.Role) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	ListStudents(ctx context.Context) ([]domain.User, error)
}

type UserRepoImpl struct{ pool *pgxpool.Pool }

func NewUserRepo(pool *pgxpool.Pool) *UserRepoImpl { return &UserRepoImpl{pool: pool} }

const userCols = `id, name, email, role, identifier, details, password_hash, created_at`

const uniqueViolation = "23505"

func (r *UserRepoImpl) Create(ctx context.Context, name, email, passwordHash string, role domain.Role, identifier, details string) (*domain.User, error) {
	const q = `
INSERT INTO users (id, name, email, role, identifier, details, password_hash)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING ` + userCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var u domain.User
	err := r.pool.QueryRow(ctx, q, uuid.NewString(), name, email, role, identifier, details, passwordHash).Scan(
		&u.ID, &u.Name, &u.Email, &u.Role, &u.Identifier, &u.Details, &u.PasswordHash, &u.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, domain.ErrConflict
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepoImpl) FindByEmailAndRole(ctx context.Context, email string, role domain.Role) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE email=$1 AND role=$2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var u domain.User
	err := r.pool.QueryRow(ctx, q, email, role).Scan(
		&u.ID, &u.Name, &u.Email, &u.Role, &u.Identifier, &u.Details, &u.PasswordHash, &u.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepoImpl) FindByID(ctx context.Context, id string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var u domain.User
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&u.ID, &u.Name, &u.Email, &u.Role, &u.Identifier, &u.Details, &u.PasswordHash, &u.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepoImpl) ListStudents(ctx context.Context) ([]domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE role='student' ORDER BY name`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(
			&u.ID, &u.Name, &u.Email, &u.Role, &u.Identifier, &u.Details, &u.PasswordHash, &u.CreatedAt,
		); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

var _ UserRepo = (*UserRepoImpl)(nil)
