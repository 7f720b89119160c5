package postgres

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type RateLimitRepo interface {
	CheckRateLimit(ctx context.Context, key string, requests int, window time.Duration) (bool, error)
	CleanupExpired(ctx context.Context) (int64, error)
}

type RateLimitRepoImpl struct{ pool *pgxpool.Pool }

func NewRateLimitRepo(pool *pgxpool.Pool) *RateLimitRepoImpl {
	return &RateLimitRepoImpl{pool: pool}
}

// CheckRateLimit implements a fixed-window counter keyed on a hash of the
// caller-supplied key. It fails open on database errors: locking everyone
// out of login over a transient DB hiccup is worse than a window of
// unthrottled attempts.
func (r *RateLimitRepoImpl) CheckRateLimit(ctx context.Context, key string, requests int, window time.Duration) (bool, error) {
	hasher := sha256.New()
	hasher.Write([]byte(key))
	hashedKey := fmt.Sprintf("%x", hasher.Sum(nil))

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	// A fresh window starts at now; the stored window only resets once it
	// has aged past now-window, otherwise the count keeps accumulating.
	now := time.Now()
	threshold := now.Add(-window)

	const q = `
		INSERT INTO rate_limits (rl_key, count, window_start, expires_at)
		VALUES ($1, 1, $2, $4)
		ON CONFLICT (rl_key) DO UPDATE SET
			count = CASE
				WHEN rate_limits.window_start < $3 THEN 1
				ELSE rate_limits.count + 1
			END,
			window_start = CASE
				WHEN rate_limits.window_start < $3 THEN $2
				ELSE rate_limits.window_start
			END,
			expires_at = $4
		RETURNING count`

	var count int
	if err := r.pool.QueryRow(ctx, q, hashedKey, now, threshold, now.Add(time.Hour)).Scan(&count); err != nil {
		return true, nil
	}

	return count <= requests, nil
}

func (r *RateLimitRepoImpl) CleanupExpired(ctx context.Context) (int64, error) {
	const q = `DELETE FROM rate_limits WHERE expires_at < now()`

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected(), nil
}

var _ RateLimitRepo = (*RateLimitRepoImpl)(nil)
