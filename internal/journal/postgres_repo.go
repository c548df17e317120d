package journal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const maxListLimit = 200

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

// Record inserts s, filling in ID and CreatedAt when they are empty.
func (r *PostgresRepo) Record(ctx context.Context, s *Submission) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if len(s.Arguments) == 0 {
		s.Arguments = []byte("[]")
	}

	const sql = `
		INSERT INTO submissions (id, function, arguments, amount, caller, status, tx_hash, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.db.QueryRow(timeoutCtx, sql,
		s.ID, s.Function, s.Arguments, s.Amount, s.Caller, s.Status, s.TxHash, s.Error,
	).Scan(&s.CreatedAt)
}

// ListRecent returns the newest submissions first.
func (r *PostgresRepo) ListRecent(ctx context.Context, limit int) ([]Submission, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = 50
	}

	const sql = `
		SELECT id, function, arguments, amount, caller, status, tx_hash, error, created_at
		FROM submissions
		ORDER BY created_at DESC
		LIMIT $1`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.db.Query(timeoutCtx, sql, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Submission{}
	for rows.Next() {
		var s Submission
		if err := rows.Scan(
			&s.ID, &s.Function, &s.Arguments, &s.Amount, &s.Caller,
			&s.Status, &s.TxHash, &s.Error, &s.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Ping reports whether the database is reachable.
func (r *PostgresRepo) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
