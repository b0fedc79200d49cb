package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotApplicable covers both "no payment carries this intent reference"
	// and "the payment is already completed". Duplicate completion signals
	// (webhook re-delivery) land here and must be treated as a no-op.
	ErrNotApplicable = errors.New("payment: not found or already completed")
	// ErrDuplicateIntent signals the intent reference is already in use.
	ErrDuplicateIntent = errors.New("payment: intent reference already exists")
)

const recordColumns = `id, user_id, consultation_id, intent_ref, amount, status::text, completed_at, created_at, updated_at`

// PGRepository implements the data access for payments. Completion is a
// single compare-and-set UPDATE on the intent reference; per-row atomicity of
// that statement is the sole concurrency-control mechanism, so it must never
// be decomposed into a read followed by a write.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Create opens a pending payment row.
func (r *PGRepository) Create(ctx context.Context, params CreateParams) (Record, error) {
	const query = `
		INSERT INTO payments (user_id, consultation_id, intent_ref, amount)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + recordColumns

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, params.UserID, params.ConsultationID, params.IntentRef, params.Amount))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Record{}, ErrDuplicateIntent
		}
		return Record{}, fmt.Errorf("payment: create: %w", err)
	}
	return rec, nil
}

// CompleteByIntent marks the payment for intentRef completed, exactly once.
// Of two concurrent calls with the same reference, the row guard guarantees
// one observes the update and the other ErrNotApplicable.
func (r *PGRepository) CompleteByIntent(ctx context.Context, intentRef string) (Record, error) {
	const query = `
		UPDATE payments
		SET status = 'completed', completed_at = now(), updated_at = now()
		WHERE intent_ref = $1 AND status = 'pending'
		RETURNING ` + recordColumns

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, intentRef))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotApplicable
		}
		return Record{}, fmt.Errorf("payment: complete by intent: %w", err)
	}
	return rec, nil
}

// ListForCaller returns the caller's payments, newest first. Admins see all.
func (r *PGRepository) ListForCaller(ctx context.Context, callerID string, callerRole string, filters ListFilters) ([]Record, error) {
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if filters.PageSize <= 0 || filters.PageSize > 100 {
		filters.PageSize = 20
	}

	const query = `
		SELECT ` + recordColumns + `
		FROM payments
		WHERE (user_id = $1 OR $2::text = 'admin')
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.pool.Query(ctx, query, callerID, callerRole, filters.PageSize, (filters.Page-1)*filters.PageSize)
	if err != nil {
		return nil, fmt.Errorf("payment: list: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0, filters.PageSize)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("payment: scan: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("payment: iterate: %w", err)
	}
	return records, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.ConsultationID,
		&rec.IntentRef,
		&rec.Amount,
		&rec.Status,
		&rec.CompletedAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}
