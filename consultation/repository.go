package consultation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotApplicable is the single rejection outcome for guarded writes and
// scoped reads. It deliberately conflates "no such consultation", "caller not
// a participant", and "current status forbids the transition" so responses
// never leak whether another tenant's record exists.
var ErrNotApplicable = errors.New("consultation: not found or not applicable")

const recordColumns = `id, client_id, lawyer_id, topic, scheduled_at, status::text, agreed_price, final_price, created_at, updated_at`

// PGRepository implements the data access for consultations. Every status
// write is a single conditional UPDATE: the permission predicate and the
// state precondition are evaluated by PostgreSQL atomically with the write,
// never as a separate read followed by a write.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Book inserts a pending consultation for the client. The INSERT..SELECT
// guards that the target user exists and actually holds the lawyer role.
func (r *PGRepository) Book(ctx context.Context, clientID string, params BookParams) (Record, error) {
	const query = `
		INSERT INTO consultations (client_id, lawyer_id, topic, scheduled_at, agreed_price)
		SELECT $1, u.id, $3, $4, $5
		FROM users u
		WHERE u.id = $2 AND u.role = 'lawyer'
		RETURNING ` + recordColumns

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, clientID, params.LawyerID, params.Topic, params.ScheduledAt, params.AgreedPrice))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotApplicable
		}
		return Record{}, fmt.Errorf("consultation: book: %w", err)
	}
	return rec, nil
}

// Confirm moves a pending consultation to confirmed. Only the assigned
// lawyer (or an admin) matches the guard.
func (r *PGRepository) Confirm(ctx context.Context, consultationID, callerID string, callerRole string) (Record, error) {
	const query = `
		UPDATE consultations
		SET status = 'confirmed', updated_at = now()
		WHERE id = $1
		  AND status = 'pending'
		  AND (lawyer_id = $2 OR $3::text = 'admin')
		RETURNING ` + recordColumns

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, consultationID, callerID, callerRole))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotApplicable
		}
		return Record{}, fmt.Errorf("consultation: confirm: %w", err)
	}
	return rec, nil
}

// Cancel moves a non-terminal consultation to cancelled. The owning client,
// the assigned lawyer, and admins all match the guard.
func (r *PGRepository) Cancel(ctx context.Context, consultationID, callerID string, callerRole string) (Record, error) {
	const query = `
		UPDATE consultations
		SET status = 'cancelled', updated_at = now()
		WHERE id = $1
		  AND status NOT IN ('completed', 'cancelled')
		  AND (client_id = $2 OR lawyer_id = $2 OR $3::text = 'admin')
		RETURNING ` + recordColumns

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, consultationID, callerID, callerRole))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotApplicable
		}
		return Record{}, fmt.Errorf("consultation: cancel: %w", err)
	}
	return rec, nil
}

// Complete moves a confirmed consultation to completed, recording the final
// price. A nil finalPrice retains the previously agreed price. Only the
// assigned lawyer (or an admin) matches the guard.
func (r *PGRepository) Complete(ctx context.Context, consultationID, callerID string, callerRole string, finalPrice *float64) (Record, error) {
	const query = `
		UPDATE consultations
		SET status = 'completed',
		    final_price = COALESCE($4, agreed_price),
		    updated_at = now()
		WHERE id = $1
		  AND status = 'confirmed'
		  AND (lawyer_id = $2 OR $3::text = 'admin')
		RETURNING ` + recordColumns

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, consultationID, callerID, callerRole, finalPrice))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotApplicable
		}
		return Record{}, fmt.Errorf("consultation: complete: %w", err)
	}
	return rec, nil
}

// GetByID fetches a consultation visible to the caller.
func (r *PGRepository) GetByID(ctx context.Context, consultationID, callerID string, callerRole string) (Record, error) {
	const query = `
		SELECT ` + recordColumns + `
		FROM consultations
		WHERE id = $1
		  AND (client_id = $2 OR lawyer_id = $2 OR $3::text = 'admin')
	`

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, consultationID, callerID, callerRole))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotApplicable
		}
		return Record{}, fmt.Errorf("consultation: get by id: %w", err)
	}
	return rec, nil
}

// ListForCaller returns consultations the caller participates in, newest
// first. Admins see everything.
func (r *PGRepository) ListForCaller(ctx context.Context, callerID string, callerRole string, filters ListFilters) ([]Record, error) {
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if filters.PageSize <= 0 || filters.PageSize > 100 {
		filters.PageSize = 20
	}

	const query = `
		SELECT ` + recordColumns + `
		FROM consultations
		WHERE (client_id = $1 OR lawyer_id = $1 OR $2::text = 'admin')
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.pool.Query(ctx, query, callerID, callerRole, filters.PageSize, (filters.Page-1)*filters.PageSize)
	if err != nil {
		return nil, fmt.Errorf("consultation: list: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0, filters.PageSize)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("consultation: scan: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("consultation: iterate: %w", err)
	}
	return records, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(
		&rec.ID,
		&rec.ClientID,
		&rec.LawyerID,
		&rec.Topic,
		&rec.ScheduledAt,
		&rec.Status,
		&rec.AgreedPrice,
		&rec.FinalPrice,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}
