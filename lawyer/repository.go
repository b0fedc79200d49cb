package lawyer

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound signals the requested profile does not exist, or that the
// caller does not own it. The two cases are intentionally indistinguishable.
var ErrNotFound = errors.New("lawyer: profile not found")

const profileColumns = `
	p.id, p.user_id, u.full_name, p.headline, p.bio, p.city,
	p.hourly_rate, p.years_experience, p.verified,
	COALESCE(array_agg(s.name ORDER BY s.name) FILTER (WHERE s.name IS NOT NULL), '{}'),
	p.created_at, p.updated_at`

const profileJoins = `
	FROM lawyer_profiles p
	JOIN users u ON u.id = p.user_id
	LEFT JOIN lawyer_specialties ls ON ls.lawyer_id = p.id
	LEFT JOIN specialties s ON s.id = ls.specialty_id`

// Repository provides access to lawyer profiles and specialties.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed repository implementation.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID fetches a lawyer profile by its primary key.
func (r *Repository) GetByID(ctx context.Context, id string) (Profile, error) {
	query := `SELECT ` + profileColumns + profileJoins + `
		WHERE p.id = $1
		GROUP BY p.id, u.full_name`

	profile, err := scanProfile(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("lawyer: query by id: %w", err)
	}
	return profile, nil
}

// List fetches up to limit lawyer profiles, optionally filtered by specialty
// slug, verified profiles first.
func (r *Repository) List(ctx context.Context, specialtySlug string, limit int) ([]Profile, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	query := `SELECT ` + profileColumns + profileJoins
	args := []any{limit}
	if specialtySlug != "" {
		query += `
		WHERE p.id IN (
			SELECT ls2.lawyer_id FROM lawyer_specialties ls2
			JOIN specialties s2 ON s2.id = ls2.specialty_id
			WHERE s2.slug = $2
		)`
		args = append(args, specialtySlug)
	}
	query += `
		GROUP BY p.id, u.full_name
		ORDER BY p.verified DESC, u.full_name ASC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("lawyer: list: %w", err)
	}
	defer rows.Close()

	profiles := make([]Profile, 0, limit)
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("lawyer: scan profile: %w", err)
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lawyer: iterate profiles: %w", err)
	}
	return profiles, nil
}

// UpdateOwn applies the owner-editable fields to the caller's own profile in
// one guarded statement; a non-owner caller matches no row.
func (r *Repository) UpdateOwn(ctx context.Context, ownerUserID string, params UpdateParams) (Profile, error) {
	const update = `
		UPDATE lawyer_profiles
		SET headline = COALESCE($2, headline),
		    bio = COALESCE($3, bio),
		    city = COALESCE($4, city),
		    hourly_rate = COALESCE($5, hourly_rate),
		    years_experience = COALESCE($6, years_experience),
		    updated_at = now()
		WHERE user_id = $1
		RETURNING id
	`

	var id string
	err := r.pool.QueryRow(ctx, update, ownerUserID,
		params.Headline, params.Bio, params.City, params.HourlyRate, params.YearsExperience,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("lawyer: update profile: %w", err)
	}

	return r.GetByID(ctx, id)
}

// ListSpecialties returns all practice areas ordered by name.
func (r *Repository) ListSpecialties(ctx context.Context) ([]Specialty, error) {
	const query = `SELECT id, slug, name FROM specialties ORDER BY name ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("lawyer: list specialties: %w", err)
	}
	defer rows.Close()

	out := make([]Specialty, 0, 16)
	for rows.Next() {
		var s Specialty
		if err := rows.Scan(&s.ID, &s.Slug, &s.Name); err != nil {
			return nil, fmt.Errorf("lawyer: scan specialty: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lawyer: iterate specialties: %w", err)
	}
	return out, nil
}

func scanProfile(row pgx.Row) (Profile, error) {
	var profile Profile
	err := row.Scan(
		&profile.ID,
		&profile.UserID,
		&profile.FullName,
		&profile.Headline,
		&profile.Bio,
		&profile.City,
		&profile.HourlyRate,
		&profile.YearsExperience,
		&profile.Verified,
		&profile.Specialties,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return Profile{}, err
	}
	return profile, nil
}
