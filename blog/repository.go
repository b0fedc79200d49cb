package blog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound signals the requested post does not exist or is unpublished.
var ErrNotFound = errors.New("blog: post not found")

// Repository provides read access to published blog posts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed repository implementation.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetBySlug fetches a published post by its slug.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (Post, error) {
	const query = `
		SELECT b.id, b.slug, b.title, b.body, u.full_name, b.published_at, b.created_at, b.updated_at
		FROM blog_posts b
		LEFT JOIN users u ON u.id = b.author_id
		WHERE b.slug = $1 AND b.published
	`

	post, err := scanPost(r.pool.QueryRow(ctx, query, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Post{}, ErrNotFound
		}
		return Post{}, fmt.Errorf("blog: query by slug: %w", err)
	}
	return post, nil
}

// ListPublished fetches up to limit published posts, newest first.
func (r *Repository) ListPublished(ctx context.Context, limit int) ([]Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	const query = `
		SELECT b.id, b.slug, b.title, b.body, u.full_name, b.published_at, b.created_at, b.updated_at
		FROM blog_posts b
		LEFT JOIN users u ON u.id = b.author_id
		WHERE b.published
		ORDER BY b.published_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("blog: list: %w", err)
	}
	defer rows.Close()

	posts := make([]Post, 0, limit)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("blog: scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("blog: iterate posts: %w", err)
	}
	return posts, nil
}

func scanPost(row pgx.Row) (Post, error) {
	var post Post
	err := row.Scan(
		&post.ID,
		&post.Slug,
		&post.Title,
		&post.Body,
		&post.AuthorName,
		&post.PublishedAt,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		return Post{}, err
	}
	return post, nil
}
