package blog

import "time"

// Post mirrors the blog_posts table columns exposed publicly.
type Post struct {
	ID          string
	Slug        string
	Title       string
	Body        string
	AuthorName  *string
	PublishedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
