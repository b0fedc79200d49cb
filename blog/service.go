package blog

import "context"

// PostReader abstracts repository operations for the service.
type PostReader interface {
	GetBySlug(ctx context.Context, slug string) (Post, error)
	ListPublished(ctx context.Context, limit int) ([]Post, error)
}

// Service exposes business-level blog operations.
type Service struct {
	repo PostReader
}

// NewService builds a Service using the provided repository.
func NewService(repo PostReader) *Service {
	return &Service{repo: repo}
}

// GetBySlug returns the published post for the given slug.
func (s *Service) GetBySlug(ctx context.Context, slug string) (Post, error) {
	return s.repo.GetBySlug(ctx, slug)
}

// ListPublished returns up to limit published posts.
func (s *Service) ListPublished(ctx context.Context, limit int) ([]Post, error) {
	return s.repo.ListPublished(ctx, limit)
}
