package consultation

import (
	"context"
	"errors"
	"strings"
	"time"

	"lexflow/auth"
)

var (
	// ErrTopicRequired signals a booking without a topic.
	ErrTopicRequired = errors.New("consultation: topic required")
	// ErrInvalidPrice signals a negative price amount.
	ErrInvalidPrice = errors.New("consultation: price must be non-negative")
	// ErrSelfBooking signals a lawyer booking a consultation with themselves.
	ErrSelfBooking = errors.New("consultation: cannot book a consultation with yourself")
	// ErrLawyerRequired signals a booking without a target lawyer.
	ErrLawyerRequired = errors.New("consultation: lawyer id required")
)

// Repository defines the data access required by the service.
type Repository interface {
	Book(ctx context.Context, clientID string, params BookParams) (Record, error)
	Confirm(ctx context.Context, consultationID, callerID string, callerRole string) (Record, error)
	Cancel(ctx context.Context, consultationID, callerID string, callerRole string) (Record, error)
	Complete(ctx context.Context, consultationID, callerID string, callerRole string, finalPrice *float64) (Record, error)
	GetByID(ctx context.Context, consultationID, callerID string, callerRole string) (Record, error)
	ListForCaller(ctx context.Context, callerID string, callerRole string, filters ListFilters) ([]Record, error)
}

const defaultStoreTimeout = 10 * time.Second

// Service applies guarded lifecycle transitions to consultations.
//
// Validation failures and ErrNotApplicable are deterministic rejections and
// must not be retried; any other error is a store failure the caller may
// retry. The service itself never retries.
type Service struct {
	repo    Repository
	timeout time.Duration
}

// NewService builds a Service. A non-positive timeout falls back to the
// default bound on store calls.
func NewService(repo Repository, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return &Service{repo: repo, timeout: timeout}
}

// Book creates a pending consultation owned by the caller.
func (s *Service) Book(ctx context.Context, ident auth.Identity, params BookParams) (Record, error) {
	params.Topic = strings.TrimSpace(params.Topic)
	if params.Topic == "" {
		return Record{}, ErrTopicRequired
	}
	if params.LawyerID == "" {
		return Record{}, ErrLawyerRequired
	}
	if params.LawyerID == ident.UserID {
		return Record{}, ErrSelfBooking
	}
	if params.AgreedPrice < 0 {
		return Record{}, ErrInvalidPrice
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.repo.Book(ctx, ident.UserID, params)
}

// Confirm transitions pending -> confirmed for the assigned lawyer or an admin.
func (s *Service) Confirm(ctx context.Context, consultationID string, ident auth.Identity) (Record, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.repo.Confirm(ctx, consultationID, ident.UserID, string(ident.Role))
}

// Cancel transitions any non-terminal consultation to cancelled for the
// owning client, the assigned lawyer, or an admin.
func (s *Service) Cancel(ctx context.Context, consultationID string, ident auth.Identity) (Record, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.repo.Cancel(ctx, consultationID, ident.UserID, string(ident.Role))
}

// Complete transitions confirmed -> completed, recording finalPrice. When
// finalPrice is nil the previously agreed price is retained.
func (s *Service) Complete(ctx context.Context, consultationID string, ident auth.Identity, finalPrice *float64) (Record, error) {
	if finalPrice != nil && *finalPrice < 0 {
		return Record{}, ErrInvalidPrice
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.repo.Complete(ctx, consultationID, ident.UserID, string(ident.Role), finalPrice)
}

// GetByID returns a consultation visible to the caller.
func (s *Service) GetByID(ctx context.Context, consultationID string, ident auth.Identity) (Record, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.repo.GetByID(ctx, consultationID, ident.UserID, string(ident.Role))
}

// List returns the caller's consultations.
func (s *Service) List(ctx context.Context, ident auth.Identity, filters ListFilters) ([]Record, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.repo.ListForCaller(ctx, ident.UserID, string(ident.Role), filters)
}

func (s *Service) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}
