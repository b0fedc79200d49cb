package payment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"lexflow/auth"
)

var (
	// ErrInvalidAmount signals a non-positive payment amount.
	ErrInvalidAmount = errors.New("payment: amount must be positive")
	// ErrIntentRequired signals a completion call without an intent reference.
	ErrIntentRequired = errors.New("payment: intent reference required")
)

// Repository defines the data access required by the service.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (Record, error)
	CompleteByIntent(ctx context.Context, intentRef string) (Record, error)
	ListForCaller(ctx context.Context, callerID string, callerRole string, filters ListFilters) ([]Record, error)
}

const defaultStoreTimeout = 10 * time.Second

// Service opens pending payments and marks them completed at most once per
// intent reference. Duplicate completion signals surface ErrNotApplicable and
// have no side effect; the service never retries on the caller's behalf.
type Service struct {
	repo      Repository
	timeout   time.Duration
	intentGen func() string
}

// NewService builds a Service. A non-positive timeout falls back to the
// default bound on store calls.
func NewService(repo Repository, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return &Service{
		repo:      repo,
		timeout:   timeout,
		intentGen: func() string { return "pi_" + uuid.NewString() },
	}
}

// CreatePending opens a payment row owned by the caller with a generated
// intent reference.
func (s *Service) CreatePending(ctx context.Context, ident auth.Identity, consultationID *string, amount float64) (Record, error) {
	if amount <= 0 {
		return Record{}, ErrInvalidAmount
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.repo.Create(ctx, CreateParams{
		UserID:         ident.UserID,
		ConsultationID: consultationID,
		IntentRef:      s.intentGen(),
		Amount:         amount,
	})
}

// CompleteByIntent applies the at-most-once completion for intentRef.
func (s *Service) CompleteByIntent(ctx context.Context, intentRef string) (Record, error) {
	if intentRef == "" {
		return Record{}, ErrIntentRequired
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.repo.CompleteByIntent(ctx, intentRef)
}

// List returns the caller's payments.
func (s *Service) List(ctx context.Context, ident auth.Identity, filters ListFilters) ([]Record, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.repo.ListForCaller(ctx, ident.UserID, string(ident.Role), filters)
}

func (s *Service) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}
