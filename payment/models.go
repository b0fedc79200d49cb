package payment

import "time"

// Status represents the lifecycle of a payment record. A payment moves from
// pending to completed at most once, keyed by its intent reference.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Record mirrors the payments table.
type Record struct {
	ID             string
	UserID         string
	ConsultationID *string
	IntentRef      string
	Amount         float64
	Status         Status
	CompletedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CreateParams enumerates the fields required to open a pending payment.
type CreateParams struct {
	UserID         string
	ConsultationID *string
	IntentRef      string
	Amount         float64
}

// ListFilters pages a payment listing.
type ListFilters struct {
	Page     int
	PageSize int
}
