package consultation

import "time"

// Status represents the lifecycle of a consultation record.
//
// The transition graph is pending -> confirmed -> completed, with cancelled
// reachable from pending or confirmed. completed and cancelled are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is permitted out of s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Record mirrors the consultations table.
//
// FinalPrice is set if and only if the status is completed; until then the
// agreed price is the working amount.
type Record struct {
	ID          string
	ClientID    string
	LawyerID    string
	Topic       string
	ScheduledAt *time.Time
	Status      Status
	AgreedPrice float64
	FinalPrice  *float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BookParams enumerates the fields required to create a pending consultation.
type BookParams struct {
	LawyerID    string
	Topic       string
	ScheduledAt *time.Time
	AgreedPrice float64
}

// ListFilters scopes and pages a consultation listing.
type ListFilters struct {
	Page     int
	PageSize int
}
