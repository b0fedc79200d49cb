package lawyer

import "time"

// Profile captures the lawyer data exposed via the public API layer.
type Profile struct {
	ID              string
	UserID          string
	FullName        string
	Headline        string
	Bio             string
	City            string
	HourlyRate      float64
	YearsExperience int
	Verified        bool
	Specialties     []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Specialty is a practice area lawyers can be listed under.
type Specialty struct {
	ID   string
	Slug string
	Name string
}

// UpdateParams carries the owner-editable profile fields. Nil pointers leave
// the stored value untouched.
type UpdateParams struct {
	Headline        *string
	Bio             *string
	City            *string
	HourlyRate      *float64
	YearsExperience *int
}
