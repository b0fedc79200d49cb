package main

import (
	"time"

	"lexflow/auth"
	"lexflow/blog"
	"lexflow/consultation"
	"lexflow/lawyer"
	"lexflow/payment"
)

// Presentation types keep JSON shapes out of the domain packages. Timestamps
// are rendered as RFC 3339 strings.

type userResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

func userResponseFrom(u auth.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

type consultationResponse struct {
	ID          string   `json:"id"`
	ClientID    string   `json:"client_id"`
	LawyerID    string   `json:"lawyer_id"`
	Topic       string   `json:"topic"`
	ScheduledAt *string  `json:"scheduled_at,omitempty"`
	Status      string   `json:"status"`
	AgreedPrice float64  `json:"agreed_price"`
	FinalPrice  *float64 `json:"final_price,omitempty"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

func consultationResponseFrom(rec consultation.Record) consultationResponse {
	return consultationResponse{
		ID:          rec.ID,
		ClientID:    rec.ClientID,
		LawyerID:    rec.LawyerID,
		Topic:       rec.Topic,
		ScheduledAt: formatOptional(rec.ScheduledAt),
		Status:      string(rec.Status),
		AgreedPrice: rec.AgreedPrice,
		FinalPrice:  rec.FinalPrice,
		CreatedAt:   rec.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   rec.UpdatedAt.Format(time.RFC3339),
	}
}

func consultationResponsesFrom(records []consultation.Record) []consultationResponse {
	out := make([]consultationResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, consultationResponseFrom(rec))
	}
	return out
}

type paymentResponse struct {
	ID             string  `json:"id"`
	UserID         string  `json:"user_id"`
	ConsultationID *string `json:"consultation_id,omitempty"`
	IntentRef      string  `json:"payment_intent_id"`
	Amount         float64 `json:"amount"`
	Status         string  `json:"status"`
	CompletedAt    *string `json:"completed_at,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

func paymentResponseFrom(rec payment.Record) paymentResponse {
	return paymentResponse{
		ID:             rec.ID,
		UserID:         rec.UserID,
		ConsultationID: rec.ConsultationID,
		IntentRef:      rec.IntentRef,
		Amount:         rec.Amount,
		Status:         string(rec.Status),
		CompletedAt:    formatOptional(rec.CompletedAt),
		CreatedAt:      rec.CreatedAt.Format(time.RFC3339),
	}
}

func paymentResponsesFrom(records []payment.Record) []paymentResponse {
	out := make([]paymentResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, paymentResponseFrom(rec))
	}
	return out
}

type lawyerResponse struct {
	ID              string   `json:"id"`
	FullName        string   `json:"full_name"`
	Headline        string   `json:"headline"`
	Bio             string   `json:"bio"`
	City            string   `json:"city"`
	HourlyRate      float64  `json:"hourly_rate"`
	YearsExperience int      `json:"years_experience"`
	Verified        bool     `json:"verified"`
	Specialties     []string `json:"specialties"`
	CreatedAt       string   `json:"created_at"`
}

func lawyerResponseFrom(p lawyer.Profile) lawyerResponse {
	specialties := p.Specialties
	if specialties == nil {
		specialties = []string{}
	}
	return lawyerResponse{
		ID:              p.ID,
		FullName:        p.FullName,
		Headline:        p.Headline,
		Bio:             p.Bio,
		City:            p.City,
		HourlyRate:      p.HourlyRate,
		YearsExperience: p.YearsExperience,
		Verified:        p.Verified,
		Specialties:     specialties,
		CreatedAt:       p.CreatedAt.Format(time.RFC3339),
	}
}

func lawyerResponsesFrom(profiles []lawyer.Profile) []lawyerResponse {
	out := make([]lawyerResponse, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, lawyerResponseFrom(p))
	}
	return out
}

type specialtyResponse struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

func specialtyResponsesFrom(specialties []lawyer.Specialty) []specialtyResponse {
	out := make([]specialtyResponse, 0, len(specialties))
	for _, s := range specialties {
		out = append(out, specialtyResponse{ID: s.ID, Slug: s.Slug, Name: s.Name})
	}
	return out
}

type blogResponse struct {
	ID          string  `json:"id"`
	Slug        string  `json:"slug"`
	Title       string  `json:"title"`
	Body        string  `json:"body,omitempty"`
	AuthorName  *string `json:"author_name,omitempty"`
	PublishedAt *string `json:"published_at,omitempty"`
}

func blogResponseFrom(post blog.Post, includeBody bool) blogResponse {
	resp := blogResponse{
		ID:          post.ID,
		Slug:        post.Slug,
		Title:       post.Title,
		AuthorName:  post.AuthorName,
		PublishedAt: formatOptional(post.PublishedAt),
	}
	if includeBody {
		resp.Body = post.Body
	}
	return resp
}

func blogResponsesFrom(posts []blog.Post, includeBody bool) []blogResponse {
	out := make([]blogResponse, 0, len(posts))
	for _, post := range posts {
		out = append(out, blogResponseFrom(post, includeBody))
	}
	return out
}

func formatOptional(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func parseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
