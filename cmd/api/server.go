package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"lexflow/auth"
	"lexflow/blog"
	"lexflow/consultation"
	"lexflow/lawyer"
	"lexflow/payment"
)

type ctxKey int

const (
	ctxKeyUserID ctxKey = iota
	ctxKeyRole
)

// envelope is the uniform response shape returned by every handler.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

type consultationService interface {
	Book(ctx context.Context, ident auth.Identity, params consultation.BookParams) (consultation.Record, error)
	Confirm(ctx context.Context, consultationID string, ident auth.Identity) (consultation.Record, error)
	Cancel(ctx context.Context, consultationID string, ident auth.Identity) (consultation.Record, error)
	Complete(ctx context.Context, consultationID string, ident auth.Identity, finalPrice *float64) (consultation.Record, error)
	GetByID(ctx context.Context, consultationID string, ident auth.Identity) (consultation.Record, error)
	List(ctx context.Context, ident auth.Identity, filters consultation.ListFilters) ([]consultation.Record, error)
}

type paymentService interface {
	CreatePending(ctx context.Context, ident auth.Identity, consultationID *string, amount float64) (payment.Record, error)
	CompleteByIntent(ctx context.Context, intentRef string) (payment.Record, error)
	List(ctx context.Context, ident auth.Identity, filters payment.ListFilters) ([]payment.Record, error)
}

type lawyerService interface {
	GetByID(ctx context.Context, id string) (lawyer.Profile, error)
	List(ctx context.Context, specialtySlug string, limit int) ([]lawyer.Profile, error)
	UpdateOwn(ctx context.Context, ownerUserID string, params lawyer.UpdateParams) (lawyer.Profile, error)
	ListSpecialties(ctx context.Context) ([]lawyer.Specialty, error)
}

type blogService interface {
	GetBySlug(ctx context.Context, slug string) (blog.Post, error)
	ListPublished(ctx context.Context, limit int) ([]blog.Post, error)
}

type authService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.User, error)
	Login(ctx context.Context, req auth.LoginRequest) (auth.LoginResult, error)
	VerifyToken(tokenString string) (auth.Identity, error)
}

// Server wires every HTTP handler to the domain services.
type Server struct {
	authService         authService
	consultationService consultationService
	paymentService      paymentService
	lawyerService       lawyerService
	blogService         blogService
	baseURL             string
}

// Routes builds the request multiplexer for the full HTTP surface.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/robots.txt", s.handleRobots)
	mux.HandleFunc("/sitemap.xml", s.handleSitemap)

	mux.HandleFunc("/api/auth/register", s.handleRegister)
	mux.HandleFunc("/api/auth/login", s.handleLogin)

	mux.HandleFunc("/api/lawyers", s.handleLawyers)
	mux.HandleFunc("/api/lawyers/me", s.requireAuth(s.handleUpdateMyProfile))
	mux.HandleFunc("/api/lawyers/", s.handleLawyer)
	mux.HandleFunc("/api/specialties", s.handleSpecialties)
	mux.HandleFunc("/api/blog", s.handleBlogList)
	mux.HandleFunc("/api/blog/", s.handleBlogPost)

	mux.HandleFunc("/api/consultations", s.requireAuth(s.handleConsultations))
	mux.HandleFunc("/api/consultations/", s.requireAuth(s.handleConsultationDetail))

	// Intentionally public: payment providers deliver completion signals
	// without a user credential.
	mux.HandleFunc("/api/payments/complete", s.handleCompletePayment)
	mux.HandleFunc("/api/payments", s.requireAuth(s.handlePayments))

	return logRequests(mux)
}

// requireAuth verifies the bearer credential and stashes the caller identity
// in the request context before dispatch. Authorization failures never reach
// a service.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "authorization required")
			return
		}

		ident, err := s.authService.VerifyToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyUserID, ident.UserID)
		ctx = context.WithValue(ctx, ctxKeyRole, ident.Role)
		next(w, r.WithContext(ctx))
	}
}

func identityFromContext(r *http.Request) (auth.Identity, bool) {
	userID, ok := r.Context().Value(ctxKeyUserID).(string)
	if !ok || userID == "" {
		return auth.Identity{}, false
	}
	role, ok := r.Context().Value(ctxKeyRole).(auth.Role)
	if !ok {
		return auth.Identity{}, false
	}
	return auth.Identity{UserID: userID, Role: role}, true
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		log.Printf("%s %s", r.Method, r.URL.Path)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Error: msg})
}

// writeUnexpected logs the full error server-side and returns only a generic
// message to the client.
func writeUnexpected(w http.ResponseWriter, op string, err error) {
	log.Printf("%s: %v", op, err)
	writeJSON(w, http.StatusInternalServerError, envelope{Success: false, Error: "internal error", Message: "something went wrong, please try again later"})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- auth ---

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req auth.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.authService.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrDuplicateEmail):
			writeError(w, http.StatusConflict, "email already exists")
		case errors.Is(err, auth.ErrWeakPassword):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusBadRequest, "invalid registration request")
		}
		return
	}

	writeData(w, http.StatusCreated, userResponseFrom(*user))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req auth.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.authService.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeUnexpected(w, "login", err)
		return
	}

	writeData(w, http.StatusOK, map[string]any{
		"token": result.Token,
		"user":  userResponseFrom(result.User),
	})
}

// --- consultations ---

func (s *Server) handleConsultations(w http.ResponseWriter, r *http.Request) {
	ident, ok := identityFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authorization required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		filters := consultation.ListFilters{
			Page:     queryInt(r, "page"),
			PageSize: queryInt(r, "page_size"),
		}
		records, err := s.consultationService.List(r.Context(), ident, filters)
		if err != nil {
			writeUnexpected(w, "list consultations", err)
			return
		}
		writeData(w, http.StatusOK, consultationResponsesFrom(records))

	case http.MethodPost:
		if ident.Role != auth.RoleClient {
			writeError(w, http.StatusForbidden, "only clients can book consultations")
			return
		}
		var body struct {
			LawyerID    string   `json:"lawyer_id"`
			Topic       string   `json:"topic"`
			ScheduledAt *string  `json:"scheduled_at"`
			AgreedPrice *float64 `json:"agreed_price"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		params := consultation.BookParams{LawyerID: body.LawyerID, Topic: body.Topic}
		if body.AgreedPrice != nil {
			params.AgreedPrice = *body.AgreedPrice
		}
		if body.ScheduledAt != nil {
			ts, err := parseTimestamp(*body.ScheduledAt)
			if err != nil {
				writeError(w, http.StatusBadRequest, "scheduled_at must be an RFC 3339 timestamp")
				return
			}
			params.ScheduledAt = &ts
		}

		rec, err := s.consultationService.Book(r.Context(), ident, params)
		if err != nil {
			s.writeConsultationError(w, "book consultation", err)
			return
		}
		writeData(w, http.StatusCreated, consultationResponseFrom(rec))

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleConsultationDetail serves /api/consultations/{id} and the transition
// subroutes /cancel, /confirm, /complete.
func (s *Server) handleConsultationDetail(w http.ResponseWriter, r *http.Request) {
	ident, ok := identityFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authorization required")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/consultations/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "consultation id required")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		rec, err := s.consultationService.GetByID(r.Context(), id, ident)
		if err != nil {
			s.writeConsultationError(w, "get consultation", err)
			return
		}
		writeData(w, http.StatusOK, consultationResponseFrom(rec))

	case action == "cancel" && r.Method == http.MethodPost:
		rec, err := s.consultationService.Cancel(r.Context(), id, ident)
		if err != nil {
			s.writeConsultationError(w, "cancel consultation", err)
			return
		}
		writeData(w, http.StatusOK, consultationResponseFrom(rec))

	case action == "confirm" && r.Method == http.MethodPost:
		rec, err := s.consultationService.Confirm(r.Context(), id, ident)
		if err != nil {
			s.writeConsultationError(w, "confirm consultation", err)
			return
		}
		writeData(w, http.StatusOK, consultationResponseFrom(rec))

	case action == "complete" && r.Method == http.MethodPost:
		var body struct {
			FinalPrice *json.Number `json:"final_price"`
		}
		// An empty body is a valid "retain the agreed price" request.
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "final_price must be numeric")
			return
		}
		var finalPrice *float64
		if body.FinalPrice != nil {
			v, err := body.FinalPrice.Float64()
			if err != nil {
				writeError(w, http.StatusBadRequest, "final_price must be numeric")
				return
			}
			finalPrice = &v
		}

		rec, err := s.consultationService.Complete(r.Context(), id, ident, finalPrice)
		if err != nil {
			s.writeConsultationError(w, "complete consultation", err)
			return
		}
		writeData(w, http.StatusOK, consultationResponseFrom(rec))

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) writeConsultationError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, consultation.ErrNotApplicable):
		// Conflates missing, unauthorized, and invalid-transition outcomes.
		writeError(w, http.StatusNotFound, "consultation not found")
	case errors.Is(err, consultation.ErrTopicRequired),
		errors.Is(err, consultation.ErrLawyerRequired),
		errors.Is(err, consultation.ErrSelfBooking),
		errors.Is(err, consultation.ErrInvalidPrice):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeUnexpected(w, op, err)
	}
}

// --- payments ---

func (s *Server) handlePayments(w http.ResponseWriter, r *http.Request) {
	ident, ok := identityFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authorization required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		filters := payment.ListFilters{
			Page:     queryInt(r, "page"),
			PageSize: queryInt(r, "page_size"),
		}
		records, err := s.paymentService.List(r.Context(), ident, filters)
		if err != nil {
			writeUnexpected(w, "list payments", err)
			return
		}
		writeData(w, http.StatusOK, paymentResponsesFrom(records))

	case http.MethodPost:
		var body struct {
			ConsultationID *string      `json:"consultation_id"`
			Amount         *json.Number `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if body.Amount == nil {
			writeError(w, http.StatusBadRequest, "amount is required")
			return
		}
		amount, err := body.Amount.Float64()
		if err != nil {
			writeError(w, http.StatusBadRequest, "amount must be numeric")
			return
		}

		rec, err := s.paymentService.CreatePending(r.Context(), ident, body.ConsultationID, amount)
		if err != nil {
			switch {
			case errors.Is(err, payment.ErrInvalidAmount):
				writeError(w, http.StatusBadRequest, err.Error())
			case errors.Is(err, payment.ErrDuplicateIntent):
				writeError(w, http.StatusConflict, "payment intent already exists")
			default:
				writeUnexpected(w, "create payment", err)
			}
			return
		}
		writeData(w, http.StatusCreated, paymentResponseFrom(rec))

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleCompletePayment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		PaymentIntentID string `json:"payment_intent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.PaymentIntentID == "" {
		writeError(w, http.StatusBadRequest, "payment_intent_id is required")
		return
	}

	rec, err := s.paymentService.CompleteByIntent(r.Context(), body.PaymentIntentID)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrNotApplicable):
			// Duplicate deliveries land here: a no-op, not a failure mode.
			writeError(w, http.StatusNotFound, "payment not found")
		case errors.Is(err, payment.ErrIntentRequired):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeUnexpected(w, "complete payment", err)
		}
		return
	}

	writeData(w, http.StatusOK, paymentResponseFrom(rec))
}

// --- lawyers, specialties, blog ---

func (s *Server) handleLawyers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := queryInt(r, "limit")
	profiles, err := s.lawyerService.List(r.Context(), r.URL.Query().Get("specialty"), limit)
	if err != nil {
		writeUnexpected(w, "list lawyers", err)
		return
	}
	writeData(w, http.StatusOK, lawyerResponsesFrom(profiles))
}

func (s *Server) handleLawyer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/lawyers/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "lawyer id required")
		return
	}

	profile, err := s.lawyerService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, lawyer.ErrNotFound) {
			writeError(w, http.StatusNotFound, "lawyer not found")
			return
		}
		writeUnexpected(w, "get lawyer", err)
		return
	}
	writeData(w, http.StatusOK, lawyerResponseFrom(profile))
}

func (s *Server) handleUpdateMyProfile(w http.ResponseWriter, r *http.Request) {
	ident, ok := identityFromContext(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authorization required")
		return
	}
	if r.Method != http.MethodPatch {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if ident.Role != auth.RoleLawyer {
		writeError(w, http.StatusForbidden, "only lawyers can edit a profile")
		return
	}

	var body struct {
		Headline        *string  `json:"headline"`
		Bio             *string  `json:"bio"`
		City            *string  `json:"city"`
		HourlyRate      *float64 `json:"hourly_rate"`
		YearsExperience *int     `json:"years_experience"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	params := lawyer.UpdateParams{
		Headline:        body.Headline,
		Bio:             body.Bio,
		City:            body.City,
		HourlyRate:      body.HourlyRate,
		YearsExperience: body.YearsExperience,
	}

	profile, err := s.lawyerService.UpdateOwn(r.Context(), ident.UserID, params)
	if err != nil {
		switch {
		case errors.Is(err, lawyer.ErrNotFound):
			writeError(w, http.StatusNotFound, "profile not found")
		case errors.Is(err, lawyer.ErrInvalidRate):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeUnexpected(w, "update profile", err)
		}
		return
	}
	writeData(w, http.StatusOK, lawyerResponseFrom(profile))
}

func (s *Server) handleSpecialties(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	specialties, err := s.lawyerService.ListSpecialties(r.Context())
	if err != nil {
		writeUnexpected(w, "list specialties", err)
		return
	}
	writeData(w, http.StatusOK, specialtyResponsesFrom(specialties))
}

func (s *Server) handleBlogList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	posts, err := s.blogService.ListPublished(r.Context(), queryInt(r, "limit"))
	if err != nil {
		writeUnexpected(w, "list blog posts", err)
		return
	}
	writeData(w, http.StatusOK, blogResponsesFrom(posts, false))
}

func (s *Server) handleBlogPost(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	slug := strings.TrimPrefix(r.URL.Path, "/api/blog/")
	if slug == "" || strings.Contains(slug, "/") {
		writeError(w, http.StatusBadRequest, "post slug required")
		return
	}

	post, err := s.blogService.GetBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, blog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		writeUnexpected(w, "get blog post", err)
		return
	}
	writeData(w, http.StatusOK, blogResponseFrom(post, true))
}

func queryInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return v
}
