package consultation

import (
	"context"
	"errors"
	"testing"
	"time"

	"lexflow/auth"
)

// fakeRepo mirrors the guarded-update semantics of the SQL repository in
// memory: the permission predicate and state precondition are evaluated
// together with the write, and every rejection is the same ErrNotApplicable.
type fakeRepo struct {
	records map[string]Record
	err     error
}

func newFakeRepo(records ...Record) *fakeRepo {
	f := &fakeRepo{records: make(map[string]Record)}
	for _, rec := range records {
		f.records[rec.ID] = rec
	}
	return f
}

func (f *fakeRepo) Book(_ context.Context, clientID string, params BookParams) (Record, error) {
	if f.err != nil {
		return Record{}, f.err
	}
	rec := Record{
		ID:          "c-new",
		ClientID:    clientID,
		LawyerID:    params.LawyerID,
		Topic:       params.Topic,
		ScheduledAt: params.ScheduledAt,
		Status:      StatusPending,
		AgreedPrice: params.AgreedPrice,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	f.records[rec.ID] = rec
	return rec, nil
}

func (f *fakeRepo) Confirm(_ context.Context, id, callerID string, callerRole string) (Record, error) {
	if f.err != nil {
		return Record{}, f.err
	}
	rec, ok := f.records[id]
	if !ok || rec.Status != StatusPending || (rec.LawyerID != callerID && callerRole != "admin") {
		return Record{}, ErrNotApplicable
	}
	rec.Status = StatusConfirmed
	f.records[id] = rec
	return rec, nil
}

func (f *fakeRepo) Cancel(_ context.Context, id, callerID string, callerRole string) (Record, error) {
	if f.err != nil {
		return Record{}, f.err
	}
	rec, ok := f.records[id]
	if !ok || rec.Status.Terminal() {
		return Record{}, ErrNotApplicable
	}
	if rec.ClientID != callerID && rec.LawyerID != callerID && callerRole != "admin" {
		return Record{}, ErrNotApplicable
	}
	rec.Status = StatusCancelled
	f.records[id] = rec
	return rec, nil
}

func (f *fakeRepo) Complete(_ context.Context, id, callerID string, callerRole string, finalPrice *float64) (Record, error) {
	if f.err != nil {
		return Record{}, f.err
	}
	rec, ok := f.records[id]
	if !ok || rec.Status != StatusConfirmed || (rec.LawyerID != callerID && callerRole != "admin") {
		return Record{}, ErrNotApplicable
	}
	rec.Status = StatusCompleted
	price := rec.AgreedPrice
	if finalPrice != nil {
		price = *finalPrice
	}
	rec.FinalPrice = &price
	f.records[id] = rec
	return rec, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id, callerID string, callerRole string) (Record, error) {
	rec, ok := f.records[id]
	if !ok || (rec.ClientID != callerID && rec.LawyerID != callerID && callerRole != "admin") {
		return Record{}, ErrNotApplicable
	}
	return rec, nil
}

func (f *fakeRepo) ListForCaller(_ context.Context, callerID string, callerRole string, _ ListFilters) ([]Record, error) {
	out := []Record{}
	for _, rec := range f.records {
		if rec.ClientID == callerID || rec.LawyerID == callerID || callerRole == "admin" {
			out = append(out, rec)
		}
	}
	return out, nil
}

var (
	clientIdent = auth.Identity{UserID: "client-1", Role: auth.RoleClient}
	lawyerIdent = auth.Identity{UserID: "lawyer-1", Role: auth.RoleLawyer}
	adminIdent  = auth.Identity{UserID: "admin-1", Role: auth.RoleAdmin}
)

func confirmed(id string) Record {
	return Record{ID: id, ClientID: "client-1", LawyerID: "lawyer-1", Topic: "contract review", Status: StatusConfirmed, AgreedPrice: 120}
}

func TestComplete_SetsProvidedFinalPrice(t *testing.T) {
	repo := newFakeRepo(confirmed("c1"))
	svc := NewService(repo, 0)

	price := 150.0
	rec, err := svc.Complete(context.Background(), "c1", lawyerIdent, &price)
	if err != nil {
		t.Fatalf("complete: unexpected error: %v", err)
	}
	if rec.Status != StatusCompleted {
		t.Fatalf("expected status %s got %s", StatusCompleted, rec.Status)
	}
	if rec.FinalPrice == nil || *rec.FinalPrice != 150.0 {
		t.Fatalf("expected final price 150, got %v", rec.FinalPrice)
	}

	// A subsequent cancel must observe the terminal state and leave it alone.
	if _, err := svc.Cancel(context.Background(), "c1", lawyerIdent); !errors.Is(err, ErrNotApplicable) {
		t.Fatalf("expected ErrNotApplicable cancelling a completed consultation, got %v", err)
	}
	if repo.records["c1"].Status != StatusCompleted {
		t.Fatalf("terminal state mutated: %s", repo.records["c1"].Status)
	}
}

func TestComplete_OmittedPriceRetainsAgreedPrice(t *testing.T) {
	repo := newFakeRepo(confirmed("c1"))
	svc := NewService(repo, 0)

	rec, err := svc.Complete(context.Background(), "c1", lawyerIdent, nil)
	if err != nil {
		t.Fatalf("complete: unexpected error: %v", err)
	}
	if rec.FinalPrice == nil || *rec.FinalPrice != 120 {
		t.Fatalf("expected retained agreed price 120, got %v", rec.FinalPrice)
	}
}

func TestComplete_NegativePriceRejectedBeforeStore(t *testing.T) {
	repo := newFakeRepo(confirmed("c1"))
	svc := NewService(repo, 0)

	price := -5.0
	if _, err := svc.Complete(context.Background(), "c1", lawyerIdent, &price); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
	if repo.records["c1"].Status != StatusConfirmed {
		t.Fatal("store must not be touched on validation failure")
	}
}

func TestComplete_ClientCannotComplete(t *testing.T) {
	svc := NewService(newFakeRepo(confirmed("c1")), 0)

	if _, err := svc.Complete(context.Background(), "c1", clientIdent, nil); !errors.Is(err, ErrNotApplicable) {
		t.Fatalf("expected ErrNotApplicable for client caller, got %v", err)
	}
}

func TestComplete_UnassignedLawyerIsNotApplicable(t *testing.T) {
	svc := NewService(newFakeRepo(confirmed("c1")), 0)

	other := auth.Identity{UserID: "lawyer-2", Role: auth.RoleLawyer}
	if _, err := svc.Complete(context.Background(), "c1", other, nil); !errors.Is(err, ErrNotApplicable) {
		t.Fatalf("expected ErrNotApplicable for unassigned lawyer, got %v", err)
	}
}

func TestComplete_PendingIsNotApplicable(t *testing.T) {
	rec := confirmed("c1")
	rec.Status = StatusPending
	svc := NewService(newFakeRepo(rec), 0)

	if _, err := svc.Complete(context.Background(), "c1", lawyerIdent, nil); !errors.Is(err, ErrNotApplicable) {
		t.Fatalf("expected ErrNotApplicable completing a pending consultation, got %v", err)
	}
}

func TestCancel_ByEachAuthorizedCaller(t *testing.T) {
	for _, ident := range []auth.Identity{clientIdent, lawyerIdent, adminIdent} {
		repo := newFakeRepo(confirmed("c1"))
		svc := NewService(repo, 0)

		rec, err := svc.Cancel(context.Background(), "c1", ident)
		if err != nil {
			t.Fatalf("cancel as %s: unexpected error: %v", ident.Role, err)
		}
		if rec.Status != StatusCancelled {
			t.Fatalf("cancel as %s: expected cancelled, got %s", ident.Role, rec.Status)
		}

		// Second cancel is a no-op rejection.
		if _, err := svc.Cancel(context.Background(), "c1", ident); !errors.Is(err, ErrNotApplicable) {
			t.Fatalf("cancel as %s: expected ErrNotApplicable on repeat, got %v", ident.Role, err)
		}
	}
}

func TestCancel_UnrelatedCallerIsNotApplicable(t *testing.T) {
	svc := NewService(newFakeRepo(confirmed("c1")), 0)

	stranger := auth.Identity{UserID: "client-9", Role: auth.RoleClient}
	if _, err := svc.Cancel(context.Background(), "c1", stranger); !errors.Is(err, ErrNotApplicable) {
		t.Fatalf("expected ErrNotApplicable for unrelated caller, got %v", err)
	}

	// The same outcome as a missing record: callers cannot distinguish them.
	if _, err := svc.Cancel(context.Background(), "missing", stranger); !errors.Is(err, ErrNotApplicable) {
		t.Fatalf("expected ErrNotApplicable for missing record, got %v", err)
	}
}

func TestConfirm_OnlyAssignedLawyerFromPending(t *testing.T) {
	rec := confirmed("c1")
	rec.Status = StatusPending
	repo := newFakeRepo(rec)
	svc := NewService(repo, 0)

	if _, err := svc.Confirm(context.Background(), "c1", clientIdent); !errors.Is(err, ErrNotApplicable) {
		t.Fatalf("expected ErrNotApplicable for client confirm, got %v", err)
	}

	got, err := svc.Confirm(context.Background(), "c1", lawyerIdent)
	if err != nil {
		t.Fatalf("confirm: unexpected error: %v", err)
	}
	if got.Status != StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", got.Status)
	}

	// Confirmed is no longer a valid source state for confirm.
	if _, err := svc.Confirm(context.Background(), "c1", lawyerIdent); !errors.Is(err, ErrNotApplicable) {
		t.Fatalf("expected ErrNotApplicable on repeat confirm, got %v", err)
	}
}

func TestBook_Validation(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, 0)

	cases := []struct {
		name   string
		ident  auth.Identity
		params BookParams
		want   error
	}{
		{"empty topic", clientIdent, BookParams{LawyerID: "lawyer-1", Topic: "   "}, ErrTopicRequired},
		{"missing lawyer", clientIdent, BookParams{Topic: "advice"}, ErrLawyerRequired},
		{"self booking", lawyerIdent, BookParams{LawyerID: "lawyer-1", Topic: "advice"}, ErrSelfBooking},
		{"negative price", clientIdent, BookParams{LawyerID: "lawyer-1", Topic: "advice", AgreedPrice: -1}, ErrInvalidPrice},
	}
	for _, tc := range cases {
		if _, err := svc.Book(context.Background(), tc.ident, tc.params); !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
	if len(repo.records) != 0 {
		t.Fatal("store must not be touched on validation failure")
	}

	rec, err := svc.Book(context.Background(), clientIdent, BookParams{LawyerID: "lawyer-1", Topic: "contract review", AgreedPrice: 120})
	if err != nil {
		t.Fatalf("book: unexpected error: %v", err)
	}
	if rec.Status != StatusPending {
		t.Fatalf("expected pending, got %s", rec.Status)
	}
	if rec.ClientID != clientIdent.UserID {
		t.Fatalf("expected client %s, got %s", clientIdent.UserID, rec.ClientID)
	}
}

func TestService_StoreErrorsPropagate(t *testing.T) {
	repo := newFakeRepo(confirmed("c1"))
	repo.err = errors.New("connection refused")
	svc := NewService(repo, 0)

	_, err := svc.Cancel(context.Background(), "c1", clientIdent)
	if err == nil || errors.Is(err, ErrNotApplicable) {
		t.Fatalf("expected transient store error distinct from ErrNotApplicable, got %v", err)
	}
}
