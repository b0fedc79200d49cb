package lawyer

import (
	"context"
	"errors"
	"testing"
)

type fakeStore struct {
	profile Profile
	called  bool
}

func (f *fakeStore) GetByID(_ context.Context, _ string) (Profile, error) {
	return f.profile, nil
}

func (f *fakeStore) List(_ context.Context, _ string, _ int) ([]Profile, error) {
	return []Profile{f.profile}, nil
}

func (f *fakeStore) UpdateOwn(_ context.Context, _ string, _ UpdateParams) (Profile, error) {
	f.called = true
	return f.profile, nil
}

func (f *fakeStore) ListSpecialties(_ context.Context) ([]Specialty, error) {
	return nil, nil
}

func TestUpdateOwn_NegativeRateRejectedBeforeStore(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store)

	rate := -10.0
	_, err := svc.UpdateOwn(context.Background(), "u1", UpdateParams{HourlyRate: &rate})
	if !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("expected ErrInvalidRate, got %v", err)
	}
	if store.called {
		t.Fatal("store must not be reached on invalid input")
	}
}

func TestUpdateOwn_NegativeExperienceRejected(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store)

	years := -1
	_, err := svc.UpdateOwn(context.Background(), "u1", UpdateParams{YearsExperience: &years})
	if err == nil {
		t.Fatal("expected error for negative experience")
	}
	if store.called {
		t.Fatal("store must not be reached on invalid input")
	}
}

func TestUpdateOwn_ValidEditReachesStore(t *testing.T) {
	store := &fakeStore{profile: Profile{ID: "l1", FullName: "Lena"}}
	svc := NewService(store)

	headline := "Employment law, 10 years"
	got, err := svc.UpdateOwn(context.Background(), "u1", UpdateParams{Headline: &headline})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !store.called {
		t.Fatal("expected store to be reached")
	}
	if got.ID != "l1" {
		t.Fatalf("unexpected profile: %+v", got)
	}
}
