package test

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/exec"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"lexflow/consultation"
	"lexflow/payment"
	"lexflow/test/infra"
)

var (
	flDuration    = flag.Duration("duration", 60*time.Second, "how long to run stress")
	flConcurrency = flag.Int("concurrency", 8, "number of concurrent actors per role")
	flSeed        = flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flDSN         = flag.String("dsn", "", "existing Postgres DSN to reuse (avoids Docker)")
)

// TestLifecycleConcurrency races cancellers, confirmers, completers, and
// duplicate payment deliveries against a shared consultation and payment, then
// checks that the guarded updates never let an illegal row through.
func TestLifecycleConcurrency(t *testing.T) {
	flag.Parse()
	seed := *flSeed
	rng := rand.New(rand.NewSource(seed))

	var (
		pgC        *infra.PGContainer
		dsn        string
		err        error
		usedShared bool
	)
	ctx, cancel := context.WithTimeout(context.Background(), *flDuration+60*time.Second)
	defer cancel()

	switch {
	case *flDSN != "":
		dsn = *flDSN
		usedShared = true
		pgC = &infra.PGContainer{}
	case os.Getenv("STRESS_TEST_PG_DSN") != "":
		dsn = os.Getenv("STRESS_TEST_PG_DSN")
		usedShared = true
		pgC = &infra.PGContainer{}
	default:
		if dockerAvailable(ctx) {
			pgC, dsn, err = infra.StartPostgres16(ctx, "")
			if err != nil {
				t.Fatalf("start postgres: %v", err)
			}
		} else {
			dsn, err = infra.InitLocalDatabase(ctx)
			if err != nil {
				t.Fatalf("init local database: %v", err)
			}
			pgC = &infra.PGContainer{}
		}
	}
	defer pgC.Terminate(context.Background())

	pool, teardown, err := infra.ApplyMigrations(ctx, dsn, usedShared)
	if err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	defer pool.Close()
	defer func() {
		if err := teardown(context.Background()); err != nil {
			t.Logf("teardown warning: %v", err)
		}
	}()

	seedData := mustSeed(t, ctx, pool, rng)

	consultations := consultation.NewRepository(pool)
	payments := payment.NewRepository(pool)

	var (
		confirms    atomic.Int64
		cancels     atomic.Int64
		completes   atomic.Int64
		settlements atomic.Int64
	)

	g, ctx2 := errgroup.WithContext(ctx)
	stop := make(chan struct{})

	transition := func(run func() error) func() error {
		return func() error {
			for {
				select {
				case <-stop:
					return nil
				case <-ctx2.Done():
					return nil
				default:
				}
				if err := run(); err != nil {
					return err
				}
				// global rand is locked, safe across actors
				time.Sleep(time.Duration(rand.Intn(20)) * time.Millisecond)
			}
		}
	}

	for i := 0; i < *flConcurrency; i++ {
		g.Go(transition(func() error {
			_, err := consultations.Confirm(ctx2, seedData.consultationID, seedData.lawyerID, "lawyer")
			return countOutcome(&confirms, err)
		}))
		g.Go(transition(func() error {
			_, err := consultations.Cancel(ctx2, seedData.consultationID, seedData.clientID, "client")
			return countOutcome(&cancels, err)
		}))
		g.Go(transition(func() error {
			price := float64(100 + rand.Intn(200))
			_, err := consultations.Complete(ctx2, seedData.consultationID, seedData.lawyerID, "lawyer", &price)
			return countOutcome(&completes, err)
		}))
		g.Go(transition(func() error {
			_, err := payments.CompleteByIntent(ctx2, seedData.intentRef)
			return countOutcome(&settlements, err)
		}))
	}

	// fresh bookings keep the table churning while the shared rows are contested
	g.Go(transition(func() error {
		_, err := consultations.Book(ctx2, seedData.clientID, consultation.BookParams{
			LawyerID:    seedData.lawyerID,
			Topic:       fmt.Sprintf("churn %d", rand.Int63()),
			AgreedPrice: 50,
		})
		return ignoreNoOp(err)
	}))

	deadline := time.Now().Add(*flDuration)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

loop:
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			name, row, err := runOracles(ctx2, pool)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					break loop
				}
				t.Fatalf("oracle error: %v", err)
			}
			if name != "" {
				t.Fatalf("oracle %s failed. First row: %s (seed=%d)", name, row, seed)
			}
		}
	}

	close(stop)
	if err := g.Wait(); err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("actors errored: %v", err)
		}
	}

	// Transition counters: each guarded update may win at most once, and a
	// consultation cannot be both cancelled and completed.
	if n := confirms.Load(); n > 1 {
		t.Errorf("confirm won %d times, want at most 1 (seed=%d)", n, seed)
	}
	if c, d := cancels.Load(), completes.Load(); c+d > 1 {
		t.Errorf("cancel won %d and complete won %d times, want at most 1 combined (seed=%d)", c, d, seed)
	}
	if n := settlements.Load(); n != 1 {
		t.Errorf("payment completion won %d times, want exactly 1 (seed=%d)", n, seed)
	}
}

// countOutcome records a won transition and swallows the applicability no-op.
func countOutcome(counter *atomic.Int64, err error) error {
	switch {
	case err == nil:
		counter.Add(1)
		return nil
	default:
		return ignoreNoOp(err)
	}
}

func ignoreNoOp(err error) error {
	switch {
	case err == nil,
		errors.Is(err, consultation.ErrNotApplicable),
		errors.Is(err, payment.ErrNotApplicable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return nil
	}
	return err
}

func dockerAvailable(ctx context.Context) bool {
	if _, err := exec.LookPath("docker"); err != nil {
		return false
	}
	c := exec.CommandContext(ctx, "docker", "info")
	c.Stdout = io.Discard
	c.Stderr = io.Discard
	return c.Run() == nil
}

type seedIDs struct {
	clientID       string
	lawyerID       string
	consultationID string
	intentRef      string
}

func mustSeed(t *testing.T, ctx context.Context, pool *pgxpool.Pool, rng *rand.Rand) seedIDs {
	t.Helper()
	var s seedIDs
	if err := pool.QueryRow(ctx, `INSERT INTO users (email, password_hash, full_name, role) VALUES ($1,'x','Stress Client','client') RETURNING id`,
		fmt.Sprintf("client%d@example.com", rng.Int63())).Scan(&s.clientID); err != nil {
		t.Fatalf("seed client: %v", err)
	}
	if err := pool.QueryRow(ctx, `INSERT INTO users (email, password_hash, full_name, role) VALUES ($1,'x','Stress Lawyer','lawyer') RETURNING id`,
		fmt.Sprintf("lawyer%d@example.com", rng.Int63())).Scan(&s.lawyerID); err != nil {
		t.Fatalf("seed lawyer: %v", err)
	}
	if err := pool.QueryRow(ctx, `INSERT INTO consultations (client_id, lawyer_id, topic, status, agreed_price) VALUES ($1,$2,'contested','pending',100) RETURNING id`,
		s.clientID, s.lawyerID).Scan(&s.consultationID); err != nil {
		t.Fatalf("seed consultation: %v", err)
	}
	s.intentRef = fmt.Sprintf("pi_stress_%d", rng.Int63())
	if _, err := pool.Exec(ctx, `INSERT INTO payments (user_id, consultation_id, intent_ref, amount, status) VALUES ($1,$2,$3,100,'pending')`,
		s.clientID, s.consultationID, s.intentRef); err != nil {
		t.Fatalf("seed payment: %v", err)
	}
	return s
}

// runOracles scans for rows that violate the lifecycle rules. It returns the
// name of the first failing oracle and the offending row, or empty strings.
func runOracles(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	type oracle struct {
		name string
		sql  string
	}
	oracles := []oracle{
		{"final_price_only_when_completed",
			`SELECT id::text FROM consultations WHERE final_price IS NOT NULL AND status <> 'completed' LIMIT 1`},
		{"completed_consultation_has_final_price",
			`SELECT id::text FROM consultations WHERE status = 'completed' AND final_price IS NULL LIMIT 1`},
		{"completed_payment_has_timestamp",
			`SELECT id::text FROM payments WHERE status = 'completed' AND completed_at IS NULL LIMIT 1`},
		{"pending_payment_has_no_timestamp",
			`SELECT id::text FROM payments WHERE status = 'pending' AND completed_at IS NOT NULL LIMIT 1`},
		{"updated_at_monotonic",
			`SELECT id::text FROM consultations WHERE updated_at < created_at LIMIT 1`},
	}

	for _, o := range oracles {
		var row string
		err := pool.QueryRow(ctx, o.sql).Scan(&row)
		switch {
		case err == nil:
			return o.name, row, nil
		case errors.Is(err, pgx.ErrNoRows):
			continue
		default:
			return "", "", err
		}
	}
	return "", "", nil
}
