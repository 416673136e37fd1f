package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bluedeer/waterbill/internal/config"
	"github.com/google/go-cmp/cmp"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func noop(context.Context) error { return nil }

func TestJobs(t *testing.T) {
	t.Parallel()

	t.Run("default schedule", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		jobs := Jobs(cfg, Tasks{Refresh: noop, Recert: noop, Threshold: noop, DueSoon: noop, Overdue: noop})

		got := map[string]string{}
		for _, j := range jobs {
			got[j.Name] = j.Spec
		}
		want := map[string]string{
			config.JobRefresh:   "0 6 * * *",
			config.JobRecert:    "0 8 * * *",
			config.JobThreshold: "0 9 * * *",
			config.JobDueSoon:   "30 9 * * *",
			config.JobOverdue:   "0 10 * * *",
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("schedule mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("overrides and nil tasks", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.Schedule[config.JobOverdue] = "15 11 * * 1-5"
		cfg.ScrapeInterval = 6 * time.Hour

		jobs := Jobs(cfg, Tasks{Refresh: noop, Overdue: noop})
		if len(jobs) != 2 {
			t.Fatalf("expected 2 jobs, got %d", len(jobs))
		}
		if jobs[0].Spec != "@every 6h0m0s" {
			t.Errorf("refresh spec = %q", jobs[0].Spec)
		}
		if jobs[1].Spec != "15 11 * * 1-5" {
			t.Errorf("overdue spec = %q", jobs[1].Spec)
		}
	})
}

func TestSchedulerAdd(t *testing.T) {
	t.Parallel()

	s := New(time.UTC, quietLogger())
	err := s.AddAll([]Job{
		{Name: "ok", Spec: "0 6 * * *", Run: noop},
		{Name: "bad", Spec: "not a cron spec", Run: noop},
		{Name: "ok", Spec: "0 7 * * *", Run: noop},
	})
	if err == nil {
		t.Fatal("expected errors for invalid and duplicate jobs")
	}
	if diff := cmp.Diff([]string{"ok"}, s.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestSchedulerRunNow(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	var gotCtx atomic.Value

	s := New(time.UTC, quietLogger())
	err := s.Add(Job{Name: "refresh", Spec: "0 6 * * *", Run: func(ctx context.Context) error {
		calls.Add(1)
		gotCtx.Store(ctx.Value(ctxKey{}))
		return errors.New("portal down")
	}})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "run"))
	defer cancel()
	s.Start(ctx)
	defer func() { _ = s.Stop(context.Background()) }()

	if err := s.RunNow("refresh"); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected one call, got %d", calls.Load())
	}
	if gotCtx.Load() != "run" {
		t.Error("job did not receive the start context")
	}
	if err := s.RunNow("missing"); !errors.Is(err, ErrUnknownJob) {
		t.Errorf("expected ErrUnknownJob, got %v", err)
	}
}

type ctxKey struct{}

func TestSchedulerRecoversPanics(t *testing.T) {
	t.Parallel()

	s := New(time.UTC, quietLogger())
	if err := s.Add(Job{Name: "boom", Spec: "@daily", Run: func(context.Context) error { panic("boom") }}); err != nil {
		t.Fatal(err)
	}
	if err := s.RunNow("boom"); err != nil {
		t.Fatal(err)
	}
}

func TestSchedulerNext(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("EST", -5*3600)
	s := New(loc, quietLogger())
	if err := s.Add(Job{Name: "refresh", Spec: "0 6 * * *", Run: noop}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	var next time.Time
	for time.Now().Before(deadline) {
		if next = s.Next()["refresh"]; !next.IsZero() {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if next.IsZero() {
		t.Fatal("next run was never computed")
	}
	if h := next.In(loc).Hour(); h != 6 {
		t.Errorf("expected 06:00 in schedule location, got %v", next.In(loc))
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run: %v", err)
	}
}
