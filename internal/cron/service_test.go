package cron

import (
	"context"
	"sync"
	"testing"
	"time"
)

type countingJob struct {
	name string
	mu   sync.Mutex
	runs int
}

func (c *countingJob) Name() string { return c.name }

func (c *countingJob) Run(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs++
	return nil
}

func (c *countingJob) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runs
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.Register(&countingJob{name: "a"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(&countingJob{name: "a"}); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
	if err := r.Register(&countingJob{name: ""}); err == nil {
		t.Fatal("expected empty name to fail")
	}
	if got := len(r.Jobs()); got != 1 {
		t.Fatalf("expected 1 job, got %d", got)
	}
}

func TestServiceRunsImmediatelyAndStops(t *testing.T) {
	t.Parallel()

	job := &countingJob{name: "tick"}
	registry := NewRegistry()
	if err := registry.Register(job); err != nil {
		t.Fatalf("register: %v", err)
	}
	svc, err := NewService(ServiceParams{
		Registry: registry,
		Lock:     NoopLock{},
		Log:      testLogger(),
		Interval: time.Hour,
	})
	if err != nil {
		t.Fatalf("service: %v", err)
	}

	go svc.Start(context.Background())
	deadline := time.After(2 * time.Second)
	for job.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("job never ran")
		case <-time.After(10 * time.Millisecond):
		}
	}
	svc.Stop()

	if got := job.count(); got != 1 {
		t.Fatalf("expected exactly one run before the first tick, got %d", got)
	}
}

type deniedLock struct{}

func (deniedLock) Acquire(context.Context, string, time.Duration) (bool, error) { return false, nil }
func (deniedLock) Release(context.Context, string) error                        { return nil }

func TestServiceSkipsWhenLockHeld(t *testing.T) {
	t.Parallel()

	job := &countingJob{name: "held"}
	registry := NewRegistry()
	if err := registry.Register(job); err != nil {
		t.Fatalf("register: %v", err)
	}
	svc, err := NewService(ServiceParams{
		Registry: registry,
		Lock:     deniedLock{},
		Log:      testLogger(),
		Interval: time.Hour,
	})
	if err != nil {
		t.Fatalf("service: %v", err)
	}

	svc.runAll(context.Background())
	if got := job.count(); got != 0 {
		t.Fatalf("expected no runs while lock is held elsewhere, got %d", got)
	}
}
