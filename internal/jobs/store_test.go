package jobs

import (
	"sync"
	"testing"
	"time"

	"github.com/jmylchreest/usercheck/internal/models"
)

func TestStore_SubmitAndGet(t *testing.T) {
	s := New(256, 30*time.Minute)
	job := s.Submit("alice", 3)

	view, err := s.Get(job.ID, -1)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if view.Username != "alice" {
		t.Errorf("Username = %q, want alice", view.Username)
	}
	if view.State != models.JobPending {
		t.Errorf("State = %v, want pending", view.State)
	}
	if view.ProvidersCount != 3 {
		t.Errorf("ProvidersCount = %d, want 3", view.ProvidersCount)
	}
}

func TestStore_GetUnknownJobNotFound(t *testing.T) {
	s := New(256, 30*time.Minute)
	if _, err := s.Get("nonexistent", -1); err != ErrNotFound {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestStore_AppendResultAndLimit(t *testing.T) {
	s := New(256, 30*time.Minute)
	job := s.Submit("alice", 10)
	s.MarkRunning(job.ID)

	for i := 0; i < 10; i++ {
		s.AppendResult(job.ID, models.Result{Provider: "p", Status: models.StatusFound})
	}

	// S7 — partial polling: limit=3 while technically still "running"
	// state-wise (we haven't called Finish yet).
	view, err := s.Get(job.ID, 3)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if view.ResultsCount != 10 {
		t.Errorf("ResultsCount = %d, want 10", view.ResultsCount)
	}
	if len(view.Results) != 3 {
		t.Errorf("len(Results) = %d, want 3", len(view.Results))
	}

	full, err := s.Get(job.ID, -1)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if len(full.Results) != 10 {
		t.Errorf("len(Results) = %d, want 10 unlimited", len(full.Results))
	}
}

func TestStore_LimitZeroHidesResultsButKeepsCounts(t *testing.T) {
	s := New(256, 30*time.Minute)
	job := s.Submit("alice", 2)
	s.AppendResult(job.ID, models.Result{Status: models.StatusFound})

	view, err := s.Get(job.ID, 0)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if len(view.Results) != 0 {
		t.Errorf("len(Results) = %d, want 0", len(view.Results))
	}
	if view.ResultsCount != 1 {
		t.Errorf("ResultsCount = %d, want 1", view.ResultsCount)
	}
}

func TestStore_FinishFreezesResults(t *testing.T) {
	s := New(256, 30*time.Minute)
	job := s.Submit("alice", 1)
	s.AppendResult(job.ID, models.Result{Status: models.StatusFound})
	s.Finish(job.ID, models.JobDone, "")

	// §3 invariant: once terminal, results is frozen.
	s.AppendResult(job.ID, models.Result{Status: models.StatusNotFound})

	view, _ := s.Get(job.ID, -1)
	if len(view.Results) != 1 {
		t.Errorf("len(Results) = %d, want 1 (frozen after done)", len(view.Results))
	}
}

func TestStore_Cancel(t *testing.T) {
	s := New(256, 30*time.Minute)
	job := s.Submit("alice", 1)
	if err := s.Cancel(job.ID); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}

	view, _ := s.Get(job.ID, -1)
	if view.State != models.JobFailed {
		t.Errorf("State = %v, want failed", view.State)
	}
	if view.Error != "cancelled" {
		t.Errorf("Error = %q, want cancelled", view.Error)
	}
}

func TestStore_NoTransitionFromTerminal(t *testing.T) {
	s := New(256, 30*time.Minute)
	job := s.Submit("alice", 1)
	s.Finish(job.ID, models.JobDone, "")
	s.Finish(job.ID, models.JobFailed, "should not apply")

	view, _ := s.Get(job.ID, -1)
	if view.State != models.JobDone {
		t.Errorf("State = %v, want done (no transition from terminal)", view.State)
	}
}

func TestStore_EvictsOverCapacity(t *testing.T) {
	s := New(2, 30*time.Minute)
	first := s.Submit("alice", 1)
	s.Submit("bob", 1)
	s.Submit("carol", 1) // should evict "alice" (least recently touched)

	if _, err := s.Get(first.ID, -1); err != ErrNotFound {
		t.Errorf("expected oldest job to be evicted, got err=%v", err)
	}
}

func TestStore_EvictExpired(t *testing.T) {
	s := New(256, 0) // zero retention: evict immediately once terminal
	job := s.Submit("alice", 1)
	s.Finish(job.ID, models.JobDone, "")

	evicted := s.EvictExpired(time.Now().Add(time.Millisecond))
	if evicted != 1 {
		t.Errorf("EvictExpired() = %d, want 1", evicted)
	}
	if _, err := s.Get(job.ID, -1); err != ErrNotFound {
		t.Error("expected job to be evicted after retention window")
	}
}

func TestStore_ConcurrentAppendIsSafe(t *testing.T) {
	s := New(256, 30*time.Minute)
	job := s.Submit("alice", 50)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AppendResult(job.ID, models.Result{Status: models.StatusFound})
		}()
	}
	wg.Wait()

	view, _ := s.Get(job.ID, -1)
	if view.ResultsCount != 50 {
		t.Errorf("ResultsCount = %d, want 50", view.ResultsCount)
	}
}
