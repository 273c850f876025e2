// Package jobs implements the process-local, bounded job store (§4.I):
// job creation, lifecycle transitions, result accumulation, and
// LRU-over-capacity-or-age eviction via a mutex-guarded container/list
// LRU, since the scan core's job store is explicitly non-persistent
// (§1 Non-goals).
package jobs

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/jmylchreest/usercheck/internal/models"
	"github.com/oklog/ulid/v2"
)

// ErrNotFound is returned by Get/Cancel when a job id is unknown or has
// been evicted (§4.I "get on an evicted job fails with not_found").
var ErrNotFound = fmt.Errorf("job not found")

// entry pairs a Job with its own lock (§5: "fine-grained per-job lock
// for result append") and its position in the LRU list.
type entry struct {
	job  *models.Job
	mu   sync.Mutex
	elem *list.Element
}

// Store is the bounded, in-memory job store (§3, §4.I).
type Store struct {
	mu        sync.Mutex // guards byID and lru only (§5)
	byID      map[string]*entry
	lru       *list.List
	capacity  int
	retention time.Duration
}

// New builds a Store with the given capacity and post-terminal
// retention window (§3 Lifecycles: "bounded process-local store
// (capacity ≥ 64 ... or 30 min after terminal state — whichever
// first)").
func New(capacity int, retention time.Duration) *Store {
	if capacity < 1 {
		capacity = 256
	}
	return &Store{
		byID:      make(map[string]*entry),
		lru:       list.New(),
		capacity:  capacity,
		retention: retention,
	}
}

// Submit creates a new job in state=pending and inserts it into the
// store, evicting the oldest entry if the store is at capacity (§4.I).
func (s *Store) Submit(username string, providersCount int) *models.Job {
	now := time.Now()
	job := &models.Job{
		ID:             ulid.Make().String(),
		Username:       username,
		ProvidersCount: providersCount,
		State:          models.JobPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	e := &entry{job: job}

	s.mu.Lock()
	defer s.mu.Unlock()

	e.elem = s.lru.PushFront(job.ID)
	s.byID[job.ID] = e
	s.evictOverCapacityLocked()

	return job
}

// evictOverCapacityLocked must be called with s.mu held.
func (s *Store) evictOverCapacityLocked() {
	for len(s.byID) > s.capacity {
		oldest := s.lru.Back()
		if oldest == nil {
			return
		}
		id := oldest.Value.(string)
		s.lru.Remove(oldest)
		delete(s.byID, id)
	}
}

// MarkRunning transitions a job to state=running.
func (s *Store) MarkRunning(jobID string) error {
	e, ok := s.lookup(jobID)
	if !ok {
		return ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.job.State != models.JobPending {
		return nil
	}
	e.job.State = models.JobRunning
	e.job.UpdatedAt = time.Now()
	return nil
}

// AppendResult appends r to the job's results under the job's own
// lock, then touches the job in the LRU (§5). It is a no-op once the
// job has reached a terminal state (§3 invariant: "once state ∈ {done,
// failed}, results is frozen").
func (s *Store) AppendResult(jobID string, r models.Result) error {
	e, ok := s.lookup(jobID)
	if !ok {
		return ErrNotFound
	}

	e.mu.Lock()
	if e.job.State == models.JobDone || e.job.State == models.JobFailed {
		e.mu.Unlock()
		return nil
	}
	e.job.Results = append(e.job.Results, r)
	e.job.UpdatedAt = time.Now()
	e.mu.Unlock()

	s.touch(jobID)
	return nil
}

// ReplaceResults overwrites the job's results wholesale, used by the
// scanner to land the addon pipeline's enriched Results (§4.H) before
// the job freezes. Like AppendResult, it is a no-op once the job has
// reached a terminal state.
func (s *Store) ReplaceResults(jobID string, results []models.Result) error {
	e, ok := s.lookup(jobID)
	if !ok {
		return ErrNotFound
	}

	e.mu.Lock()
	if e.job.State == models.JobDone || e.job.State == models.JobFailed {
		e.mu.Unlock()
		return nil
	}
	e.job.Results = results
	e.job.UpdatedAt = time.Now()
	e.mu.Unlock()

	s.touch(jobID)
	return nil
}

// Finish transitions the job to a terminal state. errStr is recorded
// only for state=failed (§3, §7).
func (s *Store) Finish(jobID string, state models.JobState, errStr string) error {
	e, ok := s.lookup(jobID)
	if !ok {
		return ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.job.State == models.JobDone || e.job.State == models.JobFailed {
		return nil // no transitions from terminal states (§4.I)
	}
	e.job.State = state
	e.job.Error = errStr
	e.job.UpdatedAt = time.Now()
	return nil
}

// Cancel marks a job failed with error "cancelled" (§4.I: "running →
// cancelled is modeled by failed with error cancelled").
func (s *Store) Cancel(jobID string) error {
	return s.Finish(jobID, models.JobFailed, "cancelled")
}

// Get returns the job projection, truncating Results to limit. limit<0
// means unlimited; limit==0 returns no results but full counts (§4.I).
func (s *Store) Get(jobID string, limit int) (models.JobView, error) {
	e, ok := s.lookup(jobID)
	if !ok {
		return models.JobView{}, ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	results := e.job.Results
	if limit >= 0 && limit < len(results) {
		results = results[:limit]
	}
	// Defensive copy: callers must not observe future mutation of a
	// slice they were handed.
	out := make([]models.Result, len(results))
	copy(out, results)

	return models.JobView{
		JobID:          e.job.ID,
		Username:       e.job.Username,
		State:          e.job.State,
		Error:          e.job.Error,
		ProvidersCount: e.job.ProvidersCount,
		ResultsCount:   len(e.job.Results),
		FoundCount:     e.job.FoundCount(),
		FailedCount:    e.job.FailedCount(),
		Results:        out,
	}, nil
}

// EvictExpired removes terminal jobs older than the retention window,
// the age-based half of the store's eviction policy (§3, §9).
func (s *Store) EvictExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, e := range s.byID {
		e.mu.Lock()
		terminal := e.job.State == models.JobDone || e.job.State == models.JobFailed
		age := now.Sub(e.job.UpdatedAt)
		e.mu.Unlock()

		if terminal && age > s.retention {
			s.lru.Remove(e.elem)
			delete(s.byID, id)
			evicted++
		}
	}
	return evicted
}

func (s *Store) lookup(jobID string) (*entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[jobID]
	return e, ok
}

func (s *Store) touch(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[jobID]
	if !ok {
		return
	}
	s.lru.MoveToFront(e.elem)
}
