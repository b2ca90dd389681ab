package tryon

import (
	"context"
	"sync"
	"time"

	"server/internal/domain"
)

// State is the lifecycle phase of a try-on job.
type State string

const (
	StatePending    State = "pending"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StateCancelled  State = "cancelled"
)

// Terminal reports whether the job will not change state again.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Snapshot is a point-in-time copy of a job, safe to hand to callers.
type Snapshot struct {
	ID        string    `json:"job_id"`
	StyleID   string    `json:"style_id"`
	State     State     `json:"status"`
	Progress  int       `json:"progress"`
	ResultURL string    `json:"result_url,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type job struct {
	snap      Snapshot
	storedKey string
	cancel    context.CancelFunc
}

const defaultRetention = 30 * time.Minute

// Registry tracks in-flight and finished try-on jobs in memory. Jobs are
// keyed by ID; there is at most one orchestration per ID and cancellation
// goes through the job's own context. Terminal jobs are evicted once their
// last update is older than the retention window, so an unauthenticated
// submit endpoint cannot grow the map without bound.
type Registry struct {
	mu        sync.Mutex
	jobs      map[string]*job
	retention time.Duration
}

// NewRegistry returns an empty registry. retention <= 0 selects the
// 30-minute default.
func NewRegistry(retention time.Duration) *Registry {
	if retention <= 0 {
		retention = defaultRetention
	}
	return &Registry{jobs: make(map[string]*job), retention: retention}
}

func (r *Registry) add(id, styleID string, cancel context.CancelFunc) Snapshot {
	now := time.Now().UTC()
	j := &job{
		snap: Snapshot{
			ID:        id,
			StyleID:   styleID,
			State:     StatePending,
			CreatedAt: now,
			UpdatedAt: now,
		},
		cancel: cancel,
	}
	r.mu.Lock()
	r.pruneLocked(now)
	r.jobs[id] = j
	r.mu.Unlock()
	return j.snap
}

// pruneLocked drops terminal jobs past the retention window. Running jobs
// are never evicted; their goroutine still updates them.
func (r *Registry) pruneLocked(now time.Time) {
	for id, j := range r.jobs {
		if j.snap.State.Terminal() && now.Sub(j.snap.UpdatedAt) > r.retention {
			delete(r.jobs, id)
		}
	}
}

// Get returns a snapshot of the job, or domain.ErrNotFound.
func (r *Registry) Get(id string) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return Snapshot{}, domain.ErrNotFound
	}
	return j.snap, nil
}

// Cancel requests cancellation of a running job. Terminal jobs are left
// untouched and reported back as-is.
func (r *Registry) Cancel(id string) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return Snapshot{}, domain.ErrNotFound
	}
	if !j.snap.State.Terminal() && j.cancel != nil {
		j.cancel()
	}
	return j.snap, nil
}

// update mutates one job under the lock. Missing IDs are ignored; the job
// may have been evicted while its goroutine was still finishing.
func (r *Registry) update(id string, fn func(*job)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return
	}
	fn(j)
	j.snap.UpdatedAt = time.Now().UTC()
}

func (r *Registry) setProgress(id string, state State, percent int) {
	r.update(id, func(j *job) {
		if j.snap.State.Terminal() {
			return
		}
		j.snap.State = state
		j.snap.Progress = percent
	})
}

func (r *Registry) complete(id, resultURL string) {
	r.update(id, func(j *job) {
		j.snap.State = StateCompleted
		j.snap.Progress = 100
		j.snap.ResultURL = resultURL
	})
}

func (r *Registry) fail(id string, state State, message string) {
	r.update(id, func(j *job) {
		j.snap.State = state
		j.snap.Progress = 0
		j.snap.Error = message
	})
}

func (r *Registry) storedKey(id string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return "", domain.ErrNotFound
	}
	return j.storedKey, nil
}

func (r *Registry) setStoredKey(id, key string) {
	r.update(id, func(j *job) {
		j.storedKey = key
	})
}
