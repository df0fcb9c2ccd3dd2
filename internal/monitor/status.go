package monitor

import (
	"sort"
	"sync"
	"time"

	domain "github.com/AbdullahP/pokealert/pkg/types"
)

// StatusRecorder tracks per-target monitoring health for the status API
// and external dashboards.
type StatusRecorder struct {
	mu       sync.RWMutex
	statuses map[string]*domain.TargetStatus
}

// NewStatusRecorder creates an empty recorder.
func NewStatusRecorder() *StatusRecorder {
	return &StatusRecorder{statuses: make(map[string]*domain.TargetStatus)}
}

// Register adds a target to the recorder, preserving existing counters
// when the target restarts.
func (r *StatusRecorder) Register(target domain.TrackedTarget) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.statuses[target.ID]; ok {
		s.Active = true
		return
	}
	r.statuses[target.ID] = &domain.TargetStatus{
		TargetID: target.ID,
		URL:      target.URL,
		Active:   true,
	}
}

// Deactivate marks a target as no longer polled.
func (r *StatusRecorder) Deactivate(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.statuses[id]; ok {
		s.Active = false
	}
}

// RecordSuccess counts one successful check.
func (r *StatusRecorder) RecordSuccess(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.statuses[id]
	if !ok {
		return
	}
	now := time.Now()
	s.Checks++
	s.Successes++
	s.SuccessRate = float64(s.Successes) / float64(s.Checks)
	s.LastCheck = &now
	s.LastError = ""
}

// RecordFailure counts one failed check with its error.
func (r *StatusRecorder) RecordFailure(id string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.statuses[id]
	if !ok {
		return
	}
	now := time.Now()
	s.Checks++
	s.ErrorCount++
	s.SuccessRate = float64(s.Successes) / float64(s.Checks)
	s.LastCheck = &now
	if err != nil {
		s.LastError = err.Error()
	}
}

// Get returns a copy of one target's status.
func (r *StatusRecorder) Get(id string) (domain.TargetStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.statuses[id]
	if !ok {
		return domain.TargetStatus{}, false
	}
	return *s, true
}

// All returns a copy of every target's status, sorted by target ID.
func (r *StatusRecorder) All() []domain.TargetStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.TargetStatus, 0, len(r.statuses))
	for _, s := range r.statuses {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TargetID < out[j].TargetID
	})
	return out
}
