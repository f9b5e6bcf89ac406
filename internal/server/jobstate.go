package server

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/copyleftdev/nettrain/internal/job"
)

// Status is the lifecycle state of a training job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

func (s Status) terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// JobState tracks the progress and result of one training job.
// It is safe for concurrent use.
type JobState struct {
	ID        string
	Algorithm string

	mu          sync.RWMutex
	status      Status
	startTime   time.Time
	endTime     time.Time
	lastUpdated time.Time
	epochs      int
	lastError   float64
	hasError    bool
	outcome     *job.Outcome
	failure     string
	cancel      context.CancelFunc
}

func newJobState(id, algorithm string, cancel context.CancelFunc) *JobState {
	now := time.Now()
	return &JobState{
		ID:          id,
		Algorithm:   algorithm,
		status:      StatusPending,
		startTime:   now,
		lastUpdated: now,
		cancel:      cancel,
	}
}

// markRunning moves a pending job to running. It reports false if the job
// was cancelled first.
func (st *JobState) markRunning() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.status != StatusPending {
		return false
	}
	st.status = StatusRunning
	st.lastUpdated = time.Now()
	return true
}

func (st *JobState) epoch(n int, lastErr float64) {
	st.mu.Lock()
	st.epochs = n
	st.lastError = lastErr
	st.hasError = true
	st.lastUpdated = time.Now()
	st.mu.Unlock()
}

// cancelIfActive cancels a pending or running job and reports whether it
// did so.
func (st *JobState) cancelIfActive() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.status.terminal() {
		return false
	}
	st.cancel()
	st.status = StatusCancelled
	st.endTime = time.Now()
	st.lastUpdated = st.endTime
	return true
}

// finish records the outcome of a run. A job already cancelled stays
// cancelled. The final status is returned.
func (st *JobState) finish(out *job.Outcome, err error) Status {
	st.mu.Lock()
	defer st.mu.Unlock()
	defer st.cancel()

	if st.status == StatusCancelled {
		return st.status
	}
	now := time.Now()
	st.endTime = now
	st.lastUpdated = now
	switch {
	case err == nil:
		st.status = StatusCompleted
		st.outcome = out
	case errors.Is(err, context.Canceled):
		st.status = StatusCancelled
	default:
		st.status = StatusFailed
		st.failure = err.Error()
	}
	return st.status
}

// StatusResponse is the JSON view of a job.
type StatusResponse struct {
	ID            string    `json:"job_id"`
	Status        Status    `json:"status"`
	Algorithm     string    `json:"algorithm"`
	Epochs        int       `json:"epochs"`
	LastError     *float64  `json:"last_error,omitempty"`
	FinalError    *float64  `json:"final_error,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	HistoryLength int       `json:"history_length"`
	Parameters    []float64 `json:"parameters,omitempty"`
	Error         string    `json:"error,omitempty"`
	StartTime     string    `json:"start_time"`
	EndTime       string    `json:"end_time,omitempty"`
	LastUpdated   string    `json:"last_update"`

	start, end time.Time
}

func (r StatusResponse) duration() time.Duration {
	if r.end.IsZero() {
		return time.Since(r.start)
	}
	return r.end.Sub(r.start)
}

// finite returns a pointer to v, or nil when v has no JSON encoding.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Snapshot returns a consistent copy of the job's state. Errors that are
// NaN or infinite are left out.
func (st *JobState) Snapshot() StatusResponse {
	st.mu.RLock()
	defer st.mu.RUnlock()

	r := StatusResponse{
		ID:            st.ID,
		Status:        st.status,
		Algorithm:     st.Algorithm,
		Epochs:        st.epochs,
		HistoryLength: st.epochs,
		Error:         st.failure,
		StartTime:     st.startTime.Format(time.RFC3339),
		LastUpdated:   st.lastUpdated.Format(time.RFC3339),
		start:         st.startTime,
		end:           st.endTime,
	}
	if st.hasError {
		r.LastError = finite(st.lastError)
	}
	if !st.endTime.IsZero() {
		r.EndTime = st.endTime.Format(time.RFC3339)
	}
	if st.outcome != nil {
		res := st.outcome.Result
		r.FinalError = finite(res.Error)
		r.Reason = res.Reason
		r.Epochs = res.Epochs
		r.HistoryLength = len(res.History)
		r.Parameters = append([]float64(nil), st.outcome.Network.Parameters()...)
	}
	return r
}
