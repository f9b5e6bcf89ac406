package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/copyleftdev/nettrain/internal/config"
	"github.com/copyleftdev/nettrain/internal/job"
	"github.com/copyleftdev/nettrain/internal/logging"
	"github.com/copyleftdev/nettrain/internal/metrics"
	"github.com/copyleftdev/nettrain/internal/train"
)

// Logger defines the logging interface used by the server
// This allows us to be flexible with our logging implementation
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

var (
	// ErrJobNotFound is returned for unknown or expired job IDs.
	ErrJobNotFound = errors.New("training job not found")
	// ErrJobFinished is returned when cancelling a job in a terminal state.
	ErrJobFinished = errors.New("training job already finished")
	// ErrShuttingDown is returned for jobs submitted after Close.
	ErrShuttingDown = errors.New("server shutting down")
)

// Server implements the HTTP and JSON-RPC server for the training service.
// It manages training jobs and provides endpoints to start, monitor, and cancel them.
type Server struct {
	cfg     *config.Config
	logger  Logger
	metrics *metrics.Training

	// jobs maps job IDs to *JobState. Entries expire JOB_TTL after their
	// last state change; eviction cancels a job that is still running.
	jobs  *cache.Cache
	slots chan struct{}
	seq   atomic.Uint64

	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

// NewServer creates a new server instance with the given config, logger and
// metrics. A nil m registers collectors on the default registerer.
func NewServer(cfg *config.Config, logger Logger, m *metrics.Training) *Server {
	if m == nil {
		m = metrics.NewTraining(nil)
	}
	maxRunning := cfg.Jobs.MaxRunning
	if maxRunning <= 0 {
		maxRunning = 1
	}
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		jobs:    cache.New(cfg.Jobs.TTL, cfg.Jobs.CleanupInterval),
		slots:   make(chan struct{}, maxRunning),
	}
	s.jobs.OnEvicted(func(id string, v interface{}) {
		if st, ok := v.(*JobState); ok && st.cancelIfActive() {
			s.logger.Warn("Training job expired while active", map[string]interface{}{"job_id": id})
		}
	})
	return s
}

func (s *Server) RegisterRoutes(r chi.Router) {
	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/train", s.handleTrain)
		r.Get("/status/{id}", s.handleStatus)
		r.Delete("/train/{id}", s.handleCancel)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// Start validates j, stores it and trains it in the background. The
// returned state is pending until a running slot is free.
func (s *Server) Start(j *job.Job) (*JobState, error) {
	j.ApplyDefaults(job.Defaults{
		Algorithm: s.cfg.Training.Algorithm,
		Epochs:    s.cfg.Training.Epochs,
		Show:      s.cfg.Training.Show,
		Goal:      s.cfg.Training.Goal,
		Strict:    s.cfg.Training.Strict,
		Seed:      s.cfg.Training.Seed,
	})
	if err := j.Validate(); err != nil {
		return nil, err
	}

	// No job is registered or counted once closing is set.
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return nil, ErrShuttingDown
	}
	id := fmt.Sprintf("job_%d_%d", time.Now().UnixNano(), s.seq.Add(1))
	ctx, cancel := context.WithCancel(context.Background())
	st := newJobState(id, j.Algorithm, cancel)
	s.jobs.SetDefault(id, st)
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Info("Training job accepted", map[string]interface{}{
		"job_id":    id,
		"algorithm": j.Algorithm,
		"layers":    j.Layers,
		"samples":   len(j.Input),
	})

	go s.run(ctx, st, j)
	return st, nil
}

// Lookup returns the state of a stored job.
func (s *Server) Lookup(id string) (*JobState, error) {
	v, ok := s.jobs.Get(id)
	if !ok {
		return nil, ErrJobNotFound
	}
	return v.(*JobState), nil
}

// Cancel stops a pending or running job.
func (s *Server) Cancel(id string) error {
	st, err := s.Lookup(id)
	if err != nil {
		return err
	}
	if !st.cancelIfActive() {
		return fmt.Errorf("%w: status %s", ErrJobFinished, st.Snapshot().Status)
	}
	s.logger.Info("Training job cancelled", map[string]interface{}{"job_id": id})
	return nil
}

// run waits for a slot and trains the job.
func (s *Server) run(ctx context.Context, st *JobState, j *job.Job) {
	defer s.wg.Done()

	select {
	case s.slots <- struct{}{}:
	case <-ctx.Done():
		st.finish(nil, ctx.Err())
		return
	}
	defer func() { <-s.slots }()

	if !st.markRunning() {
		return
	}
	s.metrics.Started()

	zlog := logging.NewZapLogger(s.logger.WithFields(map[string]interface{}{"job_id": st.ID}))
	out, err := j.Run(ctx, zlog,
		train.WithEpochObserver(func(epoch int, lastErr float64) {
			st.epoch(epoch, lastErr)
			s.metrics.Epoch(j.Algorithm, st.ID, lastErr)
		}),
		train.WithTrialObserver(train.TrialObserverFunc(func(x []float64, f float64, accepted bool) {
			zlog.Debug("basin-hopping trial", zap.Float64("error", f), zap.Bool("accepted", accepted))
		})),
	)

	status := st.finish(out, err)
	snap := st.Snapshot()
	s.metrics.Finished(j.Algorithm, st.ID, string(status), snap.duration())
	// Restart the TTL so finished results stay readable for a full period.
	s.jobs.SetDefault(st.ID, st)

	fields := map[string]interface{}{
		"job_id": st.ID,
		"status": status,
		"epochs": snap.Epochs,
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	if status == StatusFailed {
		s.logger.Error("Training job failed", fields)
		return
	}
	s.logger.Info("Training job finished", fields)
}

// Close cancels every job and waits for their goroutines to return.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()
	for _, item := range s.jobs.Items() {
		if st, ok := item.Object.(*JobState); ok {
			st.cancelIfActive()
		}
	}
	s.wg.Wait()
	return nil
}

// handleTrain handles POST /api/v1/train.
func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": err.Error()})
		return
	}
	j, err := job.Parse(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": err.Error()})
		return
	}

	st, err := s.Start(j)
	if err != nil {
		writeJSON(w, statusFor(err), map[string]interface{}{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, startResponse(st))
}

// handleStatus handles GET /api/v1/status/{id}.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.Lookup(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, statusFor(err), map[string]interface{}{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, st.Snapshot())
}

// handleCancel handles DELETE /api/v1/train/{id}.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.Cancel(chi.URLParam(r, "id")); err != nil {
		writeJSON(w, statusFor(err), map[string]interface{}{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancellation requested"})
}

const maxBodyBytes = 32 << 20

func startResponse(st *JobState) map[string]interface{} {
	return map[string]interface{}{
		"job_id": st.ID,
		"status": st.Snapshot().Status,
	}
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrJobFinished):
		return http.StatusConflict
	case errors.Is(err, ErrShuttingDown):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

// encodeFailure is written in place of a body that cannot be encoded.
const encodeFailure = `{"error":"response could not be encoded"}` + "\n"

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, encodeFailure)
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}
