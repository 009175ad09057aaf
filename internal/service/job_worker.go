package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mathieu-neron/tube301/internal/metrics"
)

// JobFunc is one run of a background job.
type JobFunc func(ctx context.Context) error

// JobState is a point-in-time view of a worker, served by the jobs endpoint.
type JobState struct {
	Name            string    `json:"name"`
	Cooldown        string    `json:"cooldown"`
	Running         bool      `json:"running"`
	Runs            int       `json:"runs"`
	Failures        int       `json:"failures"`
	LastRunID       string    `json:"lastRunId,omitempty"`
	LastStartedAt   time.Time `json:"lastStartedAt,omitempty"`
	LastCompletedAt time.Time `json:"lastCompletedAt,omitempty"`
	LastDurationMS  int64     `json:"lastDurationMs"`
	LastError       string    `json:"lastError,omitempty"`
}

// JobWorker runs a job once on start, then again after a cooldown that begins
// when the previous run completes. Runs of one worker never overlap.
type JobWorker struct {
	name     string
	cooldown time.Duration
	run      JobFunc
	logger   zerolog.Logger

	mu    sync.Mutex
	state JobState
}

// NewJobWorker creates a worker for the named job.
func NewJobWorker(name string, cooldown time.Duration, run JobFunc, logger zerolog.Logger) *JobWorker {
	return &JobWorker{
		name:     name,
		cooldown: cooldown,
		run:      run,
		logger:   logger.With().Str("job", name).Logger(),
		state:    JobState{Name: name, Cooldown: cooldown.String()},
	}
}

// Name returns the job name.
func (w *JobWorker) Name() string {
	return w.name
}

// Start runs the job loop until ctx is cancelled.
func (w *JobWorker) Start(ctx context.Context) {
	w.logger.Info().Dur("cooldown", w.cooldown).Msg("job worker starting")

	for {
		w.tick(ctx)

		select {
		case <-ctx.Done():
			w.logger.Info().Msg("job worker stopping (context cancelled)")
			return
		case <-time.After(w.cooldown):
		}
	}
}

// tick runs the job once. A failing or panicking run is logged and recorded;
// the worker keeps going.
func (w *JobWorker) tick(ctx context.Context) {
	runID := uuid.NewString()
	start := time.Now()

	w.mu.Lock()
	w.state.Running = true
	w.state.LastRunID = runID
	w.state.LastStartedAt = start
	w.mu.Unlock()

	logger := w.logger.With().Str("run_id", runID).Logger()
	logger.Info().Msg("job run started")

	err := w.safeRun(logger.WithContext(ctx))
	elapsed := time.Since(start)

	w.mu.Lock()
	w.state.Running = false
	w.state.Runs++
	w.state.LastCompletedAt = time.Now()
	w.state.LastDurationMS = elapsed.Milliseconds()
	if err != nil {
		w.state.Failures++
		w.state.LastError = err.Error()
	} else {
		w.state.LastError = ""
	}
	w.mu.Unlock()

	status := "ok"
	if err != nil {
		status = "error"
		logger.Error().Err(err).Dur("duration_ms", elapsed).Msg("job run failed")
	} else {
		logger.Info().Dur("duration_ms", elapsed).Msg("job run complete")
	}
	metrics.JobDuration.WithLabelValues(w.name, status).Observe(elapsed.Seconds())
}

func (w *JobWorker) safeRun(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.run(ctx)
}

// Snapshot returns the current state of the worker.
func (w *JobWorker) Snapshot() JobState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Scheduler owns the independent job workers.
type Scheduler struct {
	workers []*JobWorker
	wg      sync.WaitGroup
}

func NewScheduler(workers ...*JobWorker) *Scheduler {
	return &Scheduler{workers: workers}
}

// Start launches every worker in its own goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	for _, w := range s.workers {
		s.wg.Add(1)
		go func(w *JobWorker) {
			defer s.wg.Done()
			w.Start(ctx)
		}(w)
	}
}

// Wait blocks until every worker has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Snapshot returns the state of every worker in registration order.
func (s *Scheduler) Snapshot() []JobState {
	states := make([]JobState, 0, len(s.workers))
	for _, w := range s.workers {
		states = append(states, w.Snapshot())
	}
	return states
}

// Job returns the state of one named worker.
func (s *Scheduler) Job(name string) (JobState, bool) {
	for _, w := range s.workers {
		if w.name == name {
			return w.Snapshot(), true
		}
	}
	return JobState{}, false
}

// Chain runs stages in order. A failing stage is logged and the next stage
// still runs; the first error is returned once all stages are done.
func Chain(stages ...NamedJob) JobFunc {
	return func(ctx context.Context) error {
		var firstErr error
		for _, st := range stages {
			if err := st.Run(ctx); err != nil {
				zerolog.Ctx(ctx).Error().Err(err).Str("stage", st.Name).Msg("stage failed")
				if firstErr == nil {
					firstErr = fmt.Errorf("%s: %w", st.Name, err)
				}
			}
		}
		return firstErr
	}
}

// NamedJob is one stage of a chained job.
type NamedJob struct {
	Name string
	Run  JobFunc
}
