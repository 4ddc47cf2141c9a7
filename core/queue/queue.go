package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Status is the lifecycle state of one unit.
type Status int

const (
	// StatusPending means the unit has not started yet.
	StatusPending Status = iota
	// StatusRunning means the unit is executing.
	StatusRunning
	// StatusSucceeded means the unit completed without error.
	StatusSucceeded
	// StatusFailed means the unit returned an error.
	StatusFailed
	// StatusSkipped means a dependency failed, so the unit never ran.
	StatusSkipped
)

// Unit describes one unit of work. Units with the same ID are the same
// logical unit: re-enqueueing is idempotent.
type Unit struct {
	// ID is the stable identifier. Empty means a random one is assigned.
	ID string
	// Name is the human-readable unit name used in logs.
	Name string
	// DependsOn lists unit IDs that must succeed before this unit runs.
	DependsOn []string
	// Run executes the unit. The job carries the mutable metadata bag.
	Run func(ctx context.Context, job *Job) error
}

// Job is the runtime handle of an enqueued unit. Its metadata bag is the
// only channel for progress reporting; it is advisory and never drives
// control flow.
type Job struct {
	ID   string
	Name string

	mu     sync.Mutex
	status Status
	err    error
	meta   map[string]any
}

// SetMeta stores a metadata value, e.g. a progress percentage.
func (j *Job) SetMeta(key string, value any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.meta[key] = value
}

// Meta reads a metadata value.
func (j *Job) Meta(key string) (any, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	v, ok := j.meta[key]
	return v, ok
}

// Status returns the unit's lifecycle state.
func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Err returns the unit's failure, if any.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

func (j *Job) setStatus(s Status, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = s
	j.err = err
}

type entry struct {
	unit Unit
	job  *Job
}

// Runner executes enqueued units respecting completes-before edges.
// Units with no path between them may run on separate worker slots; units
// share no in-process state beyond the persisted records they own.
type Runner struct {
	mu      sync.Mutex
	entries map[string]*entry
	order   []string
	workers int
	logger  *zap.Logger
}

// NewRunner creates a runner with the given number of worker slots.
func NewRunner(logger *zap.Logger, workers int) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		entries: make(map[string]*entry),
		workers: workers,
		logger:  logger,
	}
}

// Enqueue registers a unit and returns its job handle. Enqueueing an ID that
// is already registered returns the existing job unchanged.
func (r *Runner) Enqueue(u Unit) *Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if e, ok := r.entries[u.ID]; ok {
		return e.job
	}

	job := &Job{
		ID:     u.ID,
		Name:   u.Name,
		status: StatusPending,
		meta:   make(map[string]any),
	}
	r.entries[u.ID] = &entry{unit: u, job: job}
	r.order = append(r.order, u.ID)
	return job
}

// Job returns the handle for an enqueued unit ID.
func (r *Runner) Job(id string) (*Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return e.job, true
}

// Run executes all enqueued units in dependency order and blocks until every
// unit has finished or been skipped. A unit failure does not abort the run;
// only its dependents are skipped. Run itself fails only on an unknown or
// cyclic dependency.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	pending := make([]string, len(r.order))
	copy(pending, r.order)
	r.mu.Unlock()

	for _, id := range pending {
		e := r.entries[id]
		for _, dep := range e.unit.DependsOn {
			if _, ok := r.entries[dep]; !ok {
				return fmt.Errorf("unit %q depends on unknown unit %q", id, dep)
			}
		}
	}

	remaining := len(pending)
	for remaining > 0 {
		ready := r.readySet(pending)
		if len(ready) == 0 {
			return fmt.Errorf("dependency cycle among %d remaining units", remaining)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.workers)
		for _, id := range ready {
			e := r.entries[id]
			g.Go(func() error {
				r.execute(gctx, e)
				return nil
			})
		}
		// Workers never return errors; failures live on the jobs.
		_ = g.Wait()

		if err := ctx.Err(); err != nil {
			return err
		}
		remaining -= len(ready)
	}
	return nil
}

// readySet returns pending units whose dependencies have all finished,
// marking as skipped those with a failed or skipped dependency.
func (r *Runner) readySet(ids []string) []string {
	var ready []string
	for _, id := range ids {
		e := r.entries[id]
		if e.job.Status() != StatusPending {
			continue
		}

		runnable := true
		blocked := false
		for _, dep := range e.unit.DependsOn {
			switch r.entries[dep].job.Status() {
			case StatusSucceeded:
			case StatusFailed, StatusSkipped:
				blocked = true
			default:
				runnable = false
			}
		}
		if blocked {
			e.job.setStatus(StatusSkipped, fmt.Errorf("dependency failed"))
			r.logger.Warn("Unit skipped, dependency failed",
				zap.String("unit", e.unit.Name), zap.String("id", e.job.ID))
			// Skipped counts as finished for this wave's bookkeeping.
			ready = append(ready, id)
			continue
		}
		if runnable {
			ready = append(ready, id)
		}
	}
	return ready
}

func (r *Runner) execute(ctx context.Context, e *entry) {
	if e.job.Status() != StatusPending {
		return
	}
	e.job.setStatus(StatusRunning, nil)
	r.logger.Info("Unit started", zap.String("unit", e.unit.Name), zap.String("id", e.job.ID))

	if err := e.unit.Run(ctx, e.job); err != nil {
		e.job.setStatus(StatusFailed, err)
		r.logger.Error("Unit failed",
			zap.String("unit", e.unit.Name), zap.String("id", e.job.ID), zap.Error(err))
		return
	}
	e.job.setStatus(StatusSucceeded, nil)
	r.logger.Info("Unit completed", zap.String("unit", e.unit.Name), zap.String("id", e.job.ID))
}
