package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"zabbix-sync/core/queue"
)

// Run is one queued reconciliation pass. The infrastructure stages form the
// head of the dependency graph; every host assignment fans out into its own
// unit behind them, so independent hosts reconcile in parallel while no
// host runs before the groups, proxies and templates it references.
type Run struct {
	ID      string
	Target  string
	Started time.Time

	counter  *Counter
	jobs     []*queue.Job
	finished atomic.Bool
	err      atomic.Value
}

func (r *Run) setErr(err error) {
	if err != nil {
		r.err.Store(err.Error())
	}
}

// UnitStatus is the reported state of one unit in a run.
type UnitStatus struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// RunStatus is a point-in-time snapshot of a run.
type RunStatus struct {
	ID       string       `json:"id"`
	Target   string       `json:"target"`
	Started  time.Time    `json:"started"`
	Finished bool         `json:"finished"`
	Error    string       `json:"error,omitempty"`
	Done     int          `json:"items_done"`
	Total    int          `json:"items_total"`
	Units    []UnitStatus `json:"units"`
}

// Status snapshots the run.
func (r *Run) Status() RunStatus {
	status := RunStatus{
		ID:       r.ID,
		Target:   r.Target,
		Started:  r.Started,
		Finished: r.finished.Load(),
	}
	if msg, ok := r.err.Load().(string); ok {
		status.Error = msg
	}
	status.Done, status.Total = r.counter.Snapshot()

	for _, job := range r.jobs {
		unit := UnitStatus{
			ID:     job.ID,
			Name:   job.Name,
			Status: statusName(job.Status()),
		}
		if err := job.Err(); err != nil {
			unit.Error = err.Error()
		}
		status.Units = append(status.Units, unit)
	}
	return status
}

func statusName(s queue.Status) string {
	switch s {
	case queue.StatusRunning:
		return "running"
	case queue.StatusSucceeded:
		return "succeeded"
	case queue.StatusFailed:
		return "failed"
	case queue.StatusSkipped:
		return "skipped"
	default:
		return "pending"
	}
}

// runRegistry keeps the runs the service has started, addressable by id.
type runRegistry struct {
	mu   stdsync.Mutex
	runs map[string]*Run
}

func newRunRegistry() *runRegistry {
	return &runRegistry{runs: make(map[string]*Run)}
}

func (r *runRegistry) add(run *Run) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = run
}

func (r *runRegistry) get(id string) (*Run, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	return run, ok
}

// Run returns the handle of a started run.
func (s *Service) Run(id string) (*Run, bool) {
	return s.runs.get(id)
}

// EnqueueTarget starts a queued reconciliation pass for a target and
// returns immediately. The returned run is polled for progress; the pass
// itself executes on background workers detached from the caller's context.
func (s *Service) EnqueueTarget(ctx context.Context, targetID uint) (*Run, error) {
	target, err := s.store.TargetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	assignments, err := s.store.AssignmentsForTarget(ctx, target.ID)
	if err != nil {
		return nil, err
	}

	runner := queue.NewRunner(s.logger, s.workers)
	run := &Run{
		ID:      uuid.NewString(),
		Target:  target.Name,
		Started: time.Now(),
		counter: &Counter{},
	}

	// The pipeline is assembled in the worker goroutine once the connection
	// is up; the unit closures only dereference it at execution time.
	var pipeline *Pipeline

	proxyGroupsID := fmt.Sprintf("target-%d-proxy-groups", target.ID)
	proxiesID := fmt.Sprintf("target-%d-proxies", target.ID)
	hostGroupsID := fmt.Sprintf("target-%d-host-groups", target.ID)
	catalogID := fmt.Sprintf("target-%d-template-catalog", target.ID)

	run.jobs = append(run.jobs,
		runner.Enqueue(queue.Unit{
			ID:   proxyGroupsID,
			Name: "Proxy groups",
			Run: func(ctx context.Context, _ *queue.Job) error {
				return pipeline.syncProxyGroups(ctx)
			},
		}),
		runner.Enqueue(queue.Unit{
			ID:        proxiesID,
			Name:      "Proxies",
			DependsOn: []string{proxyGroupsID},
			Run: func(ctx context.Context, _ *queue.Job) error {
				return pipeline.syncProxies(ctx)
			},
		}),
		runner.Enqueue(queue.Unit{
			ID:   hostGroupsID,
			Name: "Host groups",
			Run: func(ctx context.Context, _ *queue.Job) error {
				return pipeline.syncHostGroups(ctx)
			},
		}),
		runner.Enqueue(queue.Unit{
			ID:   catalogID,
			Name: "Template catalog",
			Run: func(ctx context.Context, _ *queue.Job) error {
				return pipeline.refreshTemplates(ctx)
			},
		}),
	)

	for i := range assignments {
		assignment := &assignments[i]
		if assignment.Device == nil {
			s.logger.Error("Assignment has no device loaded, not enqueued",
				zap.Uint("assignment", assignment.ID))
			continue
		}
		run.jobs = append(run.jobs, runner.Enqueue(queue.Unit{
			ID:        fmt.Sprintf("target-%d-host-%d", target.ID, assignment.ID),
			Name:      "Host " + assignment.Device.Name,
			DependsOn: []string{proxiesID, hostGroupsID, catalogID},
			Run: func(ctx context.Context, job *queue.Job) error {
				job.SetMeta("device", assignment.Device.Name)
				return pipeline.SyncAssignment(ctx, assignment)
			},
		}))
	}

	s.runs.add(run)

	go func() {
		runCtx := context.Background()
		connect := s.connector(target)
		api, release, err := connect(runCtx)
		if err != nil {
			run.setErr(err)
			run.finished.Store(true)
			s.logger.Error("Queued run could not connect", zap.String("run", run.ID), zap.Error(err))
			return
		}
		defer release()

		exec := NewExecutor(api, connect, s.logger)
		pipeline = NewPipeline(s.store, exec, api, s.policy, target, s.logger, run.counter)

		if err := runner.Run(runCtx); err != nil {
			run.setErr(err)
		}
		run.finished.Store(true)
		s.logger.Info("Queued run finished", zap.String("run", run.ID), zap.String("target", target.Name))
	}()

	return run, nil
}
