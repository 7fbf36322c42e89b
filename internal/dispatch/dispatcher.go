package dispatch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"gatekeep/internal/gate"
	"gatekeep/pkg/event"
)

// Verdict is the run's aggregate, externally visible result.
type Verdict string

const (
	VerdictPending    Verdict = "pending"
	VerdictAccepted   Verdict = "accepted"
	VerdictRejected   Verdict = "rejected"
	VerdictSuperseded Verdict = "superseded"
)

// RunResult maps each job name to its terminal outcome. A run is accepted
// iff every job passed; a single failed or errored job rejects the whole run.
type RunResult struct {
	RunUUID    string
	Revision   string
	Ref        string
	StartedAt  time.Time
	FinishedAt time.Time
	Jobs       []gate.JobResult
	Verdict    Verdict
}

// Rejections names the jobs (and their failure kinds) that caused a
// rejection, so a human can tell which check category stopped the change
// without re-running anything.
func (r *RunResult) Rejections() map[string]gate.FailureKind {
	out := make(map[string]gate.FailureKind)
	for _, job := range r.Jobs {
		if job.Outcome != gate.OutcomePassed {
			out[job.Name] = job.Kind
		}
	}
	return out
}

type activeRun struct {
	runUUID string
	cancel  context.CancelFunc
}

// Dispatcher reacts to push events: one event, one run. The configured jobs
// fan out as parallel, mutually isolated units and are joined at a barrier
// before the aggregate verdict is computed. A newer push on the same ref
// cancels the superseded run's still-running jobs.
type Dispatcher struct {
	jobs   []gate.JobSpec
	runner *gate.Runner
	logger *zap.Logger

	mu     sync.Mutex
	active map[string]*activeRun // ref -> run in flight
}

func NewDispatcher(jobs []gate.JobSpec, runner *gate.Runner, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		jobs:   jobs,
		runner: runner,
		logger: logger,
		active: make(map[string]*activeRun),
	}
}

// Dispatch executes one run for a push event and blocks until every job
// reaches a terminal outcome. Unrecognized event types are ignored and
// return a nil result, not an error.
func (d *Dispatcher) Dispatch(ctx context.Context, runUUID string, ev event.Push, notify gate.Notify) (*RunResult, error) {
	if ev.Type != event.TypePush {
		d.logger.Debug("ignoring unrecognized event", zap.String("type", ev.Type))
		return nil, nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	d.supersede(ev.Ref, runUUID, cancel)
	defer d.release(ev.Ref, runUUID)

	result := &RunResult{
		RunUUID:   runUUID,
		Revision:  ev.Revision,
		Ref:       ev.Ref,
		StartedAt: time.Now(),
		Jobs:      make([]gate.JobResult, len(d.jobs)),
		Verdict:   VerdictPending,
	}

	d.logger.Info("run started",
		zap.String("run", runUUID),
		zap.String("revision", ev.Revision),
		zap.String("ref", ev.Ref),
		zap.Int("jobs", len(d.jobs)))

	// Fan out: every job gets its own goroutine and its own environment.
	// No ordering between jobs, no shared state, a WaitGroup as the barrier.
	var wg sync.WaitGroup
	for i, spec := range d.jobs {
		wg.Add(1)
		go func(i int, spec gate.JobSpec) {
			defer wg.Done()
			result.Jobs[i] = d.runner.RunJob(runCtx, runUUID, spec, notify)
		}(i, spec)
	}
	wg.Wait()

	result.FinishedAt = time.Now()
	result.Verdict = d.verdict(runCtx, result)

	d.logger.Info("run finished",
		zap.String("run", runUUID),
		zap.String("verdict", string(result.Verdict)),
		zap.Duration("took", result.FinishedAt.Sub(result.StartedAt)))
	return result, nil
}

func (d *Dispatcher) verdict(runCtx context.Context, result *RunResult) Verdict {
	if runCtx.Err() != nil {
		// Superseded or shut down mid-flight: the outcome is irrelevant,
		// but it must not read as a code-quality verdict.
		return VerdictSuperseded
	}
	for _, job := range result.Jobs {
		if job.Outcome != gate.OutcomePassed {
			return VerdictRejected
		}
	}
	return VerdictAccepted
}

// supersede registers this run as the ref's active run, cancelling whichever
// run held the slot before. Cancelled jobs terminate their steps and release
// their environments instead of running to a pointless completion.
func (d *Dispatcher) supersede(ref, runUUID string, cancel context.CancelFunc) {
	d.mu.Lock()
	prev := d.active[ref]
	d.active[ref] = &activeRun{runUUID: runUUID, cancel: cancel}
	d.mu.Unlock()

	if prev != nil {
		d.logger.Info("superseding run",
			zap.String("ref", ref),
			zap.String("superseded", prev.runUUID),
			zap.String("by", runUUID))
		prev.cancel()
	}
}

func (d *Dispatcher) release(ref, runUUID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cur := d.active[ref]; cur != nil && cur.runUUID == runUUID {
		delete(d.active, ref)
	}
}
