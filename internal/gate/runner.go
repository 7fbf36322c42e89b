package gate

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// StatusUpdate is pushed on every job transition so the caller can persist
// or report progress without polling.
type StatusUpdate struct {
	RunUUID string
	JobName string
	Outcome Outcome
	Kind    FailureKind
	Stdout  string
	Stderr  string
}

// Notify receives job transitions. It may be nil.
type Notify func(StatusUpdate)

// Runner executes one job at a time: provision, run steps fail-fast, tear
// down. It holds no per-run state, so one Runner serves concurrent jobs.
type Runner struct {
	prov    Provisioner
	timeout time.Duration
	logger  *zap.Logger
}

func NewRunner(prov Provisioner, timeout time.Duration, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		prov:    prov,
		timeout: timeout,
		logger:  logger,
	}
}

// RunJob drives one job to a terminal outcome. It never returns a non-terminal
// result: provisioning failure yields errored, a non-zero step exit yields
// failed with the step's failure kind, and only all-zero exits yield passed.
func (r *Runner) RunJob(ctx context.Context, runUUID string, spec JobSpec, notify Notify) JobResult {
	result := JobResult{
		Name:      spec.Name,
		Outcome:   OutcomePending,
		StartedAt: time.Now(),
	}
	emit := func() {
		if notify != nil {
			notify(StatusUpdate{
				RunUUID: runUUID,
				JobName: spec.Name,
				Outcome: result.Outcome,
				Kind:    result.Kind,
				Stdout:  result.Stdout(),
				Stderr:  result.Stderr(),
			})
		}
	}
	emit()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	env, err := r.prov.Provision(ctx, spec.Environment)
	if err != nil {
		r.logger.Warn("provisioning failed",
			zap.String("run", runUUID),
			zap.String("job", spec.Name),
			zap.Error(err))
		result.Outcome = OutcomeErrored
		result.Kind = infraKind(ctx, KindProvisionFailure)
		result.FinishedAt = time.Now()
		emit()
		return result
	}
	defer func() {
		// Teardown must not inherit a canceled or expired deadline.
		closeCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := env.Close(closeCtx); err != nil {
			r.logger.Warn("environment teardown failed",
				zap.String("job", spec.Name), zap.Error(err))
		}
	}()

	result.Outcome = OutcomeRunning
	emit()

	for _, step := range spec.Steps {
		out, err := env.Exec(ctx, step.Run)
		result.Steps = append(result.Steps, StepResult{
			Name:     step.Name,
			Command:  step.Run,
			ExitCode: out.ExitCode,
			Stdout:   out.Stdout,
			Stderr:   out.Stderr,
		})
		if err != nil {
			r.logger.Warn("step could not be evaluated",
				zap.String("run", runUUID),
				zap.String("job", spec.Name),
				zap.String("step", step.Name),
				zap.Error(err))
			result.Outcome = OutcomeErrored
			result.Kind = infraKind(ctx, KindInfraFailure)
			result.FinishedAt = time.Now()
			emit()
			return result
		}
		if out.ExitCode != 0 {
			r.logger.Info("step failed",
				zap.String("run", runUUID),
				zap.String("job", spec.Name),
				zap.String("step", step.Name),
				zap.Int("exit", out.ExitCode))
			result.Outcome = OutcomeFailed
			result.Kind = step.FailKind
			result.FinishedAt = time.Now()
			emit()
			return result
		}
	}

	result.Outcome = OutcomePassed
	result.FinishedAt = time.Now()
	emit()
	return result
}

// infraKind distinguishes why a check could not be evaluated: the job's
// deadline expired, the run was superseded, or the infrastructure itself
// misbehaved.
func infraKind(ctx context.Context, fallback FailureKind) FailureKind {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(ctx.Err(), context.Canceled):
		return KindCanceled
	default:
		return fallback
	}
}
