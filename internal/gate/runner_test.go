package gate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnv struct {
	mu       sync.Mutex
	exits    map[string]int
	infraErr map[string]error
	block    bool // Exec blocks until the context is done
	executed []string
	closed   bool
}

func (e *fakeEnv) Exec(ctx context.Context, command string) (ExecResult, error) {
	if e.block {
		<-ctx.Done()
		return ExecResult{}, ctx.Err()
	}
	e.mu.Lock()
	e.executed = append(e.executed, command)
	e.mu.Unlock()
	if err := e.infraErr[command]; err != nil {
		return ExecResult{}, err
	}
	return ExecResult{ExitCode: e.exits[command]}, nil
}

func (e *fakeEnv) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

type fakeProvisioner struct {
	mu   sync.Mutex
	err  error
	env  *fakeEnv
	envs []*fakeEnv
}

func (p *fakeProvisioner) Provision(ctx context.Context, spec EnvSpec) (Environment, error) {
	if p.err != nil {
		return nil, p.err
	}
	env := p.env
	if env == nil {
		env = &fakeEnv{}
	}
	p.mu.Lock()
	p.envs = append(p.envs, env)
	p.mu.Unlock()
	return env, nil
}

func styleJob() JobSpec {
	return JobSpec{
		Name:        "style",
		Environment: EnvSpec{Channel: "stable", Profile: ProfileDefault},
		Steps: []Step{
			{Name: "format", Run: "check-format", FailKind: KindFormatViolation},
			{Name: "lint", Run: "check-lint", FailKind: KindLintViolation},
		},
	}
}

func collectUpdates(updates *[]StatusUpdate, mu *sync.Mutex) Notify {
	return func(u StatusUpdate) {
		mu.Lock()
		defer mu.Unlock()
		*updates = append(*updates, u)
	}
}

func TestRunJobAllStepsPass(t *testing.T) {
	env := &fakeEnv{exits: map[string]int{}}
	runner := NewRunner(&fakeProvisioner{env: env}, 0, nil)

	var mu sync.Mutex
	var updates []StatusUpdate
	result := runner.RunJob(context.Background(), "run-1", styleJob(), collectUpdates(&updates, &mu))

	assert.Equal(t, OutcomePassed, result.Outcome)
	assert.Empty(t, result.Kind)
	assert.Equal(t, []string{"check-format", "check-lint"}, env.executed)
	assert.True(t, env.closed)

	require.Len(t, updates, 3)
	assert.Equal(t, OutcomePending, updates[0].Outcome)
	assert.Equal(t, OutcomeRunning, updates[1].Outcome)
	assert.Equal(t, OutcomePassed, updates[2].Outcome)
}

func TestRunJobFailFast(t *testing.T) {
	env := &fakeEnv{exits: map[string]int{"check-format": 1}}
	runner := NewRunner(&fakeProvisioner{env: env}, 0, nil)

	result := runner.RunJob(context.Background(), "run-1", styleJob(), nil)

	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Equal(t, KindFormatViolation, result.Kind)
	// The lint step must never run once the format step failed.
	assert.Equal(t, []string{"check-format"}, env.executed)
	assert.True(t, env.closed)
}

func TestRunJobSecondStepFailure(t *testing.T) {
	env := &fakeEnv{exits: map[string]int{"check-lint": 2}}
	runner := NewRunner(&fakeProvisioner{env: env}, 0, nil)

	result := runner.RunJob(context.Background(), "run-1", styleJob(), nil)

	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Equal(t, KindLintViolation, result.Kind)
	assert.Equal(t, []string{"check-format", "check-lint"}, env.executed)
}

func TestRunJobProvisioningFailure(t *testing.T) {
	runner := NewRunner(&fakeProvisioner{err: errors.New("toolchain install failed")}, 0, nil)

	var mu sync.Mutex
	var updates []StatusUpdate
	result := runner.RunJob(context.Background(), "run-1", styleJob(), collectUpdates(&updates, &mu))

	// Errored, never failed: the check could not be evaluated.
	assert.Equal(t, OutcomeErrored, result.Outcome)
	assert.Equal(t, KindProvisionFailure, result.Kind)
	assert.Empty(t, result.Steps)

	require.Len(t, updates, 2)
	assert.Equal(t, OutcomePending, updates[0].Outcome)
	assert.Equal(t, OutcomeErrored, updates[1].Outcome)
}

func TestRunJobInfraError(t *testing.T) {
	env := &fakeEnv{
		exits:    map[string]int{},
		infraErr: map[string]error{"check-lint": errors.New("daemon connection reset")},
	}
	runner := NewRunner(&fakeProvisioner{env: env}, 0, nil)

	result := runner.RunJob(context.Background(), "run-1", styleJob(), nil)

	assert.Equal(t, OutcomeErrored, result.Outcome)
	assert.Equal(t, KindInfraFailure, result.Kind)
	assert.True(t, env.closed)
}

func TestRunJobTimeout(t *testing.T) {
	env := &fakeEnv{block: true}
	runner := NewRunner(&fakeProvisioner{env: env}, 20*time.Millisecond, nil)

	result := runner.RunJob(context.Background(), "run-1", styleJob(), nil)

	assert.Equal(t, OutcomeErrored, result.Outcome)
	assert.Equal(t, KindTimeout, result.Kind)
	assert.True(t, env.closed)
}

func TestRunJobCanceled(t *testing.T) {
	env := &fakeEnv{block: true}
	runner := NewRunner(&fakeProvisioner{env: env}, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	result := runner.RunJob(ctx, "run-1", styleJob(), nil)

	assert.Equal(t, OutcomeErrored, result.Outcome)
	assert.Equal(t, KindCanceled, result.Kind)
}

func TestOutcomeTerminal(t *testing.T) {
	assert.False(t, OutcomePending.Terminal())
	assert.False(t, OutcomeRunning.Terminal())
	assert.True(t, OutcomePassed.Terminal())
	assert.True(t, OutcomeFailed.Terminal())
	assert.True(t, OutcomeErrored.Terminal())
}

func TestRunJobIdempotent(t *testing.T) {
	// Same job definition, same scripted tool behavior, same outcome.
	for i := 0; i < 3; i++ {
		env := &fakeEnv{exits: map[string]int{"check-lint": 1}}
		runner := NewRunner(&fakeProvisioner{env: env}, 0, nil)
		result := runner.RunJob(context.Background(), "run-1", styleJob(), nil)
		assert.Equal(t, OutcomeFailed, result.Outcome)
		assert.Equal(t, KindLintViolation, result.Kind)
	}
}
