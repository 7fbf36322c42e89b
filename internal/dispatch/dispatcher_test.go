package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatekeep/internal/gate"
	"gatekeep/pkg/event"
)

// The fakes key environments off EnvSpec.Channel so each job in a test can
// get its own scripted behavior.

type fakeEnv struct {
	channel  string
	exits    map[string]int
	block    bool
	mu       sync.Mutex
	executed []string
	closed   bool
}

func (e *fakeEnv) Exec(ctx context.Context, command string) (gate.ExecResult, error) {
	if e.block {
		<-ctx.Done()
		return gate.ExecResult{}, ctx.Err()
	}
	e.mu.Lock()
	e.executed = append(e.executed, command)
	e.mu.Unlock()
	return gate.ExecResult{ExitCode: e.exits[command]}, nil
}

func (e *fakeEnv) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

type fakeProvisioner struct {
	provErr     map[string]error // channel -> provisioning failure
	exits       map[string]int   // command -> exit status
	block       bool
	mu          sync.Mutex
	envs        []*fakeEnv
	provisioned chan string
}

func (p *fakeProvisioner) Provision(ctx context.Context, spec gate.EnvSpec) (gate.Environment, error) {
	if p.provisioned != nil {
		p.provisioned <- spec.Channel
	}
	if err := p.provErr[spec.Channel]; err != nil {
		return nil, err
	}
	env := &fakeEnv{channel: spec.Channel, exits: p.exits, block: p.block}
	p.mu.Lock()
	p.envs = append(p.envs, env)
	p.mu.Unlock()
	return env, nil
}

func gateJobs() []gate.JobSpec {
	return []gate.JobSpec{
		{
			Name:        "style",
			Environment: gate.EnvSpec{Channel: "style", Profile: gate.ProfileDefault},
			Steps: []gate.Step{
				{Name: "format", Run: "check-format", FailKind: gate.KindFormatViolation},
				{Name: "lint", Run: "check-lint", FailKind: gate.KindLintViolation},
			},
		},
		{
			Name:        "test",
			Environment: gate.EnvSpec{Channel: "test", Profile: gate.ProfileDefault},
			Steps: []gate.Step{
				{Name: "unit-tests", Run: "run-tests", FailKind: gate.KindTestFailure},
			},
		},
		{
			Name:        "build",
			Environment: gate.EnvSpec{Channel: "build", Profile: gate.ProfileRestricted},
			Steps: []gate.Step{
				{Name: "restricted-build", Run: "build-restricted", FailKind: gate.KindBuildFailure},
			},
		},
	}
}

func newDispatcher(prov gate.Provisioner) *Dispatcher {
	runner := gate.NewRunner(prov, 0, nil)
	return NewDispatcher(gateJobs(), runner, nil)
}

func pushEvent() event.Push {
	return event.Push{Type: event.TypePush, Revision: "abc123", Ref: "main"}
}

func jobByName(t *testing.T, result *RunResult, name string) gate.JobResult {
	t.Helper()
	for _, job := range result.Jobs {
		if job.Name == name {
			return job
		}
	}
	t.Fatalf("job %s not in result", name)
	return gate.JobResult{}
}

func TestDispatchCleanChange(t *testing.T) {
	prov := &fakeProvisioner{exits: map[string]int{}}
	d := newDispatcher(prov)

	result, err := d.Dispatch(context.Background(), "run-1", pushEvent(), nil)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, VerdictAccepted, result.Verdict)
	for _, job := range result.Jobs {
		assert.Equal(t, gate.OutcomePassed, job.Outcome)
	}
	assert.Empty(t, result.Rejections())
}

func TestDispatchUnformattedCode(t *testing.T) {
	prov := &fakeProvisioner{exits: map[string]int{"check-format": 1}}
	d := newDispatcher(prov)

	result, err := d.Dispatch(context.Background(), "run-1", pushEvent(), nil)
	require.NoError(t, err)

	assert.Equal(t, VerdictRejected, result.Verdict)

	style := jobByName(t, result, "style")
	assert.Equal(t, gate.OutcomeFailed, style.Outcome)
	assert.Equal(t, gate.KindFormatViolation, style.Kind)

	// Sibling gates still run and pass independently.
	assert.Equal(t, gate.OutcomePassed, jobByName(t, result, "test").Outcome)
	assert.Equal(t, gate.OutcomePassed, jobByName(t, result, "build").Outcome)

	// The lint step never ran once formatting failed.
	for _, env := range prov.envs {
		if env.channel == "style" {
			assert.Equal(t, []string{"check-format"}, env.executed)
		}
	}
}

func TestDispatchTestFailureOnly(t *testing.T) {
	prov := &fakeProvisioner{exits: map[string]int{"run-tests": 1}}
	d := newDispatcher(prov)

	result, err := d.Dispatch(context.Background(), "run-1", pushEvent(), nil)
	require.NoError(t, err)

	assert.Equal(t, VerdictRejected, result.Verdict)
	testJob := jobByName(t, result, "test")
	assert.Equal(t, gate.OutcomeFailed, testJob.Outcome)
	assert.Equal(t, gate.KindTestFailure, testJob.Kind)
	assert.Equal(t, gate.OutcomePassed, jobByName(t, result, "style").Outcome)
	assert.Equal(t, gate.OutcomePassed, jobByName(t, result, "build").Outcome)
}

func TestDispatchRestrictedBuildBreak(t *testing.T) {
	prov := &fakeProvisioner{exits: map[string]int{"build-restricted": 1}}
	d := newDispatcher(prov)

	result, err := d.Dispatch(context.Background(), "run-1", pushEvent(), nil)
	require.NoError(t, err)

	assert.Equal(t, VerdictRejected, result.Verdict)
	buildJob := jobByName(t, result, "build")
	assert.Equal(t, gate.OutcomeFailed, buildJob.Outcome)
	assert.Equal(t, gate.KindBuildFailure, buildJob.Kind)
	// Tests under the default profile still pass.
	assert.Equal(t, gate.OutcomePassed, jobByName(t, result, "test").Outcome)
}

func TestDispatchProvisioningOutage(t *testing.T) {
	prov := &fakeProvisioner{
		exits:   map[string]int{},
		provErr: map[string]error{"test": errors.New("toolchain mirror unreachable")},
	}
	d := newDispatcher(prov)

	result, err := d.Dispatch(context.Background(), "run-1", pushEvent(), nil)
	require.NoError(t, err)

	assert.Equal(t, VerdictRejected, result.Verdict)

	testJob := jobByName(t, result, "test")
	assert.Equal(t, gate.OutcomeErrored, testJob.Outcome)
	assert.Equal(t, gate.KindProvisionFailure, testJob.Kind)
	assert.NotEqual(t, gate.KindTestFailure, testJob.Kind)

	// The infrastructure-vs-code distinction survives into the report.
	rejections := result.Rejections()
	require.Contains(t, rejections, "test")
	assert.Equal(t, gate.KindProvisionFailure, rejections["test"])
}

func TestDispatchIgnoresUnrecognizedEvent(t *testing.T) {
	d := newDispatcher(&fakeProvisioner{exits: map[string]int{}})

	result, err := d.Dispatch(context.Background(), "run-1", event.Push{Type: "tag", Revision: "abc"}, nil)
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestDispatchEnvironmentIsolation(t *testing.T) {
	prov := &fakeProvisioner{exits: map[string]int{}}
	d := newDispatcher(prov)

	_, err := d.Dispatch(context.Background(), "run-1", pushEvent(), nil)
	require.NoError(t, err)

	// One fresh environment per job, every one torn down.
	require.Len(t, prov.envs, 3)
	seen := make(map[*fakeEnv]bool)
	for _, env := range prov.envs {
		assert.False(t, seen[env], "environment shared between jobs")
		seen[env] = true
		assert.True(t, env.closed)
	}
}

func TestDispatchSupersededRunIsCanceled(t *testing.T) {
	blocked := &fakeProvisioner{block: true, provisioned: make(chan string, 3)}
	d := newDispatcher(blocked)

	type dispatchResult struct {
		result *RunResult
		err    error
	}
	firstDone := make(chan dispatchResult, 1)
	go func() {
		result, err := d.Dispatch(context.Background(), "run-old", pushEvent(), nil)
		firstDone <- dispatchResult{result, err}
	}()

	// Wait until every job of the first run is in flight.
	for i := 0; i < 3; i++ {
		select {
		case <-blocked.provisioned:
		case <-time.After(5 * time.Second):
			t.Fatal("first run never started its jobs")
		}
	}

	blocked.mu.Lock()
	firstEnvs := append([]*fakeEnv(nil), blocked.envs...)
	blocked.mu.Unlock()

	// A newer push on the same ref supersedes the old run. Its own jobs
	// would block forever too, so run it in the background and only check
	// the superseded run's fate.
	newCtx, cancelNew := context.WithCancel(context.Background())
	defer cancelNew()
	go d.Dispatch(newCtx, "run-new", pushEvent(), nil)

	var first dispatchResult
	select {
	case first = <-firstDone:
	case <-time.After(5 * time.Second):
		t.Fatal("superseded run did not terminate")
	}
	require.NoError(t, first.err)

	assert.Equal(t, VerdictSuperseded, first.result.Verdict)
	for _, job := range first.result.Jobs {
		assert.Equal(t, gate.OutcomeErrored, job.Outcome)
		assert.Equal(t, gate.KindCanceled, job.Kind)
	}
	for _, env := range firstEnvs {
		env.mu.Lock()
		closed := env.closed
		env.mu.Unlock()
		assert.True(t, closed, "superseded job leaked its environment")
	}
}

func TestRunResultRejections(t *testing.T) {
	result := &RunResult{
		Jobs: []gate.JobResult{
			{Name: "style", Outcome: gate.OutcomePassed},
			{Name: "test", Outcome: gate.OutcomeFailed, Kind: gate.KindTestFailure},
			{Name: "build", Outcome: gate.OutcomeErrored, Kind: gate.KindTimeout},
		},
	}
	rejections := result.Rejections()
	assert.Equal(t, map[string]gate.FailureKind{
		"test":  gate.KindTestFailure,
		"build": gate.KindTimeout,
	}, rejections)
}
