package gate

import "time"

// Outcome is the per-job state machine:
// pending -> running -> passed | failed | errored.
// Terminal states are absorbing.
type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomeRunning Outcome = "running"
	OutcomePassed  Outcome = "passed"
	OutcomeFailed  Outcome = "failed"
	OutcomeErrored Outcome = "errored"
)

// Terminal reports whether no further transition can happen.
func (o Outcome) Terminal() bool {
	return o == OutcomePassed || o == OutcomeFailed || o == OutcomeErrored
}

// FailureKind tells a human which check category rejected the change.
// Failed outcomes carry one of the violation kinds; errored outcomes carry
// one of the infrastructure kinds. The two families must never be confused:
// a failed job means the code was evaluated and did not pass, an errored job
// means the check could not be evaluated at all.
type FailureKind string

const (
	KindFormatViolation FailureKind = "format-violation"
	KindLintViolation   FailureKind = "lint-violation"
	KindTestFailure     FailureKind = "test-failure"
	KindBuildFailure    FailureKind = "build-failure"

	KindProvisionFailure FailureKind = "provision-failure"
	KindInfraFailure     FailureKind = "infra-failure"
	KindTimeout          FailureKind = "timeout"
	KindCanceled         FailureKind = "canceled"
)

// Profile selects how much of a runtime the build may assume.
type Profile string

const (
	ProfileDefault    Profile = "default"
	ProfileRestricted Profile = "restricted"
)

// EnvSpec describes what must be provisioned before a job's steps run.
// One environment is constructed fresh per job and never shared, so sibling
// jobs cannot observe each other's side effects.
type EnvSpec struct {
	Channel    string   `yaml:"channel"`
	Components []string `yaml:"components,omitempty"`
	Profile    Profile  `yaml:"profile"`
}

// Step is one command executed in sequence within a job. The orchestrator
// only interprets the exit status; diagnostic text is surfaced, not parsed.
type Step struct {
	Name     string      `yaml:"name"`
	Run      string      `yaml:"run"`
	FailKind FailureKind `yaml:"fail_kind"`
}

// JobSpec is one named, independently executable verification unit.
type JobSpec struct {
	Name        string  `yaml:"name"`
	Environment EnvSpec `yaml:"environment"`
	Steps       []Step  `yaml:"steps"`
}

type StepResult struct {
	Name     string
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
}

type JobResult struct {
	Name       string
	Outcome    Outcome
	Kind       FailureKind
	Steps      []StepResult
	StartedAt  time.Time
	FinishedAt time.Time
}

// Stdout joins the captured stdout of every executed step.
func (r JobResult) Stdout() string {
	return joinOutput(r.Steps, func(s StepResult) string { return s.Stdout })
}

// Stderr joins the captured stderr of every executed step.
func (r JobResult) Stderr() string {
	return joinOutput(r.Steps, func(s StepResult) string { return s.Stderr })
}

func joinOutput(steps []StepResult, pick func(StepResult) string) string {
	var out string
	for _, s := range steps {
		out += pick(s)
	}
	return out
}
