package gate

import "context"

// ExecResult is the only thing the orchestrator reads back from a step:
// the exit status, plus output kept for the human-facing report.
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Environment is a provisioned toolchain a job's steps execute against.
// Implementations must not share state between instances.
type Environment interface {
	// Exec runs one command and blocks until it terminates. A non-zero exit
	// status is not an error; err is reserved for infrastructure problems
	// (the command could not be run or its status could not be observed).
	Exec(ctx context.Context, command string) (ExecResult, error)
	// Close releases whatever Provision acquired.
	Close(ctx context.Context) error
}

// Provisioner constructs one fresh Environment per job. A provisioning
// error marks the owning job errored, never failed.
type Provisioner interface {
	Provision(ctx context.Context, spec EnvSpec) (Environment, error)
}
