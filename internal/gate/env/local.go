package env

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"

	"gatekeep/internal/gate"
)

// LocalProvisioner runs steps through the host shell in a throwaway copy of
// the project tree. Meant for development and single-machine setups; the
// toolchain itself is assumed to be present, so environment components are
// not installed here.
type LocalProvisioner struct {
	// Source is the project root the gates run against.
	Source string
}

func NewLocalProvisioner(source string) *LocalProvisioner {
	return &LocalProvisioner{Source: source}
}

func (p *LocalProvisioner) Provision(ctx context.Context, spec gate.EnvSpec) (gate.Environment, error) {
	workdir, err := os.MkdirTemp("", "gatekeep-job-*")
	if err != nil {
		return nil, err
	}

	e := &localEnv{workdir: workdir}
	out, err := e.run(ctx, "cp -a "+shellQuote(filepath.Clean(p.Source))+"/. "+shellQuote(workdir))
	if err != nil {
		os.RemoveAll(workdir)
		return nil, err
	}
	if out.ExitCode != 0 {
		os.RemoveAll(workdir)
		return nil, errors.New("copy project tree: " + out.Stderr)
	}
	return e, nil
}

type localEnv struct {
	workdir string
}

func (e *localEnv) Exec(ctx context.Context, command string) (gate.ExecResult, error) {
	return e.runIn(ctx, e.workdir, command)
}

func (e *localEnv) run(ctx context.Context, command string) (gate.ExecResult, error) {
	return e.runIn(ctx, "", command)
}

func (e *localEnv) runIn(ctx context.Context, dir, command string) (gate.ExecResult, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir

	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	res := gate.ExecResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, err
	}
	return res, nil
}

func (e *localEnv) Close(ctx context.Context) error {
	return os.RemoveAll(e.workdir)
}

func shellQuote(s string) string {
	return "'" + s + "'"
}
