package env

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"go.uber.org/zap"

	"gatekeep/internal/gate"
)

const workspaceDir = "/workspace"

// DockerProvisioner constructs one fresh container per job. The project tree
// is bind-mounted read-only and copied into the container's workspace during
// provisioning, so a job can mutate its checkout without any other job
// noticing.
type DockerProvisioner struct {
	cli    *client.Client
	source string
	logger *zap.Logger

	// Images maps "channel/profile", falling back to "channel", to the
	// container image provisioned for that environment.
	Images map[string]string
	// Components maps an optional component name to the command that
	// installs it. Install failure is a provisioning failure, not a check
	// verdict.
	Components map[string]string
}

func NewDockerProvisioner(host, source string, logger *zap.Logger) (*DockerProvisioner, error) {
	cli, err := client.NewClientWithOpts(
		client.WithHost(host),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DockerProvisioner{
		cli:    cli,
		source: source,
		logger: logger,
		Images: map[string]string{
			"stable": "golang:1.23-alpine",
		},
		Components: map[string]string{},
	}, nil
}

func (p *DockerProvisioner) image(spec gate.EnvSpec) (string, error) {
	if img, ok := p.Images[spec.Channel+"/"+string(spec.Profile)]; ok {
		return img, nil
	}
	if img, ok := p.Images[spec.Channel]; ok {
		return img, nil
	}
	return "", fmt.Errorf("no image configured for channel %q", spec.Channel)
}

func (p *DockerProvisioner) Provision(ctx context.Context, spec gate.EnvSpec) (gate.Environment, error) {
	image, err := p.image(spec)
	if err != nil {
		return nil, err
	}

	resp, err := p.cli.ContainerCreate(
		ctx,
		&container.Config{
			Image:      image,
			Cmd:        []string{"tail", "-f", "/dev/null"},
			WorkingDir: workspaceDir,
		},
		&container.HostConfig{
			Binds: []string{p.source + ":/src:ro"},
		},
		nil, nil, "",
	)
	if err != nil {
		return nil, fmt.Errorf("create container: %w", err)
	}

	e := &dockerEnv{cli: p.cli, containerID: resp.ID}

	if err := p.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		e.forceRemove()
		return nil, fmt.Errorf("start container: %w", err)
	}

	setup := []string{fmt.Sprintf("mkdir -p %s && cp -a /src/. %s", workspaceDir, workspaceDir)}
	for _, component := range spec.Components {
		install, ok := p.Components[component]
		if !ok {
			continue
		}
		setup = append(setup, install)
	}
	for _, cmd := range setup {
		out, err := e.Exec(ctx, cmd)
		if err != nil {
			e.forceRemove()
			return nil, fmt.Errorf("provision %q: %w", cmd, err)
		}
		if out.ExitCode != 0 {
			e.forceRemove()
			return nil, fmt.Errorf("provision %q: exit %d: %s", cmd, out.ExitCode, out.Stderr)
		}
	}

	p.logger.Debug("environment provisioned",
		zap.String("image", image),
		zap.String("container", resp.ID[:12]))
	return e, nil
}

type dockerEnv struct {
	cli         *client.Client
	containerID string
}

func (e *dockerEnv) Exec(ctx context.Context, command string) (gate.ExecResult, error) {
	execResp, err := e.cli.ContainerExecCreate(ctx, e.containerID, types.ExecConfig{
		Cmd:          []string{"sh", "-c", command},
		WorkingDir:   workspaceDir,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return gate.ExecResult{}, err
	}

	attach, err := e.cli.ContainerExecAttach(ctx, execResp.ID, types.ExecStartCheck{})
	if err != nil {
		return gate.ExecResult{}, err
	}
	defer attach.Close()

	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	if _, err := stdcopy.StdCopy(stdout, stderr, attach.Reader); err != nil {
		if ctx.Err() != nil {
			return gate.ExecResult{}, ctx.Err()
		}
		return gate.ExecResult{}, fmt.Errorf("read exec output: %w", err)
	}

	// The attach stream hits EOF when the command exits; poll until the
	// daemon agrees and reports the exit code.
	var inspect types.ContainerExecInspect
	for {
		inspect, err = e.cli.ContainerExecInspect(ctx, execResp.ID)
		if err != nil {
			return gate.ExecResult{}, err
		}
		if !inspect.Running {
			break
		}
		select {
		case <-ctx.Done():
			return gate.ExecResult{}, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}

	return gate.ExecResult{
		ExitCode: inspect.ExitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}

func (e *dockerEnv) Close(ctx context.Context) error {
	return e.cli.ContainerRemove(ctx, e.containerID, container.RemoveOptions{Force: true})
}

func (e *dockerEnv) forceRemove() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = e.cli.ContainerRemove(ctx, e.containerID, container.RemoveOptions{Force: true})
}
