// Package docker runs JavaScript snippets with `node -e` inside throwaway,
// network-less containers.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/sakif/snippet-saver/internal/executor"
)

const timeoutNotice = "\nExecution timed out.\n"

// Executor implements executor.Executor on top of the Docker Engine API.
type Executor struct {
	cli    *client.Client
	config Config
	logger *slog.Logger
	pool   *Pool
}

var _ executor.Executor = (*Executor)(nil)

// New connects to the daemon from the environment (DOCKER_HOST etc.),
// pulls the image and starts warming containers.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Executor, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker: creating client: %w", err)
	}
	if _, err := cli.Ping(ctx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("docker: daemon unreachable: %w", err)
	}

	if err := pullImage(ctx, cli, cfg.Image, logger); err != nil {
		cli.Close()
		return nil, err
	}

	e := &Executor{cli: cli, config: cfg, logger: logger}
	e.pool = newPool(&dockerRuntime{cli: cli, config: cfg}, cfg.PoolSize, logger)
	e.pool.Start()
	return e, nil
}

func pullImage(ctx context.Context, cli *client.Client, ref string, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	logger.Info("pulling runner image", slog.String("image", ref))
	reader, err := cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("docker: pulling %s: %w", ref, err)
	}
	defer reader.Close()

	// The pull only finishes once the progress stream is drained.
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("docker: pulling %s: %w", ref, err)
	}
	logger.Info("runner image ready", slog.String("image", ref))
	return nil
}

// Close removes the idle containers and closes the client.
func (e *Executor) Close() error {
	e.pool.Stop()
	return e.cli.Close()
}

// Execute runs req.Code with node. Only JavaScript is accepted.
//
// A run that exceeds the configured timeout reports exit code 124 and
// whatever it printed before being cut off.
func (e *Executor) Execute(ctx context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
	if req.Language != "JavaScript" {
		return nil, fmt.Errorf("%w: %q", executor.ErrUnsupportedLanguage, req.Language)
	}

	start := time.Now()

	id, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("docker: acquiring container: %w", err)
	}
	defer e.pool.Release(id)

	runCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	created, err := e.cli.ContainerExecCreate(runCtx, id, container.ExecOptions{
		AttachStdout: true,
		AttachStderr: true,
		WorkingDir:   "/tmp",
		Cmd:          []string{"node", "-e", req.Code},
	})
	if err != nil {
		return nil, fmt.Errorf("docker: creating exec: %w", err)
	}

	attached, err := e.cli.ContainerExecAttach(runCtx, created.ID, container.ExecStartOptions{})
	if err != nil {
		return nil, fmt.Errorf("docker: attaching to exec: %w", err)
	}
	defer attached.Close()

	stdout := newCappedBuffer(e.config.MaxOutput)
	stderr := newCappedBuffer(e.config.MaxOutput)
	copied := make(chan struct{})
	go func() {
		_, _ = stdcopy.StdCopy(stdout, stderr, attached.Reader)
		close(copied)
	}()

	result := &executor.ExecutionResult{}
	select {
	case <-copied:
		inspectCtx, cancelInspect := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelInspect()
		inspect, err := e.cli.ContainerExecInspect(inspectCtx, created.ID)
		if err != nil {
			return nil, fmt.Errorf("docker: inspecting exec: %w", err)
		}
		result.ExitCode = inspect.ExitCode
	case <-runCtx.Done():
		attached.Close()
		<-copied
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		result.ExitCode = executor.ExitCodeTimeout
		stderr.WriteString(timeoutNotice)
	}

	result.Stdout = stdout.String()
	result.Stderr = stderr.String()
	result.Duration = time.Since(start)
	return result, nil
}

// dockerRuntime creates the idle containers the pool hands out. Each one
// runs `sleep infinity` as nobody, with no network and a read-only root.
type dockerRuntime struct {
	cli    *client.Client
	config Config
}

func (r *dockerRuntime) create(ctx context.Context) (string, error) {
	resp, err := r.cli.ContainerCreate(ctx,
		&container.Config{
			Image: r.config.Image,
			Cmd:   []string{"sleep", "infinity"},
			User:  "nobody",
		},
		&container.HostConfig{
			NetworkMode:    "none",
			ReadonlyRootfs: true,
			Tmpfs:          map[string]string{"/tmp": "rw,noexec,nosuid,size=16m"},
			Resources: container.Resources{
				Memory:   r.config.MemoryLimit,
				NanoCPUs: int64(r.config.CPULimit * 1e9),
			},
		}, nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("docker: creating container: %w", err)
	}

	if err := r.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		r.remove(resp.ID)
		return "", fmt.Errorf("docker: starting container: %w", err)
	}
	return resp.ID, nil
}

func (r *dockerRuntime) remove(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = r.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true})
}

// cappedBuffer keeps the first limit bytes written and silently drops the
// rest, so a runaway console.log loop can't exhaust memory.
type cappedBuffer struct {
	buf       bytes.Buffer
	limit     int64
	truncated bool
}

func newCappedBuffer(limit int64) *cappedBuffer {
	return &cappedBuffer{limit: limit}
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	if c.limit <= 0 {
		return c.buf.Write(p)
	}
	room := c.limit - int64(c.buf.Len())
	if room <= 0 {
		c.truncated = true
		return len(p), nil
	}
	if int64(len(p)) > room {
		c.buf.Write(p[:room])
		c.truncated = true
		return len(p), nil
	}
	return c.buf.Write(p)
}

func (c *cappedBuffer) WriteString(s string) {
	c.buf.WriteString(s)
}

func (c *cappedBuffer) String() string {
	if c.truncated {
		return c.buf.String() + "\n[output truncated]\n"
	}
	return c.buf.String()
}
