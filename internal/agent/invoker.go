package agent

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/Iron-Ham/agentbridge/internal/errors"
	"github.com/Iron-Ham/agentbridge/internal/logging"
)

// Request describes one synchronous invocation.
type Request struct {
	Input   string
	Mode    Mode
	Timeout time.Duration
}

// Result is the captured output of an invocation that ran to completion.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Combined returns stdout, followed by a newline and stderr when stderr is
// non-empty.
func (r Result) Combined() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	return r.Stdout + "\n" + r.Stderr
}

// Invoker runs an agent once. It returns a *errors.TimeoutError when the
// budget expires and a *errors.ProcessError when the agent cannot be started.
// A non-zero exit is not an error: it is reported in Result.ExitCode.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (Result, error)
}

// ExecInvoker runs a Backend as a child process.
type ExecInvoker struct {
	backend Backend
	workDir string
	logger  *logging.Logger
}

// NewExecInvoker creates an Invoker for backend. An empty workDir uses the
// current directory.
func NewExecInvoker(backend Backend, workDir string, logger *logging.Logger) *ExecInvoker {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &ExecInvoker{
		backend: backend,
		workDir: workDir,
		logger:  logger.WithComponent("agent").WithAgent(string(backend.Name())),
	}
}

// Backend returns the backend this invoker launches.
func (e *ExecInvoker) Backend() Backend { return e.backend }

// Invoke writes req.Input to the agent's stdin and waits for it to exit or
// for req.Timeout to elapse.
func (e *ExecInvoker) Invoke(ctx context.Context, req Request) (Result, error) {
	command := e.backend.Command()
	if _, err := exec.LookPath(command); err != nil {
		return Result{ExitCode: -1}, errors.NewStartError(command, errors.Join(errors.ErrAgentNotFound, err))
	}

	mode := req.Mode
	if mode == ModeResume && !e.backend.SupportsResume() {
		mode = ModeNew
	}

	runCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	args := e.backend.Args(mode)
	cmd := exec.CommandContext(runCtx, command, args...)
	cmd.Dir = e.workDir
	cmd.Stdin = strings.NewReader(req.Input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 5 * time.Second

	e.logger.Debug("invoking agent", "args", args, "mode", mode.String(), "timeout", req.Timeout.String())

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if runCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		res.ExitCode = -1
		e.logger.Warn("agent timed out", "timeout", req.Timeout.String())
		return res, errors.NewTimeoutError(command, req.Timeout).WithCause(runCtx.Err())
	}
	if ctx.Err() != nil {
		res.ExitCode = -1
		return res, errors.Wrap(ctx.Err(), "agent invocation cancelled")
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
			res.ExitCode = exitErr.ExitCode()
			e.logger.Info("agent exited", "exit_code", res.ExitCode, "duration", res.Duration.String())
			return res, nil
		}
		res.ExitCode = -1
		return res, errors.NewStartError(command, err).WithStderr(res.Stderr)
	}

	e.logger.Info("agent exited", "exit_code", 0, "duration", res.Duration.String())
	return res, nil
}
