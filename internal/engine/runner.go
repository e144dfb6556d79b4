package engine

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/sgmcp/sgmcp/internal/errs"
)

// Result is a completed engine run. ExitCode is kept because a non-zero
// exit is not automatically fatal — "no matches" exits non-zero and must
// surface as a valid empty result.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Runner executes the engine. It is an interface so the pipeline can be
// tested with a scripted fake instead of a real subprocess.
type Runner interface {
	Run(ctx context.Context, exe string, args []string, opts Options) (Result, error)
}

// ExecRunner runs the engine as a real subprocess.
type ExecRunner struct{}

// Run spawns the executable with a hard deadline. On timeout the child is
// killed and partial output is discarded — a truncated match stream must
// never masquerade as a complete one.
func (ExecRunner) Run(ctx context.Context, exe string, args []string, opts Options) (Result, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Dir = opts.Cwd
	if opts.Stdin != "" {
		cmd.Stdin = strings.NewReader(opts.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	// A dead context means the child was killed: the output is partial
	// and must never be parsed as a complete result. Cancellation covers
	// client disconnects, not only the deadline firing.
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return Result{Duration: elapsed}, errs.Newf(errs.KindTimeout,
				"the engine did not finish within %s", opts.Timeout).
				WithHint("Narrow the paths or raise timeout_ms.")
		}
		return Result{Duration: elapsed}, errs.Wrap(errs.KindExecution,
			"the engine run was canceled before it finished", ctxErr)
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Engine ran and exited non-zero: the caller interprets it.
			return Result{
				Stdout:   stdout.String(),
				Stderr:   stderr.String(),
				ExitCode: exitErr.ExitCode(),
				Duration: elapsed,
			}, nil
		}
		return Result{Duration: elapsed}, errs.Wrap(errs.KindBinary,
			"the engine executable could not be started", err).
			WithHint("Run `sgmcp fetch` to install the engine, or set SGMCP_BINARY.")
	}

	return Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: elapsed,
	}, nil
}
