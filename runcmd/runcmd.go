// Package runcmd executes external converter tools with a bounded timeout.
//
// Every invocation returns an Outcome instead of an error: a missing binary,
// a timeout and a nonzero exit are all expected failure modes for the
// conversion pipeline and must never surface as a crash. Callers branch on
// Outcome.ExitCode.
package runcmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ExitNotRun is the reserved exit code reported when the command never
// produced a real exit status: binary not found, spawn failure, or timeout.
// Real processes cannot exit with a negative code.
const ExitNotRun = -1

// DefaultTimeout bounds long conversions (libreoffice, pandoc, pdflatex).
const DefaultTimeout = 3 * time.Minute

// ProbeTimeout bounds cheap introspection tools (pdfinfo, ffprobe).
const ProbeTimeout = 30 * time.Second

// Outcome is the captured result of one tool invocation.
type Outcome struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Failed reports whether the command did not complete successfully.
func (o Outcome) Failed() bool { return o.ExitCode != 0 }

// Runner is the invocation function signature. The conversion layer takes a
// Runner value so tests can substitute a fake and count calls.
type Runner func(ctx context.Context, timeout time.Duration, name string, args ...string) Outcome

// Run executes name with args, capturing stdout and stderr as text. A zero
// timeout falls back to DefaultTimeout.
func Run(ctx context.Context, timeout time.Duration, name string, args ...string) Outcome {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return Outcome{ExitCode: 0, Stdout: stdout.String(), Stderr: stderr.String()}
	}

	if ctx.Err() == context.DeadlineExceeded {
		return Outcome{
			ExitCode: ExitNotRun,
			Stderr:   fmt.Sprintf("command %q timed out after %s", commandLine(name, args), timeout),
		}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Outcome{
			ExitCode: exitErr.ExitCode(),
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
		}
	}

	if errors.Is(err, exec.ErrNotFound) {
		return Outcome{
			ExitCode: ExitNotRun,
			Stderr:   fmt.Sprintf("command not found: %q", name),
		}
	}

	return Outcome{
		ExitCode: ExitNotRun,
		Stderr:   fmt.Sprintf("failed to execute %q: %v", commandLine(name, args), err),
	}
}

func commandLine(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}
