package runcmd

import (
	"context"
	"testing"
	"time"
)

func TestRunCapturesStdout(t *testing.T) {
	out := Run(context.Background(), 0, "echo", "hello")
	if out.Failed() {
		t.Fatalf("echo failed: exit=%d stderr=%q", out.ExitCode, out.Stderr)
	}
	if out.Stdout != "hello\n" {
		t.Errorf("stdout = %q, want %q", out.Stdout, "hello\n")
	}
}

func TestRunNonzeroExit(t *testing.T) {
	out := Run(context.Background(), 0, "sh", "-c", "exit 3")
	if out.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", out.ExitCode)
	}
}

func TestRunMissingBinary(t *testing.T) {
	out := Run(context.Background(), 0, "definitely-not-a-real-binary-xyz")
	if out.ExitCode != ExitNotRun {
		t.Errorf("exit code = %d, want %d", out.ExitCode, ExitNotRun)
	}
	if out.Stderr == "" {
		t.Error("expected stderr to describe the missing binary")
	}
}

func TestRunTimeout(t *testing.T) {
	start := time.Now()
	out := Run(context.Background(), 100*time.Millisecond, "sleep", "5")
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("timeout not enforced, took %s", elapsed)
	}
	if out.ExitCode != ExitNotRun {
		t.Errorf("exit code = %d, want %d", out.ExitCode, ExitNotRun)
	}
	if out.Stdout != "" {
		t.Errorf("stdout = %q, want empty on timeout", out.Stdout)
	}
}
