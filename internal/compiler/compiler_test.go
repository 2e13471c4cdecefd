package compiler

import (
	"context"
	"testing"
	"time"
)

func TestRunSuccess(t *testing.T) {
	out, err := New("echo", "hello").Run(context.Background())
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if string(out) != "hello\n" {
		t.Errorf("got %q, want %q", out, "hello\n")
	}
}

func TestRunNonZeroExit(t *testing.T) {
	_, err := New("sh", "-c", "exit 3").Run(context.Background())
	pe, ok := err.(*ProcessError)
	if !ok {
		t.Fatalf("want *ProcessError, got %T: %v", err, err)
	}
	if pe.ExitCode != 3 {
		t.Errorf("want exit code 3, got %d", pe.ExitCode)
	}
	if pe.Signaled {
		t.Errorf("did not expect a signal death")
	}
}

func TestRunCapturesStderr(t *testing.T) {
	_, err := New("sh", "-c", "echo boom 1>&2; exit 1").Run(context.Background())
	pe, ok := err.(*ProcessError)
	if !ok {
		t.Fatalf("want *ProcessError, got %T", err)
	}
	if string(pe.Stderr) != "boom\n" {
		t.Errorf("got stderr %q", pe.Stderr)
	}
}

func TestWithEnvOverridesAndRemoves(t *testing.T) {
	out, err := New("sh", "-c", "echo $FOO-$(env | grep ^PATH=)").
		WithEnv("FOO", "bar").
		WithoutEnv("PATH").
		Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "bar-\n" {
		t.Errorf("got %q, want PATH stripped and FOO set: %q", out, "bar-\n")
	}
}

func TestRunTimeoutKillsSlowCommand(t *testing.T) {
	_, err := New("sleep", "5").RunTimeout(context.Background(), 50*time.Millisecond)
	pe, ok := err.(*ProcessError)
	if !ok {
		t.Fatalf("want *ProcessError on timeout, got %T: %v", err, err)
	}
	if pe.ExitCode != -1 {
		t.Errorf("want exit code -1 for a killed process, got %d", pe.ExitCode)
	}
}
