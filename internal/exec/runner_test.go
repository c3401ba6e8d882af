package exec

import (
	"context"
	"strings"
	"testing"
)

func TestRunShellCapturesOutput(t *testing.T) {
	r := NewRunner()

	stdout, _, exitCode, err := r.RunShell(context.Background(), t.TempDir(), nil, "printf ok")
	if err != nil {
		t.Fatalf("RunShell failed: %v", err)
	}
	if string(stdout) != "ok" {
		t.Errorf("stdout = %q, want %q", stdout, "ok")
	}
	if exitCode != 0 {
		t.Errorf("exitCode = %d, want 0", exitCode)
	}
}

func TestRunShellNonZeroExitIsNotError(t *testing.T) {
	r := NewRunner()

	_, _, exitCode, err := r.RunShell(context.Background(), "", nil, "exit 3")
	if err != nil {
		t.Fatalf("RunShell failed: %v", err)
	}
	if exitCode != 3 {
		t.Errorf("exitCode = %d, want 3", exitCode)
	}
}

func TestRunShellEnvValuesWithSpaces(t *testing.T) {
	r := NewRunner()

	stdout, _, exitCode, err := r.RunShell(context.Background(), "",
		[]string{"GREETING=hello world"}, `printf "%s" "$GREETING"`)
	if err != nil {
		t.Fatalf("RunShell failed: %v", err)
	}
	if exitCode != 0 {
		t.Fatalf("exitCode = %d, want 0", exitCode)
	}
	if got := string(stdout); got != "hello world" {
		t.Errorf("stdout = %q, want %q", got, "hello world")
	}
}

func TestRunMissingCommand(t *testing.T) {
	r := NewRunner()

	_, _, _, err := r.Run(context.Background(), "", nil, "weft-no-such-binary")
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
	if !strings.Contains(err.Error(), "weft-no-such-binary") {
		t.Errorf("error %q does not name the binary", err)
	}
}
