package landmark

import (
	"io"
	"testing"
)

func TestNewExecSource_RequiresCommand(t *testing.T) {
	if _, err := NewExecSource(ExecConfig{}); err == nil {
		t.Fatal("expected error for empty tracker command, got nil")
	}
}

func TestExecSource_ReadsTicks(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping subprocess test in short mode")
	}

	// A fake tracker that emits one hand tick and one empty tick, then exits.
	script := `printf '%s\n%s\n' ` +
		`'{"hands":[{"points":[{"x":0.5,"y":0.5,"z":0}],"handedness":"Right","score":0.9}],"timestamp_ms":1000}' ` +
		`'{"hands":[]}'`

	src, err := NewExecSource(ExecConfig{Command: "/bin/sh", Args: []string{"-c", script}})
	if err != nil {
		t.Fatalf("failed to create source: %v", err)
	}
	defer src.Close()

	frame, err := src.Next()
	if err != nil {
		t.Fatalf("first tick: %v", err)
	}
	if frame == nil || frame.Handedness != HandRight {
		t.Errorf("expected right hand in first tick, got %+v", frame)
	}

	frame, err = src.Next()
	if err != nil {
		t.Fatalf("second tick: %v", err)
	}
	if frame != nil {
		t.Errorf("expected nil for empty tick, got %+v", frame)
	}

	if _, err := src.Next(); err != io.EOF {
		t.Errorf("expected io.EOF after tracker exit, got %v", err)
	}
}

func TestExecSource_PrefersConfiguredHand(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping subprocess test in short mode")
	}

	script := `printf '%s\n' ` +
		`'{"hands":[{"points":[],"handedness":"Left","score":0.9},{"points":[],"handedness":"Right","score":0.5}]}'`

	src, err := NewExecSource(ExecConfig{
		Command: "/bin/sh",
		Args:    []string{"-c", script},
		Prefer:  HandRight,
	})
	if err != nil {
		t.Fatalf("failed to create source: %v", err)
	}
	defer src.Close()

	frame, err := src.Next()
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if frame == nil || frame.Handedness != HandRight {
		t.Errorf("expected preferred right hand, got %+v", frame)
	}
}
