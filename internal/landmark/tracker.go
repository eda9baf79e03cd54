package landmark

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
)

// ExecConfig configures an ExecSource.
type ExecConfig struct {
	// Command is the tracker executable, e.g. a mediapipe wrapper script.
	Command string
	// Args are passed to the tracker verbatim.
	Args []string
	// Prefer filters ticks to one handedness; empty means any hand.
	Prefer Handedness
}

// ExecSource reads landmark ticks from a tracker subprocess. The tracker
// owns the camera and writes one JSON tick per line to stdout:
//
//	{"hands":[{"points":[{"x":..,"y":..,"z":..}, ...],"handedness":"Left","score":0.97}],"timestamp_ms":1712345678901}
//
// An empty hands array is a "no hand" tick. The tracker must exit when its
// stdin closes; that is the shutdown signal.
type ExecSource struct {
	config  ExecConfig
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  *bufio.Reader
	mu      sync.Mutex
	started bool
}

// NewExecSource creates a source for the given tracker command. The process
// is started lazily on the first Next call.
func NewExecSource(config ExecConfig) (*ExecSource, error) {
	if config.Command == "" {
		return nil, fmt.Errorf("tracker command is required")
	}
	return &ExecSource{config: config}, nil
}

// Next reads one tick from the tracker. It returns (nil, nil) for ticks
// without a qualifying hand and io.EOF once the tracker exits.
func (s *ExecSource) Next() (*Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureStarted(); err != nil {
		return nil, err
	}

	line, err := s.stdout.ReadString('\n')
	if err != nil {
		// Tracker gone: treat as source exhaustion so the pipeline shuts
		// down cleanly instead of spinning on a dead pipe.
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read tracker output: %w", err)
	}

	var tick wireTick
	if err := json.Unmarshal([]byte(line), &tick); err != nil {
		return nil, fmt.Errorf("parse tracker output: %w", err)
	}

	return tick.frame(s.config.Prefer), nil
}

// Close shuts the tracker down by closing its stdin and waiting for exit.
func (s *ExecSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown()
}

func (s *ExecSource) ensureStarted() error {
	if s.started {
		return nil
	}

	s.cmd = exec.Command(s.config.Command, s.config.Args...)

	stdin, err := s.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := s.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	// Tracker diagnostics go straight to our stderr
	s.cmd.Stderr = os.Stderr

	if err := s.cmd.Start(); err != nil {
		return fmt.Errorf("start tracker: %w", err)
	}

	s.stdin = stdin
	s.stdout = bufio.NewReader(stdout)
	s.started = true

	return nil
}

func (s *ExecSource) shutdown() error {
	if !s.started {
		return nil
	}

	if s.stdin != nil {
		s.stdin.Close()
	}

	err := s.cmd.Wait()
	s.started = false
	s.cmd = nil
	s.stdin = nil
	s.stdout = nil

	return err
}
