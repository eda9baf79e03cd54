// Package dispatch carries pointer commands from the pipeline to the
// operating system. The pipeline talks to a Port; implementations cover a
// real injector subprocess, a JSON-lines writer for dry runs and replay,
// and an in-memory recorder for tests.
package dispatch

import (
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/ayusman/mudra/internal/pointer"
)

// ErrPortClosed is returned by Dispatch after the port has been closed.
var ErrPortClosed = errors.New("dispatch: port closed")

// Port receives pointer commands in pipeline order. Callers serialize
// Dispatch calls, and Close happens only after the last Dispatch. A
// failed dispatch is reported through the error and never through a
// panic, so the state machine's view of held buttons stays authoritative.
type Port interface {
	Dispatch(cmd pointer.Command) error
	Close() error
}

// Recorder is a Port that keeps every command in memory. Tests and the
// replay command use it to assert on or print the exact command sequence.
type Recorder struct {
	mu     sync.Mutex
	cmds   []pointer.Command
	failFn func(pointer.Command) error
	closed bool
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// FailWith installs an error injector consulted before each command is
// recorded. A nil return lets the command through.
func (r *Recorder) FailWith(fn func(pointer.Command) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failFn = fn
}

// Dispatch records the command.
func (r *Recorder) Dispatch(cmd pointer.Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrPortClosed
	}
	if r.failFn != nil {
		if err := r.failFn(cmd); err != nil {
			return err
		}
	}
	r.cmds = append(r.cmds, cmd)
	return nil
}

// Close marks the recorder closed. Recorded commands stay readable.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Commands returns a copy of everything recorded so far.
func (r *Recorder) Commands() []pointer.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]pointer.Command, len(r.cmds))
	copy(out, r.cmds)
	return out
}

// CountKind returns how many recorded commands have the given kind.
func (r *Recorder) CountKind(k pointer.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.cmds {
		if c.Kind == k {
			n++
		}
	}
	return n
}

// Reset discards recorded commands.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = nil
}

// WriterPort is a Port that encodes each command as one JSON line on an
// io.Writer. It backs --dry-run and replay output.
type WriterPort struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewWriterPort returns a WriterPort writing to w.
func NewWriterPort(w io.Writer) *WriterPort {
	return &WriterPort{enc: json.NewEncoder(w)}
}

// Dispatch writes the command as a JSON line.
func (p *WriterPort) Dispatch(cmd pointer.Command) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enc.Encode(cmd)
}

// Close is a no-op; the underlying writer is owned by the caller.
func (p *WriterPort) Close() error {
	return nil
}
