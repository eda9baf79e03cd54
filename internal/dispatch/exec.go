package dispatch

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/ayusman/mudra/internal/logutil"
	"github.com/ayusman/mudra/internal/pointer"
)

// defaultQueueSize bounds how many commands may wait for the injector.
// Movement floods past this point are dropped rather than letting a slow
// injector stall the frame loop.
const defaultQueueSize = 64

// ExecConfig describes the injector subprocess.
type ExecConfig struct {
	// Command is the injector executable; Args are passed through.
	Command string
	Args    []string

	// QueueSize overrides the pending-command bound when positive.
	QueueSize int
}

// ExecPort runs a long-lived injector subprocess and streams commands to
// its stdin as JSON lines. The injector is expected to act on each line
// and to exit when stdin closes.
//
// MoveTo commands are droppable: when the queue is full they are counted
// and discarded so the frame loop never blocks on a slow injector. Button
// and scroll commands are never dropped; Dispatch waits for queue space
// for those.
type ExecPort struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser

	queue chan pointer.Command
	done  chan struct{}

	dropped atomic.Uint64

	mu     sync.Mutex
	wErr   error
	closed bool

	closeOnce sync.Once
	closeErr  error
}

// NewExecPort starts the injector subprocess and the writer that feeds it.
func NewExecPort(cfg ExecConfig) (*ExecPort, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("injector command not configured")
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}

	cmd := exec.Command(cfg.Command, cfg.Args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create injector stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start injector %s: %w", cfg.Command, err)
	}
	log.Printf("injector started: %s (pid %d)", cfg.Command, cmd.Process.Pid)

	p := &ExecPort{
		cmd:   cmd,
		stdin: stdin,
		queue: make(chan pointer.Command, size),
		done:  make(chan struct{}),
	}
	go p.run()
	return p, nil
}

// run drains the queue onto the injector's stdin. After the first write
// error the process is considered broken; further commands are consumed
// and discarded so Dispatch never blocks on a dead pipe.
func (p *ExecPort) run() {
	defer close(p.done)
	enc := json.NewEncoder(p.stdin)
	for cmd := range p.queue {
		if p.writeErr() != nil {
			continue
		}
		logutil.Debugf("inject %s", cmd)
		if err := enc.Encode(cmd); err != nil {
			p.setWriteErr(fmt.Errorf("injector write failed: %w", err))
		}
	}
}

func (p *ExecPort) writeErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.wErr
}

func (p *ExecPort) setWriteErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.wErr == nil {
		p.wErr = err
	}
}

// Dispatch queues the command for the injector.
func (p *ExecPort) Dispatch(cmd pointer.Command) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPortClosed
	}
	err := p.wErr
	p.mu.Unlock()
	if err != nil {
		return err
	}

	if cmd.Kind == pointer.KindMoveTo {
		select {
		case p.queue <- cmd:
		default:
			p.dropped.Add(1)
		}
		return nil
	}

	p.queue <- cmd
	return nil
}

// Dropped reports how many movement commands were discarded because the
// injector could not keep up.
func (p *ExecPort) Dropped() uint64 {
	return p.dropped.Load()
}

// Close stops accepting commands, flushes the queue, closes the
// injector's stdin and waits for it to exit.
func (p *ExecPort) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()

		close(p.queue)
		<-p.done

		if err := p.stdin.Close(); err != nil && p.closeErr == nil {
			p.closeErr = fmt.Errorf("failed to close injector stdin: %w", err)
		}
		if err := p.cmd.Wait(); err != nil && p.closeErr == nil {
			p.closeErr = fmt.Errorf("injector exited with error: %w", err)
		}
		if n := p.dropped.Load(); n > 0 {
			log.Printf("injector closed, %d movement commands dropped", n)
		}
	})
	return p.closeErr
}
