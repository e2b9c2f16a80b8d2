package popup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"subtitle-translator-llm/src/validation"
)

// Process is a started popup subprocess. Satisfied by *exec.Cmd wrappers
// and by test fakes.
type Process interface {
	Wait() error
	Kill() error
}

// Options configure a Launcher. Now and Start are injectable so debounce
// and registry behavior are testable without spawning real processes.
type Options struct {
	Binary      string
	MinInterval time.Duration
	Timeout     time.Duration
	Now         func() time.Time
	Start       func(payload []byte, timeout time.Duration) (Process, error)
}

// Launcher spawns one popup subprocess per translation record, feeding the
// record as JSON on stdin. Requests arriving faster than MinInterval since
// the previous launch are dropped. Exited processes are reaped from the
// registry; CloseAll kills whatever is still alive.
type Launcher struct {
	mu        sync.Mutex
	opts      Options
	lastShown time.Time
	nextID    int
	active    map[int]Process
}

func NewLauncher(opts Options) *Launcher {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Start == nil {
		opts.Start = startCommand(opts.Binary)
	}
	return &Launcher{
		opts:   opts,
		active: make(map[int]Process),
	}
}

// Show launches a popup for the record unless debounced.
func (l *Launcher) Show(rec validation.Translation) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	l.mu.Lock()
	now := l.opts.Now()
	if l.opts.MinInterval > 0 && !l.lastShown.IsZero() && now.Sub(l.lastShown) < l.opts.MinInterval {
		l.mu.Unlock()
		log.Printf("Popup debounced (%.1fs since last)", now.Sub(l.lastShown).Seconds())
		return nil
	}
	l.lastShown = now
	l.mu.Unlock()

	proc, err := l.opts.Start(payload, l.opts.Timeout)
	if err != nil {
		return fmt.Errorf("failed to launch popup: %w", err)
	}

	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.active[id] = proc
	l.mu.Unlock()

	go func() {
		if err := proc.Wait(); err != nil {
			log.Printf("Popup process exited with error: %v", err)
		}
		l.mu.Lock()
		delete(l.active, id)
		l.mu.Unlock()
	}()

	return nil
}

// ActiveCount reports how many popup processes are still registered.
func (l *Launcher) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.active)
}

// CloseAll kills every registered popup process.
func (l *Launcher) CloseAll() {
	l.mu.Lock()
	procs := make([]Process, 0, len(l.active))
	for _, p := range l.active {
		procs = append(procs, p)
	}
	l.mu.Unlock()

	for _, p := range procs {
		if err := p.Kill(); err != nil {
			log.Printf("Failed to kill popup process: %v", err)
		}
	}
}

type cmdProcess struct {
	cmd *exec.Cmd
}

func (p cmdProcess) Wait() error { return p.cmd.Wait() }

func (p cmdProcess) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}

func startCommand(binary string) func([]byte, time.Duration) (Process, error) {
	return func(payload []byte, timeout time.Duration) (Process, error) {
		args := []string{}
		if timeout > 0 {
			args = append(args, "-timeout", strconv.Itoa(int(timeout.Seconds())))
		}
		cmd := exec.Command(binary, args...)
		cmd.Stdin = bytes.NewReader(payload)
		if err := cmd.Start(); err != nil {
			return nil, err
		}
		return cmdProcess{cmd: cmd}, nil
	}
}
