// Package ptysup owns a single PTY-backed login shell for the agent's
// terminal feature (spec.md §4.3): it spawns the shell, bridges bytes
// between the PTY and the agent session, and respawns automatically if the
// shell exits.
package ptysup

import (
	"errors"
	"os"
	"os/exec"

	"github.com/creack/pty"

	"github.com/dalkeith-r/fleetdash/internal/logging"
)

// readChunkSize matches the original agent's terminal reader (512-byte
// reads keep PTY output latency low without flooding the session with
// tiny frames).
const readChunkSize = 512

// loginShell is the command spawned under the PTY. DietPi hosts always
// have /bin/login; a plain shell is used as a fallback in test/dev
// environments where it is absent.
var loginShell = "/bin/login"

// Supervisor owns one PTY session. Input written via Write is forwarded to
// the shell; output read by the shell is delivered to Output.
type Supervisor struct {
	Output chan []byte

	input   chan []byte
	closeCh chan struct{}
}

// New starts the supervisor goroutine, which spawns the shell immediately
// and respawns it on EOF or error until Close is called.
func New() (*Supervisor, error) {
	master, err := spawn()
	if err != nil {
		return nil, err
	}
	s := &Supervisor{
		Output:  make(chan []byte, 64),
		input:   make(chan []byte, 64),
		closeCh: make(chan struct{}),
	}
	go s.run(master)
	return s, nil
}

// Write forwards data to the shell's stdin (the PTY master).
func (s *Supervisor) Write(data []byte) {
	select {
	case s.input <- data:
	case <-s.closeCh:
	}
}

// Close terminates the supervisor and its current shell process.
func (s *Supervisor) Close() {
	close(s.closeCh)
}

func spawn() (*os.File, error) {
	shell := loginShell
	if _, err := os.Stat(shell); err != nil {
		shell = "/bin/sh"
	}
	cmd := exec.Command(shell)
	f, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: 24, Cols: 80})
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Supervisor) run(master *os.File) {
	for {
		if !s.session(master) {
			master.Close()
			close(s.Output)
			return
		}
		master.Close()

		next, err := spawn()
		if err != nil {
			logging.Warn("ptysup: respawn failed, giving up", "err", err)
			close(s.Output)
			return
		}
		master = next
	}
}

// session bridges one PTY generation until the shell exits or Close is
// called. It returns false if the supervisor should stop entirely.
func (s *Supervisor) session(master *os.File) bool {
	readErr := make(chan error, 1)
	readCh := make(chan []byte, 64)
	go func() {
		buf := make([]byte, readChunkSize)
		for {
			n, err := master.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				select {
				case readCh <- chunk:
				case <-s.closeCh:
					return
				}
			}
			if err != nil {
				readErr <- err
				return
			}
		}
	}()

	for {
		select {
		case data := <-s.input:
			if _, err := master.Write(data); err != nil {
				return true // respawn
			}
		case chunk := <-readCh:
			select {
			case s.Output <- chunk:
			case <-s.closeCh:
				return false
			}
		case err := <-readErr:
			if errors.Is(err, os.ErrClosed) {
				return false
			}
			return true // EOF or read error: respawn
		case <-s.closeCh:
			return false
		}
	}
}
