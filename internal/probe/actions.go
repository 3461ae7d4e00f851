package probe

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/dalkeith-r/fleetdash/internal/logging"
	"github.com/dalkeith-r/fleetdash/internal/wire"
)

// HandleAction carries out one fire-and-forget ActionKind (SPEC_FULL.md
// §4.12). Every handler swallows its own error beyond a debug log line —
// actions never produce a ResponseKind and must never block the session's
// read loop on a slow filesystem.
func HandleAction(act wire.ActionKind) {
	switch a := act.(type) {
	case wire.ActSignal:
		signalProcess(a.PID, a.Kind)
	case wire.ActNewFile:
		newFile(a.Path)
	case wire.ActNewFolder:
		newFolder(a.Path)
	case wire.ActRename:
		rename(a.From, a.To)
	case wire.ActDeleteFile:
		deleteFile(a.Path)
	case wire.ActDeleteFolder:
		deleteFolder(a.Path)
	case wire.ActUpload:
		upload(a.Path, a.Data)
	case wire.ActTerminal:
		// Terminal bytes are routed by the agent session directly to the
		// PTY supervisor; HandleAction is never called for this variant.
	}
}

func signalProcess(pid int32, kind wire.SignalKind) {
	sig := map[wire.SignalKind]syscall.Signal{
		wire.SignalTerm:   unix.SIGTERM,
		wire.SignalPause:  unix.SIGSTOP,
		wire.SignalResume: unix.SIGCONT,
		wire.SignalKill:   unix.SIGKILL,
	}[kind]

	proc, err := os.FindProcess(int(pid))
	if err != nil {
		return
	}
	if err := proc.Signal(sig); err != nil {
		logging.Debug("probe: signal failed", "pid", pid, "err", err)
	}
}

func newFile(path string) {
	if _, err := os.Stat(path); err == nil {
		return
	}
	f, err := os.Create(path)
	if err != nil {
		logging.Debug("probe: new_file failed", "path", path, "err", err)
		return
	}
	f.Close()
}

func newFolder(path string) {
	if err := os.Mkdir(path, 0o755); err != nil {
		logging.Debug("probe: new_folder failed", "path", path, "err", err)
	}
}

func rename(from, to string) {
	if err := os.Rename(from, to); err != nil {
		logging.Debug("probe: rename failed", "from", from, "to", to, "err", err)
	}
}

func deleteFile(path string) {
	if err := os.Remove(path); err != nil {
		logging.Debug("probe: delete_file failed", "path", path, "err", err)
	}
}

func deleteFolder(path string) {
	if err := os.RemoveAll(path); err != nil {
		logging.Debug("probe: delete_folder failed", "path", path, "err", err)
	}
}

func upload(path string, data []byte) {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		logging.Debug("probe: upload failed", "path", path, "err", err)
	}
}
