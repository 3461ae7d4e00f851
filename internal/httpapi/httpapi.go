// Package httpapi is the frontend's browser-facing HTTP surface: listing
// connected agents, issuing telemetry/action requests, and upgrading the
// terminal WebSocket (spec.md §6, §4.8, §4.9).
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/dalkeith-r/fleetdash/internal/logging"
	"github.com/dalkeith-r/fleetdash/internal/router"
	"github.com/dalkeith-r/fleetdash/internal/wire"
	"github.com/dalkeith-r/fleetdash/internal/wsbridge"
)

// cookieName is the agent-selection cookie the frontend reads on every
// request (spec.md §6).
const cookieName = "backend"

// Handler builds the browser-facing mux wired to rt.
func Handler(rt *router.Router) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/agents", handleAgents(rt))
	mux.HandleFunc("/api/request", handleRequest(rt))
	mux.HandleFunc("/api/action", handleAction(rt))
	mux.HandleFunc("/ws/terminal", handleTerminal(rt))
	return mux
}

// selectedAgent returns the agent address named by the selection cookie, or
// "" when the cookie is absent; Router.Resolve applies the fallback for "".
func selectedAgent(r *http.Request) string {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func handleAgents(rt *router.Router) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rt.Agents())
	}
}

// requestEnvelope/actionEnvelope are thin JSON shells around the wire types
// so a browser can address the binary protocol over plain HTTP; the kind
// string selects which RequestKind/ActionKind zero-or-populated value to
// build. This is deliberately minimal — the browser UI is out of scope.
type requestEnvelope struct {
	Kind string `json:"kind"`
	Path string `json:"path,omitempty"`
	Cmd  string `json:"cmd,omitempty"`
	Args []string `json:"args,omitempty"`
}

func (e requestEnvelope) toRequestKind() (wire.RequestKind, bool) {
	switch e.Kind {
	case "cpu":
		return wire.ReqCpu{}, true
	case "temp":
		return wire.ReqTemp{}, true
	case "mem":
		return wire.ReqMem{}, true
	case "disk":
		return wire.ReqDisk{}, true
	case "net_io":
		return wire.ReqNetIO{}, true
	case "processes":
		return wire.ReqProcesses{}, true
	case "host":
		return wire.ReqHost{}, true
	case "software":
		return wire.ReqSoftware{}, true
	case "services":
		return wire.ReqServices{}, true
	case "command":
		return wire.ReqCommand{Cmd: e.Cmd, Args: e.Args}, true
	case "directory":
		return wire.ReqDirectory{Path: e.Path}, true
	case "download":
		return wire.ReqDownload{Path: e.Path}, true
	default:
		return nil, false
	}
}

func handleRequest(rt *router.Router) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var env requestEnvelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			http.Error(w, "bad request body", http.StatusBadRequest)
			return
		}
		req, ok := env.toRequestKind()
		if !ok {
			http.Error(w, "unknown request kind", http.StatusBadRequest)
			return
		}

		resp, err := rt.SendRequest(selectedAgent(r), req)
		if err != nil {
			logging.Warn("httpapi: request failed", "kind", env.Kind, "err", err)
			http.Error(w, err.Error(), router.StatusFor(err))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

type actionEnvelope struct {
	Kind string `json:"kind"`
	Path string `json:"path,omitempty"`
	To   string `json:"to,omitempty"`
	PID  int32  `json:"pid,omitempty"`
	Data []byte `json:"data,omitempty"`
}

func (e actionEnvelope) toActionKind() (wire.ActionKind, bool) {
	switch e.Kind {
	case "new_file":
		return wire.ActNewFile{Path: e.Path}, true
	case "new_folder":
		return wire.ActNewFolder{Path: e.Path}, true
	case "rename":
		return wire.ActRename{From: e.Path, To: e.To}, true
	case "delete_file":
		return wire.ActDeleteFile{Path: e.Path}, true
	case "delete_folder":
		return wire.ActDeleteFolder{Path: e.Path}, true
	case "upload":
		return wire.ActUpload{Path: e.Path, Data: e.Data}, true
	case "signal_term":
		return wire.ActSignal{PID: e.PID, Kind: wire.SignalTerm}, true
	case "signal_pause":
		return wire.ActSignal{PID: e.PID, Kind: wire.SignalPause}, true
	case "signal_resume":
		return wire.ActSignal{PID: e.PID, Kind: wire.SignalResume}, true
	case "signal_kill":
		return wire.ActSignal{PID: e.PID, Kind: wire.SignalKill}, true
	default:
		return nil, false
	}
}

func handleAction(rt *router.Router) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var env actionEnvelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			http.Error(w, "bad request body", http.StatusBadRequest)
			return
		}
		act, ok := env.toActionKind()
		if !ok {
			http.Error(w, "unknown action kind", http.StatusBadRequest)
			return
		}
		if err := rt.SendAction(selectedAgent(r), act); err != nil {
			http.Error(w, err.Error(), router.StatusFor(err))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleTerminal(rt *router.Router) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addr, _, err := rt.Resolve(selectedAgent(r))
		if err != nil {
			http.Error(w, err.Error(), router.StatusFor(err))
			return
		}
		conn, err := wsbridge.Upgrade(w, r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		wsbridge.Serve(conn, rt, addr)
	}
}
