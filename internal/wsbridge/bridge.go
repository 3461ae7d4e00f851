package wsbridge

import (
	"io"

	"github.com/dalkeith-r/fleetdash/internal/logging"
	"github.com/dalkeith-r/fleetdash/internal/router"
	"github.com/dalkeith-r/fleetdash/internal/wire"
)

// Serve bridges a single browser terminal WebSocket to the given agent's
// terminal bus: a downstream task replays the ring buffer then forwards
// live bytes, and an upstream task turns each inbound WebSocket frame into
// a terminal Action (spec.md §4.9). It blocks until either side closes.
func Serve(conn *Conn, rt *router.Router, addr string) {
	defer conn.Close()

	sink := make(chan []byte, 64)
	_, err := rt.SubscribeTerminal(addr, sink)
	if err != nil {
		logging.Warn("terminal bridge: subscribe failed", "addr", addr, "err", err)
		return
	}

	go downstream(conn, sink)
	upstream(conn, rt, addr)
}

// downstream closes conn when the subscription ends or a write fails, which
// unblocks upstream's read so Serve returns.
func downstream(conn *Conn, sink <-chan []byte) {
	defer conn.Close()
	for data := range sink {
		if err := conn.WriteBinary(data); err != nil {
			return
		}
	}
}

func upstream(conn *Conn, rt *router.Router, addr string) {
	for {
		data, err := conn.ReadBinary()
		if err != nil {
			if err != io.EOF {
				logging.Debug("terminal bridge: read failed", "addr", addr, "err", err)
			}
			return
		}
		if err := rt.SendAction(addr, wire.ActTerminal{Data: data}); err != nil {
			logging.Warn("terminal bridge: send action failed", "addr", addr, "err", err)
			return
		}
	}
}
