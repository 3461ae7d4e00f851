// Package backend implements the frontend's per-agent connection actor
// (spec.md §4.6) and its registry (§4.7): one actor per connected agent,
// owning the socket, the in-flight request table, the telemetry cache, and
// the terminal bus.
package backend

import (
	"errors"
	"net"

	"github.com/google/uuid"

	"github.com/dalkeith-r/fleetdash/internal/cache"
	"github.com/dalkeith-r/fleetdash/internal/logging"
	"github.com/dalkeith-r/fleetdash/internal/wire"
)

// ErrClosed is delivered to every in-flight waiter when the actor
// terminates; terminal subscribers see their channel closed instead.
var ErrClosed = errors.New("backend: connection closed")

// ErrVariantMismatch indicates the agent answered with a ResponseKind whose
// name doesn't match the RequestKind it was asked — a protocol bug.
var ErrVariantMismatch = errors.New("backend: response variant mismatch")

// maxInFlight bounds the u16 correlation-id space: 65536 concurrent
// in-flight requests per agent (spec.md §7).
const maxInFlight = 1 << 16

type reqResult struct {
	resp wire.ResponseKind
	err  error
}

type reqCmd struct {
	req   wire.RequestKind
	reply chan reqResult
}

type actionCmd struct {
	act wire.ActionKind
}

type subscribeCmd struct {
	id   uuid.UUID
	sink chan []byte
}

type command any

// Handle is the registry/router-facing view of a running actor: a command
// channel plus read-only metadata. It is safe for concurrent use by many
// callers.
type Handle struct {
	cmdCh    chan command
	nickname string
}

func (h *Handle) Nickname() string { return h.nickname }

// SendRequest issues a Req command and blocks for its reply. It returns
// ErrClosed if the actor terminates before a response arrives.
func (h *Handle) SendRequest(req wire.RequestKind) (wire.ResponseKind, error) {
	reply := make(chan reqResult, 1)
	h.cmdCh <- reqCmd{req: req, reply: reply}
	res := <-reply
	return res.resp, res.err
}

// SendAction issues a fire-and-forget Action command.
func (h *Handle) SendAction(act wire.ActionKind) {
	h.cmdCh <- actionCmd{act: act}
}

// SubscribeTerminal registers sink to receive the ring buffer replay
// followed by live terminal bytes. The returned id can be used to reason
// about subscriber identity in logs; there is no explicit unsubscribe
// command — callers stop draining and let a future failed send evict them.
func (h *Handle) SubscribeTerminal(sink chan []byte) uuid.UUID {
	id := uuid.New()
	h.cmdCh <- subscribeCmd{id: id, sink: sink}
	return id
}

// actor is the single goroutine that owns one agent connection's state:
// the in-flight correlation-id table, the telemetry cache, and the
// terminal ring buffer + subscriber set. Only this goroutine ever mutates
// that state (spec.md §5).
type actor struct {
	addr     string
	conn     net.Conn
	registry *Registry
	cmdCh    chan command

	cache *cache.Cache

	waiters  map[uint16]waiterEntry
	freeIDs  []uint16
	nextID   uint32 // wider than uint16 so we can detect "all ids issued"
	pending  []reqCmd

	ring *ring
	subs map[uuid.UUID]chan []byte
}

type waiterEntry struct {
	req   wire.RequestKind
	reply chan reqResult
}

// Start launches the actor's goroutines and returns a Handle once the actor
// is registered. It performs no handshake itself — the caller does that
// first via AcceptHandshake.
func Start(conn net.Conn, addr, nickname string, registry *Registry) *Handle {
	a := &actor{
		addr:     addr,
		conn:     conn,
		registry: registry,
		cmdCh:    make(chan command, 64),
		cache:    cache.New(),
		waiters:  make(map[uint16]waiterEntry),
		ring:     &ring{},
		subs:     make(map[uuid.UUID]chan []byte),
	}
	h := &Handle{cmdCh: a.cmdCh, nickname: nickname}
	registry.Insert(addr, h)
	go a.run(h)
	return h
}

func (a *actor) run(self *Handle) {
	frameCh := make(chan wire.AgentMessage, 64)
	readErrCh := make(chan error, 1)
	go readLoop(a.conn, frameCh, readErrCh)

	defer a.shutdown(self)

	for {
		// While a Req waits for a free correlation id, stop reading commands
		// so callers block on the command channel until an id frees.
		cmdCh := a.cmdCh
		if len(a.pending) > 0 {
			cmdCh = nil
		}
		select {
		case cmd := <-cmdCh:
			if !a.handleCommand(cmd) {
				return
			}
		case msg, ok := <-frameCh:
			if !ok {
				return
			}
			if !a.handleFrame(msg) {
				return
			}
		case err := <-readErrCh:
			logging.Debug("agent connection closed", "addr", a.addr, "err", err)
			return
		}
	}
}

func readLoop(conn net.Conn, out chan<- wire.AgentMessage, errCh chan<- error) {
	defer close(out)
	for {
		payload, err := wire.ReadFrame(conn)
		if err != nil {
			errCh <- err
			return
		}
		msg, err := wire.DecodeAgentMessage(payload)
		if err != nil {
			errCh <- err
			return
		}
		out <- msg
	}
}

// handleCommand processes one command from the router. It returns false if
// the actor must terminate (a write failed).
func (a *actor) handleCommand(cmd command) bool {
	switch c := cmd.(type) {
	case reqCmd:
		return a.handleReq(c)
	case actionCmd:
		frame := wire.EncodeFrontendMessage(wire.FAction{Act: c.act})
		if err := wire.WriteFrame(a.conn, frame); err != nil {
			return false
		}
		return true
	case subscribeCmd:
		a.subs[c.id] = c.sink
		replay := a.ring.snapshot()
		if len(replay) > 0 {
			select {
			case c.sink <- replay:
			default:
				delete(a.subs, c.id)
			}
		}
		return true
	default:
		return true
	}
}

func (a *actor) handleReq(c reqCmd) bool {
	if cached, ok := a.cache.Get(c.req); ok {
		c.reply <- reqResult{resp: cached}
		return true
	}

	id, ok := a.allocID()
	if !ok {
		// Correlation-id space exhausted: queue this Req until an id frees
		// (spec.md §7 "applies backpressure on the command channel").
		a.pending = append(a.pending, c)
		return true
	}
	a.waiters[id] = waiterEntry{req: c.req, reply: c.reply}

	frame := wire.EncodeFrontendMessage(wire.FReq{CorrelationID: id, Req: c.req})
	if err := wire.WriteFrame(a.conn, frame); err != nil {
		// Leave c in a.waiters: shutdown drains every remaining waiter with
		// ErrClosed, which is also how this request's caller learns the
		// write failed (spec.md §4.6 "Writes that fail return error to all
		// currently in-flight waiters").
		return false
	}
	return true
}

func (a *actor) allocID() (uint16, bool) {
	if n := len(a.freeIDs); n > 0 {
		id := a.freeIDs[n-1]
		a.freeIDs = a.freeIDs[:n-1]
		return id, true
	}
	if a.nextID >= maxInFlight {
		return 0, false
	}
	id := uint16(a.nextID)
	a.nextID++
	return id, true
}

func (a *actor) freeID(id uint16) {
	a.freeIDs = append(a.freeIDs, id)
	if len(a.pending) > 0 && len(a.waiters) < maxInFlight {
		next := a.pending[0]
		a.pending = a.pending[1:]
		a.handleReq(next)
	}
}

// handleFrame processes one decoded agent->frontend message. It returns
// false if the actor must terminate.
func (a *actor) handleFrame(msg wire.AgentMessage) bool {
	switch m := msg.(type) {
	case wire.AResp:
		w, ok := a.waiters[m.CorrelationID]
		if !ok {
			logging.Warn("unknown correlation id", "addr", a.addr, "id", m.CorrelationID)
			return true
		}
		delete(a.waiters, m.CorrelationID)
		a.freeID(m.CorrelationID)

		if wire.RequestKindName(w.req) != wire.ResponseKindName(m.Resp) {
			w.reply <- reqResult{err: ErrVariantMismatch}
			return false
		}
		a.cache.Insert(m.Resp)
		w.reply <- reqResult{resp: m.Resp}
		return true
	case wire.AAction:
		switch act := m.Act.(type) {
		case wire.BActHandshake:
			logging.Warn("extraneous handshake after connection established", "addr", a.addr)
			return false
		case wire.BActTerminal:
			a.ring.append(act.Data)
			a.fanOutTerminal(act.Data)
			return true
		}
	}
	return true
}

func (a *actor) fanOutTerminal(data []byte) {
	for id, sink := range a.subs {
		select {
		case sink <- data:
		default:
			delete(a.subs, id)
		}
	}
}

func (a *actor) shutdown(self *Handle) {
	a.registry.Remove(a.addr, self)
	a.conn.Close()

	for _, w := range a.waiters {
		w.reply <- reqResult{err: ErrClosed}
	}
	for _, p := range a.pending {
		p.reply <- reqResult{err: ErrClosed}
	}
	for _, sink := range a.subs {
		close(sink)
	}
}
