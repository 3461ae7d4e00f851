// Package agentsession implements the node agent's half of the connection:
// dial, handshake, then serve requests/actions against the frontend until
// the socket breaks, reconnecting with backoff (spec.md §4.4, §4.10).
package agentsession

import (
	"context"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/dalkeith-r/fleetdash/internal/backoff"
	"github.com/dalkeith-r/fleetdash/internal/config"
	"github.com/dalkeith-r/fleetdash/internal/logging"
	"github.com/dalkeith-r/fleetdash/internal/probe"
	"github.com/dalkeith-r/fleetdash/internal/ptysup"
	"github.com/dalkeith-r/fleetdash/internal/wire"
)

// dispatchRate/dispatchBurst throttle how fast inbound Req frames are
// handed to probes, protecting the host from a frontend that floods
// requests faster than getters can answer (grounded on the teacher's
// per-connection BandwidthMeter in internal/relay/bandwidth.go).
const (
	dispatchRate  = 50
	dispatchBurst = 20
)

// workerPoolSize bounds how many probes/actions may run concurrently off
// the session's read loop, so a burst of Req/Action frames can't pile up
// an unbounded number of blocking syscalls and subprocesses at once
// (spec.md §4.4, SPEC_FULL.md glossary's "worker pool"). Grounded on the
// teacher's semaphore-channel idiom (scripts/pipeline.go's
// sem := make(chan struct{}, 10)).
const workerPoolSize = 8

// Dialer is the network collaborator Session uses to reach the frontend;
// tests substitute it with an in-memory net.Pipe side.
type Dialer func(ctx context.Context, addr string) (net.Conn, error)

func defaultDialer(ctx context.Context, addr string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", addr)
}

// Session is one agent's dial/serve state machine.
type Session struct {
	cfg     *config.AgentConfig
	probes  probe.Set
	limiter *rate.Limiter
	sem     chan struct{}
	dial    Dialer
	bo      backoff.Backoff
}

func New(cfg *config.AgentConfig) *Session {
	return &Session{
		cfg:     cfg,
		probes:  probe.FromConfig(cfg),
		limiter: rate.NewLimiter(dispatchRate, dispatchBurst),
		sem:     make(chan struct{}, workerPoolSize),
		dial:    defaultDialer,
		bo: backoff.Backoff{
			Base:        cfg.Reconnect.Base,
			Max:         cfg.Reconnect.Max,
			ResetWindow: cfg.Reconnect.ResetAfter,
		},
	}
}

// Run dials, handshakes, and serves until ctx is cancelled. Every
// disconnect — including the first dial failure — is followed by the
// backoff sleep from spec.md §4.10 before retrying.
func (s *Session) Run(ctx context.Context) {
	for ctx.Err() == nil {
		err := s.connectAndServe(ctx)
		if ctx.Err() != nil {
			return
		}
		delay := s.bo.Failure(time.Now())
		logging.Warn("agent: disconnected, reconnecting", "addr", s.cfg.FrontendAddr, "err", err, "delay", delay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func (s *Session) connectAndServe(ctx context.Context) error {
	conn, err := s.dial(ctx, s.cfg.FrontendAddr)
	if err != nil {
		return err
	}
	defer conn.Close()

	frame := wire.EncodeAgentMessage(wire.AAction{Act: wire.BActHandshake{
		Handshake: wire.Handshake{Nickname: s.cfg.Nickname, Version: wire.ProtocolVersion},
	}})
	if err := wire.WriteFrame(conn, frame); err != nil {
		return err
	}

	s.bo.Reset()
	logging.Info("agent: connected", "addr", s.cfg.FrontendAddr)
	return s.serve(ctx, conn)
}

func (s *Session) serve(parent context.Context, conn net.Conn) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	outCh := make(chan []byte, 64)
	writeErrCh := make(chan error, 1)
	go writeLoop(conn, outCh, ctx.Done(), writeErrCh)

	frameCh := make(chan wire.FrontendMessage, 64)
	readErrCh := make(chan error, 1)
	go readLoop(conn, frameCh, readErrCh)

	var term *ptysup.Supervisor
	var termOnce sync.Once
	ensureTerminal := func() *ptysup.Supervisor {
		termOnce.Do(func() {
			sup, err := ptysup.New()
			if err != nil {
				logging.Warn("agent: terminal unavailable", "err", err)
				return
			}
			term = sup
			go forwardTerminalOutput(ctx, sup, outCh)
		})
		return term
	}

	for {
		select {
		case msg := <-frameCh:
			s.handleFrontendMessage(ctx, msg, outCh, ensureTerminal)
		case err := <-readErrCh:
			closeTerminal(term)
			return err
		case err := <-writeErrCh:
			closeTerminal(term)
			return err
		case <-ctx.Done():
			closeTerminal(term)
			return ctx.Err()
		}
	}
}

func closeTerminal(term *ptysup.Supervisor) {
	if term != nil {
		term.Close()
	}
}

func (s *Session) handleFrontendMessage(ctx context.Context, msg wire.FrontendMessage, outCh chan<- []byte, ensureTerminal func() *ptysup.Supervisor) {
	switch m := msg.(type) {
	case wire.FReq:
		go s.dispatch(ctx, func() { s.dispatchRequest(ctx, m, outCh) })
	case wire.FAction:
		if t, ok := m.Act.(wire.ActTerminal); ok {
			if sup := ensureTerminal(); sup != nil {
				sup.Write(t.Data)
			}
			return
		}
		go s.dispatch(ctx, func() { probe.HandleAction(m.Act) })
	}
}

// dispatch runs fn on the session's bounded worker pool: it blocks
// acquiring a slot (or until ctx is cancelled) before calling fn, so at
// most workerPoolSize probes/actions execute at once no matter how many
// Req/Action frames arrive back-to-back.
func (s *Session) dispatch(ctx context.Context, fn func()) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return
	}
	defer func() { <-s.sem }()
	fn()
}

func (s *Session) dispatchRequest(ctx context.Context, m wire.FReq, outCh chan<- []byte) {
	if err := s.limiter.Wait(ctx); err != nil {
		return
	}
	resp := s.probes.Handle(ctx, m.Req)
	if resp == nil {
		return
	}
	frame := wire.EncodeAgentMessage(wire.AResp{CorrelationID: m.CorrelationID, Resp: resp})
	select {
	case outCh <- frame:
	case <-ctx.Done():
	}
}

func forwardTerminalOutput(ctx context.Context, sup *ptysup.Supervisor, outCh chan<- []byte) {
	for chunk := range sup.Output {
		frame := wire.EncodeAgentMessage(wire.AAction{Act: wire.BActTerminal{Data: chunk}})
		select {
		case outCh <- frame:
		case <-ctx.Done():
			return
		}
	}
}

func writeLoop(conn net.Conn, outCh <-chan []byte, done <-chan struct{}, errCh chan<- error) {
	for {
		select {
		case frame := <-outCh:
			if err := wire.WriteFrame(conn, frame); err != nil {
				errCh <- err
				return
			}
		case <-done:
			return
		}
	}
}

func readLoop(conn net.Conn, out chan<- wire.FrontendMessage, errCh chan<- error) {
	for {
		payload, err := wire.ReadFrame(conn)
		if err != nil {
			errCh <- err
			return
		}
		msg, err := wire.DecodeFrontendMessage(payload)
		if err != nil {
			errCh <- err
			return
		}
		out <- msg
	}
}
