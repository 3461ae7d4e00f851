package agentsession

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dalkeith-r/fleetdash/internal/config"
	"github.com/dalkeith-r/fleetdash/internal/wire"
)

func pipeDialer(conn net.Conn) Dialer {
	return func(ctx context.Context, addr string) (net.Conn, error) {
		return conn, nil
	}
}

func TestConnectAndServeSendsHandshake(t *testing.T) {
	serverConn, agentConn := net.Pipe()
	defer serverConn.Close()

	s := New(&config.AgentConfig{Nickname: "pi1", FrontendAddr: "irrelevant"})
	s.dial = pipeDialer(agentConn)

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	defer cancel()

	payload, err := wire.ReadFrame(serverConn)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	msg, err := wire.DecodeAgentMessage(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	action, ok := msg.(wire.AAction)
	if !ok {
		t.Fatalf("got %#v, want AAction", msg)
	}
	hs, ok := action.Act.(wire.BActHandshake)
	if !ok {
		t.Fatalf("got %#v, want BActHandshake", action.Act)
	}
	if hs.Handshake.Nickname != "pi1" || hs.Handshake.Version != wire.ProtocolVersion {
		t.Errorf("handshake = %+v", hs.Handshake)
	}
}

func TestServeRespondsToRequest(t *testing.T) {
	serverConn, agentConn := net.Pipe()
	defer serverConn.Close()

	s := New(&config.AgentConfig{Nickname: "pi1", FrontendAddr: "irrelevant"})
	s.dial = pipeDialer(agentConn)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	if _, err := wire.ReadFrame(serverConn); err != nil {
		t.Fatalf("read handshake: %v", err)
	}

	frame := wire.EncodeFrontendMessage(wire.FReq{CorrelationID: 7, Req: wire.ReqMem{}})
	if err := wire.WriteFrame(serverConn, frame); err != nil {
		t.Fatalf("write request: %v", err)
	}

	respCh := make(chan wire.AgentMessage, 1)
	go func() {
		payload, err := wire.ReadFrame(serverConn)
		if err != nil {
			return
		}
		msg, err := wire.DecodeAgentMessage(payload)
		if err != nil {
			return
		}
		respCh <- msg
	}()

	select {
	case msg := <-respCh:
		resp, ok := msg.(wire.AResp)
		if !ok {
			t.Fatalf("got %#v, want AResp", msg)
		}
		if resp.CorrelationID != 7 {
			t.Errorf("CorrelationID = %d, want 7", resp.CorrelationID)
		}
		if _, ok := resp.Resp.(wire.RespMem); !ok {
			t.Errorf("resp = %#v, want RespMem", resp.Resp)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for response")
	}
}

func TestReconnectsAfterDisconnect(t *testing.T) {
	attempt := 0
	attemptCh := make(chan struct{}, 4)

	s := New(&config.AgentConfig{Nickname: "pi1", FrontendAddr: "irrelevant"})
	s.dial = func(ctx context.Context, addr string) (net.Conn, error) {
		attempt++
		attemptCh <- struct{}{}
		serverConn, agentConn := net.Pipe()
		// Close immediately from the "server" side to force a reconnect.
		go serverConn.Close()
		return agentConn, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	select {
	case <-attemptCh:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for first dial attempt")
	}
	select {
	case <-attemptCh:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reconnect attempt")
	}
}
