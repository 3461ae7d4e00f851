package backend

import (
	"net"
	"testing"
	"time"

	"github.com/dalkeith-r/fleetdash/internal/wire"
)

// fakeAgent is the agent side of an in-memory pipe, used to drive the
// actor under test without a real TCP socket.
type fakeAgent struct {
	conn net.Conn
	t    *testing.T
}

func newFakeAgent(t *testing.T, conn net.Conn) *fakeAgent {
	return &fakeAgent{conn: conn, t: t}
}

func (f *fakeAgent) sendHandshake(nickname string, version uint32) {
	f.t.Helper()
	frame := wire.EncodeAgentMessage(wire.AAction{Act: wire.BActHandshake{
		Handshake: wire.Handshake{Nickname: nickname, Version: version},
	}})
	if err := wire.WriteFrame(f.conn, frame); err != nil {
		f.t.Fatalf("write handshake: %v", err)
	}
}

func (f *fakeAgent) recvFrontendMessage() wire.FrontendMessage {
	f.t.Helper()
	payload, err := wire.ReadFrame(f.conn)
	if err != nil {
		f.t.Fatalf("read frame: %v", err)
	}
	msg, err := wire.DecodeFrontendMessage(payload)
	if err != nil {
		f.t.Fatalf("decode frontend message: %v", err)
	}
	return msg
}

func (f *fakeAgent) sendResponse(id uint16, resp wire.ResponseKind) {
	f.t.Helper()
	frame := wire.EncodeAgentMessage(wire.AResp{CorrelationID: id, Resp: resp})
	if err := wire.WriteFrame(f.conn, frame); err != nil {
		f.t.Fatalf("write response: %v", err)
	}
}

func (f *fakeAgent) sendTerminal(data []byte) {
	f.t.Helper()
	frame := wire.EncodeAgentMessage(wire.AAction{Act: wire.BActTerminal{Data: data}})
	if err := wire.WriteFrame(f.conn, frame); err != nil {
		f.t.Fatalf("write terminal: %v", err)
	}
}

func setup(t *testing.T) (*Handle, *fakeAgent, *Registry) {
	t.Helper()
	serverConn, agentConn := net.Pipe()
	reg := NewRegistry()

	agent := newFakeAgent(t, agentConn)
	go agent.sendHandshake("pi1", wire.ProtocolVersion)

	nickname, err := AcceptHandshake(serverConn)
	if err != nil {
		t.Fatalf("AcceptHandshake: %v", err)
	}
	h := Start(serverConn, "10.0.0.1:1234", nickname, reg)
	return h, agent, reg
}

func TestHandshakeThenRegistered(t *testing.T) {
	h, _, reg := setup(t)
	if h.Nickname() != "pi1" {
		t.Errorf("nickname = %q, want pi1", h.Nickname())
	}
	snap := reg.Snapshot()
	if len(snap) != 1 || snap[0].Addr != "10.0.0.1:1234" {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestHandshakeVersionMismatch(t *testing.T) {
	serverConn, agentConn := net.Pipe()
	agent := newFakeAgent(t, agentConn)
	go agent.sendHandshake("pi1", 999)

	if _, err := AcceptHandshake(serverConn); err != ErrHandshakeMismatch {
		t.Errorf("err = %v, want ErrHandshakeMismatch", err)
	}
}

func TestRequestResponseRoundTrip(t *testing.T) {
	h, agent, _ := setup(t)

	resultCh := make(chan wire.ResponseKind, 1)
	go func() {
		resp, err := h.SendRequest(wire.ReqCpu{})
		if err != nil {
			t.Error(err)
			return
		}
		resultCh <- resp
	}()

	msg := agent.recvFrontendMessage()
	freq, ok := msg.(wire.FReq)
	if !ok {
		t.Fatalf("got %#v, want FReq", msg)
	}
	if _, ok := freq.Req.(wire.ReqCpu); !ok {
		t.Fatalf("req = %#v, want ReqCpu", freq.Req)
	}
	agent.sendResponse(freq.CorrelationID, wire.RespCpu{GlobalCPU: 12.34, CPUs: []float64{10.0, 14.68}})

	select {
	case resp := <-resultCh:
		cpu := resp.(wire.RespCpu)
		if cpu.GlobalCPU != 12.34 {
			t.Errorf("GlobalCPU = %v, want 12.34", cpu.GlobalCPU)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for response")
	}
}

func TestCachedSecondRequestNeverHitsAgent(t *testing.T) {
	h, agent, _ := setup(t)

	go func() {
		if _, err := h.SendRequest(wire.ReqCpu{}); err != nil {
			t.Error(err)
		}
	}()
	msg := agent.recvFrontendMessage().(wire.FReq)
	agent.sendResponse(msg.CorrelationID, wire.RespCpu{GlobalCPU: 1})

	// Second call within TTL must not produce a second outbound frame.
	resp, err := h.SendRequest(wire.ReqCpu{})
	if err != nil {
		t.Fatalf("SendRequest: %v", err)
	}
	if resp.(wire.RespCpu).GlobalCPU != 1 {
		t.Errorf("got %+v", resp)
	}
}

func TestInterleavedRequestsRouteToCorrectCaller(t *testing.T) {
	h, agent, _ := setup(t)

	procCh := make(chan wire.ResponseKind, 1)
	dirCh := make(chan wire.ResponseKind, 1)
	go func() {
		resp, _ := h.SendRequest(wire.ReqProcesses{})
		procCh <- resp
	}()
	go func() {
		resp, _ := h.SendRequest(wire.ReqDirectory{Path: "/etc"})
		dirCh <- resp
	}()

	first := agent.recvFrontendMessage().(wire.FReq)
	second := agent.recvFrontendMessage().(wire.FReq)

	// Reply to the directory request first, regardless of arrival order.
	var dirID, procID uint16
	for _, m := range []wire.FReq{first, second} {
		switch m.Req.(type) {
		case wire.ReqDirectory:
			dirID = m.CorrelationID
		case wire.ReqProcesses:
			procID = m.CorrelationID
		}
	}
	agent.sendResponse(dirID, wire.RespDirectory{DirList: nil})
	agent.sendResponse(procID, wire.RespProcesses{Processes: nil})

	select {
	case resp := <-procCh:
		if _, ok := resp.(wire.RespProcesses); !ok {
			t.Errorf("proc caller got %#v", resp)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
	select {
	case resp := <-dirCh:
		if _, ok := resp.(wire.RespDirectory); !ok {
			t.Errorf("dir caller got %#v", resp)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
}

func TestTerminalRingBoundAndReplay(t *testing.T) {
	h, agent, _ := setup(t)

	big := make([]byte, ringBufferCap+500)
	for i := range big {
		big[i] = byte('a' + i%26)
	}
	agent.sendTerminal(big)
	time.Sleep(50 * time.Millisecond) // let the actor process the frame

	sink := make(chan []byte, 4)
	h.SubscribeTerminal(sink)

	select {
	case replay := <-sink:
		if len(replay) != ringBufferCap {
			t.Errorf("replay len = %d, want %d", len(replay), ringBufferCap)
		}
		if string(replay) != string(big[len(big)-ringBufferCap:]) {
			t.Errorf("replay content mismatch")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for replay")
	}
}

func TestTerminalFanOutOrderAndLateSubscriber(t *testing.T) {
	h, agent, _ := setup(t)

	sinkA := make(chan []byte, 4)
	sinkB := make(chan []byte, 4)
	h.SubscribeTerminal(sinkA)
	h.SubscribeTerminal(sinkB)
	time.Sleep(50 * time.Millisecond) // let the actor drain both subscribe commands first

	agent.sendTerminal([]byte("ABC"))
	agent.sendTerminal([]byte("DE"))

	for _, sink := range []chan []byte{sinkA, sinkB} {
		if got := string(<-sink); got != "ABC" {
			t.Errorf("got %q, want ABC", got)
		}
		if got := string(<-sink); got != "DE" {
			t.Errorf("got %q, want DE", got)
		}
	}

	late := make(chan []byte, 4)
	h.SubscribeTerminal(late)
	if got := string(<-late); got != "ABCDE" {
		t.Errorf("late subscriber got %q, want ABCDE", got)
	}
}

func TestVariantMismatchClosesConnection(t *testing.T) {
	h, agent, reg := setup(t)

	errCh := make(chan error, 1)
	go func() {
		_, err := h.SendRequest(wire.ReqCpu{})
		errCh <- err
	}()
	msg := agent.recvFrontendMessage().(wire.FReq)
	// Respond with the wrong kind on purpose.
	agent.sendResponse(msg.CorrelationID, wire.RespHost{Hostname: "oops"})

	select {
	case err := <-errCh:
		if err != ErrVariantMismatch {
			t.Errorf("err = %v, want ErrVariantMismatch", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}

	time.Sleep(50 * time.Millisecond)
	if len(reg.Snapshot()) != 0 {
		t.Errorf("expected actor to deregister after variant mismatch")
	}
}

func TestRegistryReplacesOnDuplicateAddr(t *testing.T) {
	reg := NewRegistry()
	s1, a1 := net.Pipe()
	_ = a1
	h1 := Start(s1, "10.0.0.5:1", "first", reg)

	s2, a2 := net.Pipe()
	_ = a2
	h2 := Start(s2, "10.0.0.5:1", "second", reg)

	got, ok := reg.Lookup("10.0.0.5:1")
	if !ok || got != h2 {
		t.Fatalf("expected second handle registered")
	}
	snap := reg.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("snapshot = %+v, want exactly one entry", snap)
	}
	_ = h1
}
