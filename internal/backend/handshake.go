package backend

import (
	"errors"
	"net"

	"github.com/dalkeith-r/fleetdash/internal/wire"
)

// ErrHandshakeMismatch is returned when the agent's first frame isn't a
// handshake, or its version doesn't match ours. Per spec.md §9's resolution
// of the "extraneous handshake" open question, both are protocol errors —
// the connection is closed without ever reaching the registry.
var ErrHandshakeMismatch = errors.New("backend: handshake mismatch")

// CanonicalAddr returns conn's peer address collapsed to the agent
// identity spec.md §3 defines: the bare IP, with IPv4-mapped IPv6
// addresses folded down to IPv4 form, and no port. This is what the
// registry keys on, so a reconnecting agent's new ephemeral source port
// still replaces its old entry instead of accumulating a stale one.
// Connections whose RemoteAddr isn't a *net.TCPAddr (e.g. net.Pipe in
// tests) fall back to the address's default string form.
func CanonicalAddr(conn net.Conn) string {
	tcpAddr, ok := conn.RemoteAddr().(*net.TCPAddr)
	if !ok {
		return conn.RemoteAddr().String()
	}
	ip := tcpAddr.IP
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	return ip.String()
}

// AcceptHandshake reads the first frame off conn and validates it is an
// Action(Handshake) with a matching PROTOCOL_VERSION (spec.md §4.4, §6).
// On success it returns the agent's nickname, defaulting to its canonical
// address when the agent sent an empty one.
func AcceptHandshake(conn net.Conn) (nickname string, err error) {
	payload, err := wire.ReadFrame(conn)
	if err != nil {
		return "", err
	}
	msg, err := wire.DecodeAgentMessage(payload)
	if err != nil {
		return "", err
	}
	action, ok := msg.(wire.AAction)
	if !ok {
		return "", ErrHandshakeMismatch
	}
	hs, ok := action.Act.(wire.BActHandshake)
	if !ok {
		return "", ErrHandshakeMismatch
	}
	if hs.Handshake.Version != wire.ProtocolVersion {
		return "", ErrHandshakeMismatch
	}
	nickname = hs.Handshake.Nickname
	if nickname == "" {
		nickname = CanonicalAddr(conn)
	}
	return nickname, nil
}
