// Package router exposes the frontend's registry of connected agents as a
// typed API for the HTTP layer (spec.md §4.8): look an agent up by address,
// forward a request or action to its actor, and translate actor-level
// failures into the HTTP status codes the browser-facing handlers return.
package router

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/dalkeith-r/fleetdash/internal/backend"
	"github.com/dalkeith-r/fleetdash/internal/wire"
)

// ErrNoSuchAgent means the requested address has no connected agent.
var ErrNoSuchAgent = errors.New("router: no such agent")

// Router forwards requests/actions to the agent actor registered for a
// given address, resolving the "which agent" question the same way for
// every HTTP handler that needs one.
type Router struct {
	registry *backend.Registry
}

func New(registry *backend.Registry) *Router {
	return &Router{registry: registry}
}

// Resolve picks the agent address a request should talk to. A non-empty
// addr is looked up as given and yields ErrNoSuchAgent if it is not
// connected; an empty addr falls back to the registry's first entry in
// insertion order (spec.md §6's cookie-fallback rule), or ErrNoSuchAgent if
// the registry is empty.
func (r *Router) Resolve(addr string) (string, *backend.Handle, error) {
	if addr != "" {
		if h, ok := r.registry.Lookup(addr); ok {
			return addr, h, nil
		}
		return "", nil, ErrNoSuchAgent
	}
	if a, h, ok := r.registry.First(); ok {
		return a, h, nil
	}
	return "", nil, ErrNoSuchAgent
}

// SendRequest resolves addr and forwards req to its actor, returning the
// response or an error already classified into an HTTP status via
// StatusFor.
func (r *Router) SendRequest(addr string, req wire.RequestKind) (wire.ResponseKind, error) {
	_, h, err := r.Resolve(addr)
	if err != nil {
		return nil, err
	}
	return h.SendRequest(req)
}

// SendAction resolves addr and forwards act as a fire-and-forget command.
func (r *Router) SendAction(addr string, act wire.ActionKind) error {
	_, h, err := r.Resolve(addr)
	if err != nil {
		return err
	}
	h.SendAction(act)
	return nil
}

// SubscribeTerminal resolves addr and subscribes sink to its terminal bus.
func (r *Router) SubscribeTerminal(addr string, sink chan []byte) (uuid.UUID, error) {
	_, h, err := r.Resolve(addr)
	if err != nil {
		return uuid.UUID{}, err
	}
	return h.SubscribeTerminal(sink), nil
}

// Agents lists the currently connected agents, for the browser's agent
// picker and the cookie-fallback UI.
func (r *Router) Agents() []backend.Snapshot {
	return r.registry.Snapshot()
}

// StatusFor maps an error returned by SendRequest/SendAction/SubscribeTerminal
// to the HTTP status code the browser-facing handler should answer with
// (spec.md §4.8): no agent at all is a 503, an agent that vanished
// mid-request is a 502, and a protocol-level variant mismatch is a 500 — the
// agent answered, but not to the question asked.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNoSuchAgent):
		return http.StatusServiceUnavailable
	case errors.Is(err, backend.ErrClosed):
		return http.StatusBadGateway
	case errors.Is(err, backend.ErrVariantMismatch):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
