package proxy

import (
	"net"
	"sync"
	"time"

	"starbridge.xyz/starbridge/internal/log"
	"starbridge.xyz/starbridge/internal/metrics"
)

const dialTimeout = 10 * time.Second

// Registry tracks every live connection and fans messages out to them.
// Membership changes only on accept and teardown; broadcast iterates a
// snapshot so concurrent removal is harmless.
type Registry struct {
	gateway Gateway
	log     log.Logger

	mu    sync.Mutex
	conns map[*Connection]struct{}

	// dial opens the upstream socket; swapped out in tests.
	dial func() (net.Conn, error)
}

// NewRegistry creates a registry whose connections relay to upstreamAddr.
func NewRegistry(upstreamAddr string, gateway Gateway) *Registry {
	return &Registry{
		gateway: gateway,
		log:     log.GetLogger().WithField("component", "registry"),
		conns:   make(map[*Connection]struct{}),
		dial: func() (net.Conn, error) {
			return net.DialTimeout("tcp", upstreamAddr, dialTimeout)
		},
	}
}

// Accept wraps an accepted client socket in a Connection and starts its
// relay. The Connection registers itself once the upstream dial succeeds.
func (r *Registry) Accept(client net.Conn) *Connection {
	c := newConnection(client, r.gateway, r)
	go c.run()
	return c
}

func (r *Registry) add(c *Connection) {
	r.mu.Lock()
	r.conns[c] = struct{}{}
	r.mu.Unlock()
}

// remove drops a connection by identity. No-op when already absent.
func (r *Registry) remove(c *Connection) {
	r.mu.Lock()
	delete(r.conns, c)
	r.mu.Unlock()
}

// Len reports the number of live connections.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

func (r *Registry) snapshot() []*Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Connection, 0, len(r.conns))
	for c := range r.conns {
		out = append(out, c)
	}
	return out
}

// Broadcast delivers a chat line to every live connection, best effort. A
// peer that fails mid-broadcast is skipped; the rest still receive the
// message.
func (r *Registry) Broadcast(message string, opts ChatOptions) {
	for _, c := range r.snapshot() {
		if err := c.SendMessage(message, opts); err != nil {
			metrics.BroadcastFailures.Inc()
			r.log.WithError(err).WithField("connection", c.ID()).Debug("broadcast target failed, skipping")
		}
	}
}

// Shutdown tears down every live connection and waits for their pumps.
func (r *Registry) Shutdown() {
	for _, c := range r.snapshot() {
		c.Close()
	}
}
