// Package motd greets each client once, on the first heartbeat after the
// handshake completes. It depends on the tracker: the greeting is gated on
// the connection state the tracker maintains.
package motd

import (
	"sync"

	"github.com/mitchellh/mapstructure"

	"starbridge.xyz/starbridge/internal/log"
	"starbridge.xyz/starbridge/internal/plugin"
	"starbridge.xyz/starbridge/internal/protocol"
	"starbridge.xyz/starbridge/internal/proxy"
)

const defaultMessage = "Welcome! This server is proxied by starbridge."

type Options struct {
	Message string `mapstructure:"message"`
}

type MOTD struct {
	log     log.Logger
	message string

	mu      sync.Mutex
	greeted map[string]struct{}
}

func New() *MOTD {
	return &MOTD{greeted: make(map[string]struct{})}
}

func (m *MOTD) Name() string           { return "motd" }
func (m *MOTD) Dependencies() []string { return []string{"tracker"} }

func (m *MOTD) PacketTypes() []byte {
	return []byte{
		protocol.TypeHeartbeat,
		protocol.TypeClientDisconnect,
		protocol.TypeServerDisconnect,
	}
}

func (m *MOTD) Activate(env *plugin.Env, options map[string]interface{}) error {
	var opts Options
	if err := mapstructure.Decode(options, &opts); err != nil {
		return err
	}
	m.message = opts.Message
	if m.message == "" {
		m.message = defaultMessage
	}
	m.log = log.GetLogger().WithField("handler", "motd")
	return nil
}

func (m *MOTD) Deactivate() error { return nil }

func (m *MOTD) HandlePacket(c *proxy.Connection, p *protocol.Packet) (bool, error) {
	switch p.Type {
	case protocol.TypeHeartbeat:
		if c.State() != proxy.StateConnectedWithHeartbeat {
			return true, nil
		}
		if !m.markGreeted(c.ID()) {
			return true, nil
		}
		if err := c.SendMessage(m.message, proxy.ChatOptions{Name: "server"}); err != nil {
			return true, err
		}
		m.log.WithField("connection", c.ID()[:8]).Debug("greeted client")

	case protocol.TypeClientDisconnect, protocol.TypeServerDisconnect:
		m.mu.Lock()
		delete(m.greeted, c.ID())
		m.mu.Unlock()
	}
	return true, nil
}

// markGreeted reports whether this is the first greeting for the id.
func (m *MOTD) markGreeted(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, done := m.greeted[id]; done {
		return false
	}
	m.greeted[id] = struct{}{}
	return true
}
