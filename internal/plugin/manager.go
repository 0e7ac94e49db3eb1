package plugin

import (
	"fmt"

	"starbridge.xyz/starbridge/internal/log"
	"starbridge.xyz/starbridge/internal/protocol"
	"starbridge.xyz/starbridge/internal/proxy"
)

// Manager activates registered handlers in dependency order and routes
// each frame to the handlers subscribed to its packet type. It implements
// proxy.Gateway.
type Manager struct {
	registry *Registry
	log      log.Logger

	active   []Handler          // activation order
	byType   map[byte][]Handler // per-type dispatch, activation order preserved
	catchAll []Handler
}

func NewManager(registry *Registry) *Manager {
	return &Manager{
		registry: registry,
		log:      log.GetLogger().WithField("component", "plugins"),
		byType:   make(map[byte][]Handler),
	}
}

// Activate resolves the dependency order and activates every enabled
// handler. A handler absent from configs is enabled with no options; a
// handler failing to activate aborts startup.
func (m *Manager) Activate(env *Env, configs map[string]HandlerConfig) error {
	order, err := m.registry.LoadOrder()
	if err != nil {
		return fmt.Errorf("resolve handler order: %w", err)
	}

	for _, name := range order {
		cfg := configs[name]
		if cfg.Enabled != nil && !*cfg.Enabled {
			m.log.WithField("handler", name).Info("handler disabled by config")
			continue
		}
		h, err := m.registry.Get(name)
		if err != nil {
			return err
		}
		if err := h.Activate(env, cfg.Options); err != nil {
			return fmt.Errorf("activate handler '%s': %w", name, err)
		}

		m.active = append(m.active, h)
		types := h.PacketTypes()
		if len(types) == 0 {
			m.catchAll = append(m.catchAll, h)
		} else {
			for _, t := range types {
				m.byType[t] = append(m.byType[t], h)
			}
		}
		m.log.WithField("handler", name).Info("handler activated")
	}
	return nil
}

// Deactivate stops active handlers in reverse activation order.
func (m *Manager) Deactivate() {
	for i := len(m.active) - 1; i >= 0; i-- {
		h := m.active[i]
		if err := h.Deactivate(); err != nil {
			m.log.WithError(err).WithField("handler", h.Name()).Warn("handler deactivation failed")
		}
	}
	m.active = nil
	m.byType = make(map[byte][]Handler)
	m.catchAll = nil
}

// Evaluate runs every interested handler against the frame. All handlers
// see the frame even after one votes to drop; any single false verdict
// drops it. Handler errors are logged and count as forward.
func (m *Manager) Evaluate(c *proxy.Connection, p *protocol.Packet) bool {
	forward := true
	for _, h := range m.catchAll {
		forward = m.invoke(h, c, p) && forward
	}
	for _, h := range m.byType[p.Type] {
		forward = m.invoke(h, c, p) && forward
	}
	return forward
}

func (m *Manager) invoke(h Handler, c *proxy.Connection, p *protocol.Packet) bool {
	ok, err := h.HandlePacket(c, p)
	if err != nil {
		m.log.WithError(err).WithFields(map[string]interface{}{
			"handler": h.Name(),
			"type":    protocol.TypeName(p.Type),
		}).Warn("handler failed, forwarding frame")
		return true
	}
	return ok
}
