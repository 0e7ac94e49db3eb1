// Package plugin implements the interception engine: a registry of
// compile-time handlers, dependency-ordered activation, and the gateway
// that dispatches every relayed frame to the handlers interested in its
// packet type.
package plugin

import (
	"starbridge.xyz/starbridge/internal/protocol"
	"starbridge.xyz/starbridge/internal/proxy"
)

// Handler is one interception plugin. Handlers are registered at init
// time and activated in dependency order at startup.
type Handler interface {
	// Name is the unique handler identifier, also used in config keys.
	Name() string
	// Dependencies lists handler names that must activate first.
	Dependencies() []string
	// PacketTypes lists the packet types the handler wants to see. An
	// empty slice subscribes to every frame.
	PacketTypes() []byte

	// Activate prepares the handler. options is the raw config map for
	// this handler, decoded by the handler itself.
	Activate(env *Env, options map[string]interface{}) error
	// Deactivate releases handler resources at shutdown.
	Deactivate() error

	// HandlePacket inspects one frame. Returning false vetoes forwarding.
	// An error is logged and treated as "no opinion": it never drops the
	// frame and never terminates the connection.
	HandlePacket(c *proxy.Connection, p *protocol.Packet) (bool, error)
}

// Env gives handlers access to shared proxy facilities during activation.
type Env struct {
	Registry *proxy.Registry
}

// HandlerConfig is the per-handler slice of the loaded configuration.
type HandlerConfig struct {
	Enabled *bool                  `mapstructure:"enabled"`
	Options map[string]interface{} `mapstructure:"options"`
}

// Default is the process-wide handler registry that built-in plugins
// register into from their init functions.
var Default = NewRegistry()

// Register adds a handler to the default registry, panicking on duplicate
// names. Meant for init-time self registration.
func Register(h Handler) {
	if err := Default.Register(h); err != nil {
		panic(err)
	}
}
