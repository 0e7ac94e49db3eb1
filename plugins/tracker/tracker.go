// Package tracker drives the per-connection handshake state machine from
// the packets flowing through the relay. Other handlers (and outbound
// injection) depend on the state it maintains.
package tracker

import (
	"bytes"

	"starbridge.xyz/starbridge/internal/log"
	"starbridge.xyz/starbridge/internal/plugin"
	"starbridge.xyz/starbridge/internal/protocol"
	"starbridge.xyz/starbridge/internal/proxy"
)

type Tracker struct {
	log log.Logger
}

func New() *Tracker {
	return &Tracker{}
}

func (t *Tracker) Name() string           { return "tracker" }
func (t *Tracker) Dependencies() []string { return nil }

func (t *Tracker) PacketTypes() []byte {
	return []byte{
		protocol.TypeProtocolVersion,
		protocol.TypeConnectResponse,
		protocol.TypeHandshakeChallenge,
		protocol.TypeClientConnect,
		protocol.TypeHandshakeResponse,
		protocol.TypeHeartbeat,
	}
}

func (t *Tracker) Activate(env *plugin.Env, options map[string]interface{}) error {
	t.log = log.GetLogger().WithField("handler", "tracker")
	return nil
}

func (t *Tracker) Deactivate() error { return nil }

// HandlePacket advances the state machine. The tracker never drops a
// frame and never moves a connection's state backward.
func (t *Tracker) HandlePacket(c *proxy.Connection, p *protocol.Packet) (bool, error) {
	switch p.Type {
	case protocol.TypeProtocolVersion:
		if p.Direction == protocol.ServerToClient {
			t.advance(c, proxy.StateVersionSent)
		}

	case protocol.TypeClientConnect:
		if p.Direction == protocol.ClientToServer {
			t.advance(c, proxy.StateClientConnectReceived)
		}

	case protocol.TypeHandshakeChallenge:
		if p.Direction == protocol.ServerToClient {
			t.advance(c, proxy.StateHandshakeChallengeSent)
		}

	case protocol.TypeHandshakeResponse:
		if p.Direction == protocol.ClientToServer {
			t.advance(c, proxy.StateHandshakeResponseReceived)
		}

	case protocol.TypeConnectResponse:
		if p.Direction == protocol.ServerToClient {
			t.advance(c, proxy.StateConnectResponseSent)
			success, clientID, err := protocol.ParseConnectResponse(bytes.NewReader(p.Payload))
			if err != nil {
				return true, err
			}
			if success {
				c.SetPlayer(proxy.Player{ClientID: clientID})
				t.advance(c, proxy.StateConnected)
			}
		}

	case protocol.TypeHeartbeat:
		if c.State() >= proxy.StateConnected {
			t.advance(c, proxy.StateConnectedWithHeartbeat)
		}
	}
	return true, nil
}

func (t *Tracker) advance(c *proxy.Connection, s proxy.State) {
	if c.State() < s {
		c.SetState(s)
	}
}
