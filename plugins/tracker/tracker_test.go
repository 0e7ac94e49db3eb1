package tracker

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starbridge.xyz/starbridge/internal/plugin"
	"starbridge.xyz/starbridge/internal/protocol"
	"starbridge.xyz/starbridge/internal/proxy"
)

type forwardGateway struct{}

func (forwardGateway) Evaluate(*proxy.Connection, *protocol.Packet) bool { return true }

// liveConnection stands up a real relay against a throwaway upstream
// listener so the tracker can be fed packets directly.
func liveConnection(t *testing.T) *proxy.Connection {
	t.Helper()

	upstream, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		for {
			conn, err := upstream.Accept()
			if err != nil {
				return
			}
			go func() {
				buf := make([]byte, 4096)
				for {
					if _, err := conn.Read(buf); err != nil {
						return
					}
				}
			}()
		}
	}()

	reg := proxy.NewRegistry(upstream.Addr().String(), forwardGateway{})
	clientEnd, clientSock := net.Pipe()

	c := reg.Accept(clientSock)
	require.Eventually(t, func() bool { return reg.Len() == 1 },
		time.Second, 5*time.Millisecond, "connection never registered")

	t.Cleanup(func() {
		c.Close()
		clientEnd.Close()
		upstream.Close()
	})
	return c
}

func packet(typ byte, dir protocol.Direction, payload []byte) *protocol.Packet {
	return &protocol.Packet{Type: typ, Direction: dir, Payload: payload}
}

func connectResponsePayload(success bool, clientID uint64) []byte {
	flag := byte(0)
	if success {
		flag = 1
	}
	return protocol.AppendVLQ([]byte{flag}, clientID)
}

func activatedTracker(t *testing.T) *Tracker {
	t.Helper()
	tr := New()
	require.NoError(t, tr.Activate(&plugin.Env{}, nil))
	return tr
}

func TestHandshakeProgression(t *testing.T) {
	tr := activatedTracker(t)
	c := liveConnection(t)

	steps := []struct {
		typ     byte
		dir     protocol.Direction
		payload []byte
		want    proxy.State
	}{
		{protocol.TypeProtocolVersion, protocol.ServerToClient, nil, proxy.StateVersionSent},
		{protocol.TypeClientConnect, protocol.ClientToServer, nil, proxy.StateClientConnectReceived},
		{protocol.TypeHandshakeChallenge, protocol.ServerToClient, nil, proxy.StateHandshakeChallengeSent},
		{protocol.TypeHandshakeResponse, protocol.ClientToServer, nil, proxy.StateHandshakeResponseReceived},
		{protocol.TypeConnectResponse, protocol.ServerToClient, connectResponsePayload(true, 7), proxy.StateConnected},
		{protocol.TypeHeartbeat, protocol.ServerToClient, nil, proxy.StateConnectedWithHeartbeat},
	}

	for _, step := range steps {
		forward, err := tr.HandlePacket(c, packet(step.typ, step.dir, step.payload))
		require.NoError(t, err)
		assert.True(t, forward, "tracker must never drop")
		assert.Equal(t, step.want, c.State(), "after %s", protocol.TypeName(step.typ))
	}

	player, ok := c.PlayerInfo()
	require.True(t, ok)
	assert.Equal(t, uint64(7), player.ClientID)
}

func TestWrongDirectionIgnored(t *testing.T) {
	tr := activatedTracker(t)
	c := liveConnection(t)

	// client_connect is only meaningful on the client-to-server leg.
	_, err := tr.HandlePacket(c, packet(protocol.TypeClientConnect, protocol.ServerToClient, nil))
	require.NoError(t, err)
	assert.Equal(t, proxy.StateVersionSent, c.State())
}

func TestFailedConnectResponse(t *testing.T) {
	tr := activatedTracker(t)
	c := liveConnection(t)

	_, err := tr.HandlePacket(c, packet(protocol.TypeConnectResponse, protocol.ServerToClient,
		connectResponsePayload(false, 0)))
	require.NoError(t, err)

	assert.Equal(t, proxy.StateConnectResponseSent, c.State())
	_, ok := c.PlayerInfo()
	assert.False(t, ok, "failed connect must not attach a player")
}

func TestHeartbeatBeforeConnectIgnored(t *testing.T) {
	tr := activatedTracker(t)
	c := liveConnection(t)

	_, err := tr.HandlePacket(c, packet(protocol.TypeHeartbeat, protocol.ServerToClient, nil))
	require.NoError(t, err)
	assert.Equal(t, proxy.StateVersionSent, c.State())
}

func TestStateNeverRegresses(t *testing.T) {
	tr := activatedTracker(t)
	c := liveConnection(t)

	c.SetState(proxy.StateConnected)

	_, err := tr.HandlePacket(c, packet(protocol.TypeClientConnect, protocol.ClientToServer, nil))
	require.NoError(t, err)
	assert.Equal(t, proxy.StateConnected, c.State())
}

func TestMalformedConnectResponse(t *testing.T) {
	tr := activatedTracker(t)
	c := liveConnection(t)

	forward, err := tr.HandlePacket(c, packet(protocol.TypeConnectResponse, protocol.ServerToClient, nil))
	assert.Error(t, err)
	assert.True(t, forward, "decode failure still forwards the frame")
}
