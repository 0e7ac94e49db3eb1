package proxy

import (
	"bytes"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starbridge.xyz/starbridge/internal/protocol"
)

// funcGateway adapts a plain func to the Gateway interface.
type funcGateway func(c *Connection, p *protocol.Packet) bool

func (f funcGateway) Evaluate(c *Connection, p *protocol.Packet) bool { return f(c, p) }

var forwardAll = funcGateway(func(*Connection, *protocol.Packet) bool { return true })

// testRelay wires a connection across two in-memory pipes and returns the
// test-side ends. The returned connection is registered and pumping.
func testRelay(t *testing.T, gw Gateway) (*Registry, *Connection, net.Conn, net.Conn) {
	t.Helper()
	clientEnd, clientSock := net.Pipe()
	upstreamEnd, upstreamSock := net.Pipe()

	reg := NewRegistry("unused:0", gw)
	reg.dial = func() (net.Conn, error) { return upstreamSock, nil }

	c := reg.Accept(clientSock)
	require.Eventually(t, func() bool { return reg.Len() == 1 },
		time.Second, 5*time.Millisecond, "connection never registered")

	t.Cleanup(func() {
		c.Close()
		clientEnd.Close()
		upstreamEnd.Close()
	})
	return reg, c, clientEnd, upstreamEnd
}

func readFrame(t *testing.T, conn net.Conn) *protocol.Packet {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	br := newPipeByteReader(conn)
	p, err := protocol.ReadPacket(br, protocol.ClientToServer)
	require.NoError(t, err)
	return p
}

// pipeByteReader gives net.Pipe a ReadByte method without buffering ahead.
type pipeByteReader struct{ c net.Conn }

func newPipeByteReader(c net.Conn) *pipeByteReader { return &pipeByteReader{c} }

func (r *pipeByteReader) Read(p []byte) (int, error) { return io.ReadFull(r.c, p) }

func (r *pipeByteReader) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(r.c, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func TestRelayForwardsOriginalBytes(t *testing.T) {
	_, _, clientEnd, upstreamEnd := testRelay(t, forwardAll)

	wire := protocol.WrapPacket(protocol.TypeChatSent, []byte("hello there"))
	go clientEnd.Write(wire)

	buf := make([]byte, len(wire))
	upstreamEnd.SetReadDeadline(time.Now().Add(time.Second))
	_, err := io.ReadFull(upstreamEnd, buf)
	require.NoError(t, err)
	assert.Equal(t, wire, buf)
}

func TestRelayServerToClient(t *testing.T) {
	_, _, clientEnd, upstreamEnd := testRelay(t, forwardAll)

	wire := protocol.WrapPacket(protocol.TypeUniverseTimeUpdate, []byte{1, 2, 3, 4})
	go upstreamEnd.Write(wire)

	buf := make([]byte, len(wire))
	clientEnd.SetReadDeadline(time.Now().Add(time.Second))
	_, err := io.ReadFull(clientEnd, buf)
	require.NoError(t, err)
	assert.Equal(t, wire, buf)
}

func TestRelayDropsVetoedFrames(t *testing.T) {
	gw := funcGateway(func(_ *Connection, p *protocol.Packet) bool {
		return p.Type != protocol.TypeChatSent
	})
	_, _, clientEnd, upstreamEnd := testRelay(t, gw)

	dropped := protocol.WrapPacket(protocol.TypeChatSent, []byte("secret"))
	kept := protocol.WrapPacket(protocol.TypeHeartbeat, nil)
	go func() {
		clientEnd.Write(dropped)
		clientEnd.Write(kept)
	}()

	// Only the heartbeat comes out the other side.
	buf := make([]byte, len(kept))
	upstreamEnd.SetReadDeadline(time.Now().Add(time.Second))
	_, err := io.ReadFull(upstreamEnd, buf)
	require.NoError(t, err)
	assert.Equal(t, kept, buf)
}

func TestTeardownOnClientClose(t *testing.T) {
	reg, _, clientEnd, upstreamEnd := testRelay(t, forwardAll)

	clientEnd.Close()

	require.Eventually(t, func() bool { return reg.Len() == 0 },
		time.Second, 5*time.Millisecond, "connection never deregistered")

	// The upstream socket is closed too; reads on the test end see EOF.
	upstreamEnd.SetReadDeadline(time.Now().Add(time.Second))
	_, err := upstreamEnd.Read(make([]byte, 1))
	assert.Equal(t, io.EOF, err)
}

func TestTeardownOnUpstreamClose(t *testing.T) {
	reg, _, clientEnd, upstreamEnd := testRelay(t, forwardAll)

	upstreamEnd.Close()

	require.Eventually(t, func() bool { return reg.Len() == 0 },
		time.Second, 5*time.Millisecond, "connection never deregistered")

	clientEnd.SetReadDeadline(time.Now().Add(time.Second))
	_, err := clientEnd.Read(make([]byte, 1))
	assert.Equal(t, io.EOF, err)
}

func TestTeardownIdempotent(t *testing.T) {
	reg, c, _, _ := testRelay(t, forwardAll)

	c.Close()
	c.Close()
	assert.Equal(t, 0, reg.Len())
}

func TestDecodeErrorTearsDown(t *testing.T) {
	reg, _, clientEnd, upstreamEnd := testRelay(t, forwardAll)

	// A frame that claims compression but carries garbage poisons the
	// frame boundary for good.
	garbage := []byte{0xde, 0xad, 0xbe, 0xef}
	wire := []byte{protocol.TypeChatReceived}
	wire = protocol.AppendSignedVLQ(wire, -int64(len(garbage)))
	wire = append(wire, garbage...)
	go clientEnd.Write(wire)

	require.Eventually(t, func() bool { return reg.Len() == 0 },
		time.Second, 5*time.Millisecond, "decode failure must tear the connection down")

	// Both sides are closed.
	clientEnd.SetReadDeadline(time.Now().Add(time.Second))
	_, err := clientEnd.Read(make([]byte, 1))
	assert.Equal(t, io.EOF, err)
	upstreamEnd.SetReadDeadline(time.Now().Add(time.Second))
	_, err = upstreamEnd.Read(make([]byte, 1))
	assert.Equal(t, io.EOF, err)
}

func TestDialFailureDropsClient(t *testing.T) {
	clientEnd, clientSock := net.Pipe()
	defer clientEnd.Close()

	reg := NewRegistry("unused:0", forwardAll)
	reg.dial = func() (net.Conn, error) { return nil, io.ErrClosedPipe }

	reg.Accept(clientSock)

	// The client socket gets closed without any registration.
	clientEnd.SetReadDeadline(time.Now().Add(time.Second))
	_, err := clientEnd.Read(make([]byte, 1))
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 0, reg.Len())
}

func TestSendMessageGatedOnHandshake(t *testing.T) {
	_, c, clientEnd, _ := testRelay(t, forwardAll)

	// Before the heartbeat stage injection silently does nothing.
	require.NoError(t, c.SendMessage("too early", ChatOptions{Name: "server"}))

	c.SetState(StateConnectedWithHeartbeat)

	done := make(chan *protocol.Packet, 1)
	go func() {
		p := readFrame(t, clientEnd)
		done <- p
	}()

	require.NoError(t, c.SendMessage("welcome", ChatOptions{Name: "server", World: "outpost"}))

	select {
	case p := <-done:
		assert.Equal(t, protocol.TypeChatReceived, p.Type)
		msg, err := protocol.ParseChatReceived(bytes.NewReader(p.Payload))
		require.NoError(t, err)
		assert.Equal(t, "welcome", msg.Message)
		assert.Equal(t, "server", msg.Name)
		assert.Equal(t, "outpost", msg.World)
	case <-time.After(time.Second):
		t.Fatal("injected frame never arrived")
	}
}

func TestConnectionStateAndPlayer(t *testing.T) {
	_, c, _, _ := testRelay(t, forwardAll)

	assert.Equal(t, StateVersionSent, c.State())
	_, ok := c.PlayerInfo()
	assert.False(t, ok)

	c.SetState(StateConnected)
	c.SetPlayer(Player{ClientID: 3, Name: "Nuru"})

	assert.Equal(t, StateConnected, c.State())
	p, ok := c.PlayerInfo()
	require.True(t, ok)
	assert.Equal(t, uint64(3), p.ClientID)
	assert.Equal(t, "Nuru", p.Name)
}
