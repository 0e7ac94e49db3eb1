package proxy

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starbridge.xyz/starbridge/internal/protocol"
)

func TestBroadcastSkipsDeadConnections(t *testing.T) {
	reg := NewRegistry("unused:0", forwardAll)

	// Two live connections, each over its own pipe pair.
	type peer struct {
		clientEnd net.Conn
		conn      *Connection
	}
	var peers []peer
	for i := 0; i < 2; i++ {
		clientEnd, clientSock := net.Pipe()
		_, upstreamSock := net.Pipe()
		reg.dial = func() (net.Conn, error) { return upstreamSock, nil }
		c := reg.Accept(clientSock)
		want := i + 1
		require.Eventually(t, func() bool { return reg.Len() == want },
			time.Second, 5*time.Millisecond)
		peers = append(peers, peer{clientEnd, c})
	}

	for _, p := range peers {
		p.conn.SetState(StateConnectedWithHeartbeat)
	}

	// Kill the first peer's client socket out from under SendMessage so
	// its write fails, then broadcast. The second peer must still get
	// the message.
	peers[0].conn.client.Close()

	got := make(chan *protocol.Packet, 1)
	go func() { got <- readFrame(t, peers[1].clientEnd) }()

	reg.Broadcast("server restarting soon", ChatOptions{Name: "server"})

	select {
	case p := <-got:
		assert.Equal(t, protocol.TypeChatReceived, p.Type)
	case <-time.After(time.Second):
		t.Fatal("surviving connection never received broadcast")
	}

	for _, p := range peers {
		p.conn.Close()
		p.clientEnd.Close()
	}
}

func TestRemoveAbsentConnectionIsNoop(t *testing.T) {
	reg := NewRegistry("unused:0", forwardAll)
	clientEnd, clientSock := net.Pipe()
	defer clientEnd.Close()
	defer clientSock.Close()

	c := newConnection(clientSock, forwardAll, reg)
	reg.remove(c) // never added
	assert.Equal(t, 0, reg.Len())
}

func TestShutdownClosesEverything(t *testing.T) {
	reg := NewRegistry("unused:0", forwardAll)

	clientEnd, clientSock := net.Pipe()
	_, upstreamSock := net.Pipe()
	reg.dial = func() (net.Conn, error) { return upstreamSock, nil }
	reg.Accept(clientSock)
	require.Eventually(t, func() bool { return reg.Len() == 1 },
		time.Second, 5*time.Millisecond)

	reg.Shutdown()

	assert.Equal(t, 0, reg.Len())
	clientEnd.SetReadDeadline(time.Now().Add(time.Second))
	_, err := clientEnd.Read(make([]byte, 1))
	assert.Equal(t, io.EOF, err)
}
