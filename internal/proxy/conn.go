package proxy

import (
	"bufio"
	"errors"
	"io"
	"net"
	"sync"
	"syscall"

	"github.com/google/uuid"

	"starbridge.xyz/starbridge/internal/log"
	"starbridge.xyz/starbridge/internal/metrics"
	"starbridge.xyz/starbridge/internal/protocol"
)

// Gateway is the interception layer: called once per decoded frame, in
// decode order within each direction. True means forward, false means
// drop. Implementations may mutate the connection (state, player) or
// inject packets, but must not block indefinitely — a hang stalls the one
// pump loop that called it.
type Gateway interface {
	Evaluate(c *Connection, p *protocol.Packet) bool
}

// Player is the identity the interception layer attaches to a connection.
type Player struct {
	ClientID uint64
	Name     string
}

// ChatOptions carries the optional fields of an injected chat line.
type ChatOptions struct {
	World    string
	Name     string
	Channel  uint8
	ClientID uint32
}

// Connection relays one client. It owns the accepted client socket and the
// upstream socket to the real server, and runs one pump goroutine per
// direction. Nothing is shared between the two pumps except the state and
// the alive flag.
type Connection struct {
	id       string
	client   net.Conn
	upstream net.Conn

	clientR   *bufio.Reader
	upstreamR *bufio.Reader

	gateway  Gateway
	registry *Registry
	log      log.Logger

	// writeMu serializes writes to the client socket, which both the
	// upstream pump and SendMessage touch. The upstream socket is only
	// ever written by the downstream pump.
	writeMu sync.Mutex

	stateMu sync.Mutex
	state   State
	player  *Player

	aliveMu sync.Mutex
	alive   bool

	wg sync.WaitGroup
}

func newConnection(client net.Conn, gateway Gateway, registry *Registry) *Connection {
	id := uuid.NewString()
	return &Connection{
		id:       id,
		client:   client,
		clientR:  bufio.NewReader(client),
		gateway:  gateway,
		registry: registry,
		log: log.GetLogger().WithFields(map[string]interface{}{
			"connection": id[:8],
			"remote":     client.RemoteAddr().String(),
		}),
	}
}

// ID returns the connection's identifier.
func (c *Connection) ID() string { return c.id }

// State returns the current handshake state.
func (c *Connection) State() State {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

// SetState records handshake progress. Called from interception handlers.
func (c *Connection) SetState(s State) {
	c.stateMu.Lock()
	c.state = s
	c.stateMu.Unlock()
	c.log.WithField("state", s).Debug("connection state changed")
}

// SetPlayer attaches a player identity once interception has learned it.
func (c *Connection) SetPlayer(p Player) {
	c.stateMu.Lock()
	c.player = &p
	c.stateMu.Unlock()
}

// PlayerInfo reports the attached player identity, if any.
func (c *Connection) PlayerInfo() (Player, bool) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if c.player == nil {
		return Player{}, false
	}
	return *c.player, true
}

// run dials the real server, registers the connection, and starts both
// pump loops. A dial failure aborts the connection attempt entirely: the
// client socket is closed and nothing is registered.
func (c *Connection) run() {
	upstream, err := c.registry.dial()
	if err != nil {
		metrics.UpstreamDialFailures.Inc()
		c.log.WithError(err).Error("cannot reach upstream server, dropping client")
		c.client.Close()
		return
	}
	c.upstream = upstream
	c.upstreamR = bufio.NewReader(upstream)

	c.aliveMu.Lock()
	c.alive = true
	c.aliveMu.Unlock()

	c.registry.add(c)
	metrics.ConnectionsTotal.Inc()
	metrics.ConnectionsActive.Inc()
	c.log.Info("relay established")

	c.wg.Add(2)
	go c.pump(c.clientR, protocol.ClientToServer)
	go c.pump(c.upstreamR, protocol.ServerToClient)
}

// pump reads frames from one side, submits each to the gateway, and
// relays the original wire bytes to the other side. Any exit path runs
// teardown; the second pump's teardown is a no-op.
func (c *Connection) pump(src protocol.Source, dir protocol.Direction) {
	defer c.wg.Done()
	defer c.teardown()

	for {
		p, err := protocol.ReadPacket(src, dir)
		if err != nil {
			if isStreamClosed(err) {
				c.log.WithField("direction", dir).Debug("stream closed")
			} else {
				metrics.DecodeErrors.WithLabelValues(dir.String()).Inc()
				c.log.WithError(err).WithField("direction", dir).Error("frame decode failed")
			}
			return
		}

		metrics.FramesTotal.WithLabelValues(dir.String()).Inc()
		if c.log.IsDebugEnabled() {
			c.log.WithFields(map[string]interface{}{
				"direction": dir,
				"type":      protocol.TypeName(p.Type),
				"size":      p.Size,
			}).Debug("frame decoded")
		}

		if !c.gateway.Evaluate(c, p) {
			metrics.FramesDropped.WithLabelValues(dir.String()).Inc()
			continue
		}

		if err := c.relay(dir, p.Original); err != nil {
			if !isStreamClosed(err) {
				c.log.WithError(err).WithField("direction", dir).Error("relay write failed")
			}
			return
		}
		metrics.FrameBytes.WithLabelValues(dir.String()).Add(float64(len(p.Original)))
	}
}

// relay forwards raw wire bytes to the peer opposite the packet's origin.
func (c *Connection) relay(dir protocol.Direction, data []byte) error {
	if dir == protocol.ClientToServer {
		_, err := c.upstream.Write(data)
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.client.Write(data)
	return err
}

// SendMessage pushes a chat line directly to the client, bypassing the
// pump loops. Before the handshake has reached the heartbeat stage the
// client cannot accept unsolicited application packets, so the call is a
// silent no-op.
func (c *Connection) SendMessage(message string, opts ChatOptions) error {
	if c.State() != StateConnectedWithHeartbeat {
		return nil
	}
	payload := protocol.BuildChatReceived(message, opts.World, opts.ClientID, opts.Name, opts.Channel)
	frame := protocol.WrapPacket(protocol.TypeChatReceived, payload)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.client.Write(frame); err != nil {
		return err
	}
	metrics.InjectedMessages.Inc()
	return nil
}

// teardown shuts the connection down exactly once: closes both sockets
// (which unblocks whichever pump is still reading), removes the connection
// from the registry, and logs who left. Safe to call repeatedly and from
// both pumps concurrently.
func (c *Connection) teardown() {
	c.aliveMu.Lock()
	if !c.alive {
		c.aliveMu.Unlock()
		return
	}
	c.alive = false
	c.aliveMu.Unlock()

	if p, ok := c.PlayerInfo(); ok && p.Name != "" {
		c.log.Infof("removing player %s", p.Name)
	} else if p, ok := c.PlayerInfo(); ok {
		c.log.Infof("removing client %d", p.ClientID)
	} else {
		c.log.Info("removing unidentified client")
	}

	c.client.Close()
	c.upstream.Close()
	c.registry.remove(c)
	metrics.ConnectionsActive.Dec()
}

// Close tears the connection down and waits for both pumps to exit.
func (c *Connection) Close() {
	c.teardown()
	c.wg.Wait()
}

// isStreamClosed reports whether err is an ordinary end of stream rather
// than a decode failure: EOF at or inside a frame boundary, or an
// operation on a socket teardown already closed.
func isStreamClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET)
}
