// Package protocol implements the outer frame codec of the proxied game
// protocol: one type byte, a signed VLQ size whose sign doubles as the
// compression flag, and the payload. Nothing beyond the frame (and the
// chat payload needed for injection) is parsed here.
package protocol

import "errors"

// Direction tells which peer produced a packet.
type Direction int

const (
	ClientToServer Direction = iota
	ServerToClient
)

func (d Direction) String() string {
	switch d {
	case ClientToServer:
		return "client"
	case ServerToClient:
		return "server"
	default:
		return "unknown"
	}
}

// Packet is one decoded frame. Original always holds the exact wire bytes
// (type byte, VLQ bytes, raw payload before decompression), so forwarding
// Original never re-encodes anything.
type Packet struct {
	Type       byte
	Size       int64 // declared payload size; compressed length when Compressed
	Compressed bool
	Payload    []byte // decompressed when Compressed, raw otherwise
	Original   []byte
	Direction  Direction
}

// MaxPayloadSize bounds the declared size of a single frame. Anything
// larger is treated as a corrupted frame boundary.
const MaxPayloadSize = 64 << 20

var (
	ErrVLQTooLong      = errors.New("starbridge: vlq exceeds maximum length")
	ErrPacketTooLarge  = errors.New("starbridge: declared packet size exceeds limit")
	ErrDecompress      = errors.New("starbridge: packet decompression failed")
	ErrTruncatedString = errors.New("starbridge: truncated string field")
)
