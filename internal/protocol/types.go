package protocol

import "fmt"

// Packet type identifiers for the proxied protocol. Only the handshake and
// chat packets are ever inspected; everything else is relayed opaquely.
const (
	TypeProtocolVersion    byte = 0
	TypeConnectResponse    byte = 1
	TypeServerDisconnect   byte = 2
	TypeHandshakeChallenge byte = 3
	TypeChatReceived       byte = 4
	TypeUniverseTimeUpdate byte = 5
	TypeClientConnect      byte = 7
	TypeClientDisconnect   byte = 8
	TypeHandshakeResponse  byte = 9
	TypeWarpCommand        byte = 10
	TypeChatSent           byte = 11
	TypeHeartbeat          byte = 48
)

var typeNames = map[byte]string{
	TypeProtocolVersion:    "protocol_version",
	TypeConnectResponse:    "connect_response",
	TypeServerDisconnect:   "server_disconnect",
	TypeHandshakeChallenge: "handshake_challenge",
	TypeChatReceived:       "chat_received",
	TypeUniverseTimeUpdate: "universe_time_update",
	TypeClientConnect:      "client_connect",
	TypeClientDisconnect:   "client_disconnect",
	TypeHandshakeResponse:  "handshake_response",
	TypeWarpCommand:        "warp_command",
	TypeChatSent:           "chat_sent",
	TypeHeartbeat:          "heartbeat",
}

// TypeName returns a readable name for a packet type for logs.
func TypeName(t byte) string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", t)
}
