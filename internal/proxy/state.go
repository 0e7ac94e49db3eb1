// Package proxy implements the relay engine: per-client connections with
// one pump loop per direction, synchronized teardown, and the registry
// used for fan-out broadcast.
package proxy

// State tracks how far a client has progressed through the protocol
// handshake. It only moves forward in normal operation; the interception
// layer owns transitions, the relay core merely reads it to gate outbound
// injection.
type State int

const (
	StateVersionSent State = iota
	StateClientConnectReceived
	StateHandshakeChallengeSent
	StateHandshakeResponseReceived
	StateConnectResponseSent
	StateConnected
	StateConnectedWithHeartbeat
)

var stateNames = map[State]string{
	StateVersionSent:               "version_sent",
	StateClientConnectReceived:     "client_connect_received",
	StateHandshakeChallengeSent:    "handshake_challenge_sent",
	StateHandshakeResponseReceived: "handshake_response_received",
	StateConnectResponseSent:       "connect_response_sent",
	StateConnected:                 "connected",
	StateConnectedWithHeartbeat:    "connected_with_heartbeat",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "invalid"
}
