package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// WrapPacket frames an encoded payload for the wire: type byte, signed VLQ
// length, payload. Injection always writes uncompressed frames.
func WrapPacket(typ byte, payload []byte) []byte {
	buf := make([]byte, 0, len(payload)+6)
	buf = append(buf, typ)
	buf = AppendSignedVLQ(buf, int64(len(payload)))
	return append(buf, payload...)
}

// AppendString appends a VLQ-length-prefixed UTF-8 string.
func AppendString(dst []byte, s string) []byte {
	dst = AppendVLQ(dst, uint64(len(s)))
	return append(dst, s...)
}

// ReadString reads a VLQ-length-prefixed string.
func ReadString(r Source) (string, error) {
	n, _, err := ReadVLQ(r)
	if err != nil {
		return "", err
	}
	if n > MaxPayloadSize {
		return "", fmt.Errorf("%w: %d bytes declared", ErrPacketTooLarge, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return "", ErrTruncatedString
		}
		return "", err
	}
	return string(buf), nil
}

// ChatMessage is the decoded chat_received payload.
type ChatMessage struct {
	Channel  uint8
	World    string
	ClientID uint32
	Name     string
	Message  string
}

// BuildChatReceived encodes a chat_received payload: channel byte, world,
// big-endian uint32 client id, sender name, message text. Strings are
// VLQ length prefixed.
func BuildChatReceived(message, world string, clientID uint32, name string, channel uint8) []byte {
	buf := make([]byte, 0, len(message)+len(world)+len(name)+16)
	buf = append(buf, channel)
	buf = AppendString(buf, world)
	buf = binary.BigEndian.AppendUint32(buf, clientID)
	buf = AppendString(buf, name)
	buf = AppendString(buf, message)
	return buf
}

// ParseChatReceived decodes a chat_received payload, the inverse of
// BuildChatReceived.
func ParseChatReceived(r Source) (*ChatMessage, error) {
	var msg ChatMessage
	channel, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	msg.Channel = channel
	if msg.World, err = ReadString(r); err != nil {
		return nil, err
	}
	var id [4]byte
	if _, err := io.ReadFull(r, id[:]); err != nil {
		return nil, err
	}
	msg.ClientID = binary.BigEndian.Uint32(id[:])
	if msg.Name, err = ReadString(r); err != nil {
		return nil, err
	}
	if msg.Message, err = ReadString(r); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ParseConnectResponse pulls the success flag and assigned client id off
// the front of a connect_response payload; the rest of the payload is not
// interpreted.
func ParseConnectResponse(r Source) (success bool, clientID uint64, err error) {
	flag, err := r.ReadByte()
	if err != nil {
		return false, 0, err
	}
	clientID, _, err = ReadVLQ(r)
	if err != nil {
		return false, 0, err
	}
	return flag != 0, clientID, nil
}
