// Package chatlog logs chat traffic in both directions. It only observes;
// it never drops a frame.
package chatlog

import (
	"bytes"

	"starbridge.xyz/starbridge/internal/log"
	"starbridge.xyz/starbridge/internal/plugin"
	"starbridge.xyz/starbridge/internal/protocol"
	"starbridge.xyz/starbridge/internal/proxy"
)

type ChatLog struct {
	log log.Logger
}

func New() *ChatLog {
	return &ChatLog{}
}

func (cl *ChatLog) Name() string           { return "chatlog" }
func (cl *ChatLog) Dependencies() []string { return nil }

func (cl *ChatLog) PacketTypes() []byte {
	return []byte{protocol.TypeChatReceived, protocol.TypeChatSent}
}

func (cl *ChatLog) Activate(env *plugin.Env, options map[string]interface{}) error {
	cl.log = log.GetLogger().WithField("handler", "chatlog")
	return nil
}

func (cl *ChatLog) Deactivate() error { return nil }

func (cl *ChatLog) HandlePacket(c *proxy.Connection, p *protocol.Packet) (bool, error) {
	switch p.Type {
	case protocol.TypeChatReceived:
		msg, err := protocol.ParseChatReceived(bytes.NewReader(p.Payload))
		if err != nil {
			return true, err
		}
		cl.log.WithFields(map[string]interface{}{
			"channel": msg.Channel,
			"world":   msg.World,
			"name":    msg.Name,
		}).Infof("<%s> %s", msg.Name, msg.Message)

	case protocol.TypeChatSent:
		// chat_sent carries the message text first; the rest of the
		// payload is not interpreted.
		text, err := protocol.ReadString(bytes.NewReader(p.Payload))
		if err != nil {
			return true, err
		}
		fields := map[string]interface{}{"connection": c.ID()[:8]}
		if player, ok := c.PlayerInfo(); ok {
			fields["client_id"] = player.ClientID
		}
		cl.log.WithFields(fields).Infof("client says: %s", text)
	}
	return true, nil
}
