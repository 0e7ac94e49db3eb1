// Package plugins registers all built-in interception handlers.
package plugins

import (
	"starbridge.xyz/starbridge/internal/plugin"
	"starbridge.xyz/starbridge/plugins/chatlog"
	"starbridge.xyz/starbridge/plugins/motd"
	"starbridge.xyz/starbridge/plugins/tracker"
)

func init() {
	plugin.Register(tracker.New())
	plugin.Register(chatlog.New())
	plugin.Register(motd.New())
}
