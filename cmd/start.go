package cmd

import (
	"github.com/spf13/cobra"

	"starbridge.xyz/starbridge/internal/daemon"

	// Built-in interception handlers register themselves at init time.
	_ "starbridge.xyz/starbridge/plugins"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the proxy in foreground",
	Long: `Run the starbridge proxy in foreground.

The proxy will:
  1. Load configuration from the config file
  2. Initialize logging and the metrics endpoint
  3. Activate interception handlers in dependency order
  4. Listen for game clients and relay them to the upstream server
  5. Handle SIGTERM/SIGINT for graceful shutdown and SIGHUP for log-level reload

Examples:
  starbridge start
  starbridge start -c /etc/starbridge/config.yml`,
	Run: func(cmd *cobra.Command, args []string) {
		d, err := daemon.New(configFile)
		if err != nil {
			exitWithError("failed to create daemon", err)
		}
		if err := d.Start(); err != nil {
			exitWithError("failed to start daemon", err)
		}
		if err := d.Run(); err != nil {
			exitWithError("daemon exited with error", err)
		}
	},
}
