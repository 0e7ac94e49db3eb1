package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"starbridge.xyz/starbridge/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Validate the configuration file without starting the proxy.

Useful for pre-checking configuration before a restart.

Examples:
  starbridge validate
  starbridge validate -c /etc/starbridge/config.yml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "INVALID: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("VALID: listen %s, upstream %s, %d plugin section(s)\n",
			cfg.Listen, cfg.Upstream, len(cfg.Plugins))
	},
}
