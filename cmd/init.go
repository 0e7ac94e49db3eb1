package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"starbridge.xyz/starbridge/internal/config"
)

var initOutput string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Print a default configuration file",
	Long: `Render the default configuration as YAML.

Writes to stdout by default; use -o to write a file instead.

Examples:
  starbridge init
  starbridge init -o /etc/starbridge/config.yml`,
	Run: func(cmd *cobra.Command, args []string) {
		doc := struct {
			Starbridge *config.Config `yaml:"starbridge"`
		}{Starbridge: config.Default()}

		data, err := yaml.Marshal(&doc)
		if err != nil {
			exitWithError("failed to render default config", err)
		}

		if initOutput == "" {
			fmt.Print(string(data))
			return
		}
		if err := os.WriteFile(initOutput, data, 0o644); err != nil {
			exitWithError("failed to write config file", err)
		}
		fmt.Printf("wrote %s\n", initOutput)
	},
}

func init() {
	initCmd.Flags().StringVarP(&initOutput, "output", "o", "", "write to file instead of stdout")
}
