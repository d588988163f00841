// Command resource-mapper serves host records as resource documents, driven
// by a YAML schema and kind catalog.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "resource-mapper <command>",
	Short:         "Config-driven resource document service",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("RESMAP_CONFIG"), "TOML config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newCheckCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
