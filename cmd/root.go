package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "confidant",
	Short: "A conversational assistant that learns who you are",
	Long: `Confidant processes every message through an enrichment pipeline:
it extracts insights about you, merges them into a persistent profile,
and uses the relevant slice of that profile to draft and restyle its
replies. Run it as an HTTP/WebSocket server, a terminal chat, or an
MCP server for AI agent integration.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".confidant.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
