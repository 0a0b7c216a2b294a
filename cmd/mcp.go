package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/confidant-ai/confidant/internal/audit"
	"github.com/confidant-ai/confidant/internal/chat"
	mcpserver "github.com/confidant-ai/confidant/internal/mcp"
	"github.com/confidant-ai/confidant/internal/pipeline"
	"github.com/confidant-ai/confidant/internal/profile"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing the message pipeline and profile tools for AI agents like Claude Code.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		provider, err := createProviderFromConfig(cfg)
		if err != nil {
			return fmt.Errorf("creating provider: %w", err)
		}

		database, err := openDatabase(cfg)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		profiles := profile.NewStore(database)
		runner := pipeline.NewRunner(provider, cfg.Model, profiles)
		runner.Audits = audit.NewStore(database)
		runner.PhaseTimeout = time.Duration(cfg.PhaseTimeoutSeconds) * time.Second

		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "confidant MCP server started on stdio (data=%s)\n", cfg.DataDir)

		srv := mcpserver.NewServer(runner, profiles, chat.NewStore(database))
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
