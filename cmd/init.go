package cmd

import (
	"github.com/spf13/cobra"

	"github.com/confidant-ai/confidant/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize confidant configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure confidant and generates a .confidant.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
