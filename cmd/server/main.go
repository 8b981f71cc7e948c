package main

import (
	"os"

	"github.com/spf13/cobra"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Dialog reply agent service",
	Long:  "Answers dialog messages stored in a semantic graph: selects a reply rule, generates reply text and links it to the requesting action.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if envFile != "" {
			_ = os.Setenv("DIALOGREPLY_ENV", envFile)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "env file (default: .env or $DIALOGREPLY_ENV)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
