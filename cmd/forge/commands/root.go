package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool
)

// errCancelled marks an explicit user cancellation. It maps to exit code 0,
// distinguishing "I changed my mind" from "it broke".
var errCancelled = errors.New("cancelled")

// Execute runs the root command.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	err := rootCmd.ExecuteContext(ctx)
	if errors.Is(err, errCancelled) {
		return nil
	}
	return err
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "forge",
		Short: "launchforge - multi-provider environment orchestrator",
		Long: `launchforge provisions, tracks, and tears down application environments
spanning a repository host, a backend-as-a-service, a hosting provider, and
ephemeral compute instances for isolated feature development.

Irreversible commands are gated behind a dry-run/confirm handshake with a
minimum token age, so an automated caller cannot drive them end to end in one
shot.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newCreateCommand())
	rootCmd.AddCommand(newFeatureCommand())
	rootCmd.AddCommand(newCleanCommand())
	rootCmd.AddCommand(newDestroyCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newAuthCommand())

	return rootCmd
}
