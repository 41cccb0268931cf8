package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newFeatureCommand() *cobra.Command {
	var (
		project string
		dir     string
		prompt  string
	)

	cmd := &cobra.Command{
		Use:   "feature <name>",
		Short: "Create an isolated feature environment",
		Long: `Create an ephemeral compute instance bound to a feature of a project:
the instance is provisioned and bootstrapped over SSH, a repository branch is
created from the default branch, backend sub-environments are created for the
feature, and the hosting environment is merged onto the instance.

Any failure after the instance exists rolls the instance back.`,
		Example: `  # Spin up an environment for a feature
  forge feature login --project demo

  # Hand the environment a task prompt for an autonomous driver
  forge feature login --project demo --prompt "add a login page"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				reportError(err)
				return err
			}

			feature := args[0]
			log.Info().Str("project", project).Str("feature", feature).Msg("creating feature environment")

			record, err := rt.lifecycle.CreateFeature(cmd.Context(), project, feature, dir, prompt)
			if err != nil {
				reportError(err)
				return err
			}

			if jsonOutput {
				return printJSON(record)
			}
			fmt.Printf("instance: %s\n", record.Name)
			fmt.Printf("host:     %s\n", record.RemoteHost)
			fmt.Printf("branch:   %s\n", record.RepositoryBranch)
			for _, b := range record.BackendBranches {
				fmt.Printf("backend:  %s\n", b)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", "", "project the feature belongs to")
	cmd.Flags().StringVar(&dir, "dir", ".", "local working copy of the project")
	cmd.Flags().StringVar(&prompt, "prompt", "", "task prompt handed to the instance")
	cmd.MarkFlagRequired("project")

	return cmd
}
