package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newCreateCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Provision a new project environment",
		Long: `Provision a complete project environment from the local working copy:
a repository, a backend project with deployed schema and functions, and a
linked hosting project connected to the repository.

Steps run in strict order and are not rolled back on failure; what was
created before a failing step is reported so you can retry or clean up.`,
		Example: `  # Provision from the current directory
  forge create demo

  # Provision from another working copy
  forge create demo --dir ~/src/demo`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				reportError(err)
				return err
			}

			name := args[0]
			log.Info().Str("project", name).Str("dir", dir).Msg("provisioning project")

			result, err := rt.pipeline.Provision(cmd.Context(), name, dir)
			if jsonOutput {
				if jerr := printJSON(result); jerr != nil {
					return jerr
				}
				return err
			}

			if result.Repository != nil {
				fmt.Printf("repository: %s\n", result.Repository.URL)
			}
			if result.Backend != nil {
				fmt.Printf("backend:    %s (%s)\n", result.Backend.ProjectRef, result.Backend.Region)
			}
			if result.Hosting != nil && result.Hosting.URL != "" {
				fmt.Printf("hosting:    %s\n", result.Hosting.URL)
			}
			for _, step := range result.NextSteps {
				fmt.Printf("next: %s\n", step)
			}
			if err != nil {
				reportError(err)
				return err
			}
			fmt.Printf("project %q provisioned\n", result.Project.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "local working copy to provision from")

	return cmd
}
