package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/launchforge/launchforge/pkg/confirm"
)

func newDestroyCommand() *cobra.Command {
	var (
		force        bool
		dryRun       bool
		confirmToken string
	)

	cmd := &cobra.Command{
		Use:   "destroy <project>",
		Short: "Tear down a whole project",
		Long: `Tear down a project's backend and hosting resources and remove its
record. Every resource outcome is collected and reported; the repository is
never deleted automatically, the manual command is printed instead.

This is irreversible, so it is gated: run with --dry-run first, then confirm
with the issued token. --force bypasses the gate on an interactive terminal.`,
		Example: `  # See what would be destroyed and get a token
  forge destroy demo --dry-run

  # Confirm with the token (at least 10s after the dry run)
  forge destroy demo --confirm ab12cd34`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				reportError(err)
				return err
			}

			name := args[0]
			summary := fmt.Sprintf("destroy the backend and hosting resources of project %q and remove its record", name)

			outcome, err := rt.gate.Require("destroy "+name, map[string]string{}, summary, confirm.Options{
				DryRun: dryRun,
				Token:  confirmToken,
				Force:  force,
			})
			if err != nil {
				reportError(err)
				return err
			}
			if !outcome.Proceed {
				fmt.Println(summary)
				fmt.Printf("token: %s (valid 5m, honored after 10s)\n", outcome.Token)
				fmt.Printf("confirm with: %s\n", outcome.FollowUp)
				return nil
			}
			if force && !promptYes(fmt.Sprintf("%s. Continue? [y/N] ", summary)) {
				fmt.Println("aborted")
				return errCancelled
			}

			log.Info().Str("project", name).Msg("destroying project")
			result, err := rt.lifecycle.DestroyProject(cmd.Context(), name)
			if err != nil {
				reportError(err)
				return err
			}

			if jsonOutput {
				type resourceRow struct {
					Resource string `json:"resource"`
					Error    string `json:"error,omitempty"`
				}
				rows := make([]resourceRow, 0, len(result.Resources))
				for _, r := range result.Resources {
					row := resourceRow{Resource: r.Resource}
					if r.Err != nil {
						row.Error = r.Err.Error()
					}
					rows = append(rows, row)
				}
				return printJSON(struct {
					Resources     []resourceRow `json:"resources"`
					RecordRemoved bool          `json:"recordRemoved"`
					NextSteps     []string      `json:"nextSteps,omitempty"`
				}{rows, result.RecordRemoved, result.NextSteps})
			}

			for _, r := range result.Resources {
				if r.Err != nil {
					fmt.Printf("%s: FAILED: %v\n", r.Resource, r.Err)
				} else {
					fmt.Printf("%s: deleted\n", r.Resource)
				}
			}
			if result.RecordRemoved {
				fmt.Println("record: removed")
			}
			for _, step := range result.NextSteps {
				fmt.Printf("next: %s\n", step)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "skip the confirmation gate (interactive terminals only)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be destroyed and issue a token")
	cmd.Flags().StringVar(&confirmToken, "confirm", "", "confirmation token from a prior dry run")

	return cmd
}
