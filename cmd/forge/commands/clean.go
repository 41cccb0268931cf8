package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/launchforge/launchforge/pkg/confirm"
	"github.com/launchforge/launchforge/pkg/engine"
)

func newCleanCommand() *cobra.Command {
	var (
		project      string
		force        bool
		dryRun       bool
		confirmToken string
	)

	cmd := &cobra.Command{
		Use:   "clean <feature>",
		Short: "Tear down a feature environment",
		Long: `Tear down the compute instance bound to a feature: its backend
sub-environments, the instance itself, and the local record. Teardown is
best-effort and fully reported; a failing sub-resource never silently skips
the rest.

This is irreversible, so it is gated: run with --dry-run first, then confirm
with the issued token. --force bypasses the gate on an interactive terminal.`,
		Example: `  # See what would be destroyed and get a token
  forge clean login --project demo --dry-run

  # Confirm with the token (at least 10s after the dry run)
  forge clean login --project demo --confirm ab12cd34`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				reportError(err)
				return err
			}

			feature := args[0]
			summary := fmt.Sprintf("destroy the instance for feature %q of project %q, its backend branches, and its record", feature, project)

			outcome, err := rt.gate.Require("clean "+feature, map[string]string{"project": project}, summary, confirm.Options{
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

			log.Info().Str("project", project).Str("feature", feature).Msg("destroying feature environment")
			result, err := rt.lifecycle.DestroyFeature(cmd.Context(), project, feature)
			if err != nil {
				reportError(err)
				return err
			}
			printDestroySummary(result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", "", "project the feature belongs to")
	cmd.Flags().BoolVar(&force, "force", false, "skip the confirmation gate (interactive terminals only)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be destroyed and issue a token")
	cmd.Flags().StringVar(&confirmToken, "confirm", "", "confirmation token from a prior dry run")
	cmd.MarkFlagRequired("project")

	return cmd
}

// printDestroySummary reports every sub-resource outcome: what succeeded,
// what failed, and the remaining manual work.
func printDestroySummary(summary *engine.DestroySummary) {
	if jsonOutput {
		type branchRow struct {
			Name  string `json:"name"`
			Error string `json:"error,omitempty"`
		}
		rows := make([]branchRow, 0, len(summary.Branches))
		for _, b := range summary.Branches {
			row := branchRow{Name: b.Name}
			if b.Err != nil {
				row.Error = b.Err.Error()
			}
			rows = append(rows, row)
		}
		out := struct {
			Branches      []branchRow `json:"branches"`
			InstanceError string      `json:"instanceError,omitempty"`
			RecordRemoved bool        `json:"recordRemoved"`
		}{Branches: rows, RecordRemoved: summary.RecordRemoved}
		if summary.InstanceErr != nil {
			out.InstanceError = summary.InstanceErr.Error()
		}
		_ = printJSON(out)
		return
	}

	for _, b := range summary.Branches {
		if b.Err != nil {
			fmt.Printf("branch %s: FAILED: %v\n", b.Name, b.Err)
		} else {
			fmt.Printf("branch %s: deleted\n", b.Name)
		}
	}
	if summary.InstanceErr != nil {
		fmt.Printf("instance: FAILED: %v\n", summary.InstanceErr)
	} else {
		fmt.Println("instance: deleted")
	}
	if summary.RecordRemoved {
		fmt.Println("record: removed")
	}
}

// promptYes asks an interactive yes/no question on stdin.
func promptYes(question string) bool {
	fmt.Print(question)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
