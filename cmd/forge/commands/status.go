package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand() *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the fleet of feature environments",
		Long: `Probe every recorded compute instance concurrently: SSH reachability,
pull request state for its branch, and task progress reported from the
instance. Task progress is folded back into the local records.`,
		Example: `  # Whole fleet
  forge status

  # One project, machine-readable
  forge status --project demo --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				reportError(err)
				return err
			}

			results, err := rt.lifecycle.Status(cmd.Context(), project)
			if err != nil {
				reportError(err)
				return err
			}

			if jsonOutput {
				return printJSON(results)
			}

			if len(results) == 0 {
				fmt.Println("no instances")
				return nil
			}
			for _, row := range results {
				state := "unreachable"
				if row.Reachable {
					state = "up"
				}
				line := fmt.Sprintf("%-24s %-12s %-10s %s", row.Instance.Name, row.Instance.Project, state, row.Instance.RemoteHost)
				if row.Instance.TaskStatus != "" {
					line += fmt.Sprintf("  task=%s iterations=%d cost=%.2f", row.Instance.TaskStatus, row.Instance.IterationCount, row.Instance.CumulativeCost)
				}
				if row.PullRequest != nil {
					line += fmt.Sprintf("  pr=%s (%s)", row.PullRequest.URL, row.PullRequest.State)
				}
				fmt.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", "", "limit to one project")

	return cmd
}
