package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dev101/coa/internal/progress"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the tracked analysis",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the tracked analysis",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tracker.Reset()
		fmt.Fprintln(cmd.OutOrStdout(), "Progress reset.")
		return nil
	},
}

func init() {
	statusCmd.Flags().Bool("json", false, "print the raw state as JSON")
	statusCmd.Flags().Bool("dismiss", false, "hide the completion notification")
}

func runStatus(cmd *cobra.Command, args []string) error {
	if dismiss, _ := cmd.Flags().GetBool("dismiss"); dismiss {
		tracker.SetNotificationVisible(false)
	}
	s := tracker.State()
	out := cmd.OutOrStdout()

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	switch s.Phase {
	case progress.Idle:
		fmt.Fprintln(out, "No analysis in progress.")
		return nil
	case progress.Running:
		fmt.Fprintf(out, "Analysis %s running: %d%%\n", s.Analysis(), s.Percent)
	case progress.Completed:
		fmt.Fprintf(out, "Analysis %s complete.\n", s.Analysis())
	case progress.Errored:
		fmt.Fprintf(out, "Analysis %s failed at %d%%: %s\n", s.Analysis(), s.Percent, s.Err)
	}
	if s.NotificationVisible {
		switch s.Phase {
		case progress.Completed:
			fmt.Fprintln(out, "Run 'coa result' to view it.")
		case progress.Errored:
			fmt.Fprintln(out, "Run 'coa analyze' again to retry.")
		}
	}
	return nil
}
