package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dev101/coa/internal/diff"
	"github.com/dev101/coa/internal/model"
	"github.com/dev101/coa/internal/progress"
	"github.com/dev101/coa/internal/tui"
)

var resultCmd = &cobra.Command{
	Use:   "result [analysis-id]",
	Short: "Show the result of a finished analysis",
	Long: `Fetch the result of a finished analysis and open it in the viewer, or
print it with --format. Without an id the tracked analysis is used, and
viewing it dismisses the completion notification.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResult,
}

var viewCmd = &cobra.Command{
	Use:   "view <repo-view-id>",
	Short: "Show a saved repo view",
	Args:  cobra.ExactArgs(1),
	RunE:  runView,
}

func init() {
	for _, c := range []*cobra.Command{resultCmd, viewCmd} {
		c.Flags().StringP("format", "f", "", "print instead of opening the viewer: text, json, markdown, html")
		c.Flags().String("changes", "", "commit range of the local repository to show alongside (e.g. main...HEAD)")
		c.Flags().String("repo", ".", "local repository for --changes")
	}
}

func runResult(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s := tracker.State()

	id := s.Analysis()
	tracked := len(args) == 0
	if !tracked {
		id = args[0]
	} else {
		switch {
		case id == "":
			return fmt.Errorf("no tracked analysis; pass an analysis id")
		case s.Phase != progress.Completed:
			return fmt.Errorf("analysis %s is %s", id, s.Phase)
		}
	}

	detail, err := newClient().DoneAnalysis(ctx, id)
	if err != nil {
		return err
	}
	if tracked || id == s.Analysis() {
		tracker.SetNotificationVisible(false)
	}
	return showDetail(cmd, detail)
}

func runView(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid repo view id %q", args[0])
	}
	detail, err := newClient().RepoView(cmd.Context(), id)
	if err != nil {
		return err
	}
	return showDetail(cmd, detail)
}

func showDetail(cmd *cobra.Command, detail *model.RepoDetail) error {
	format, _ := cmd.Flags().GetString("format")
	if format != "" {
		return writeReport(cmd.OutOrStdout(), format, newReport(detail))
	}

	var changes *diff.Changes
	if commitRange, _ := cmd.Flags().GetString("changes"); commitRange != "" {
		repo, _ := cmd.Flags().GetString("repo")
		c, err := diff.Range(cmd.Context(), repo, commitRange)
		if err != nil {
			logger.Warn("could not read local changes", "range", commitRange, "error", err)
		} else {
			changes = c
		}
	}
	return tui.Run(detail, changes)
}
