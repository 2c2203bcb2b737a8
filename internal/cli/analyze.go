package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dev101/coa/internal/client"
	"github.com/dev101/coa/internal/job"
	"github.com/dev101/coa/internal/progress"
	"github.com/dev101/coa/internal/tui"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <repo-url>",
	Short: "Submit a repository for commit analysis and follow its progress",
	Long: `Submit a GitHub or GitLab repository to the CoA backend and follow the
analysis until it completes. Any previous analysis state is discarded.

By default progress comes from the backend. With --heartbeat the bar advances
by a fixed step per poll interval instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringP("user", "u", "", "account name the commits belong to")
	analyzeCmd.Flags().Int("project-id", 0, "GitLab project id")
	analyzeCmd.Flags().BoolP("detach", "d", false, "submit and return without waiting")
	analyzeCmd.Flags().Bool("heartbeat", false, "advance by a fixed step instead of polling the backend")
	analyzeCmd.Flags().Bool("no-tui", false, "print progress lines instead of the progress bar")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	req := client.AnalysisRequest{RepoURL: args[0]}
	req.UserName, _ = cmd.Flags().GetString("user")
	if pid, _ := cmd.Flags().GetInt("project-id"); pid > 0 {
		req.ProjectID = &pid
	}

	runner := &job.Runner{
		Client:      newClient(),
		Tracker:     tracker,
		Interval:    cfg.PollInterval,
		MaxFailures: cfg.MaxFailures,
		Logger:      logger,
	}

	id, err := runner.Submit(ctx, req)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Analysis %s started for %s\n", id, req.RepoURL)

	if detach, _ := cmd.Flags().GetBool("detach"); detach {
		fmt.Fprintln(out, "Use 'coa status' to check on it.")
		return nil
	}

	heartbeat, _ := cmd.Flags().GetBool("heartbeat")
	noTUI, _ := cmd.Flags().GetBool("no-tui")
	return follow(ctx, cmd, runner, heartbeat, noTUI, req.RepoURL)
}

// follow waits for the tracked job, driving it either from the backend or
// from the heartbeat.
func follow(ctx context.Context, cmd *cobra.Command, runner *job.Runner, heartbeat, noTUI bool, repo string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	unsubscribe := func() {}
	if noTUI {
		unsubscribe = printProgress(cmd.OutOrStdout())
	}
	defer unsubscribe()

	watchErr := make(chan error, 1)
	if heartbeat {
		watchErr <- nil
	} else {
		go func() {
			_, err := runner.Watch(ctx)
			watchErr <- err
		}()
	}

	var final progress.State
	var err error
	if noTUI {
		if heartbeat {
			progress.Heartbeat(ctx, tracker, cfg.PollInterval)
		}
		err = <-watchErr
		unsubscribe()
		final = tracker.State()
	} else {
		pm, runErr := tui.RunProgress(ctx, tracker, tui.ProgressOptions{
			Interval:  cfg.PollInterval,
			Heartbeat: heartbeat,
			Repo:      repo,
		})
		if runErr != nil && ctx.Err() == nil {
			return runErr
		}
		if pm.Detached() {
			return nil
		}
		cancel()
		err = <-watchErr
		final = tracker.State()
	}
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	switch final.Phase {
	case progress.Completed:
		return nil
	case progress.Errored:
		if err != nil {
			return err
		}
		return fmt.Errorf("analysis failed: %s", final.Err)
	default:
		return err
	}
}

// printProgress prints a line whenever the percentage changes.
func printProgress(out io.Writer) (unsubscribe func()) {
	var mu sync.Mutex
	last := -1
	return tracker.Subscribe(func(s progress.State) {
		mu.Lock()
		defer mu.Unlock()
		if s.Percent != last || s.Phase != progress.Running {
			last = s.Percent
			fmt.Fprintf(out, "%3d%% %s\n", s.Percent, s.Phase)
		}
	})
}
