// Package cli provides the coa command-line interface.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dev101/coa/internal/client"
	"github.com/dev101/coa/internal/config"
	"github.com/dev101/coa/internal/progress"
	"github.com/dev101/coa/internal/store"
)

var (
	// Global flags
	configPath string
	storeURL   string
	apiURL     string
	token      string
	logLevel   string

	// Set up in PersistentPreRunE
	cfg           config.Config
	logger        = slog.Default()
	closeLog      = func() error { return nil }
	progressStore store.Opened
	tracker       *progress.Tracker
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "coa",
	Short: "Commit analysis client",
	Long: `coa submits repositories to the CoA commit analysis service, tracks the
running analysis and shows the result with its reviewer comments.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		applyFlags(cmd)

		logger, closeLog = config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		slog.SetDefault(logger)

		if !needsTracker(cmd) {
			return nil
		}
		return openTracker(cmd.Context())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if progressStore != nil {
			if err := progressStore.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close store: %v\n", err)
			}
			progressStore = nil
		}
		_ = closeLog()
	},
}

// applyFlags lets explicitly set flags win over file and environment.
func applyFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("store") {
		cfg.Store = storeURL
	}
	if flags.Changed("api-url") {
		cfg.APIURL = apiURL
	}
	if flags.Changed("token") {
		cfg.Token = token
	}
	if flags.Changed("log-level") {
		cfg.Level = logLevel
		cfg.LogLevel = config.ParseLogLevel(logLevel)
	}
}

// needsTracker reports whether cmd reads or writes progress state.
func needsTracker(cmd *cobra.Command) bool {
	_, ok := cmd.Annotations["tracker"]
	return ok
}

func openTracker(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	t, err := progress.New(ctx, s,
		progress.WithStep(cfg.PollStep),
		progress.WithLogger(logger),
	)
	if err != nil {
		s.Close()
		return fmt.Errorf("load progress: %w", err)
	}
	progressStore = s
	tracker = t
	return nil
}

func newClient() *client.Client {
	return client.New(cfg.APIURL, cfg.Token, client.WithTimeout(cfg.Timeout))
}

// withTracker marks a command as needing the progress tracker.
func withTracker(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations["tracker"] = "true"
	return cmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/coa/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&storeURL, "store", "", "progress store: file://DIR, mem://, redis://HOST:PORT/DB")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "CoA backend URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "CoA access token")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(withTracker(analyzeCmd))
	rootCmd.AddCommand(withTracker(statusCmd))
	rootCmd.AddCommand(withTracker(resetCmd))
	rootCmd.AddCommand(withTracker(resultCmd))
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(annotateCmd)
	rootCmd.AddCommand(withTracker(serveCmd))
	rootCmd.AddCommand(versionCmd)
}
