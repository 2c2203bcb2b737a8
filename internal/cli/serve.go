package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dev101/coa/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local HTTP API server",
	Long: `Start an HTTP server exposing the annotator and the progress tracker.

Endpoints:
  GET  /health                        Health check
  POST /api/annotate                  Split text into comment segments
  GET  /api/progress                  Current progress state
  POST /api/progress/{start,complete,poll,reset}
  POST /api/progress/advance          {"percent": N}
  POST /api/progress/notification     {"visible": bool}
  GET  /api/ws                        WebSocket progress stream and selection`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("addr", "a", "", "address to listen on (default from config)")
	serveCmd.Flags().IntP("port", "p", 0, "port to listen on (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	port, _ := cmd.Flags().GetInt("port")
	if addr == "" {
		addr = cfg.Addr
	}
	if port == 0 {
		port = cfg.Port
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listen := fmt.Sprintf("%s:%d", addr, port)
	srv := api.New(listen, tracker, api.WithLogger(logger))
	return srv.ListenAndServe(ctx)
}
