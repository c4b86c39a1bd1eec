package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"alpha_innotec_planner/internal/handlers"
	"alpha_innotec_planner/internal/logger"
	"alpha_innotec_planner/internal/server"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

// configPath is set by the persistent --config flag.
var configPath string

var rootCmd = &cobra.Command{
	Use:           "planner",
	Short:         "Plan Alpha Innotec heat pump schedules around spot electricity prices",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default configs/config.yml)")
	rootCmd.AddCommand(runCmd, serveCmd, planCmd, stateCmd, simulateCmd, tokenCmd)
}

func main() {
	ctx, stop := signalContext()
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runHTTPServer binds the port and serves the API in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) error {
	if err := srv.Listen(port); err != nil {
		return fmt.Errorf("listen on %q: %w", port, err)
	}
	log.Infow("http_listening", "addr", srv.Addr())
	go func() {
		if err := srv.Serve(handler.InitRoutes()); err != nil {
			log.Errorw("http_serve_failed", "err", err)
		}
	}()
	return nil
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// waitForShutdown blocks until ctx ends and then stops the HTTP server,
// allowing in-flight requests to complete.
func waitForShutdown(ctx context.Context, srv *server.Server, log *logger.Logger) {
	<-ctx.Done()
	log.Infow("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
