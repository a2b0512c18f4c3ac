// fluxion-relay is a standalone change-notification relay. Processes that
// share a durable storage backend connect to it over websocket; every
// change one of them publishes is forwarded to the rest, which re-read the
// backend and re-run their dependents.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/fluxion-dev/fluxion/pkg/inspect"
	"github.com/fluxion-dev/fluxion/pkg/storage"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "fluxion-relay",
		Short:         "Change-notification relay for fluxion storage views",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var (
		addr string
		path string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the relay server",
		Long: `Start the relay server.

The relay exposes the websocket endpoint clients dial with
storage.DialRelay, plus /healthz and /metrics for operations.

Examples:
  fluxion-relay serve
  fluxion-relay serve --addr=:9200 --path=/changes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr, path)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":9100", "Address to listen on")
	cmd.Flags().StringVarP(&path, "path", "p", "/relay", "Websocket endpoint path")

	return cmd
}

func runServe(addr, path string) error {
	logger := slog.Default().With("component", "fluxion-relay")

	mux := chi.NewRouter()
	mux.Handle(path, storage.NewRelayHub())
	mux.Mount("/", inspect.NewHandler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("relay listening", "addr", addr, "path", path)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

func versionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("fluxion-relay %s\n", version)
			fmt.Printf("  Commit:     %s\n", commit)
			fmt.Printf("  Go version: %s\n", runtime.Version())
		},
	}
	return cmd
}
