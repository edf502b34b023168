package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(rt *runtime) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				rt.cfg.Port = port
			}
			return rt.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (overrides PORT)")
	return cmd
}

func (rt *runtime) serve(ctx context.Context) error {
	a, err := rt.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			rt.log.Error(fmt.Sprintf("Error closing store: %v", err))
		}
	}()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", rt.cfg.Port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		rt.log.Info(fmt.Sprintf("Server is running on port %s (store=%s, provider=%s)", rt.cfg.Port, rt.cfg.Store.Driver, a.Provider.Name()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			rt.log.Error(fmt.Sprintf("Error running HTTP server: %s", err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	rt.log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		rt.log.Error(fmt.Sprintf("Server forced to shutdown: %v", err))
		return err
	}
	rt.log.Info("Server stopped gracefully.")
	return nil
}
