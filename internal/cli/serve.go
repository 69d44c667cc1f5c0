package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/me/wfkit/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the render API and the run registry over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Addr
			}
			st, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			srv := server.New(st, a.logger, server.WithVersion(a.version))
			httpServer := &http.Server{
				Addr:              addr,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Graceful shutdown
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errc := make(chan error, 1)
			go func() {
				a.logger.Info("server starting", "addr", addr)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
				close(errc)
			}()

			select {
			case err := <-errc:
				if err != nil {
					return err
				}
			case <-ctx.Done():
			}
			a.logger.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return err
			}
			a.logger.Info("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, :8080)")
	return cmd
}
