package api

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/angelmondragon/carbidz-backend/pkg/config"
	"github.com/angelmondragon/carbidz-backend/pkg/logger"
)

// Addr returns the listen address, letting a platform-assigned PORT win over
// CARBIDZ_APP_PORT.
func Addr(cfg *config.Config) string {
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	return ":" + port
}

// NewServer builds the HTTP server every service binary runs.
func NewServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              Addr(cfg),
		Handler:           handler,
		ReadHeaderTimeout: cfg.App.ReadHeaderTimeout,
	}
}

// Serve runs srv until ctx is canceled, then drains in-flight requests for up
// to the configured shutdown timeout.
func Serve(ctx context.Context, cfg *config.Config, logg *logger.Logger, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		logg.Info(logg.WithField(ctx, "addr", srv.Addr), "http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logg.Info(ctx, "http server stopped")
	return nil
}
