package app

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Run starts the HTTP server and blocks until the context is cancelled or
// the listener fails. Shutdown is graceful: in-flight dispatches get a grace
// period to finish before the process exits.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    a.model.Server.ListenAddr,
		Handler: a.Handler(),
	}

	errChan := make(chan error, 1)
	go func() {
		a.logger.Info("🚀 Gateway listening.", "addr", srv.Addr, "agents", a.registry.Names())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutdown signal received, draining connections.")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Graceful shutdown failed.", "error", err)
		return err
	}

	a.logger.Info("🏁 Gateway stopped cleanly.")
	return nil
}
