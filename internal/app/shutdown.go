package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady("agent", false)
	a.healthChecker.SetReady("discovery", false)

	// Cancel context to signal all components
	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Shutdown HTTP server
	err := a.shutdownHTTPServer(shutdownCtx)
	if err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	// Close the stream hub once the listener stops accepting upgrades
	err = a.shutdownStream()
	if err != nil {
		a.logger.Error("stream-close-error", zap.Error(err))
	}

	// Wait for the loops so the agent's final tick can still archive
	a.wg.Wait()

	// Close archive storage
	err = a.shutdownArchive()
	if err != nil {
		a.logger.Error("storage-close-error", zap.Error(err))
	}

	a.logger.Info("application-shutdown-complete")

	return nil
}

func (a *App) shutdownHTTPServer(ctx context.Context) error {
	return a.httpServer.Shutdown(ctx)
}

func (a *App) shutdownStream() error {
	return a.hub.Close()
}

func (a *App) shutdownArchive() error {
	return a.archive.Close()
}
