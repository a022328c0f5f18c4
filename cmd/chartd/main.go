// chartd serves stock chart data over HTTP, backed by MySQL with a
// Redis query cache and Financial Modeling Prep as the external source.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chartstack/chartd/internal/app"
)

func main() {
	a, err := app.NewApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.StartWarmCache(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Server.Start()
	}()

	select {
	case <-ctx.Done():
		a.Logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			a.Logger.Error().Err(err).Msg("server failed")
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error().Err(err).Msg("shutdown incomplete")
	}
	a.Logger.Info().Msg("chartd stopped")
}
