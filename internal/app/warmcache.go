package app

import (
	"context"
	"os"
	"sync"

	"github.com/chartstack/chartd/internal/common"
)

// warmConcurrency bounds parallel warm-up queries so startup does not
// burn the upstream rate limit.
const warmConcurrency = 3

// StartWarmCache pre-loads the 1Y series for each configured symbol in
// the background. Per-symbol failures are logged and tolerated; set
// CHARTD_WARM_CACHE=off to skip entirely.
func (a *App) StartWarmCache(ctx context.Context) {
	if os.Getenv("CHARTD_WARM_CACHE") == "off" {
		a.Logger.Info().Msg("cache warm-up disabled")
		return
	}
	if len(a.Config.Symbols) == 0 {
		return
	}

	go func() {
		a.Logger.Info().Int("symbols", len(a.Config.Symbols)).Msg("cache warm-up started")

		sem := make(chan struct{}, warmConcurrency)
		var wg sync.WaitGroup
		for _, symbol := range a.Config.Symbols {
			wg.Add(1)
			sem <- struct{}{}
			go func(symbol string) {
				defer wg.Done()
				defer func() { <-sem }()

				if ctx.Err() != nil {
					return
				}
				if _, _, err := a.Query.GetHistoricalData(ctx, symbol, string(common.Timeframe1Y)); err != nil {
					a.Logger.Warn().Err(err).Str("symbol", symbol).Msg("warm-up query failed")
				}
			}(symbol)
		}
		wg.Wait()

		a.Logger.Info().Msg("cache warm-up complete")
	}()
}
