package ingest

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"stockpulse/models"
	"stockpulse/services/datafetcher"
	"stockpulse/services/transform"
)

// Fetcher pulls one symbol's raw series from the provider.
type Fetcher interface {
	Fetch(ctx context.Context, symbol string) *datafetcher.Response
	SeriesKey() string
}

// Store persists one symbol's normalized batch.
type Store interface {
	Upsert(ctx context.Context, symbol string, records []models.StockData) (int64, error)
}

// Summary aggregates one run's outcome.
type Summary struct {
	Succeeded int
	Failed    int
}

// Orchestrator drives the symbol list through fetch → normalize → upsert,
// strictly sequentially, pacing requests to stay under the provider's
// per-minute quota.
type Orchestrator struct {
	fetcher Fetcher
	store   Store
	pace    time.Duration
	log     zerolog.Logger
}

// NewOrchestrator builds an orchestrator. requestsPerMinute derives the
// mandatory pause between consecutive fetches.
func NewOrchestrator(fetcher Fetcher, store Store, requestsPerMinute int, log zerolog.Logger) *Orchestrator {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 15
	}
	return &Orchestrator{
		fetcher: fetcher,
		store:   store,
		pace:    time.Minute / time.Duration(requestsPerMinute),
		log:     log,
	}
}

// Pace reports the minimum delay between consecutive provider requests.
func (o *Orchestrator) Pace() time.Duration {
	return o.pace
}

// Run processes the symbols in order and returns a summary. Each symbol's
// failure is isolated: malformed responses, normalization failures and store
// errors are counted and the run moves on. A provider quota notice is the one
// exception, aborting the remainder of the run immediately since the
// condition is account-wide. Run never returns an error; every failure is
// logged with its symbol and folded into the summary.
func (o *Orchestrator) Run(ctx context.Context, symbols []string) Summary {
	var sum Summary
	seriesKey := o.fetcher.SeriesKey()

	for i, symbol := range symbols {
		if i > 0 {
			// Blocking pause between consecutive fetches; no other fetch
			// happens while waiting.
			select {
			case <-ctx.Done():
				o.log.Warn().Int("remaining", len(symbols)-i).Msg("run cancelled")
				return sum
			case <-time.After(o.pace):
			}
		}

		resp := o.fetcher.Fetch(ctx, symbol)
		switch resp.Kind {
		case datafetcher.KindRateLimited:
			o.log.Warn().
				Str("symbol", symbol).
				Str("notice", resp.Notice).
				Msg("provider quota reached, aborting run")
			return sum
		case datafetcher.KindMalformed:
			sum.Failed++
			o.log.Error().Err(resp.Err).Str("symbol", symbol).Msg("fetch failed")
			continue
		}

		records, err := transform.Normalize(symbol, seriesKey, resp.Payload)
		if err != nil {
			sum.Failed++
			o.log.Error().Err(err).Str("symbol", symbol).Msg("normalization failed")
			continue
		}

		written, err := o.store.Upsert(ctx, symbol, records)
		if err != nil {
			sum.Failed++
			o.log.Error().Err(err).Str("symbol", symbol).Msg("upsert failed")
			continue
		}

		sum.Succeeded++
		o.log.Info().
			Str("symbol", symbol).
			Int64("rows", written).
			Msg("symbol ingested")
	}

	return sum
}
