// Package history loads historical candles page by page and keeps the
// paginated series a chart scrolls back through.
package history

import (
	"context"
	"errors"

	"github.com/guttosm/candlefeed/internal/candle"
	"github.com/guttosm/candlefeed/internal/domain/models"
)

// DefaultPageLimit is the page size used when none is configured.
const DefaultPageLimit = 100

// MaxPageLimit bounds the page size a caller may request.
const MaxPageLimit = 1000

// ErrProviderStatus is returned when the upstream history service answers
// with a non-success status.
var ErrProviderStatus = errors.New("history provider returned non-success status")

// PageRequest asks for at most Limit candles of Symbol at Timeframe.
// A positive EndTime restricts the page to candles strictly older than it;
// zero means "most recent".
type PageRequest struct {
	Symbol    string
	Timeframe candle.Timeframe
	Limit     int
	EndTime   int64
}

// Normalize fills defaults and clamps Limit into [1, MaxPageLimit].
func (r PageRequest) Normalize() PageRequest {
	r.Timeframe = candle.ParseTimeframe(string(r.Timeframe))
	switch {
	case r.Limit <= 0:
		r.Limit = DefaultPageLimit
	case r.Limit > MaxPageLimit:
		r.Limit = MaxPageLimit
	}
	if r.EndTime < 0 {
		r.EndTime = 0
	}
	return r
}

// Provider supplies one page of historical candles. Implementations may
// return the page in any order.
type Provider interface {
	FetchCandles(ctx context.Context, req PageRequest) ([]models.Candle, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, req PageRequest) ([]models.Candle, error)

// FetchCandles calls f.
func (f ProviderFunc) FetchCandles(ctx context.Context, req PageRequest) ([]models.Candle, error) {
	return f(ctx, req)
}
