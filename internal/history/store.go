package history

import (
	"context"

	"github.com/guttosm/candlefeed/internal/domain/models"
)

// CandleReader is the read side of the candles repository.
type CandleReader interface {
	GetCandles(ctx context.Context, symbol, timeframe string, endTime int64, limit int) ([]models.Candle, error)
}

// StoreProvider serves pages straight from the candles table.
type StoreProvider struct {
	reader CandleReader
}

// NewStoreProvider wraps reader as a Provider.
func NewStoreProvider(reader CandleReader) *StoreProvider {
	return &StoreProvider{reader: reader}
}

// FetchCandles implements Provider.
func (p *StoreProvider) FetchCandles(ctx context.Context, req PageRequest) ([]models.Candle, error) {
	req = req.Normalize()
	return p.reader.GetCandles(ctx, req.Symbol, req.Timeframe.String(), req.EndTime, req.Limit)
}
