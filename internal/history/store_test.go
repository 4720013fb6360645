package history

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guttosm/candlefeed/internal/domain/models"
)

type readerFunc func(ctx context.Context, symbol, timeframe string, endTime int64, limit int) ([]models.Candle, error)

func (f readerFunc) GetCandles(ctx context.Context, symbol, timeframe string, endTime int64, limit int) ([]models.Candle, error) {
	return f(ctx, symbol, timeframe, endTime, limit)
}

func TestStoreProvider_NormalizesRequest(t *testing.T) {
	var gotTF string
	var gotEnd int64
	var gotLimit int
	p := NewStoreProvider(readerFunc(func(_ context.Context, symbol, tf string, end int64, limit int) ([]models.Candle, error) {
		gotTF, gotEnd, gotLimit = tf, end, limit
		return series(60), nil
	}))

	got, err := p.FetchCandles(context.Background(), PageRequest{Symbol: "X", Timeframe: "weird", Limit: 0, EndTime: 600})
	require.NoError(t, err)
	assert.Equal(t, series(60), got)
	assert.Equal(t, "1m", gotTF)
	assert.Equal(t, int64(600), gotEnd)
	assert.Equal(t, DefaultPageLimit, gotLimit)
}
