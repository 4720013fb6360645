package history

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guttosm/candlefeed/internal/candle"
	"github.com/guttosm/candlefeed/internal/domain/models"
)

type stubProvider struct {
	mu    sync.Mutex
	calls []PageRequest
	pages [][]models.Candle
	errs  []error
}

func (s *stubProvider) FetchCandles(_ context.Context, req PageRequest) ([]models.Candle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := len(s.calls)
	s.calls = append(s.calls, req)
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if err != nil {
		return nil, err
	}
	if i < len(s.pages) {
		return s.pages[i], nil
	}
	return nil, nil
}

func (s *stubProvider) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func series(times ...int64) []models.Candle {
	out := make([]models.Candle, len(times))
	for i, ts := range times {
		out[i] = models.Candle{Time: ts, Open: 1, High: 1, Low: 1, Close: float64(ts)}
	}
	return out
}

func TestTracker_LoadInitial(t *testing.T) {
	p := &stubProvider{pages: [][]models.Candle{series(300, 180, 240, 0)}}
	tr := NewTracker(p, WithPageLimit(3))

	got, err := tr.LoadInitial(context.Background(), "BTCUSDT", "5m")

	require.NoError(t, err)
	assert.Equal(t, series(180, 240, 300), got)
	assert.True(t, tr.HasMore())
	assert.False(t, tr.Loading())
	require.Len(t, p.calls, 1)
	assert.Equal(t, PageRequest{Symbol: "BTCUSDT", Timeframe: candle.Timeframe5m, Limit: 3}, p.calls[0])
}

func TestTracker_LoadMorePrependsOlderCandles(t *testing.T) {
	p := &stubProvider{pages: [][]models.Candle{
		series(180, 240),
		// Overlapping and out of order: only times strictly before 180 survive.
		series(180, 60, 120, 60),
	}}
	tr := NewTracker(p)
	_, err := tr.LoadInitial(context.Background(), "ETHUSDT", candle.Timeframe1m)
	require.NoError(t, err)

	got, err := tr.LoadMore(context.Background())

	require.NoError(t, err)
	assert.Equal(t, series(60, 120, 180, 240), got)
	assert.True(t, tr.HasMore())
	require.Len(t, p.calls, 2)
	assert.Equal(t, int64(180), p.calls[1].EndTime)
	assert.Equal(t, "ETHUSDT", p.calls[1].Symbol)
}

func TestTracker_LoadMoreEmptyPageExhausts(t *testing.T) {
	p := &stubProvider{pages: [][]models.Candle{series(120), series(120, 180)}}
	tr := NewTracker(p)
	_, err := tr.LoadInitial(context.Background(), "X", candle.Timeframe1m)
	require.NoError(t, err)

	got, err := tr.LoadMore(context.Background())

	require.NoError(t, err)
	assert.Equal(t, series(120), got)
	assert.False(t, tr.HasMore())
}

func TestTracker_LoadMoreWhenExhaustedDoesNotFetch(t *testing.T) {
	p := &stubProvider{pages: [][]models.Candle{series(120), nil}}
	tr := NewTracker(p)
	_, _ = tr.LoadInitial(context.Background(), "X", candle.Timeframe1m)
	_, _ = tr.LoadMore(context.Background())
	require.False(t, tr.HasMore())
	before := p.callCount()

	got, err := tr.LoadMore(context.Background())

	require.NoError(t, err)
	assert.Equal(t, series(120), got)
	assert.Equal(t, before, p.callCount())
}

func TestTracker_LoadMoreWithoutCandlesIsNoop(t *testing.T) {
	p := &stubProvider{pages: [][]models.Candle{nil}}
	tr := NewTracker(p)

	got, err := tr.LoadMore(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, p.callCount())

	_, err = tr.LoadInitial(context.Background(), "X", candle.Timeframe1m)
	require.NoError(t, err)
	_, err = tr.LoadMore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, p.callCount())
}

func TestTracker_LoadMoreFailurePreservesState(t *testing.T) {
	boom := errors.New("boom")
	p := &stubProvider{
		pages: [][]models.Candle{series(120, 180), nil, series(60)},
		errs:  []error{nil, boom},
	}
	tr := NewTracker(p)
	_, err := tr.LoadInitial(context.Background(), "X", candle.Timeframe1m)
	require.NoError(t, err)

	_, err = tr.LoadMore(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, series(120, 180), tr.Candles())
	assert.True(t, tr.HasMore())
	assert.False(t, tr.Loading())

	got, err := tr.LoadMore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, series(60, 120, 180), got)
}

func TestTracker_LoadInitialFailureKeepsState(t *testing.T) {
	boom := errors.New("down")
	p := &stubProvider{pages: [][]models.Candle{series(60)}, errs: []error{nil, boom}}
	tr := NewTracker(p)
	_, err := tr.LoadInitial(context.Background(), "X", candle.Timeframe1m)
	require.NoError(t, err)

	_, err = tr.LoadInitial(context.Background(), "Y", candle.Timeframe1h)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, series(60), tr.Candles())
}

func TestTracker_LoadInitialResetsHasMore(t *testing.T) {
	p := &stubProvider{pages: [][]models.Candle{series(60), nil, series(600)}}
	tr := NewTracker(p)
	_, _ = tr.LoadInitial(context.Background(), "X", candle.Timeframe1m)
	_, _ = tr.LoadMore(context.Background())
	require.False(t, tr.HasMore())

	got, err := tr.LoadInitial(context.Background(), "X", candle.Timeframe5m)
	require.NoError(t, err)
	assert.Equal(t, series(600), got)
	assert.True(t, tr.HasMore())
}

// blockingProvider parks the second call until released.
type blockingProvider struct {
	calls   atomic.Int32
	release chan struct{}
	entered chan struct{}
}

func (b *blockingProvider) FetchCandles(ctx context.Context, req PageRequest) ([]models.Candle, error) {
	if b.calls.Add(1) == 1 {
		return series(600, 660), nil
	}
	close(b.entered)
	select {
	case <-b.release:
		return series(540), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestTracker_SingleLoadMoreInFlight(t *testing.T) {
	p := &blockingProvider{release: make(chan struct{}), entered: make(chan struct{})}
	tr := NewTracker(p)
	_, err := tr.LoadInitial(context.Background(), "X", candle.Timeframe1m)
	require.NoError(t, err)

	done := make(chan []models.Candle)
	go func() {
		got, _ := tr.LoadMore(context.Background())
		done <- got
	}()
	<-p.entered
	assert.True(t, tr.Loading())

	got, err := tr.LoadMore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, series(600, 660), got, "concurrent call is a no-op")

	close(p.release)
	assert.Equal(t, series(540, 600, 660), <-done)
	assert.Equal(t, int32(2), p.calls.Load())
}

func TestTracker_FetchTimeoutClearsLoading(t *testing.T) {
	p := &blockingProvider{release: make(chan struct{}), entered: make(chan struct{})}
	tr := NewTracker(p, WithFetchTimeout(20*time.Millisecond))
	_, err := tr.LoadInitial(context.Background(), "X", candle.Timeframe1m)
	require.NoError(t, err)

	_, err = tr.LoadMore(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, tr.Loading())
	assert.Equal(t, series(600, 660), tr.Candles())
}

// retargetProvider answers initial pages immediately and parks paging calls.
type retargetProvider struct {
	entered chan struct{}
	release chan struct{}
}

func (r *retargetProvider) FetchCandles(ctx context.Context, req PageRequest) ([]models.Candle, error) {
	if req.EndTime == 0 {
		if req.Timeframe == candle.Timeframe5m {
			return series(900), nil
		}
		return series(600, 660), nil
	}
	close(r.entered)
	<-r.release
	return series(540), nil
}

func TestTracker_StaleLoadMoreDiscardedAfterRetarget(t *testing.T) {
	p := &retargetProvider{entered: make(chan struct{}), release: make(chan struct{})}
	tr := NewTracker(p)
	_, err := tr.LoadInitial(context.Background(), "X", candle.Timeframe1m)
	require.NoError(t, err)

	done := make(chan []models.Candle)
	go func() {
		got, _ := tr.LoadMore(context.Background())
		done <- got
	}()
	<-p.entered

	got, err := tr.LoadInitial(context.Background(), "X", candle.Timeframe5m)
	require.NoError(t, err)
	assert.Equal(t, series(900), got)
	assert.False(t, tr.Loading())

	close(p.release)
	assert.Equal(t, series(900), <-done, "stale page is not prepended")
	assert.Equal(t, series(900), tr.Candles())
	assert.True(t, tr.HasMore())
}
