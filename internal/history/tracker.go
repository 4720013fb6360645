package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/guttosm/candlefeed/internal/candle"
	"github.com/guttosm/candlefeed/internal/domain/models"
)

// DefaultFetchTimeout bounds one page fetch when no timeout is configured.
const DefaultFetchTimeout = 10 * time.Second

// Tracker accumulates historical candles for one (symbol, timeframe) as a
// consumer scrolls back in time. It is safe for concurrent use; at most one
// LoadMore fetch is in flight at a time.
type Tracker struct {
	provider Provider
	limit    int
	timeout  time.Duration

	mu         sync.Mutex
	symbol     string
	timeframe  candle.Timeframe
	candles    []models.Candle
	hasMore    bool
	loading    bool
	generation uint64
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithPageLimit sets the page size requested from the provider.
func WithPageLimit(n int) TrackerOption {
	return func(t *Tracker) {
		if n > 0 {
			t.limit = n
		}
	}
}

// WithFetchTimeout bounds every provider call. A hung fetch is cancelled and
// reported as an error, which clears the in-flight flag.
func WithFetchTimeout(d time.Duration) TrackerOption {
	return func(t *Tracker) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// NewTracker creates an empty tracker backed by provider.
func NewTracker(provider Provider, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		provider:  provider,
		limit:     DefaultPageLimit,
		timeout:   DefaultFetchTimeout,
		timeframe: candle.DefaultTimeframe,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// LoadInitial fetches the most recent page for symbol and tf and replaces
// the accumulated series with it. The "more data" flag is reset to true.
// On error the previous state is kept.
func (t *Tracker) LoadInitial(ctx context.Context, symbol string, tf candle.Timeframe) ([]models.Candle, error) {
	tf = candle.ParseTimeframe(string(tf))

	t.mu.Lock()
	t.generation++
	gen := t.generation
	// Any LoadMore still in flight targets the old series and is discarded.
	t.loading = false
	t.mu.Unlock()

	page, err := t.fetch(ctx, PageRequest{Symbol: symbol, Timeframe: tf, Limit: t.limit})
	if err != nil {
		return nil, err
	}
	page = normalizePage(page, 0)

	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.generation {
		// A newer LoadInitial retargeted the tracker while we were fetching.
		return cloneCandles(t.candles), nil
	}
	t.symbol = symbol
	t.timeframe = tf
	t.candles = page
	t.hasMore = true
	return cloneCandles(t.candles), nil
}

// LoadMore fetches the page preceding the oldest loaded candle and prepends
// the strictly older part of it. It is a no-op returning the current series
// when a load is already in flight, when the series is exhausted, or when
// nothing has been loaded yet. An empty filtered page marks the series as
// exhausted. A failed fetch leaves the series and flags untouched apart from
// clearing the in-flight flag.
func (t *Tracker) LoadMore(ctx context.Context) ([]models.Candle, error) {
	t.mu.Lock()
	if t.loading || !t.hasMore || len(t.candles) == 0 {
		out := cloneCandles(t.candles)
		t.mu.Unlock()
		return out, nil
	}
	t.loading = true
	gen := t.generation
	anchor := t.candles[0].Time
	req := PageRequest{Symbol: t.symbol, Timeframe: t.timeframe, Limit: t.limit, EndTime: anchor}
	t.mu.Unlock()

	page, err := t.fetch(ctx, req)

	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.generation {
		return cloneCandles(t.candles), nil
	}
	t.loading = false
	if err != nil {
		return nil, err
	}

	older := normalizePage(page, anchor)
	if len(older) == 0 {
		t.hasMore = false
		return cloneCandles(t.candles), nil
	}
	t.candles = append(older, t.candles...)
	return cloneCandles(t.candles), nil
}

// Candles returns a copy of the accumulated series, oldest first.
func (t *Tracker) Candles() []models.Candle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return cloneCandles(t.candles)
}

// HasMore reports whether older pages may still exist.
func (t *Tracker) HasMore() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hasMore
}

// Loading reports whether a LoadMore fetch is in flight.
func (t *Tracker) Loading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loading
}

func (t *Tracker) fetch(ctx context.Context, req PageRequest) ([]models.Candle, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.provider.FetchCandles(ctx, req)
}

// normalizePage drops candles with a non-positive time or, when before is
// positive, at or after before; the rest is sorted ascending and unique by
// time (last occurrence wins).
func normalizePage(page []models.Candle, before int64) []models.Candle {
	byTime := make(map[int64]models.Candle, len(page))
	for _, c := range page {
		if c.Time <= 0 || (before > 0 && c.Time >= before) {
			continue
		}
		byTime[c.Time] = c
	}
	out := make([]models.Candle, 0, len(byTime))
	for _, c := range byTime {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}

func cloneCandles(in []models.Candle) []models.Candle {
	out := make([]models.Candle, len(in))
	copy(out, in)
	return out
}
