package candle

import (
	"sort"

	"github.com/guttosm/candlefeed/internal/domain/models"
	"github.com/guttosm/candlefeed/internal/logger"
)

// Aggregator folds ticks into one candle per bucket of its timeframe.
//
// Ticks are folded in arrival order: the first tick seen for a bucket fixes
// its open, even if a later-arriving tick carries an earlier timestamp.
// The bucket map is kept between calls so live ticks can be added one at a
// time; Candles always returns the same series the batch Aggregate would
// produce for the full sequence added so far.
//
// An Aggregator is not safe for concurrent use.
type Aggregator struct {
	timeframe Timeframe
	seconds   int64
	buckets   map[int64]*models.Candle
}

// NewAggregator creates an empty aggregator for tf. Unknown timeframes use
// the 1 minute bucket width.
func NewAggregator(tf Timeframe) *Aggregator {
	if !tf.IsKnown() {
		tf = DefaultTimeframe
	}
	return &Aggregator{
		timeframe: tf,
		seconds:   tf.Seconds(),
		buckets:   make(map[int64]*models.Candle),
	}
}

// Timeframe returns the timeframe the aggregator buckets by.
func (a *Aggregator) Timeframe() Timeframe { return a.timeframe }

// Add folds one validated tick into its bucket.
func (a *Aggregator) Add(t models.Tick) {
	start := BucketStart(t.Time, a.seconds)

	c, ok := a.buckets[start]
	if !ok {
		a.buckets[start] = &models.Candle{
			Time:   start,
			Open:   t.Price,
			High:   t.Price,
			Low:    t.Price,
			Close:  t.Price,
			Volume: t.Quantity,
		}
		return
	}

	if t.Price > c.High {
		c.High = t.Price
	}
	if t.Price < c.Low {
		c.Low = t.Price
	}
	c.Close = t.Price
	c.Volume += t.Quantity
}

// AddRaw validates raw and folds it in. A rejected tick leaves the
// aggregator untouched and the validation error is returned.
func (a *Aggregator) AddRaw(raw models.RawTick) error {
	t, err := ValidateTick(raw)
	if err != nil {
		return err
	}
	a.Add(t)
	return nil
}

// Candles returns a fresh copy of the current candles sorted by time.
func (a *Aggregator) Candles() []models.Candle {
	out := make([]models.Candle, 0, len(a.buckets))
	for _, c := range a.buckets {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}

// Len returns the number of buckets seen so far.
func (a *Aggregator) Len() int { return len(a.buckets) }

// Reset drops every bucket.
func (a *Aggregator) Reset() {
	a.buckets = make(map[int64]*models.Candle)
}

// Aggregate buckets raw ticks into candles for tf, in input order.
// Invalid ticks are skipped and logged at debug level; the number of
// skipped ticks is returned alongside the series. Empty input yields an
// empty series.
func Aggregate(raws []models.RawTick, tf Timeframe) ([]models.Candle, int) {
	agg := NewAggregator(tf)
	rejected := 0
	for i, raw := range raws {
		if err := agg.AddRaw(raw); err != nil {
			rejected++
			logger.L().Debug().Int("index", i).Err(err).Str("timeframe", agg.timeframe.String()).Msg("tick rejected")
		}
	}
	return agg.Candles(), rejected
}
