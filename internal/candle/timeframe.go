// Package candle turns streams of price observations into OHLCV candles.
//
// It holds the tick validator, the batch and streaming aggregators, the
// merger that joins historical and live series, and the moving-average
// calculator. Everything here is synchronous and in-memory; callers own
// any locking.
package candle

import (
	"math"
	"sort"
	"strings"
)

// Timeframe is a candle bucket width selector such as "1m" or "4h".
type Timeframe string

// Supported timeframes.
const (
	Timeframe1m  Timeframe = "1m"
	Timeframe3m  Timeframe = "3m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe30m Timeframe = "30m"
	Timeframe1h  Timeframe = "1h"
	Timeframe4h  Timeframe = "4h"
	Timeframe1d  Timeframe = "1d"
)

// DefaultTimeframe is used whenever a timeframe string is not recognised.
const DefaultTimeframe = Timeframe1m

var bucketSeconds = map[Timeframe]int64{
	Timeframe1m:  60,
	Timeframe3m:  180,
	Timeframe5m:  300,
	Timeframe15m: 900,
	Timeframe30m: 1800,
	Timeframe1h:  3600,
	Timeframe4h:  14400,
	Timeframe1d:  86400,
}

// ParseTimeframe normalises s into a supported Timeframe. Unknown or empty
// input falls back to DefaultTimeframe; this is not an error.
func ParseTimeframe(s string) Timeframe {
	tf := Timeframe(strings.TrimSpace(s))
	if _, ok := bucketSeconds[tf]; ok {
		return tf
	}
	return DefaultTimeframe
}

// IsKnown reports whether tf is one of the supported timeframes.
func (tf Timeframe) IsKnown() bool {
	_, ok := bucketSeconds[tf]
	return ok
}

// Seconds returns the bucket width of tf, 60 for unknown values.
func (tf Timeframe) Seconds() int64 {
	if s, ok := bucketSeconds[tf]; ok {
		return s
	}
	return bucketSeconds[DefaultTimeframe]
}

func (tf Timeframe) String() string { return string(tf) }

// Timeframes returns every supported timeframe, narrowest first.
func Timeframes() []Timeframe {
	out := make([]Timeframe, 0, len(bucketSeconds))
	for tf := range bucketSeconds {
		out = append(out, tf)
	}
	sort.Slice(out, func(i, j int) bool { return bucketSeconds[out[i]] < bucketSeconds[out[j]] })
	return out
}

// BucketStart returns floor(ts / seconds) * seconds.
func BucketStart(ts float64, seconds int64) int64 {
	return int64(math.Floor(ts/float64(seconds))) * seconds
}
