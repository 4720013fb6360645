package candle

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/guttosm/candlefeed/internal/domain/models"
)

var (
	// ErrMalformedTick is returned when a required tick field is missing.
	ErrMalformedTick = errors.New("malformed tick")
	// ErrInvalidPrice is returned when the price is not a finite number.
	ErrInvalidPrice = errors.New("invalid tick price")
	// ErrInvalidTime is returned when the time is not a positive finite number.
	ErrInvalidTime = errors.New("invalid tick time")
)

// millisThreshold separates second timestamps from millisecond ones.
// 1e12 seconds is tens of thousands of years away; 1e12 ms is 2001.
const millisThreshold = 1e12

// maxUnixSeconds is the first time that no longer fits int64 seconds.
const maxUnixSeconds = float64(math.MaxInt64)

// ValidateTick turns a raw record into a Tick or reports why it cannot.
//
// Rules:
//   - price must be a finite number (numbers, json.Number and numeric strings are accepted).
//   - time must be a positive finite number; values >= 1e12 are read as milliseconds,
//     and the result must fit int64 seconds.
//   - quantity defaults to 0 when absent, non-numeric, non-finite or negative.
//
// A rejected tick is never fatal: callers log it and move on.
func ValidateTick(raw models.RawTick) (models.Tick, error) {
	if raw.Price == nil {
		return models.Tick{}, fmt.Errorf("%w: missing price", ErrMalformedTick)
	}
	if raw.Time == nil {
		return models.Tick{}, fmt.Errorf("%w: missing time", ErrMalformedTick)
	}

	price, ok := toFloat(raw.Price)
	if !ok {
		return models.Tick{}, fmt.Errorf("%w: %v", ErrInvalidPrice, raw.Price)
	}

	ts, ok := toFloat(raw.Time)
	if !ok || ts <= 0 {
		return models.Tick{}, fmt.Errorf("%w: %v", ErrInvalidTime, raw.Time)
	}
	if ts >= millisThreshold {
		ts /= 1000
	}
	if ts >= maxUnixSeconds {
		return models.Tick{}, fmt.Errorf("%w: %v out of range", ErrInvalidTime, raw.Time)
	}

	qty, ok := toFloat(raw.Quantity)
	if !ok || qty < 0 {
		qty = 0
	}

	return models.Tick{Price: price, Quantity: qty, Time: ts}, nil
}

// toFloat converts the loosely typed values produced by JSON decoding and
// CSV parsing into a finite float64.
func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
