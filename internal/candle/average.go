package candle

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/guttosm/candlefeed/internal/domain/models"
)

// maPrecision is the number of decimal places moving-average values keep.
const maPrecision = 4

// MovingAverage computes the simple moving average of close prices over a
// trailing window of period candles. Each point carries the time of the
// last candle of its window, so the result has len(candles)-period+1
// points. Fewer candles than period, or period < 1, yields an empty slice.
//
// A window containing a NaN or infinite close has no defined mean and is
// skipped, so such input yields fewer points.
func MovingAverage(candles []models.Candle, period int) []models.MovingAveragePoint {
	if period < 1 || len(candles) < period {
		return []models.MovingAveragePoint{}
	}

	out := make([]models.MovingAveragePoint, 0, len(candles)-period+1)
	divisor := decimal.NewFromInt(int64(period))
	sum := decimal.Zero

	bad := 0 // non-finite closes inside the current window
	for i, c := range candles {
		if finite(c.Close) {
			sum = sum.Add(decimal.NewFromFloat(c.Close))
		} else {
			bad++
		}
		if i >= period {
			if old := candles[i-period].Close; finite(old) {
				sum = sum.Sub(decimal.NewFromFloat(old))
			} else {
				bad--
			}
		}
		if i < period-1 || bad > 0 {
			continue
		}
		mean := sum.Div(divisor).Round(maPrecision)
		out = append(out, models.MovingAveragePoint{Time: c.Time, Value: mean.InexactFloat64()})
	}
	return out
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
