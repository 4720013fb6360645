package candle

import (
	"sort"

	"github.com/guttosm/candlefeed/internal/domain/models"
)

// Merge joins a historical series with a live one into a new series that is
// unique by time and sorted ascending. Live candles replace historical ones
// at the same time. Candles with a non-positive time are dropped. Neither
// input is modified.
func Merge(historical, live []models.Candle) []models.Candle {
	byTime := make(map[int64]models.Candle, len(historical)+len(live))
	for _, c := range historical {
		if c.Time > 0 {
			byTime[c.Time] = c
		}
	}
	for _, c := range live {
		if c.Time > 0 {
			byTime[c.Time] = c
		}
	}

	out := make([]models.Candle, 0, len(byTime))
	for _, c := range byTime {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}
