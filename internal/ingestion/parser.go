package ingestion

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/guttosm/candlefeed/internal/candle"
	"github.com/guttosm/candlefeed/internal/domain/models"
	"github.com/guttosm/candlefeed/internal/logger"
)

// expectedHeaders enforces strict column ordering for tick files.
// If the header doesn't match EXACTLY (order + count), ingestion must fail.
var expectedHeaders = []string{"time", "price", "quantity"}

// parsedFile is the validated content of one tick file.
type parsedFile struct {
	ticks   []models.Tick
	dropped int
}

// parseTickFile opens, validates and parses one tick file.
// It fails on:
//   - header not matching expected order/length
//   - a row with the wrong column count
//   - unrecoverable I/O errors
//
// It drops (and counts):
//   - rows rejected by the tick validator
//   - rows whose time falls outside [dayStart, dayStart+24h)
func parseTickFile(ctx context.Context, path string, dayStart time.Time) (parsedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return parsedFile{}, fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1 // allow variable but we’ll check explicitly

	header, err := r.Read()
	if err != nil {
		return parsedFile{}, fmt.Errorf("read header: %w", err)
	}
	if len(header) != len(expectedHeaders) {
		return parsedFile{}, fmt.Errorf("invalid header length: expected %d, got %d", len(expectedHeaders), len(header))
	}
	for i, h := range header {
		if strings.ToLower(strings.TrimSpace(h)) != expectedHeaders[i] {
			return parsedFile{}, fmt.Errorf("invalid header at col %d: expected %q, got %q", i+1, expectedHeaders[i], h)
		}
	}

	from := float64(dayStart.Unix())
	to := float64(dayStart.Add(24 * time.Hour).Unix())

	var out parsedFile
	lineNumber := 1 // header already read

	for {
		select {
		case <-ctx.Done():
			return parsedFile{}, ctx.Err()
		default:
		}

		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return parsedFile{}, fmt.Errorf("read line after %d: %w", lineNumber, err)
		}
		lineNumber++

		if len(rec) != len(expectedHeaders) {
			return parsedFile{}, fmt.Errorf("invalid column count on line %d: expected %d got %d", lineNumber, len(expectedHeaders), len(rec))
		}

		raw := models.RawTick{Time: rec[0], Price: rec[1]}
		if q := strings.TrimSpace(rec[2]); q != "" {
			raw.Quantity = q
		}
		tick, err := candle.ValidateTick(raw)
		if err != nil {
			out.dropped++
			logger.L().Debug().Str("file", path).Int("line", lineNumber).Err(err).Msg("tick dropped")
			continue
		}
		if tick.Time < from || tick.Time >= to {
			out.dropped++
			logger.L().Debug().Str("file", path).Int("line", lineNumber).Float64("time", tick.Time).Msg("tick outside file day")
			continue
		}
		out.ticks = append(out.ticks, tick)
	}

	return out, nil
}

// aggregateTicks folds ticks into one series per timeframe.
func aggregateTicks(ticks []models.Tick, timeframes []candle.Timeframe) map[candle.Timeframe][]models.Candle {
	out := make(map[candle.Timeframe][]models.Candle, len(timeframes))
	for _, tf := range timeframes {
		agg := candle.NewAggregator(tf)
		for _, t := range ticks {
			agg.Add(t)
		}
		out[agg.Timeframe()] = agg.Candles()
	}
	return out
}
