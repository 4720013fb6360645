package ingestion

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/guttosm/candlefeed/internal/candle"
	"github.com/guttosm/candlefeed/internal/domain/models"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return p
}

var testDay = time.Date(2025, 9, 11, 0, 0, 0, 0, time.UTC)

func ts(offset int64) string {
	return strconv.FormatInt(testDay.Unix()+offset, 10)
}

func TestParseTickFile_TableDriven(t *testing.T) {
	dir := t.TempDir()
	validHeader := "time,price,quantity\n"

	cases := []struct {
		name        string
		content     string
		wantErr     bool
		wantTicks   int
		wantDropped int
	}{
		{name: "ok single row", content: validHeader + ts(10) + ",100.5,2\n", wantTicks: 1},
		{name: "header case and spaces tolerated", content: " Time, PRICE ,quantity\n" + ts(10) + ",1,1\n", wantTicks: 1},
		{name: "header only", content: validHeader, wantTicks: 0},
		{name: "bad header order", content: "price,time,quantity\n", wantErr: true},
		{name: "bad header length", content: "time,price\n", wantErr: true},
		{name: "empty file", content: "", wantErr: true},
		{name: "bad col count", content: validHeader + ts(10) + ",1\n", wantErr: true},
		{name: "empty quantity tolerated", content: validHeader + ts(10) + ",1,\n", wantTicks: 1},
		{name: "invalid price dropped", content: validHeader + ts(10) + ",abc,1\n" + ts(20) + ",2,1\n", wantTicks: 1, wantDropped: 1},
		{name: "invalid time dropped", content: validHeader + "-5,1,1\n" + ts(20) + ",2,1\n", wantTicks: 1, wantDropped: 1},
		{name: "milliseconds accepted", content: validHeader + ts(30) + "000,1,1\n", wantTicks: 1},
		{name: "outside day dropped", content: validHeader + ts(-1) + ",1,1\n" + ts(86400) + ",1,1\n" + ts(86399) + ",1,1\n", wantTicks: 1, wantDropped: 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeTempFile(t, dir, "file.csv", tc.content)
			out, err := parseTickFile(context.Background(), path, testDay)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if len(out.ticks) != tc.wantTicks {
				t.Fatalf("ticks: want %d got %d", tc.wantTicks, len(out.ticks))
			}
			if out.dropped != tc.wantDropped {
				t.Fatalf("dropped: want %d got %d", tc.wantDropped, out.dropped)
			}
		})
	}
}

func TestParseTickFile_MissingFile(t *testing.T) {
	if _, err := parseTickFile(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), testDay); err == nil {
		t.Fatalf("expected open error")
	}
}

func TestParseTickFile_ContextCanceled(t *testing.T) {
	dir := t.TempDir()
	// many rows to ensure loop would run if not canceled
	var b strings.Builder
	b.WriteString("time,price,quantity\n")
	for i := 0; i < 1000; i++ {
		b.WriteString(ts(int64(i)) + ",10.5,1\n")
	}
	path := writeTempFile(t, dir, "big.csv", b.String())

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // immediately canceled
	if _, err := parseTickFile(ctx, path, testDay); err == nil {
		t.Fatalf("expected context canceled error")
	}
}

func TestAggregateTicks_EveryTimeframe(t *testing.T) {
	base := float64(testDay.Unix())
	ticks := []models.Tick{
		{Price: 10, Quantity: 1, Time: base + 10},
		{Price: 12, Quantity: 1, Time: base + 70},
		{Price: 9, Quantity: 2, Time: base + 3700},
	}

	out := aggregateTicks(ticks, candle.Timeframes())

	want := map[candle.Timeframe]int{
		candle.Timeframe1m:  3,
		candle.Timeframe3m:  2,
		candle.Timeframe5m:  2,
		candle.Timeframe15m: 2,
		candle.Timeframe30m: 2,
		candle.Timeframe1h:  2,
		candle.Timeframe4h:  1,
		candle.Timeframe1d:  1,
	}
	for tf, n := range want {
		if len(out[tf]) != n {
			t.Fatalf("%s: want %d candles got %d", tf, n, len(out[tf]))
		}
	}
	day := out[candle.Timeframe1d][0]
	if day.Open != 10 || day.High != 12 || day.Low != 9 || day.Close != 9 || day.Volume != 4 {
		t.Fatalf("unexpected daily candle: %+v", day)
	}
}

func TestParseFileName(t *testing.T) {
	cases := []struct {
		name   string
		ok     bool
		symbol string
	}{
		{name: "BTCUSDT_2025-09-11.csv", ok: true, symbol: "BTCUSDT"},
		{name: "ethusdt_2025-01-02.csv", ok: true, symbol: "ETHUSDT"},
		{name: "BTCUSDT_2025-13-40.csv", ok: false},
		{name: "BTCUSDT-2025-09-11.csv", ok: false},
		{name: "notes.csv", ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, ok := parseFileName(tc.name)
			if ok != tc.ok {
				t.Fatalf("ok=%v want %v", ok, tc.ok)
			}
			if ok && f.symbol != tc.symbol {
				t.Fatalf("symbol=%q want %q", f.symbol, tc.symbol)
			}
		})
	}
}
