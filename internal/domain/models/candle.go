package models

// Candle is an OHLCV aggregate over one bucket of a timeframe.
// Time is the bucket start in Unix seconds and identifies the candle
// within one timeframe.
//
// swagger:model Candle
type Candle struct {
	Time   int64   `json:"time" example:"1732265100"`
	Open   float64 `json:"open" example:"50100.00"`
	High   float64 `json:"high" example:"50150.00"`
	Low    float64 `json:"low" example:"50080.00"`
	Close  float64 `json:"close" example:"50123.45"`
	Volume float64 `json:"volume" example:"12.5"`
}

// MovingAveragePoint is one value of a simple moving average, aligned to
// the time of the last candle in its trailing window.
//
// swagger:model MovingAveragePoint
type MovingAveragePoint struct {
	Time  int64   `json:"time" example:"1732265100"`
	Value float64 `json:"value" example:"50110.1234"`
}

// Chart is the merged candle series of one (symbol, timeframe) pair plus
// its optional moving-average overlay and pagination state.
type Chart struct {
	Symbol        string
	Timeframe     string
	Candles       []Candle
	MovingAverage []MovingAveragePoint
	HasMore       bool
}
