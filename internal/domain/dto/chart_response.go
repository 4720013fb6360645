package dto

import "github.com/guttosm/candlefeed/internal/domain/models"

// ChartResponse represents the JSON structure returned by the
// GET /api/v1/chart/{symbol} and POST /api/v1/chart/{symbol}/more endpoints.
type ChartResponse struct {
	Symbol        string                      `json:"symbol" example:"BTCUSDT"`
	Interval      string                      `json:"interval" example:"1m"`
	Candles       []models.Candle             `json:"candles"`
	MovingAverage []models.MovingAveragePoint `json:"moving_average"`
	HasMore       bool                        `json:"has_more" example:"true"`
}

// NewChartResponse maps a domain chart onto the API contract. Nil slices
// are rendered as empty arrays.
func NewChartResponse(c *models.Chart) ChartResponse {
	resp := ChartResponse{
		Symbol:        c.Symbol,
		Interval:      c.Timeframe,
		Candles:       c.Candles,
		MovingAverage: c.MovingAverage,
		HasMore:       c.HasMore,
	}
	if resp.Candles == nil {
		resp.Candles = []models.Candle{}
	}
	if resp.MovingAverage == nil {
		resp.MovingAverage = []models.MovingAveragePoint{}
	}
	return resp
}

// TicksAcceptedResponse is returned by POST /api/v1/ticks/{symbol}.
type TicksAcceptedResponse struct {
	Symbol   string `json:"symbol" example:"BTCUSDT"`
	Accepted int    `json:"accepted" example:"10"`
	Rejected int    `json:"rejected" example:"1"`
}
