package models

// RawTick is a tick-shaped record exactly as it arrived from a feed, a CSV
// row or an HTTP request body. Fields stay loosely typed (float64, string,
// json.Number, nil) until the tick validator turns the record into a Tick.
//
// swagger:model RawTick
type RawTick struct {
	Price    any `json:"price" swaggertype:"number" example:"50123.45"`
	Quantity any `json:"quantity,omitempty" swaggertype:"number" example:"0.25"`
	Time     any `json:"time" swaggertype:"integer" example:"1732265100"`
}

// Tick is a validated price/quantity observation.
//
// Fields:
//   - Price: finite price of the observation.
//   - Quantity: non-negative traded volume (0 when the feed omits it).
//   - Time: Unix timestamp in seconds, always > 0.
//
// A Tick is only ever produced by candle.ValidateTick; downstream
// components never re-validate it.
type Tick struct {
	Price    float64
	Quantity float64
	Time     float64
}
