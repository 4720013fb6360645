// Package feed consumes the live price stream over a websocket and turns
// its notifications into raw ticks.
package feed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/guttosm/candlefeed/internal/domain/models"
)

// Message types understood on the stream.
const (
	TypePriceUpdate     = "price_update"
	TypePriceData       = "price_data"
	TypeSubscribeSymbol = "subscribe_symbol"
)

// ErrUnsupportedMessage is returned for notifications that carry no tick,
// such as subscription confirmations or pongs.
var ErrUnsupportedMessage = errors.New("unsupported feed message")

// SubscribeMessage asks the stream for one symbol's price updates.
type SubscribeMessage struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
}

// Update is a decoded tick notification.
type Update struct {
	Symbol string
	Tick   models.RawTick
}

type envelope struct {
	Type   string          `json:"type"`
	Symbol string          `json:"symbol"`
	Data   json.RawMessage `json:"data"`
	pricePayload
}

type pricePayload struct {
	Symbol    string `json:"symbol"`
	Price     any    `json:"price"`
	LastPrice any    `json:"last_price"`
	PriceUSD  any    `json:"price_usd"`
	Quantity  any    `json:"quantity"`
	Qty       any    `json:"qty"`
	Time      any    `json:"time"`
	Timestamp any    `json:"timestamp"`
}

// DecodeMessage extracts a raw tick from one stream notification.
//
// price_update carries its fields under "data" and names the price price,
// last_price or price_usd (first present wins). price_data carries price at
// the top level. A notification without a time is stamped with now, in
// whole seconds. Values are passed through untouched; validation happens
// when the tick is aggregated.
func DecodeMessage(payload []byte, now time.Time) (Update, error) {
	var env envelope
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&env); err != nil {
		return Update{}, fmt.Errorf("decode feed message: %w", err)
	}

	var p pricePayload
	switch env.Type {
	case TypePriceUpdate:
		if len(env.Data) == 0 {
			return Update{}, fmt.Errorf("decode feed message: %s without data", env.Type)
		}
		dec := json.NewDecoder(bytes.NewReader(env.Data))
		dec.UseNumber()
		if err := dec.Decode(&p); err != nil {
			return Update{}, fmt.Errorf("decode feed message data: %w", err)
		}
	case TypePriceData:
		p = env.pricePayload
	default:
		return Update{}, fmt.Errorf("%w: %q", ErrUnsupportedMessage, env.Type)
	}

	symbol := p.Symbol
	if symbol == "" {
		symbol = env.Symbol
	}

	ts := firstPresent(p.Time, p.Timestamp)
	if ts == nil {
		ts = float64(now.Unix())
	}

	return Update{
		Symbol: symbol,
		Tick: models.RawTick{
			Price:    firstPresent(p.Price, p.LastPrice, p.PriceUSD),
			Quantity: firstPresent(p.Quantity, p.Qty),
			Time:     ts,
		},
	}, nil
}

func firstPresent(vals ...any) any {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
