package feed

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guttosm/candlefeed/internal/domain/models"
)

func TestDecodeMessage(t *testing.T) {
	now := time.Unix(1700000000, 987000000)

	cases := []struct {
		name    string
		payload string
		want    Update
	}{
		{
			name:    "price update",
			payload: `{"type":"price_update","data":{"symbol":"BTCUSDT","price":50000.5,"quantity":0.1,"timestamp":1700000001000}}`,
			want:    Update{Symbol: "BTCUSDT", Tick: models.RawTick{Price: json.Number("50000.5"), Quantity: json.Number("0.1"), Time: json.Number("1700000001000")}},
		},
		{
			name:    "last_price fallback",
			payload: `{"type":"price_update","data":{"symbol":"ETHUSDT","last_price":"3000","qty":"2","time":1700000002}}`,
			want:    Update{Symbol: "ETHUSDT", Tick: models.RawTick{Price: "3000", Quantity: "2", Time: json.Number("1700000002")}},
		},
		{
			name:    "price_usd fallback and arrival time",
			payload: `{"type":"price_update","data":{"symbol":"SOLUSDT","price_usd":150}}`,
			want:    Update{Symbol: "SOLUSDT", Tick: models.RawTick{Price: json.Number("150"), Time: float64(1700000000)}},
		},
		{
			name:    "price data",
			payload: `{"type":"price_data","symbol":"BTCUSDT","price":49999}`,
			want:    Update{Symbol: "BTCUSDT", Tick: models.RawTick{Price: json.Number("49999"), Time: float64(1700000000)}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeMessage([]byte(tc.payload), now)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeMessage_Unsupported(t *testing.T) {
	for _, payload := range []string{
		`{"type":"subscription_confirmed","channel":"price_BTCUSDT"}`,
		`{"type":"pong"}`,
		`{}`,
	} {
		_, err := DecodeMessage([]byte(payload), time.Now())
		assert.ErrorIs(t, err, ErrUnsupportedMessage, payload)
	}
}

func TestDecodeMessage_Malformed(t *testing.T) {
	_, err := DecodeMessage([]byte(`not json`), time.Now())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsupportedMessage)

	_, err = DecodeMessage([]byte(`{"type":"price_update"}`), time.Now())
	require.Error(t, err)

	_, err = DecodeMessage([]byte(`{"type":"price_update","data":[1,2]}`), time.Now())
	require.Error(t, err)
}
