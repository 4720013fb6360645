package candle

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guttosm/candlefeed/internal/domain/models"
)

func TestValidateTick(t *testing.T) {
	cases := []struct {
		name    string
		raw     models.RawTick
		want    models.Tick
		wantErr error
	}{
		{name: "numbers", raw: models.RawTick{Price: 100.5, Quantity: 2.0, Time: 30.0}, want: models.Tick{Price: 100.5, Quantity: 2, Time: 30}},
		{name: "numeric strings", raw: models.RawTick{Price: "50123.45", Quantity: "0.25", Time: "1732265100"}, want: models.Tick{Price: 50123.45, Quantity: 0.25, Time: 1732265100}},
		{name: "json number", raw: models.RawTick{Price: json.Number("10"), Time: json.Number("20")}, want: models.Tick{Price: 10, Time: 20}},
		{name: "ints", raw: models.RawTick{Price: 7, Quantity: int64(3), Time: int64(90)}, want: models.Tick{Price: 7, Quantity: 3, Time: 90}},
		{name: "milliseconds", raw: models.RawTick{Price: 1.0, Time: 1732265100123.0}, want: models.Tick{Price: 1, Time: 1732265100.123}},
		{name: "missing quantity", raw: models.RawTick{Price: 1.0, Time: 1.0}, want: models.Tick{Price: 1, Time: 1}},
		{name: "negative quantity", raw: models.RawTick{Price: 1.0, Quantity: -5.0, Time: 1.0}, want: models.Tick{Price: 1, Time: 1}},
		{name: "garbage quantity", raw: models.RawTick{Price: 1.0, Quantity: "x", Time: 1.0}, want: models.Tick{Price: 1, Time: 1}},
		{name: "negative price allowed", raw: models.RawTick{Price: -1.0, Time: 1.0}, want: models.Tick{Price: -1, Time: 1}},
		{name: "non numeric price", raw: models.RawTick{Price: "abc", Time: 10.0}, wantErr: ErrInvalidPrice},
		{name: "nan price", raw: models.RawTick{Price: math.NaN(), Time: 10.0}, wantErr: ErrInvalidPrice},
		{name: "inf price string", raw: models.RawTick{Price: "Inf", Time: 10.0}, wantErr: ErrInvalidPrice},
		{name: "bool price", raw: models.RawTick{Price: true, Time: 10.0}, wantErr: ErrInvalidPrice},
		{name: "zero time", raw: models.RawTick{Price: 1.0, Time: 0.0}, wantErr: ErrInvalidTime},
		{name: "negative time", raw: models.RawTick{Price: 1.0, Time: -60.0}, wantErr: ErrInvalidTime},
		{name: "nan time", raw: models.RawTick{Price: 1.0, Time: math.NaN()}, wantErr: ErrInvalidTime},
		{name: "time beyond int64 seconds", raw: models.RawTick{Price: 1.0, Time: 1e300}, wantErr: ErrInvalidTime},
		{name: "inf time", raw: models.RawTick{Price: 1.0, Time: math.Inf(1)}, wantErr: ErrInvalidTime},
		{name: "non numeric time", raw: models.RawTick{Price: 1.0, Time: "yesterday"}, wantErr: ErrInvalidTime},
		{name: "missing price", raw: models.RawTick{Time: 1.0}, wantErr: ErrMalformedTick},
		{name: "missing time", raw: models.RawTick{Price: 1.0}, wantErr: ErrMalformedTick},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidateTick(tc.raw)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tc.want.Price, got.Price, 1e-9)
			assert.InDelta(t, tc.want.Quantity, got.Quantity, 1e-9)
			assert.InDelta(t, tc.want.Time, got.Time, 1e-6)
		})
	}
}
