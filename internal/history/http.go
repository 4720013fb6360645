package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/guttosm/candlefeed/internal/domain/models"
)

// HTTPProvider fetches candle pages from a remote candlefeed-compatible API:
//
//	GET {base}/api/candles/{symbol}?interval={tf}&limit={n}[&end_time={ts}]
//
// The response body is a JSON array of candles.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
}

// NewHTTPProvider builds a provider rooted at baseURL. A nil client uses a
// client with the given timeout.
func NewHTTPProvider(baseURL string, client *http.Client, timeout time.Duration) *HTTPProvider {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPProvider{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// FetchCandles implements Provider. Results are returned sorted by time.
func (p *HTTPProvider) FetchCandles(ctx context.Context, req PageRequest) ([]models.Candle, error) {
	req = req.Normalize()

	q := url.Values{}
	q.Set("interval", req.Timeframe.String())
	q.Set("limit", strconv.Itoa(req.Limit))
	if req.EndTime > 0 {
		q.Set("end_time", strconv.FormatInt(req.EndTime, 10))
	}
	endpoint := fmt.Sprintf("%s/api/candles/%s?%s", p.baseURL, url.PathEscape(req.Symbol), q.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build history request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %d", ErrProviderStatus, resp.StatusCode)
	}

	var candles []models.Candle
	if err := json.NewDecoder(resp.Body).Decode(&candles); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	sort.Slice(candles, func(i, j int) bool { return candles[i].Time < candles[j].Time })
	return candles, nil
}
