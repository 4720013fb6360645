package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/candlefeed/internal/candle"
	"github.com/guttosm/candlefeed/internal/domain/dto"
	"github.com/guttosm/candlefeed/internal/domain/models"
	"github.com/guttosm/candlefeed/internal/history"
	"github.com/guttosm/candlefeed/internal/logger"
	"github.com/guttosm/candlefeed/internal/service"
)

// maxTicksPerRequest bounds the batch accepted by PostTicks.
const maxTicksPerRequest = 5000

// Handler provides HTTP handlers for candle and chart endpoints.
//
// Responsibilities:
//   - Validate path and query parameters
//   - Delegate to the chart service
//   - Translate results into response DTOs with appropriate HTTP status codes
type Handler struct {
	svc service.ChartService
}

// NewHandler constructs a new Handler instance.
func NewHandler(svc service.ChartService) *Handler {
	return &Handler{svc: svc}
}

// GetCandles godoc
// @Summary      Historical candles
// @Description  Returns up to limit candles for the symbol, oldest first. end_time pages backwards: only candles strictly older than it are returned.
// @Tags         candles
// @Produce      json
// @Param        symbol    path      string  true   "Trading symbol" example(BTCUSDT)
// @Param        interval  query     string  false  "Timeframe (1m,3m,5m,15m,30m,1h,4h,1d); unknown values use 1m" default(1m)
// @Param        limit     query     int     false  "Page size (1-1000)" default(100)
// @Param        end_time  query     int     false  "Exclusive upper bound, Unix seconds"
// @Success      200       {array}   models.Candle
// @Failure      400       {object}  dto.ErrorResponse  "Bad Request"
// @Failure      404       {object}  dto.ErrorResponse  "Symbol not served"
// @Failure      429       {object}  dto.ErrorResponse  "Symbol limit reached"
// @Failure      502       {object}  dto.ErrorResponse  "Upstream history provider failed"
// @Failure      500       {object}  dto.ErrorResponse  "Internal Error"
// @Router       /api/candles/{symbol} [get]
func (h *Handler) GetCandles(c *gin.Context) {
	// ─── Validate params ──────────────────────────────────────
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("symbol is required", nil))
		return
	}

	limit := history.DefaultPageLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > history.MaxPageLimit {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse("limit must be an integer between 1 and 1000", err))
			return
		}
		limit = n
	}

	var endTime int64
	if s := c.Query("end_time"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse("end_time must be a positive Unix timestamp", err))
			return
		}
		endTime = n
	}

	// ─── Query service (with request context) ─────────────────
	candles, err := h.svc.History(c.Request.Context(), history.PageRequest{
		Symbol:    symbol,
		Timeframe: candle.ParseTimeframe(c.Query("interval")),
		Limit:     limit,
		EndTime:   endTime,
	})
	if err != nil {
		h.renderServiceError(c, "failed to fetch candles", err)
		return
	}
	if candles == nil {
		candles = []models.Candle{}
	}

	c.JSON(http.StatusOK, candles)
}

// GetChart godoc
// @Summary      Chart series
// @Description  Returns historical and live candles merged for the symbol and timeframe, with a simple moving average of closes.
// @Tags         chart
// @Produce      json
// @Param        symbol     path      string  true   "Trading symbol" example(BTCUSDT)
// @Param        interval   query     string  false  "Timeframe" default(1m)
// @Param        ma_period  query     int     false  "Moving average window; defaults to the configured period"
// @Success      200        {object}  dto.ChartResponse
// @Failure      400        {object}  dto.ErrorResponse  "Bad Request"
// @Failure      404        {object}  dto.ErrorResponse  "Symbol not served"
// @Failure      429        {object}  dto.ErrorResponse  "Symbol limit reached"
// @Failure      502        {object}  dto.ErrorResponse  "Upstream history provider failed"
// @Failure      500        {object}  dto.ErrorResponse  "Internal Error"
// @Router       /api/v1/chart/{symbol} [get]
func (h *Handler) GetChart(c *gin.Context) {
	symbol, tf, period, ok := chartParams(c)
	if !ok {
		return
	}

	chart, err := h.svc.Chart(c.Request.Context(), symbol, tf, period)
	if err != nil {
		h.renderServiceError(c, "failed to build chart", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewChartResponse(chart))
}

// LoadMore godoc
// @Summary      Load older candles
// @Description  Extends the chart one history page back. When history is exhausted the series is returned unchanged with has_more=false.
// @Tags         chart
// @Produce      json
// @Param        symbol     path      string  true   "Trading symbol" example(BTCUSDT)
// @Param        interval   query     string  false  "Timeframe" default(1m)
// @Param        ma_period  query     int     false  "Moving average window"
// @Success      200        {object}  dto.ChartResponse
// @Failure      400        {object}  dto.ErrorResponse  "Bad Request"
// @Failure      404        {object}  dto.ErrorResponse  "Symbol not served"
// @Failure      429        {object}  dto.ErrorResponse  "Symbol limit reached"
// @Failure      502        {object}  dto.ErrorResponse  "Upstream history provider failed"
// @Failure      500        {object}  dto.ErrorResponse  "Internal Error"
// @Router       /api/v1/chart/{symbol}/more [post]
func (h *Handler) LoadMore(c *gin.Context) {
	symbol, tf, period, ok := chartParams(c)
	if !ok {
		return
	}

	chart, err := h.svc.LoadMore(c.Request.Context(), symbol, tf, period)
	if err != nil {
		h.renderServiceError(c, "failed to load more candles", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewChartResponse(chart))
}

// PostTicks godoc
// @Summary      Push live ticks
// @Description  Folds a batch of raw ticks into the live candles of the symbol. Invalid ticks are counted and skipped.
// @Tags         ticks
// @Accept       json
// @Produce      json
// @Param        symbol  path      string            true  "Trading symbol" example(BTCUSDT)
// @Param        ticks   body      []models.RawTick  true  "Ticks"
// @Success      202     {object}  dto.TicksAcceptedResponse
// @Failure      400     {object}  dto.ErrorResponse  "Bad Request"
// @Failure      404     {object}  dto.ErrorResponse  "Symbol not served"
// @Failure      429     {object}  dto.ErrorResponse  "Symbol limit reached"
// @Router       /api/v1/ticks/{symbol} [post]
func (h *Handler) PostTicks(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("symbol is required", nil))
		return
	}

	var ticks []models.RawTick
	if err := c.ShouldBindJSON(&ticks); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("body must be a JSON array of ticks", err))
		return
	}
	if len(ticks) > maxTicksPerRequest {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("too many ticks in one request", nil))
		return
	}

	resp := dto.TicksAcceptedResponse{Symbol: symbol}
	for i, raw := range ticks {
		if err := h.svc.IngestTick(symbol, raw); err != nil {
			if errors.Is(err, service.ErrUnknownSymbol) || errors.Is(err, service.ErrSymbolLimit) {
				h.renderServiceError(c, "symbol not accepted", err)
				return
			}
			resp.Rejected++
			logger.L().Debug().Str("symbol", symbol).Int("index", i).Err(err).Msg("tick rejected")
			continue
		}
		resp.Accepted++
	}
	c.JSON(http.StatusAccepted, resp)
}

// chartParams reads symbol, interval and ma_period, writing a 400 when
// they are invalid.
func chartParams(c *gin.Context) (string, candle.Timeframe, int, bool) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("symbol is required", nil))
		return "", "", 0, false
	}

	period := 0
	if s := c.Query("ma_period"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > history.MaxPageLimit {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse("ma_period must be an integer between 1 and 1000", err))
			return "", "", 0, false
		}
		period = n
	}
	return symbol, candle.ParseTimeframe(c.Query("interval")), period, true
}

func (h *Handler) renderServiceError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidSymbol):
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(msg, err))
	case errors.Is(err, service.ErrUnknownSymbol):
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(msg, err))
	case errors.Is(err, service.ErrSymbolLimit):
		c.JSON(http.StatusTooManyRequests, dto.NewErrorResponse(msg, err))
	case errors.Is(err, history.ErrProviderStatus):
		c.JSON(http.StatusBadGateway, dto.NewErrorResponse(msg, err))
	default:
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(msg, err))
	}
}
