package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/guttosm/candlefeed/internal/candle"
	"github.com/guttosm/candlefeed/internal/domain/models"
	"github.com/guttosm/candlefeed/internal/history"
)

// Symbol errors returned before any state is touched.
var (
	ErrInvalidSymbol = errors.New("symbol is required")
	ErrUnknownSymbol = errors.New("symbol is not served")
	ErrSymbolLimit   = errors.New("too many symbols tracked")
)

// ChartService joins paginated history with live ticks into chart series.
type ChartService interface {
	Chart(ctx context.Context, symbol string, tf candle.Timeframe, maPeriod int) (*models.Chart, error)
	LoadMore(ctx context.Context, symbol string, tf candle.Timeframe, maPeriod int) (*models.Chart, error)
	IngestTick(symbol string, raw models.RawTick) error
	History(ctx context.Context, req history.PageRequest) ([]models.Candle, error)
}

// Options tunes a ChartService. Zero values fall back to defaults.
//
// Symbols, when set, is the only set of symbols the service accepts.
// Without it, at most MaxSymbols distinct symbols are tracked.
type Options struct {
	PageLimit       int
	FetchTimeout    time.Duration
	TickBuffer      int
	DefaultMAPeriod int
	Symbols         []string
	MaxSymbols      int
}

const (
	defaultTickBuffer = 10000
	defaultMAPeriod   = 20
	defaultMaxSymbols = 100
)

type sessionKey struct {
	symbol    string
	timeframe candle.Timeframe
}

func (k sessionKey) String() string { return k.symbol + "|" + string(k.timeframe) }

// session is one (symbol, timeframe) chart: its history tracker and the
// live candles built from ticks. A session exists only once its initial
// history page has loaded.
type session struct {
	tracker *history.Tracker

	mu   sync.Mutex
	live *candle.Aggregator
}

type chartService struct {
	provider history.Provider
	opts     Options
	allowed  map[string]struct{}
	loads    singleflight.Group

	mu       sync.Mutex
	sessions map[sessionKey]*session
	ticks    map[string]*tickRing
	known    map[string]struct{}
}

func NewChartService(provider history.Provider, opts Options) ChartService {
	if opts.PageLimit <= 0 {
		opts.PageLimit = history.DefaultPageLimit
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = history.DefaultFetchTimeout
	}
	if opts.TickBuffer <= 0 {
		opts.TickBuffer = defaultTickBuffer
	}
	if opts.DefaultMAPeriod <= 0 {
		opts.DefaultMAPeriod = defaultMAPeriod
	}
	if opts.MaxSymbols <= 0 {
		opts.MaxSymbols = defaultMaxSymbols
	}
	var allowed map[string]struct{}
	for _, sym := range opts.Symbols {
		if sym = normalizeSymbol(sym); sym != "" {
			if allowed == nil {
				allowed = make(map[string]struct{})
			}
			allowed[sym] = struct{}{}
		}
	}
	return &chartService{
		provider: provider,
		opts:     opts,
		allowed:  allowed,
		sessions: make(map[sessionKey]*session),
		ticks:    make(map[string]*tickRing),
		known:    make(map[string]struct{}),
	}
}

// Chart returns the merged series for symbol and tf, loading the most recent
// history page the first time the pair is requested.
func (s *chartService) Chart(ctx context.Context, symbol string, tf candle.Timeframe, maPeriod int) (*models.Chart, error) {
	sess, key, err := s.open(ctx, symbol, tf)
	if err != nil {
		return nil, err
	}
	return s.build(sess, key, maPeriod), nil
}

// LoadMore extends the pair's history one page back and returns the merged
// series. Exhausted history is not an error; HasMore reports it.
func (s *chartService) LoadMore(ctx context.Context, symbol string, tf candle.Timeframe, maPeriod int) (*models.Chart, error) {
	sess, key, err := s.open(ctx, symbol, tf)
	if err != nil {
		return nil, err
	}
	if _, err := sess.tracker.LoadMore(ctx); err != nil {
		return nil, err
	}
	return s.build(sess, key, maPeriod), nil
}

// IngestTick validates one live tick and folds it into every open session
// for its symbol. The tick is also buffered so sessions opened later start
// with it. Rejected ticks change nothing and return the validation error.
func (s *chartService) IngestTick(symbol string, raw models.RawTick) error {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return ErrInvalidSymbol
	}
	if err := s.checkAllowed(symbol); err != nil {
		return err
	}
	tick, err := candle.ValidateTick(raw)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if err := s.admitLocked(symbol); err != nil {
		s.mu.Unlock()
		return err
	}
	ring, ok := s.ticks[symbol]
	if !ok {
		ring = newTickRing(s.opts.TickBuffer)
		s.ticks[symbol] = ring
	}
	ring.push(tick)
	s.known[symbol] = struct{}{}

	var targets []*session
	for key, sess := range s.sessions {
		if key.symbol == symbol {
			targets = append(targets, sess)
		}
	}
	s.mu.Unlock()

	for _, sess := range targets {
		sess.mu.Lock()
		sess.live.Add(tick)
		sess.mu.Unlock()
	}
	return nil
}

// History returns one page straight from the provider, sorted and without
// candles that carry a non-positive time.
func (s *chartService) History(ctx context.Context, req history.PageRequest) ([]models.Candle, error) {
	req.Symbol = normalizeSymbol(req.Symbol)
	if req.Symbol == "" {
		return nil, ErrInvalidSymbol
	}
	if err := s.checkAllowed(req.Symbol); err != nil {
		return nil, err
	}
	page, err := s.provider.FetchCandles(ctx, req.Normalize())
	if err != nil {
		return nil, err
	}
	return candle.Merge(page, nil), nil
}

// open returns the loaded session for (symbol, tf). Concurrent first
// requests for the same pair share one initial load; a failed load leaves
// nothing behind so the next request retries it.
func (s *chartService) open(ctx context.Context, symbol string, tf candle.Timeframe) (*session, sessionKey, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return nil, sessionKey{}, ErrInvalidSymbol
	}
	if err := s.checkAllowed(symbol); err != nil {
		return nil, sessionKey{}, err
	}
	key := sessionKey{symbol: symbol, timeframe: candle.ParseTimeframe(string(tf))}

	s.mu.Lock()
	sess, ok := s.sessions[key]
	var err error
	if !ok {
		err = s.admitLocked(symbol)
	}
	s.mu.Unlock()
	if ok {
		return sess, key, nil
	}
	if err != nil {
		return nil, key, err
	}

	// The load outlives a cancelled caller so joined requests still get it;
	// the tracker bounds it with its fetch timeout.
	loadCtx := context.WithoutCancel(ctx)
	ch := s.loads.DoChan(key.String(), func() (interface{}, error) {
		return s.load(loadCtx, key)
	})
	select {
	case <-ctx.Done():
		return nil, key, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, key, res.Err
		}
		return res.Val.(*session), key, nil
	}
}

func (s *chartService) load(ctx context.Context, key sessionKey) (*session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[key]
	s.mu.Unlock()
	if ok {
		return sess, nil
	}

	tracker := history.NewTracker(s.provider,
		history.WithPageLimit(s.opts.PageLimit),
		history.WithFetchTimeout(s.opts.FetchTimeout))
	if _, err := tracker.LoadInitial(ctx, key.symbol, key.timeframe); err != nil {
		return nil, err
	}

	// Seeding and publishing under one lock means no tick is missed or
	// counted twice.
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.admitLocked(key.symbol); err != nil {
		return nil, err
	}
	live := candle.NewAggregator(key.timeframe)
	if ring, ok := s.ticks[key.symbol]; ok {
		ring.each(live.Add)
	}
	sess = &session{tracker: tracker, live: live}
	s.sessions[key] = sess
	s.known[key.symbol] = struct{}{}
	return sess, nil
}

func (s *chartService) checkAllowed(symbol string) error {
	if s.allowed == nil {
		return nil
	}
	if _, ok := s.allowed[symbol]; !ok {
		return ErrUnknownSymbol
	}
	return nil
}

// admitLocked reports whether symbol may hold state. Without an allow-list
// new symbols are admitted until MaxSymbols are known. Callers record the
// symbol in s.known once its state is stored. s.mu must be held.
func (s *chartService) admitLocked(symbol string) error {
	if s.allowed != nil {
		return nil
	}
	if _, ok := s.known[symbol]; ok {
		return nil
	}
	if len(s.known) >= s.opts.MaxSymbols {
		return ErrSymbolLimit
	}
	return nil
}

func (s *chartService) build(sess *session, key sessionKey, maPeriod int) *models.Chart {
	if maPeriod <= 0 {
		maPeriod = s.opts.DefaultMAPeriod
	}

	sess.mu.Lock()
	live := sess.live.Candles()
	sess.mu.Unlock()

	merged := candle.Merge(sess.tracker.Candles(), live)
	return &models.Chart{
		Symbol:        key.symbol,
		Timeframe:     key.timeframe.String(),
		Candles:       merged,
		MovingAverage: candle.MovingAverage(merged, maPeriod),
		HasMore:       sess.tracker.HasMore(),
	}
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
