package ingestion

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/guttosm/candlefeed/internal/candle"
	"github.com/guttosm/candlefeed/internal/logger"
	"github.com/guttosm/candlefeed/internal/storage"
)

const (
	fileDateLayout = "2006-01-02"
	fileExt        = ".csv"
	maxParallelCap = 8
)

// fileNamePattern matches "{SYMBOL}_{YYYY-MM-DD}.csv".
var fileNamePattern = regexp.MustCompile(`^([A-Za-z0-9]+)_(\d{4}-\d{2}-\d{2})\.csv$`)

// repoCtor is an indirection for creating the repository; tests can override this.
var repoCtor = func(db *sql.DB) storage.CandlesRepository {
	return storage.NewCandlesRepository(db)
}

// tickFile is one input file resolved from its name.
type tickFile struct {
	path   string
	name   string
	symbol string
	day    time.Time
}

// ProcessDirectory backfills candles from every tick file in dir.
//
//   - dir:        directory containing "{SYMBOL}_{YYYY-MM-DD}.csv" files.
//   - db:         open *sql.DB (PostgreSQL).
//   - timeframes: timeframes to build; empty means every known timeframe.
//   - parallel:   max files processed at once; <= 0 means min(8, NumCPU).
//   - force:      reprocess files already recorded in the ingestion log,
//     deleting that symbol-day's candles first.
//
// Files whose name does not match the pattern are ignored. If any file
// returns error, the rest are cancelled and that error is returned.
func ProcessDirectory(ctx context.Context, dir string, db *sql.DB, timeframes []candle.Timeframe, parallel int, force bool) error {
	// use indirection to allow tests to swap repository constructor
	repo := repoCtor(db)

	files, err := discoverFiles(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no tick files found in %s", dir)
	}

	if len(timeframes) == 0 {
		timeframes = candle.Timeframes()
	}

	maxParallel := maxParallelCap
	if parallel > 0 {
		if parallel > maxParallelCap {
			parallel = maxParallelCap
		}
		maxParallel = parallel
	} else if c := runtime.NumCPU(); c < maxParallel {
		maxParallel = c
	}

	logger.L().Info().Int("files", len(files)).Str("dir", dir).Int("max_parallel", maxParallel).Int("timeframes", len(timeframes)).Msg("ingestion start")

	// errgroup will cancel siblings on first error.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)

	for i, file := range files {
		idx := i
		f := file

		g.Go(func() error {
			return processFile(gctx, repo, f, idx, len(files), timeframes, force)
		})
	}

	return g.Wait()
}

func processFile(ctx context.Context, repo storage.CandlesRepository, f tickFile, idx, total int, timeframes []candle.Timeframe, force bool) error {
	start := time.Now()
	log := logger.L().With().Int("idx", idx+1).Int("total", total).Str("file", f.name).Logger()
	log.Info().Msg("file start")

	// Idempotency: skip if already ingested, unless force
	exists, err := repo.HasIngestionForFile(f.name)
	if err != nil {
		log.Error().Err(err).Msg("check ingestion log failed")
		return fmt.Errorf("file %s: check ingestion log: %w", f.path, err)
	}
	if exists && !force {
		log.Info().Bool("skipped", true).Msg("already ingested")
		return nil
	}
	if exists && force {
		// Delete existing data for that symbol-day and reprocess
		from := f.day.Unix()
		to := f.day.Add(24 * time.Hour).Unix()
		if err := repo.DeleteCandlesInRange(f.symbol, from, to); err != nil {
			log.Error().Err(err).Msg("delete existing failed")
			return fmt.Errorf("file %s: delete existing: %w", f.path, err)
		}
	}

	parsed, err := parseTickFile(ctx, f.path, f.day)
	if err != nil {
		log.Error().Dur("elapsed", time.Since(start)).Err(err).Msg("file failed")
		return fmt.Errorf("file %s: %w", f.path, err)
	}

	for tf, candles := range aggregateTicks(parsed.ticks, timeframes) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := repo.UpsertCandles(f.symbol, tf.String(), candles); err != nil {
			log.Error().Str("timeframe", tf.String()).Err(err).Msg("persist candles failed")
			return fmt.Errorf("file %s: persist %s candles: %w", f.path, tf, err)
		}
	}

	if err := repo.UpsertIngestionLog(f.name, f.symbol, f.day, len(parsed.ticks)); err != nil {
		log.Error().Err(err).Msg("update ingestion log failed")
		return fmt.Errorf("file %s: upsert ingestion log: %w", f.path, err)
	}
	log.Info().
		Str("symbol", f.symbol).
		Int("ticks", len(parsed.ticks)).
		Int("dropped", parsed.dropped).
		Dur("elapsed", time.Since(start)).
		Bool("force", force).
		Msg("file done")
	return nil
}

// discoverFiles lists tick files in dir sorted by name.
func discoverFiles(dir string) ([]tickFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var files []tickFile
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), fileExt) {
			continue
		}
		f, ok := parseFileName(e.Name())
		if !ok {
			logger.L().Warn().Str("file", e.Name()).Msg("ignoring file with unexpected name")
			continue
		}
		f.path = filepath.Join(dir, e.Name())
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })
	return files, nil
}

// parseFileName resolves symbol and UTC day from "{SYMBOL}_{YYYY-MM-DD}.csv".
func parseFileName(name string) (tickFile, bool) {
	m := fileNamePattern.FindStringSubmatch(name)
	if m == nil {
		return tickFile{}, false
	}
	day, err := time.ParseInLocation(fileDateLayout, m[2], time.UTC)
	if err != nil {
		return tickFile{}, false
	}
	return tickFile{name: name, symbol: strings.ToUpper(m[1]), day: day}, true
}
