package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	pq "github.com/lib/pq"

	"github.com/guttosm/candlefeed/internal/domain/models"
)

// CandlesRepository defines contract for DB operations.
type CandlesRepository interface {
	UpsertCandles(symbol, timeframe string, candles []models.Candle) error
	GetCandles(ctx context.Context, symbol, timeframe string, endTime int64, limit int) ([]models.Candle, error)
	HasIngestionForFile(filename string) (bool, error)
	UpsertIngestionLog(filename, symbol string, day time.Time, tickCount int) error
	DeleteCandlesInRange(symbol string, from, to int64) error
}

type candlesRepository struct {
	db *sql.DB
}

func NewCandlesRepository(db *sql.DB) CandlesRepository {
	return &candlesRepository{db: db}
}

// UpsertCandles bulk-loads candles into a staging table with COPY and merges
// them into candles in one transaction. Existing rows for the same
// (symbol, timeframe, bucket_time) are overwritten.
func (r *candlesRepository) UpsertCandles(symbol, timeframe string, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	// Small optimization for bulk load
	if _, err := tx.Exec(`SET LOCAL synchronous_commit = OFF`); err != nil {
		_ = tx.Rollback()
		return err
	}

	if _, err := tx.Exec(`CREATE TEMP TABLE candles_staging (LIKE candles INCLUDING DEFAULTS) ON COMMIT DROP`); err != nil {
		_ = tx.Rollback()
		return err
	}

	stmt, err := tx.Prepare(pq.CopyIn(
		"candles_staging",
		"symbol",
		"timeframe",
		"bucket_time",
		"open",
		"high",
		"low",
		"close",
		"volume",
	))
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	for _, c := range candles {
		if _, err := stmt.Exec(symbol, timeframe, c.Time, c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return err
		}
	}

	if _, err := stmt.Exec(); err != nil {
		_ = stmt.Close()
		_ = tx.Rollback()
		return err
	}
	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return err
	}

	if _, err := tx.Exec(`
		INSERT INTO candles (symbol, timeframe, bucket_time, open, high, low, close, volume)
		SELECT symbol, timeframe, bucket_time, open, high, low, close, volume
		FROM candles_staging
		ON CONFLICT (symbol, timeframe, bucket_time)
		DO UPDATE SET open = EXCLUDED.open,
					  high = EXCLUDED.high,
					  low = EXCLUDED.low,
					  close = EXCLUDED.close,
					  volume = EXCLUDED.volume,
					  updated_at = NOW()
	`); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

// GetCandles returns up to limit of the most recent candles for symbol and
// timeframe, oldest first. A positive endTime keeps only candles strictly
// older than it.
func (r *candlesRepository) GetCandles(ctx context.Context, symbol, timeframe string, endTime int64, limit int) ([]models.Candle, error) {
	// $1 and $2 are always symbol and timeframe.
	conditions := "symbol = $1 AND timeframe = $2"
	args := []interface{}{symbol, timeframe}
	if endTime > 0 {
		args = append(args, endTime)
		conditions += fmt.Sprintf(" AND bucket_time < $%d", len(args))
	}
	args = append(args, limit)
	limitPlaceholder := len(args)

	query := fmt.Sprintf(`
		SELECT bucket_time, open, high, low, close, volume
		FROM (
			SELECT bucket_time, open, high, low, close, volume
			FROM candles
			WHERE %s
			ORDER BY bucket_time DESC
			LIMIT $%d
		) recent
		ORDER BY bucket_time ASC
	`, conditions, limitPlaceholder)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]models.Candle, 0, limit)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Time, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// HasIngestionForFile checks if a tick file was already ingested.
func (r *candlesRepository) HasIngestionForFile(filename string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM ingestion_log WHERE filename = $1)`, filename).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// UpsertIngestionLog records (or updates) the ingestion of one tick file.
func (r *candlesRepository) UpsertIngestionLog(filename, symbol string, day time.Time, tickCount int) error {
	_, err := r.db.Exec(`
		INSERT INTO ingestion_log (filename, symbol, file_date, tick_count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (filename)
		DO UPDATE SET symbol = EXCLUDED.symbol,
					  file_date = EXCLUDED.file_date,
					  tick_count = EXCLUDED.tick_count,
					  ingested_at = NOW()
	`, filename, symbol, day, tickCount)
	return err
}

// DeleteCandlesInRange removes every timeframe's candles for symbol whose
// bucket starts in [from, to).
func (r *candlesRepository) DeleteCandlesInRange(symbol string, from, to int64) error {
	_, err := r.db.Exec(`DELETE FROM candles WHERE symbol = $1 AND bucket_time >= $2 AND bucket_time < $3`, symbol, from, to)
	return err
}
