package timescale

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"lp-hedge-bot/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

const writeTimeout = 3 * time.Second

// CycleRow is one completed poll cycle flattened for the history table.
type CycleRow struct {
	Time            time.Time
	Symbol          string
	BlockNumber     uint64
	AmmBaseAmount   float64
	AmmUSDTAmount   float64
	CollectableBase float64
	CollectableUSDT float64
	FuturesPosition float64
	UnrealizedPnL   float64
	BasePriceUSDT   float64
	BaseDelta       float64
	BaseDeltaRatio  float64
	TotalValueUSDT  float64
	Action          string
	OrderQuantity   float64
}

// MarkPriceRow is one tick from the futures mark-price stream.
type MarkPriceRow struct {
	Time   time.Time
	Symbol string
	Price  float64
}

// Writer persists cycle history to TimescaleDB without blocking the poll
// loop. Enqueue never waits; when the queue is full rows are dropped and
// counted.
type Writer struct {
	db        *sql.DB
	log       *zap.Logger
	schema    string
	cycles    chan CycleRow
	marks     chan MarkPriceRow
	started   atomic.Bool
	dropCycle atomic.Uint64
	dropMark  atomic.Uint64
}

func New(cfg config.TimescaleConfig, log *zap.Logger) (*Writer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("timescale dsn is required")
	}
	schema := strings.TrimSpace(cfg.Schema)
	if schema == "" {
		schema = "public"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	writer := &Writer{
		db:     db,
		log:    log,
		schema: schema,
		cycles: make(chan CycleRow, queueSize),
		marks:  make(chan MarkPriceRow, queueSize),
	}
	if err := writer.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return writer, nil
}

func (w *Writer) Start(ctx context.Context) {
	if w == nil {
		return
	}
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.run(ctx)
}

func (w *Writer) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}

func (w *Writer) EnqueueCycle(row CycleRow) {
	if w == nil {
		return
	}
	select {
	case w.cycles <- row:
		return
	default:
		if w.dropCycle.Add(1) == 1 && w.log != nil {
			w.log.Warn("timescale cycle queue full")
		}
	}
}

func (w *Writer) EnqueueMarkPrice(row MarkPriceRow) {
	if w == nil {
		return
	}
	select {
	case w.marks <- row:
		return
	default:
		if w.dropMark.Add(1) == 1 && w.log != nil {
			w.log.Warn("timescale mark price queue full")
		}
	}
}

func (w *Writer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case row := <-w.cycles:
			w.writeCycle(ctx, row)
		case row := <-w.marks:
			w.writeMarkPrice(ctx, row)
		}
	}
}

func (w *Writer) ensureSchema(ctx context.Context) error {
	if w.db == nil {
		return errors.New("timescale db not initialized")
	}
	if w.schema != "public" {
		if err := w.exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", w.schema)); err != nil {
			return err
		}
	}
	if err := w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		symbol TEXT NOT NULL,
		block_number BIGINT NOT NULL,
		amm_base_amount DOUBLE PRECISION NOT NULL,
		amm_usdt_amount DOUBLE PRECISION NOT NULL,
		collectable_base DOUBLE PRECISION NOT NULL,
		collectable_usdt DOUBLE PRECISION NOT NULL,
		futures_position DOUBLE PRECISION NOT NULL,
		unrealized_pnl DOUBLE PRECISION NOT NULL,
		base_price_usdt DOUBLE PRECISION NOT NULL,
		base_delta DOUBLE PRECISION NOT NULL,
		base_delta_ratio DOUBLE PRECISION NOT NULL,
		total_value_usdt DOUBLE PRECISION NOT NULL,
		action TEXT NOT NULL,
		order_quantity DOUBLE PRECISION NOT NULL DEFAULT 0
	)`, w.table("hedge_cycles"))); err != nil {
		return err
	}
	if err := w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		symbol TEXT NOT NULL,
		price DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (ts, symbol)
	)`, w.table("mark_prices"))); err != nil {
		return err
	}
	if err := w.exec(ctx, "CREATE EXTENSION IF NOT EXISTS timescaledb"); err != nil {
		if w.log != nil {
			w.log.Warn("timescale extension ensure failed", zap.Error(err))
		}
		return nil
	}
	if err := w.exec(ctx, fmt.Sprintf("SELECT create_hypertable('%s', 'ts', if_not_exists => TRUE)", w.table("hedge_cycles"))); err != nil && w.log != nil {
		w.log.Warn("timescale hedge_cycles hypertable create failed", zap.Error(err))
	}
	if err := w.exec(ctx, fmt.Sprintf("SELECT create_hypertable('%s', 'ts', if_not_exists => TRUE)", w.table("mark_prices"))); err != nil && w.log != nil {
		w.log.Warn("timescale mark_prices hypertable create failed", zap.Error(err))
	}
	return nil
}

func (w *Writer) writeCycle(ctx context.Context, row CycleRow) {
	if w.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	query := fmt.Sprintf(`INSERT INTO %s (
		ts, symbol, block_number, amm_base_amount, amm_usdt_amount, collectable_base,
		collectable_usdt, futures_position, unrealized_pnl, base_price_usdt, base_delta,
		base_delta_ratio, total_value_usdt, action, order_quantity
	) VALUES (
		$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
	)`, w.table("hedge_cycles"))
	if _, err := w.db.ExecContext(ctx, query,
		row.Time,
		row.Symbol,
		int64(row.BlockNumber),
		row.AmmBaseAmount,
		row.AmmUSDTAmount,
		row.CollectableBase,
		row.CollectableUSDT,
		row.FuturesPosition,
		row.UnrealizedPnL,
		row.BasePriceUSDT,
		row.BaseDelta,
		row.BaseDeltaRatio,
		row.TotalValueUSDT,
		row.Action,
		row.OrderQuantity,
	); err != nil && w.log != nil {
		w.log.Warn("timescale cycle insert failed", zap.Error(err))
	}
}

func (w *Writer) writeMarkPrice(ctx context.Context, row MarkPriceRow) {
	if w.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	query := fmt.Sprintf(`INSERT INTO %s (ts, symbol, price) VALUES ($1,$2,$3)
	ON CONFLICT (ts, symbol) DO UPDATE SET price = EXCLUDED.price`, w.table("mark_prices"))
	if _, err := w.db.ExecContext(ctx, query, row.Time, row.Symbol, row.Price); err != nil && w.log != nil {
		w.log.Warn("timescale mark price upsert failed", zap.Error(err))
	}
}

func (w *Writer) exec(ctx context.Context, query string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err := w.db.ExecContext(ctx, query)
	return err
}

func (w *Writer) table(name string) string {
	return w.schema + "." + name
}
