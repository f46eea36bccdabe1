package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"lp-hedge-bot/internal/alerts"
	"lp-hedge-bot/internal/binance"
	"lp-hedge-bot/internal/config"
	"lp-hedge-bot/internal/exec"
	"lp-hedge-bot/internal/metrics"
	"lp-hedge-bot/internal/state"
	"lp-hedge-bot/internal/state/sqlite"
	"lp-hedge-bot/internal/strategy"
	"lp-hedge-bot/internal/timescale"
	"lp-hedge-bot/internal/uniswap"
)

// Collaborator slices used by the poll cycle. The concrete clients satisfy
// them; tests substitute fakes.
type ammSource interface {
	Sync(ctx context.Context, owner common.Address) (uint64, error)
	Positions() map[string]uniswap.Position
}

type futuresSource interface {
	Positions(ctx context.Context, symbol string) ([]binance.Position, error)
}

type orderExecutor interface {
	Execute(ctx context.Context, symbol string, reb strategy.Rebalance, cycleID string) (*binance.OrderResult, error)
}

type notifier interface {
	Send(ctx context.Context, message string) error
}

type App struct {
	cfg       *config.Config
	log       *zap.Logger
	stratCfg  strategy.Config
	amm       ammSource
	ammClose  func()
	futures   futuresSource
	executor  orderExecutor
	alerts    notifier
	store     state.Store
	metrics   *metrics.Metrics
	prom      *metrics.Prometheus
	stream    *binance.MarkPriceStream
	timescale *timescale.Writer
}

func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	stratCfg, err := strategy.NewConfig(cfg.Strategy)
	if err != nil {
		return nil, fmt.Errorf("strategy config: %w", err)
	}

	apiKey := strings.TrimSpace(os.Getenv("BINANCE_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("BINANCE_API_KEY is required")
	}
	apiSecret := strings.TrimSpace(os.Getenv("BINANCE_API_SECRET"))
	if apiSecret == "" {
		return nil, errors.New("BINANCE_API_SECRET is required")
	}
	futuresClient, err := binance.New(cfg.Binance.BaseURL, cfg.Binance.Timeout, cfg.Binance.RecvWindowMS, apiKey, apiSecret, log)
	if err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.Chain.Timeout)
	defer cancel()
	ammClient, err := uniswap.Dial(dialCtx, cfg.Chain.RPCURL, common.HexToAddress(cfg.Chain.PositionManager), log)
	if err != nil {
		return nil, fmt.Errorf("dial chain rpc: %w", err)
	}

	store, err := sqlite.New(cfg.State.SQLitePath)
	if err != nil {
		ammClient.Close()
		return nil, fmt.Errorf("open state store: %w", err)
	}

	tsWriter, err := timescale.New(cfg.Timescale, log)
	if err != nil {
		ammClient.Close()
		_ = store.Close()
		return nil, fmt.Errorf("timescale: %w", err)
	}

	m := metrics.NewNoop()
	var prom *metrics.Prometheus
	if cfg.Metrics.Enabled {
		prom = metrics.NewPrometheus()
		m = prom.Metrics
	}

	var stream *binance.MarkPriceStream
	if cfg.Binance.StreamEnabled {
		stream = binance.NewMarkPriceStream(cfg.Binance.StreamURL, cfg.Strategy.Symbol, cfg.Binance.ReconnectDelay, log)
	}

	return &App{
		cfg:       cfg,
		log:       log,
		stratCfg:  stratCfg,
		amm:       ammClient,
		ammClose:  ammClient.Close,
		futures:   futuresClient,
		executor:  exec.New(futuresClient, store, cfg.Risk.MaxOrderQuantity, log),
		alerts:    alerts.NewTelegram(cfg.Telegram, log),
		store:     store,
		metrics:   m,
		prom:      prom,
		stream:    stream,
		timescale: tsWriter,
	}, nil
}

// Run drives the poll loop until ctx is cancelled. One cycle runs
// immediately on startup so a freshly deployed bot does not wait a full
// interval before its first report.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	a.timescale.Start(ctx)
	if a.prom != nil {
		a.serveMetrics(ctx)
	}
	if a.stream != nil {
		go a.runStream(ctx)
	}

	a.log.Info("lp hedge bot started",
		zap.String("symbol", a.cfg.Strategy.Symbol),
		zap.Duration("poll_interval", a.cfg.Strategy.PollInterval),
	)

	if err := a.cycle(ctx); err != nil {
		a.log.Warn("poll cycle failed", zap.Error(err))
	}

	ticker := time.NewTicker(a.cfg.Strategy.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := a.cycle(ctx); err != nil {
				a.log.Warn("poll cycle failed", zap.Error(err))
			}
		}
	}
}

// cycle reads both legs, decides, and acts. Any read or build failure aborts
// the cycle before an order or message goes out; the next tick starts clean.
func (a *App) cycle(ctx context.Context) error {
	snap, err := a.observe(ctx)
	if err != nil {
		a.metrics.CyclesFailed.Inc()
		return err
	}

	reb := strategy.Decide(snap.BaseDeltaRatio, snap.BaseDelta, a.stratCfg)
	a.publishGauges(snap)

	var orderQty float64
	if reb.Action != strategy.ActionNone {
		a.metrics.RebalancesTriggered.Inc()
		a.log.Info("rebalance triggered",
			zap.String("action", reb.Action.String()),
			zap.String("quantity", reb.Quantity),
			zap.Float64("base_delta", snap.BaseDelta),
			zap.Float64("base_delta_ratio", snap.BaseDeltaRatio),
		)
		cycleID := fmt.Sprintf("%s:%d", snap.Symbol, snap.BlockNumber)
		result, err := a.executor.Execute(ctx, snap.Symbol, reb, cycleID)
		if err != nil {
			a.metrics.OrdersFailed.Inc()
			a.metrics.CyclesFailed.Inc()
			return fmt.Errorf("rebalance order: %w", err)
		}
		if result != nil {
			orderQty = reb.Size
			a.metrics.OrdersPlaced.Inc()
			a.log.Info("hedge order placed",
				zap.Int64("order_id", result.OrderID),
				zap.String("side", result.Side),
				zap.Bool("reduce_only", result.ReduceOnly),
			)
		}
	}

	report := strategy.Report(snap, a.cfg.Strategy.BaseLabel)
	a.log.Info("cycle complete",
		zap.Uint64("block", snap.BlockNumber),
		zap.Float64("base_delta", snap.BaseDelta),
		zap.Float64("base_delta_ratio", snap.BaseDeltaRatio),
		zap.Float64("total_value_usdt", snap.TotalValueUSDT),
		zap.String("action", reb.Action.String()),
	)
	if err := a.alerts.Send(ctx, report); err != nil {
		a.metrics.AlertsFailed.Inc()
		a.log.Warn("alert delivery failed", zap.Error(err))
	}

	a.persistCycle(ctx, snap, reb)
	a.recordCycle(snap, reb, orderQty)
	a.metrics.CyclesCompleted.Inc()
	return nil
}

// observe builds the merged snapshot for this cycle. The AMM sync and the
// futures read are close in time but not atomic across venues.
func (a *App) observe(ctx context.Context) (strategy.PositionSnapshot, error) {
	block, err := a.amm.Sync(ctx, a.stratCfg.Owner)
	if err != nil {
		return strategy.PositionSnapshot{}, fmt.Errorf("sync lp positions: %w", err)
	}
	futures, err := a.futures.Positions(ctx, a.stratCfg.Symbol)
	if err != nil {
		return strategy.PositionSnapshot{}, fmt.Errorf("fetch futures positions: %w", err)
	}
	snap, err := strategy.BuildSnapshot(a.amm.Positions(), futures, a.stratCfg, block)
	if err != nil {
		return strategy.PositionSnapshot{}, fmt.Errorf("build snapshot: %w", err)
	}
	return snap, nil
}

// Status performs a single observe without placing orders or sending alerts.
func (a *App) Status(ctx context.Context) (strategy.PositionSnapshot, error) {
	return a.observe(ctx)
}

func (a *App) publishGauges(snap strategy.PositionSnapshot) {
	a.metrics.BaseDelta.Set(snap.BaseDelta)
	a.metrics.BaseDeltaRatio.Set(snap.BaseDeltaRatio)
	a.metrics.MarkPrice.Set(snap.BasePriceUSDT)
	a.metrics.TotalValueUSDT.Set(snap.TotalValueUSDT)
}

func (a *App) persistCycle(ctx context.Context, snap strategy.PositionSnapshot, reb strategy.Rebalance) {
	record := state.LastCycle{
		Snapshot:      snap,
		Action:        reb.Action.String(),
		OrderQuantity: reb.Quantity,
		CompletedAtMS: time.Now().UnixMilli(),
	}
	if err := state.SaveLastCycle(ctx, a.store, record); err != nil {
		a.log.Warn("failed to persist cycle record", zap.Error(err))
	}
}

func (a *App) runStream(ctx context.Context) {
	err := a.stream.Run(ctx, func(price float64) {
		a.metrics.MarkPrice.Set(price)
		a.timescale.EnqueueMarkPrice(timescale.MarkPriceRow{
			Time:   time.Now().UTC(),
			Symbol: a.cfg.Strategy.Symbol,
			Price:  price,
		})
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		a.log.Warn("mark price stream stopped", zap.Error(err))
	}
}

func (a *App) serveMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.prom.Handler())
	server := &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
}

func (a *App) close() {
	if a.ammClose != nil {
		a.ammClose()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("failed to close state store", zap.Error(err))
		}
	}
	if err := a.timescale.Close(); err != nil {
		a.log.Warn("failed to close timescale writer", zap.Error(err))
	}
}
