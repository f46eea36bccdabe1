package exec

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"lp-hedge-bot/internal/binance"
	"lp-hedge-bot/internal/state"
	"lp-hedge-bot/internal/strategy"

	"go.uber.org/zap"
)

// OrderSink is the slice of the futures client the executor needs.
type OrderSink interface {
	OpenSell(ctx context.Context, symbol, quantity string) (*binance.OrderResult, error)
	CloseSell(ctx context.Context, symbol, quantity string) (*binance.OrderResult, error)
}

// Executor places at most one hedge order per cycle. Placed cycles are
// recorded in the store so a restart mid-cycle does not double an order.
// Failures are returned as-is; the next poll cycle recomputes the delta
// from scratch, so there is no retry here.
type Executor struct {
	sink        OrderSink
	store       state.Store
	maxQuantity float64
	log         *zap.Logger

	mu   sync.Mutex
	seen map[string]bool
}

func New(sink OrderSink, store state.Store, maxQuantity float64, log *zap.Logger) *Executor {
	return &Executor{
		sink:        sink,
		store:       store,
		maxQuantity: maxQuantity,
		log:         log,
		seen:        make(map[string]bool),
	}
}

// Execute carries out one rebalance decision. cycleID identifies the cycle
// (symbol plus chain block) and keys the dedup record. A nil result with a
// nil error means nothing needed to be done.
func (e *Executor) Execute(ctx context.Context, symbol string, reb strategy.Rebalance, cycleID string) (*binance.OrderResult, error) {
	if reb.Action == strategy.ActionNone {
		return nil, nil
	}
	if e.maxQuantity > 0 && reb.Size > e.maxQuantity {
		return nil, fmt.Errorf("order quantity %s exceeds max %s",
			reb.Quantity, strconv.FormatFloat(e.maxQuantity, 'f', -1, 64))
	}

	dedupKey := "order:" + cycleID
	if done, err := e.alreadyPlaced(ctx, dedupKey); err != nil {
		return nil, err
	} else if done {
		e.log.Info("order already placed for cycle, skipping",
			zap.String("cycle", cycleID))
		return nil, nil
	}

	var (
		result *binance.OrderResult
		err    error
	)
	switch reb.Action {
	case strategy.ActionIncrease:
		result, err = e.sink.OpenSell(ctx, symbol, reb.Quantity)
	case strategy.ActionDecrease:
		result, err = e.sink.CloseSell(ctx, symbol, reb.Quantity)
	default:
		return nil, fmt.Errorf("unknown rebalance action %d", reb.Action)
	}
	if err != nil {
		return nil, fmt.Errorf("place %s order: %w", reb.Action, err)
	}

	e.markPlaced(ctx, dedupKey, result)
	return result, nil
}

func (e *Executor) alreadyPlaced(ctx context.Context, key string) (bool, error) {
	e.mu.Lock()
	if e.seen[key] {
		e.mu.Unlock()
		return true, nil
	}
	e.mu.Unlock()
	if e.store == nil {
		return false, nil
	}
	_, ok, err := e.store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("read order record: %w", err)
	}
	if ok {
		e.mu.Lock()
		e.seen[key] = true
		e.mu.Unlock()
	}
	return ok, nil
}

func (e *Executor) markPlaced(ctx context.Context, key string, result *binance.OrderResult) {
	e.mu.Lock()
	e.seen[key] = true
	e.mu.Unlock()
	if e.store == nil {
		return
	}
	value := strconv.FormatInt(result.OrderID, 10)
	if err := e.store.Set(ctx, key, value); err != nil {
		e.log.Warn("failed to persist order record", zap.Error(err))
	}
}
