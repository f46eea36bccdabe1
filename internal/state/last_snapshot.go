package state

import (
	"context"
	"encoding/json"
	"strings"

	"lp-hedge-bot/internal/strategy"
)

const LastCycleKey = "hedge:last_cycle"

// LastCycle is the record persisted after every completed poll cycle. The
// status command reads it back to report on the bot without touching the
// chain or the exchange.
type LastCycle struct {
	Snapshot      strategy.PositionSnapshot `json:"snapshot"`
	Action        string                    `json:"action"`
	OrderQuantity string                    `json:"order_quantity,omitempty"`
	CompletedAtMS int64                     `json:"completed_at_ms"`
}

func LoadLastCycle(ctx context.Context, store Store) (LastCycle, bool, error) {
	if store == nil {
		return LastCycle{}, false, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	raw, ok, err := store.Get(ctx, LastCycleKey)
	if err != nil {
		return LastCycle{}, false, err
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return LastCycle{}, false, nil
	}
	var record LastCycle
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return LastCycle{}, false, err
	}
	return record, true, nil
}

func SaveLastCycle(ctx context.Context, store Store, record LastCycle) error {
	if store == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return store.Set(ctx, LastCycleKey, string(payload))
}
