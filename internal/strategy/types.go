package strategy

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"lp-hedge-bot/internal/config"
)

// Config carries the parameters of one monitored hedge pair. It is pure data;
// venue clients are injected into the driver separately.
type Config struct {
	Owner     common.Address
	Symbol    string
	BaseToken common.Address
	USDTToken common.Address

	// RatioThreshold (n) and DeltaThreshold (m) gate rebalancing: an order is
	// placed only when base_delta_ratio > n and |base_delta| > m. m doubles as
	// the order-quantity rounding step.
	RatioThreshold float64
	DeltaThreshold float64
}

// NewConfig parses and validates the yaml-level strategy section. A
// non-positive delta threshold is rejected here so the decision engine never
// sees a degenerate rounding step.
func NewConfig(raw config.StrategyConfig) (Config, error) {
	if !common.IsHexAddress(raw.Owner) {
		return Config{}, fmt.Errorf("owner is not a valid address: %q", raw.Owner)
	}
	if !common.IsHexAddress(raw.BaseToken) {
		return Config{}, fmt.Errorf("base token is not a valid address: %q", raw.BaseToken)
	}
	if !common.IsHexAddress(raw.USDTToken) {
		return Config{}, fmt.Errorf("usdt token is not a valid address: %q", raw.USDTToken)
	}
	if raw.Symbol == "" {
		return Config{}, errors.New("symbol is required")
	}
	if raw.DeltaThreshold <= 0 {
		return Config{}, errors.New("delta threshold must be > 0")
	}
	cfg := Config{
		Owner:          common.HexToAddress(raw.Owner),
		Symbol:         raw.Symbol,
		BaseToken:      common.HexToAddress(raw.BaseToken),
		USDTToken:      common.HexToAddress(raw.USDTToken),
		RatioThreshold: raw.RatioThreshold,
		DeltaThreshold: raw.DeltaThreshold,
	}
	if cfg.BaseToken == cfg.USDTToken {
		return Config{}, errors.New("base and usdt tokens must differ")
	}
	return cfg, nil
}

// PositionSnapshot is the merged, per-cycle view of the AMM and futures legs.
// It is built fresh every cycle and discarded afterwards.
type PositionSnapshot struct {
	BlockNumber uint64 `json:"block_number"`
	Symbol      string `json:"symbol"`

	AmmBaseAmount           float64 `json:"amm_base_amount"`
	AmmUSDTAmount           float64 `json:"amm_usdt_amount"`
	AmmCollectableBase      float64 `json:"amm_collectable_base"`
	AmmCollectableUSDT      float64 `json:"amm_collectable_usdt"`
	AmmCollectableValueUSDT float64 `json:"amm_collectable_value_usdt"`

	FuturesPosition  float64 `json:"futures_position"`
	UnrealizedPnL    float64 `json:"unrealized_pnl"`
	FuturesTimestamp int64   `json:"futures_timestamp"`
	BasePriceUSDT    float64 `json:"base_price_usdt"`

	BaseDelta         float64 `json:"base_delta"`
	BaseDeltaRatio    float64 `json:"base_delta_ratio"`
	AmmTotalValueUSDT float64 `json:"amm_total_value_usdt"`
	TotalValueUSDT    float64 `json:"total_value_usdt"`
}
