package strategy

import (
	"fmt"
	"math"
	"math/big"
	"strconv"

	"lp-hedge-bot/internal/binance"
	"lp-hedge-bot/internal/uniswap"
)

// Uniswap pool tokens are assumed to use 18 decimals uniformly. This is a
// deliberate simplification, not a general ERC-20 decimals lookup.
const tokenDecimals = 18

// epsilon floors the ratio denominator so base_delta_ratio stays defined when
// both legs are near zero.
const epsilon = 1e-8

// BuildSnapshot merges one AMM position table read and one futures position
// read into a normalized snapshot. It fails, without producing a partial
// snapshot, when no unique AMM position matches the configured token pair,
// when no futures entry matches the symbol, or when a venue numeric string
// does not parse.
func BuildSnapshot(amm map[string]uniswap.Position, futures []binance.Position, cfg Config, blockNumber uint64) (PositionSnapshot, error) {
	record, err := matchAmmPosition(amm, cfg)
	if err != nil {
		return PositionSnapshot{}, err
	}

	// Orient raw amounts by which side of the pair is the base token.
	baseRaw, usdtRaw := record.Withdrawable0, record.Withdrawable1
	collectBaseRaw, collectUSDTRaw := record.Collectable0, record.Collectable1
	if record.Token1 == cfg.BaseToken {
		baseRaw, usdtRaw = usdtRaw, baseRaw
		collectBaseRaw, collectUSDTRaw = collectUSDTRaw, collectBaseRaw
	}

	ammBase := fixedToFloat(baseRaw)
	ammUSDT := fixedToFloat(usdtRaw)
	collectBase := fixedToFloat(collectBaseRaw)
	collectUSDT := fixedToFloat(collectUSDTRaw)

	entry, err := matchFuturesPosition(futures, cfg.Symbol)
	if err != nil {
		return PositionSnapshot{}, err
	}
	futuresPosition, err := parseDecimal(entry.PositionAmt, "positionAmt")
	if err != nil {
		return PositionSnapshot{}, err
	}
	markPrice, err := parseDecimal(entry.MarkPrice, "markPrice")
	if err != nil {
		return PositionSnapshot{}, err
	}
	unrealizedPnL, err := parseDecimal(entry.UnrealizedProfit, "unRealizedProfit")
	if err != nil {
		return PositionSnapshot{}, err
	}

	baseDelta := ammBase + futuresPosition
	baseReference := math.Max(math.Max(math.Abs(ammBase), math.Abs(futuresPosition)), epsilon)
	ammTotalValue := ammBase*markPrice + ammUSDT
	collectableValue := collectBase*markPrice + collectUSDT

	return PositionSnapshot{
		BlockNumber:             blockNumber,
		Symbol:                  cfg.Symbol,
		AmmBaseAmount:           ammBase,
		AmmUSDTAmount:           ammUSDT,
		AmmCollectableBase:      collectBase,
		AmmCollectableUSDT:      collectUSDT,
		AmmCollectableValueUSDT: collectableValue,
		FuturesPosition:         futuresPosition,
		UnrealizedPnL:           unrealizedPnL,
		FuturesTimestamp:        entry.UpdateTime,
		BasePriceUSDT:           markPrice,
		BaseDelta:               baseDelta,
		BaseDeltaRatio:          baseDelta / baseReference,
		AmmTotalValueUSDT:       ammTotalValue,
		TotalValueUSDT:          ammTotalValue + unrealizedPnL,
	}, nil
}

// matchAmmPosition selects the unique record whose token pair equals
// {base, usdt} in either order.
func matchAmmPosition(amm map[string]uniswap.Position, cfg Config) (uniswap.Position, error) {
	var match uniswap.Position
	found := false
	for _, record := range amm {
		pairMatches := (record.Token0 == cfg.BaseToken && record.Token1 == cfg.USDTToken) ||
			(record.Token0 == cfg.USDTToken && record.Token1 == cfg.BaseToken)
		if !pairMatches {
			continue
		}
		if found {
			return uniswap.Position{}, fmt.Errorf("%w: multiple AMM positions for base=%s usdt=%s",
				ErrAmbiguousPosition, cfg.BaseToken.Hex(), cfg.USDTToken.Hex())
		}
		match = record
		found = true
	}
	if !found {
		return uniswap.Position{}, fmt.Errorf("%w: no AMM position for base=%s usdt=%s",
			ErrNoMatchingPosition, cfg.BaseToken.Hex(), cfg.USDTToken.Hex())
	}
	return match, nil
}

func matchFuturesPosition(futures []binance.Position, symbol string) (binance.Position, error) {
	for _, entry := range futures {
		if entry.Symbol == symbol {
			return entry, nil
		}
	}
	return binance.Position{}, fmt.Errorf("%w: no futures position for symbol=%s", ErrNoMatchingPosition, symbol)
}

func parseDecimal(raw, field string) (float64, error) {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrMalformedData, field, raw)
	}
	return value, nil
}

// fixedToFloat converts a raw fixed-point token amount to its decimal value.
func fixedToFloat(raw *big.Int) float64 {
	if raw == nil || raw.Sign() == 0 {
		return 0
	}
	quo := new(big.Float).Quo(
		new(big.Float).SetInt(raw),
		new(big.Float).SetFloat64(math.Pow10(tokenDecimals)),
	)
	value, _ := quo.Float64()
	return value
}
