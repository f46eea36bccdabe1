package app

import (
	"time"

	"lp-hedge-bot/internal/strategy"
	"lp-hedge-bot/internal/timescale"
)

func (a *App) recordCycle(snap strategy.PositionSnapshot, reb strategy.Rebalance, orderQty float64) {
	if a.timescale == nil {
		return
	}
	a.timescale.EnqueueCycle(timescale.CycleRow{
		Time:            time.Now().UTC(),
		Symbol:          snap.Symbol,
		BlockNumber:     snap.BlockNumber,
		AmmBaseAmount:   snap.AmmBaseAmount,
		AmmUSDTAmount:   snap.AmmUSDTAmount,
		CollectableBase: snap.AmmCollectableBase,
		CollectableUSDT: snap.AmmCollectableUSDT,
		FuturesPosition: snap.FuturesPosition,
		UnrealizedPnL:   snap.UnrealizedPnL,
		BasePriceUSDT:   snap.BasePriceUSDT,
		BaseDelta:       snap.BaseDelta,
		BaseDeltaRatio:  snap.BaseDeltaRatio,
		TotalValueUSDT:  snap.TotalValueUSDT,
		Action:          reb.Action.String(),
		OrderQuantity:   orderQty,
	})
}
