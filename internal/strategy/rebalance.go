package strategy

import (
	"fmt"
	"math"
)

type Action int

const (
	// ActionNone leaves the hedge untouched.
	ActionNone Action = iota
	// ActionIncrease grows the short hedge by selling futures.
	ActionIncrease
	// ActionDecrease shrinks the short hedge with a reduce-only buy.
	ActionDecrease
)

func (a Action) String() string {
	switch a {
	case ActionIncrease:
		return "increase"
	case ActionDecrease:
		return "decrease"
	default:
		return "none"
	}
}

// Rebalance is the order instruction produced by one decision. Quantity is a
// positive decimal string quantized to the configured step; Size is its
// numeric value, kept for risk checks and metrics.
type Rebalance struct {
	Action   Action
	Quantity string
	Size     float64
}

// Decide applies the threshold rule to one cycle's drift metrics. It triggers
// only when ratio strictly exceeds the ratio threshold AND |delta| strictly
// exceeds the delta threshold; equality never triggers. The rule fires only on
// positive ratios: a strongly negative delta pins the ratio negative and the
// decision stays none.
func Decide(ratio, delta float64, cfg Config) Rebalance {
	if ratio <= cfg.RatioThreshold || math.Abs(delta) <= cfg.DeltaThreshold {
		return Rebalance{Action: ActionNone}
	}
	// Unreachable with a positive threshold, but callers can hand in raw pairs.
	if delta == 0 {
		return Rebalance{Action: ActionNone}
	}

	size := roundToStep(math.Abs(delta), cfg.DeltaThreshold)
	action := ActionIncrease
	if delta < 0 {
		action = ActionDecrease
	}
	return Rebalance{
		Action:   action,
		Quantity: formatQuantity(size, cfg.DeltaThreshold),
		Size:     size,
	}
}

// roundToStep rounds value to the nearest multiple of step, half away from
// zero. A non-positive step disables quantization.
func roundToStep(value, step float64) float64 {
	if step <= 0 {
		return value
	}
	return math.Round(value/step) * step
}

// formatQuantity renders a quantity with the decimal precision the step
// implies: step >= 1 means whole units, otherwise ceil(log10(1/step)) places.
func formatQuantity(quantity, step float64) string {
	return fmt.Sprintf("%.*f", quantityDecimals(step), quantity)
}

func quantityDecimals(step float64) int {
	if step >= 1 || step <= 0 {
		return 0
	}
	decimals := int(math.Ceil(math.Log10(1 / step)))
	if decimals < 0 {
		return 0
	}
	return decimals
}
