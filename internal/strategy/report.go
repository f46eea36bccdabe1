package strategy

import (
	"fmt"
	"strings"
	"text/template"
)

// The report is a template over pre-formatted named fields so the wording can
// change without touching any computation.
const reportTemplate = `{{.Label}} hedge status (block {{.Block}}, {{.Symbol}})
holding: {{.AmmBase}} {{.Label}} (${{.AmmValue}})
futures: {{.Futures}} {{.Label}} (uPnL ${{.UnrealizedPnL}})
delta: {{.Delta}} {{.Label}} ({{.Ratio}}%)
total value: ${{.Total}}
collectable: {{.CollectBase}} {{.Label}} (${{.CollectBaseValue}}) + {{.CollectUSDT}} USDT = ${{.CollectValue}}`

var reportTmpl = template.Must(template.New("report").Parse(reportTemplate))

type reportFields struct {
	Label            string
	Block            uint64
	Symbol           string
	AmmBase          string
	AmmValue         string
	Futures          string
	UnrealizedPnL    string
	Delta            string
	Ratio            string
	Total            string
	CollectBase      string
	CollectBaseValue string
	CollectUSDT      string
	CollectValue     string
}

// Report renders a snapshot as the human-readable status message pushed to the
// notifier. label names the base asset (e.g. "BNB"). Pure presentation:
// negative values render with their sign, nothing is special-cased.
func Report(snap PositionSnapshot, label string) string {
	if label == "" {
		label = snap.Symbol
	}
	fields := reportFields{
		Label:            label,
		Block:            snap.BlockNumber,
		Symbol:           snap.Symbol,
		AmmBase:          amount(snap.AmmBaseAmount),
		AmmValue:         amount(snap.AmmBaseAmount * snap.BasePriceUSDT),
		Futures:          amount(snap.FuturesPosition),
		UnrealizedPnL:    amount(snap.UnrealizedPnL),
		Delta:            amount(snap.BaseDelta),
		Ratio:            fmt.Sprintf("%.2f", snap.BaseDeltaRatio*100),
		Total:            amount(snap.TotalValueUSDT),
		CollectBase:      amount(snap.AmmCollectableBase),
		CollectBaseValue: amount(snap.AmmCollectableBase * snap.BasePriceUSDT),
		CollectUSDT:      amount(snap.AmmCollectableUSDT),
		CollectValue:     amount(snap.AmmCollectableValueUSDT),
	}
	var sb strings.Builder
	if err := reportTmpl.Execute(&sb, fields); err != nil {
		// The template is static and the fields are plain strings; execution
		// cannot fail at runtime.
		return ""
	}
	return sb.String()
}

func amount(v float64) string {
	return fmt.Sprintf("%.4f", v)
}
