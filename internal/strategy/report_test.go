package strategy

import (
	"strings"
	"testing"
)

func sampleSnapshot() PositionSnapshot {
	return PositionSnapshot{
		BlockNumber:             4200,
		Symbol:                  "BNBUSDC",
		AmmBaseAmount:           12,
		AmmUSDTAmount:           300,
		AmmCollectableBase:      0.5,
		AmmCollectableUSDT:      2,
		AmmCollectableValueUSDT: 302,
		FuturesPosition:         -5,
		UnrealizedPnL:           -1.5,
		BasePriceUSDT:           600,
		BaseDelta:               7,
		BaseDeltaRatio:          7.0 / 12.0,
		AmmTotalValueUSDT:       7500,
		TotalValueUSDT:          7498.5,
	}
}

func TestReportContents(t *testing.T) {
	report := Report(sampleSnapshot(), "BNB")
	wantLines := []string{
		"block 4200",
		"holding: 12.0000 BNB ($7200.0000)",
		"futures: -5.0000 BNB (uPnL $-1.5000)",
		"delta: 7.0000 BNB (58.33%)",
		"total value: $7498.5000",
		"collectable: 0.5000 BNB ($300.0000) + 2.0000 USDT = $302.0000",
	}
	for _, want := range wantLines {
		if !strings.Contains(report, want) {
			t.Fatalf("report missing %q:\n%s", want, report)
		}
	}
}

func TestReportZeroSnapshot(t *testing.T) {
	report := Report(PositionSnapshot{Symbol: "BNBUSDC"}, "BNB")
	if !strings.Contains(report, "holding: 0.0000 BNB ($0.0000)") {
		t.Fatalf("zero snapshot should render zeros:\n%s", report)
	}
	if !strings.Contains(report, "(0.00%)") {
		t.Fatalf("zero ratio should render 0.00%%:\n%s", report)
	}
}

func TestReportNegativeValuesKeepSign(t *testing.T) {
	snap := sampleSnapshot()
	snap.BaseDelta = -7
	snap.BaseDeltaRatio = -0.7
	snap.TotalValueUSDT = -12.5
	report := Report(snap, "BNB")
	if !strings.Contains(report, "delta: -7.0000 BNB (-70.00%)") {
		t.Fatalf("negative delta should keep sign:\n%s", report)
	}
	if !strings.Contains(report, "total value: $-12.5000") {
		t.Fatalf("negative total should keep sign:\n%s", report)
	}
}

func TestReportFallsBackToSymbolLabel(t *testing.T) {
	report := Report(sampleSnapshot(), "")
	if !strings.Contains(report, "BNBUSDC hedge status") {
		t.Fatalf("expected symbol fallback label:\n%s", report)
	}
}
