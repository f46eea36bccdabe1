package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusCounters(t *testing.T) {
	prom := NewPrometheus()
	prom.Metrics.CyclesCompleted.Inc()
	prom.Metrics.CyclesFailed.Inc()
	prom.Metrics.RebalancesTriggered.Inc()
	prom.Metrics.OrdersPlaced.Inc()
	prom.Metrics.OrdersFailed.Inc()
	prom.Metrics.AlertsFailed.Inc()

	assertValue(t, prom.cyclesCompleted, 1)
	assertValue(t, prom.cyclesFailed, 1)
	assertValue(t, prom.rebalancesTriggered, 1)
	assertValue(t, prom.ordersPlaced, 1)
	assertValue(t, prom.ordersFailed, 1)
	assertValue(t, prom.alertsFailed, 1)
}

func TestPrometheusGauges(t *testing.T) {
	prom := NewPrometheus()
	prom.Metrics.BaseDelta.Set(7)
	prom.Metrics.BaseDeltaRatio.Set(0.5833)
	prom.Metrics.MarkPrice.Set(600)
	prom.Metrics.TotalValueUSDT.Set(4200)

	assertValue(t, prom.baseDelta, 7)
	assertValue(t, prom.baseDeltaRatio, 0.5833)
	assertValue(t, prom.markPrice, 600)
	assertValue(t, prom.totalValueUSDT, 4200)
}

func assertValue(t *testing.T, collector prometheus.Collector, expected float64) {
	t.Helper()
	if got := testutil.ToFloat64(collector); got != expected {
		t.Fatalf("expected %v, got %v", expected, got)
	}
}
