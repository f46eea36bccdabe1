package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "lp_hedge_bot"

type promCounter struct {
	counter prometheus.Counter
}

func (p promCounter) Inc() {
	p.counter.Inc()
}

type promGauge struct {
	gauge prometheus.Gauge
}

func (p promGauge) Set(value float64) {
	p.gauge.Set(value)
}

type Prometheus struct {
	Metrics *Metrics

	registry            *prometheus.Registry
	cyclesCompleted     prometheus.Counter
	cyclesFailed        prometheus.Counter
	rebalancesTriggered prometheus.Counter
	ordersPlaced        prometheus.Counter
	ordersFailed        prometheus.Counter
	alertsFailed        prometheus.Counter
	baseDelta           prometheus.Gauge
	baseDeltaRatio      prometheus.Gauge
	markPrice           prometheus.Gauge
	totalValueUSDT      prometheus.Gauge
}

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	cyclesCompleted := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "cycles_completed_total",
		Help:      "Total number of completed poll cycles.",
	})
	cyclesFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "cycles_failed_total",
		Help:      "Total number of aborted poll cycles.",
	})
	rebalancesTriggered := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "rebalances_triggered_total",
		Help:      "Total number of cycles that crossed the rebalance thresholds.",
	})
	ordersPlaced := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "orders_placed_total",
		Help:      "Total number of hedge orders placed.",
	})
	ordersFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "orders_failed_total",
		Help:      "Total number of hedge order placement failures.",
	})
	alertsFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "alerts_failed_total",
		Help:      "Total number of alert delivery failures.",
	})
	baseDelta := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: promNamespace,
		Name:      "base_delta",
		Help:      "Net base-asset exposure across the AMM and futures legs.",
	})
	baseDeltaRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: promNamespace,
		Name:      "base_delta_ratio",
		Help:      "Base delta relative to the larger leg.",
	})
	markPrice := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: promNamespace,
		Name:      "mark_price_usdt",
		Help:      "Latest futures mark price for the hedged symbol.",
	})
	totalValueUSDT := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: promNamespace,
		Name:      "total_value_usdt",
		Help:      "Combined USDT value of the LP position and futures PnL.",
	})

	registry.MustRegister(cyclesCompleted, cyclesFailed, rebalancesTriggered,
		ordersPlaced, ordersFailed, alertsFailed,
		baseDelta, baseDeltaRatio, markPrice, totalValueUSDT)

	m := &Metrics{
		CyclesCompleted:     promCounter{cyclesCompleted},
		CyclesFailed:        promCounter{cyclesFailed},
		RebalancesTriggered: promCounter{rebalancesTriggered},
		OrdersPlaced:        promCounter{ordersPlaced},
		OrdersFailed:        promCounter{ordersFailed},
		AlertsFailed:        promCounter{alertsFailed},
		BaseDelta:           promGauge{baseDelta},
		BaseDeltaRatio:      promGauge{baseDeltaRatio},
		MarkPrice:           promGauge{markPrice},
		TotalValueUSDT:      promGauge{totalValueUSDT},
	}

	return &Prometheus{
		Metrics:             m,
		registry:            registry,
		cyclesCompleted:     cyclesCompleted,
		cyclesFailed:        cyclesFailed,
		rebalancesTriggered: rebalancesTriggered,
		ordersPlaced:        ordersPlaced,
		ordersFailed:        ordersFailed,
		alertsFailed:        alertsFailed,
		baseDelta:           baseDelta,
		baseDeltaRatio:      baseDeltaRatio,
		markPrice:           markPrice,
		totalValueUSDT:      totalValueUSDT,
	}
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
