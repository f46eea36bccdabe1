package metrics

type Counter interface {
	Inc()
}

type Gauge interface {
	Set(value float64)
}

type Metrics struct {
	CyclesCompleted     Counter
	CyclesFailed        Counter
	RebalancesTriggered Counter
	OrdersPlaced        Counter
	OrdersFailed        Counter
	AlertsFailed        Counter

	BaseDelta      Gauge
	BaseDeltaRatio Gauge
	MarkPrice      Gauge
	TotalValueUSDT Gauge
}

type noopCounter struct{}

func (noopCounter) Inc() {}

type noopGauge struct{}

func (noopGauge) Set(float64) {}

func NewNoop() *Metrics {
	c := noopCounter{}
	g := noopGauge{}
	return &Metrics{
		CyclesCompleted:     c,
		CyclesFailed:        c,
		RebalancesTriggered: c,
		OrdersPlaced:        c,
		OrdersFailed:        c,
		AlertsFailed:        c,
		BaseDelta:           g,
		BaseDeltaRatio:      g,
		MarkPrice:           g,
		TotalValueUSDT:      g,
	}
}
