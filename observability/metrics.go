package observability

import (
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics tracks the actions applied by the lending engine.
type EngineMetrics struct {
	actions    *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	shortfalls prometheus.Counter
	shortfall  prometheus.Counter
	fees       *prometheus.CounterVec
	xp         *prometheus.CounterVec
	paused     *prometheus.GaugeVec
}

var (
	engineMetricsOnce sync.Once
	engineRegistry    *EngineMetrics
)

// Engine returns the lazily-initialised engine metrics registry.
func Engine() *EngineMetrics {
	engineMetricsOnce.Do(func() {
		engineRegistry = &EngineMetrics{
			actions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lend",
				Subsystem: "engine",
				Name:      "actions_total",
				Help:      "Total engine actions segmented by action and outcome.",
			}, []string{"action", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "lend",
				Subsystem: "engine",
				Name:      "action_duration_seconds",
				Help:      "Latency distribution for engine actions including the state commit.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"action"}),
			shortfalls: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "lend",
				Subsystem: "yield",
				Name:      "shortfall_events_total",
				Help:      "Withdrawals that observed a custodian balance below principal.",
			}),
			shortfall: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "lend",
				Subsystem: "yield",
				Name:      "shortfall_amount_total",
				Help:      "Cumulative principal shortfall in whole units.",
			}),
			fees: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lend",
				Subsystem: "yield",
				Name:      "fees_total",
				Help:      "Cumulative fees collected in whole units segmented by kind.",
			}, []string{"kind"}),
			xp: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "lend",
				Subsystem: "xp",
				Name:      "movements_total",
				Help:      "Cumulative XP in whole units segmented by movement kind.",
			}, []string{"kind"}),
			paused: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "lend",
				Subsystem: "engine",
				Name:      "module_paused",
				Help:      "1 when the module is paused by an operator.",
			}, []string{"module"}),
		}
		prometheus.MustRegister(
			engineRegistry.actions,
			engineRegistry.latency,
			engineRegistry.shortfalls,
			engineRegistry.shortfall,
			engineRegistry.fees,
			engineRegistry.xp,
			engineRegistry.paused,
		)
	})
	return engineRegistry
}

// ObserveAction records the outcome and latency of a single engine action.
func (m *EngineMetrics) ObserveAction(action string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	action = normalizeLabel(action)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.actions.WithLabelValues(action, outcome).Inc()
	m.latency.WithLabelValues(action).Observe(duration.Seconds())
}

// RecordShortfall counts a withdrawal that hit a principal shortfall.
func (m *EngineMetrics) RecordShortfall(amount *uint256.Int) {
	if m == nil {
		return
	}
	m.shortfalls.Inc()
	m.shortfall.Add(units(amount))
}

// RecordFee adds a collected fee of the given kind ("treasury" or
// "merchant").
func (m *EngineMetrics) RecordFee(kind string, amount *uint256.Int) {
	if m == nil || amount == nil || amount.IsZero() {
		return
	}
	m.fees.WithLabelValues(normalizeLabel(kind)).Add(units(amount))
}

// RecordXP adds an XP movement of the given kind ("accrued", "claimed",
// "awarded", "burned").
func (m *EngineMetrics) RecordXP(kind string, amount *uint256.Int) {
	if m == nil || amount == nil || amount.IsZero() {
		return
	}
	m.xp.WithLabelValues(normalizeLabel(kind)).Add(units(amount))
}

// SetPaused mirrors a module pause toggle.
func (m *EngineMetrics) SetPaused(module string, paused bool) {
	if m == nil {
		return
	}
	value := 0.0
	if paused {
		value = 1
	}
	m.paused.WithLabelValues(normalizeLabel(module)).Set(value)
}

func normalizeLabel(v string) string {
	trimmed := strings.ToLower(strings.TrimSpace(v))
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}

var unitScale = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

// units converts an 18-decimal fixed-point amount into a float of whole
// units for exposition. Precision loss is acceptable for metrics.
func units(amount *uint256.Int) float64 {
	if amount == nil || amount.IsZero() {
		return 0
	}
	value := new(big.Float).SetInt(amount.ToBig())
	value.Quo(value, unitScale)
	out, _ := value.Float64()
	return out
}
