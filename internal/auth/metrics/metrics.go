package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the OAuth flow module.
type Metrics struct {
	FlowsStarted     *prometheus.CounterVec
	CallbackOutcomes *prometheus.CounterVec
	CallbackDuration prometheus.Histogram
	StatesEvicted    prometheus.Counter
}

// New creates a new Metrics instance with all OAuth flow metrics registered.
func New() *Metrics {
	return &Metrics{
		FlowsStarted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "authhub_oauth_flows_started_total",
			Help: "Total number of OAuth flows started by provider",
		}, []string{"provider"}),
		CallbackOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "authhub_oauth_callbacks_total",
			Help: "Total number of OAuth callbacks by provider and outcome",
		}, []string{"provider", "outcome"}),
		CallbackDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "authhub_oauth_callback_duration_seconds",
			Help:    "Duration of OAuth callback handling including provider round trips",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		StatesEvicted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "authhub_oauth_states_evicted_total",
			Help: "Total number of abandoned anti-forgery states evicted",
		}),
	}
}

// IncrementFlowStarted records the start of an OAuth flow.
func (m *Metrics) IncrementFlowStarted(provider string) {
	m.FlowsStarted.WithLabelValues(provider).Inc()
}

// IncrementCallback records a callback outcome: "success", "invalid_state",
// "exchange_failed", "profile_failed", or "error".
func (m *Metrics) IncrementCallback(provider, outcome string) {
	m.CallbackOutcomes.WithLabelValues(provider, outcome).Inc()
}

// ObserveCallback records the duration of callback handling.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveCallback(start time.Time) {
	m.CallbackDuration.Observe(time.Since(start).Seconds())
}

// AddStatesEvicted records abandoned states removed during eviction.
func (m *Metrics) AddStatesEvicted(n int) {
	m.StatesEvicted.Add(float64(n))
}
