package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the session module.
type Metrics struct {
	Created        prometheus.Counter
	Destroyed      prometheus.Counter
	ExpiredLookups prometheus.Counter
	SweptExpired   prometheus.Counter
}

// New creates a new Metrics instance with all session module metrics registered.
func New() *Metrics {
	return &Metrics{
		Created: promauto.NewCounter(prometheus.CounterOpts{
			Name: "authhub_sessions_created_total",
			Help: "Total number of sessions created",
		}),
		Destroyed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "authhub_sessions_destroyed_total",
			Help: "Total number of sessions destroyed explicitly",
		}),
		ExpiredLookups: promauto.NewCounter(prometheus.CounterOpts{
			Name: "authhub_sessions_expired_lookups_total",
			Help: "Total number of lookups that hit an expired session",
		}),
		SweptExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "authhub_sessions_swept_total",
			Help: "Total number of expired sessions removed by the background sweep",
		}),
	}
}

// IncrementCreated records a session creation.
func (m *Metrics) IncrementCreated() {
	m.Created.Inc()
}

// IncrementDestroyed records explicit session destructions.
func (m *Metrics) IncrementDestroyed(n int) {
	m.Destroyed.Add(float64(n))
}

// IncrementExpiredLookup records a lookup that found an expired session.
func (m *Metrics) IncrementExpiredLookup() {
	m.ExpiredLookups.Inc()
}

// AddSwept records sessions removed by the background sweep.
func (m *Metrics) AddSwept(n int) {
	m.SweptExpired.Add(float64(n))
}
