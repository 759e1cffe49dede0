package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the identity module.
// Tracks registrations, login outcomes, and credential verification latency.
type Metrics struct {
	Registrations   prometheus.Counter
	LoginSuccess    prometheus.Counter
	LoginFailure    prometheus.Counter
	OAuthLogins     *prometheus.CounterVec
	OAuthSignups    *prometheus.CounterVec
	LoginDuration   prometheus.Histogram
	ProfileUpdates  prometheus.Counter
}

// New creates a new Metrics instance with all identity module metrics registered.
func New() *Metrics {
	return &Metrics{
		Registrations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "authhub_registrations_total",
			Help: "Total number of local account registrations",
		}),
		LoginSuccess: promauto.NewCounter(prometheus.CounterOpts{
			Name: "authhub_logins_success_total",
			Help: "Total number of successful password logins",
		}),
		LoginFailure: promauto.NewCounter(prometheus.CounterOpts{
			Name: "authhub_logins_failure_total",
			Help: "Total number of rejected password logins",
		}),
		OAuthLogins: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "authhub_oauth_logins_total",
			Help: "Total number of OAuth sign-ins by provider",
		}, []string{"provider"}),
		OAuthSignups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "authhub_oauth_signups_total",
			Help: "Total number of first-time OAuth registrations by provider",
		}, []string{"provider"}),
		LoginDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "authhub_login_duration_seconds",
			Help:    "Duration of password login attempts including hash verification",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		ProfileUpdates: promauto.NewCounter(prometheus.CounterOpts{
			Name: "authhub_profile_updates_total",
			Help: "Total number of preference and profile updates",
		}),
	}
}

// IncrementRegistration records a successful local registration.
func (m *Metrics) IncrementRegistration() {
	m.Registrations.Inc()
}

// IncrementLogin records a password login outcome.
func (m *Metrics) IncrementLogin(success bool) {
	if success {
		m.LoginSuccess.Inc()
	} else {
		m.LoginFailure.Inc()
	}
}

// IncrementOAuthLogin records an OAuth sign-in; isNew marks a first-time
// registration.
func (m *Metrics) IncrementOAuthLogin(provider string, isNew bool) {
	m.OAuthLogins.WithLabelValues(provider).Inc()
	if isNew {
		m.OAuthSignups.WithLabelValues(provider).Inc()
	}
}

// ObserveLogin records the duration of a password login attempt.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveLogin(start time.Time) {
	m.LoginDuration.Observe(time.Since(start).Seconds())
}

// IncrementProfileUpdate records a preferences or profile change.
func (m *Metrics) IncrementProfileUpdate() {
	m.ProfileUpdates.Inc()
}
