package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "kitchensink"

// AuthMetrics counts authentication events. A nil *AuthMetrics records nothing.
type AuthMetrics struct {
	logins    *prometheus.CounterVec
	refreshes *prometheus.CounterVec
	logouts   prometheus.Counter
	purged    prometheus.Counter
}

// NewAuthMetrics registers the auth collectors with reg.
func NewAuthMetrics(reg prometheus.Registerer) *AuthMetrics {
	factory := promauto.With(reg)
	return &AuthMetrics{
		logins: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "refreshes_total",
			Help:      "Refresh-token exchanges by result.",
		}, []string{"result"}),
		logouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "logouts_total",
			Help:      "Logout requests.",
		}),
		purged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_tokens_purged_total",
			Help:      "Expired refresh tokens removed by the sweeper.",
		}),
	}
}

// ObserveLogin records the outcome of a login.
func (m *AuthMetrics) ObserveLogin(err error) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result(err)).Inc()
}

// ObserveRefresh records the outcome of a refresh-token exchange.
func (m *AuthMetrics) ObserveRefresh(err error) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result(err)).Inc()
}

// ObserveLogout records a logout.
func (m *AuthMetrics) ObserveLogout() {
	if m == nil {
		return
	}
	m.logouts.Inc()
}

// AddPurged records n purged refresh tokens.
func (m *AuthMetrics) AddPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.purged.Add(float64(n))
}

func result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
