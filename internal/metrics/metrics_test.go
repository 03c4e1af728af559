package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestAuthMetrics(t *testing.T) {
	m := NewAuthMetrics(prometheus.NewRegistry())

	m.ObserveLogin(nil)
	m.ObserveLogin(errors.New("bad credentials"))
	m.ObserveLogin(errors.New("bad credentials"))
	m.ObserveRefresh(nil)
	m.ObserveLogout()
	m.AddPurged(3)
	m.AddPurged(0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.logins.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.logins.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshes.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.logouts))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.purged))
}

func TestAuthMetrics_Nil(t *testing.T) {
	var m *AuthMetrics
	assert.NotPanics(t, func() {
		m.ObserveLogin(nil)
		m.ObserveRefresh(nil)
		m.ObserveLogout()
		m.AddPurged(1)
	})
}
