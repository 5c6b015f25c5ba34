// Package metrics provides a Prometheus-backed recorder for the session
// core's lifecycle events.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jrsteele09/go-auth-client/session"
)

// Collector implements session.Recorder on Prometheus counters.
type Collector struct {
	logins         *prometheus.CounterVec
	secondFactors  *prometheus.CounterVec
	refreshes      *prometheus.CounterVec
	refreshWaiters prometheus.Counter
	invalidations  *prometheus.CounterVec
	shopSwitches   prometheus.Counter
}

var _ session.Recorder = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authclient_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		secondFactors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authclient_second_factor_total",
			Help: "Second-factor completions by outcome.",
		}, []string{"outcome"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authclient_refreshes_total",
			Help: "Token refresh flights by outcome.",
		}, []string{"outcome"}),
		refreshWaiters: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authclient_refresh_waiters_total",
			Help: "Callers queued behind an in-flight refresh.",
		}),
		invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authclient_invalidations_total",
			Help: "Forced session invalidations by reason.",
		}, []string{"reason"}),
		shopSwitches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authclient_shop_switches_total",
			Help: "Successful shop context switches.",
		}),
	}

	reg.MustRegister(
		c.logins,
		c.secondFactors,
		c.refreshes,
		c.refreshWaiters,
		c.invalidations,
		c.shopSwitches,
	)

	return c
}

func (c *Collector) RecordLogin(outcome string) {
	c.logins.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordSecondFactor(outcome string) {
	c.secondFactors.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordRefresh(outcome string) {
	c.refreshes.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordRefreshWaiter() {
	c.refreshWaiters.Inc()
}

func (c *Collector) RecordInvalidation(reason string) {
	c.invalidations.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordShopSwitch() {
	c.shopSwitches.Inc()
}
