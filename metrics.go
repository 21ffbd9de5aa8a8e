package ldapguard

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector receives guard lifecycle events.
//
// Implementations must be cheap: every hook is invoked inline with the
// holder's critical section.
type Collector interface {
	// ConnEstablished is invoked for the eager dial at construction.
	ConnEstablished()
	// ConnReused is invoked on the fast path, when the existing handle
	// is still within its idle budget.
	ConnReused()
	// ConnRefreshed is invoked when a fresh handle replaces a missing
	// or idle-expired one.
	ConnRefreshed()
	// StaleRejected is invoked when an idle-expired handle is rejected
	// under the refresh-disabled policy.
	StaleRejected()
	// TeardownFailed is invoked when closing a handle fails.
	TeardownFailed()
}

type noopCollector struct{}

// NoopCollector returns a collector that discards all events.
func NoopCollector() Collector {
	return noopCollector{}
}

func (noopCollector) ConnEstablished() {}
func (noopCollector) ConnReused()      {}
func (noopCollector) ConnRefreshed()   {}
func (noopCollector) StaleRejected()   {}
func (noopCollector) TeardownFailed()  {}

// PrometheusCollector exposes guard lifecycle counters via Prometheus.
type PrometheusCollector struct {
	established prometheus.Counter
	reused      prometheus.Counter
	refreshed   prometheus.Counter
	stale       prometheus.Counter
	teardown    prometheus.Counter
}

// NewPrometheusCollector registers the guard counters with the provided
// registerer. A nil registerer falls back to the default one. Repeated
// registration adopts the already-registered counters, so several
// guards in one process share a collector safely.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &PrometheusCollector{}
	counters := []struct {
		target *prometheus.Counter
		name   string
		help   string
	}{
		{&c.established, "ldapguard_connections_established_total", "Number of eager connection establishments at guard construction."},
		{&c.reused, "ldapguard_connections_reused_total", "Number of operations served by an existing handle within its idle budget."},
		{&c.refreshed, "ldapguard_connections_refreshed_total", "Number of fresh connections established after idle expiry or close."},
		{&c.stale, "ldapguard_stale_rejections_total", "Number of operations rejected because the connection idled out under the no-refresh policy."},
		{&c.teardown, "ldapguard_teardown_failures_total", "Number of failures while closing a connection handle."},
	}

	for _, def := range counters {
		counter := prometheus.NewCounter(prometheus.CounterOpts{
			Name: def.name,
			Help: def.help,
		})
		if err := reg.Register(counter); err != nil {
			already, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				return nil, err
			}
			existing, ok := already.ExistingCollector.(prometheus.Counter)
			if !ok {
				return nil, err
			}
			counter = existing
		}
		*def.target = counter
	}

	return c, nil
}

func (c *PrometheusCollector) ConnEstablished() { c.established.Inc() }
func (c *PrometheusCollector) ConnReused()      { c.reused.Inc() }
func (c *PrometheusCollector) ConnRefreshed()   { c.refreshed.Inc() }
func (c *PrometheusCollector) StaleRejected()   { c.stale.Inc() }
func (c *PrometheusCollector) TeardownFailed()  { c.teardown.Inc() }
