// Package metrics exposes the bridge's Prometheus instrumentation. The
// teacher's go.mod pulls in prometheus/client_golang transitively; this
// package gives it a concrete home per SPEC_FULL.md's domain-stack
// wiring.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	DepositsObserved = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "vista_bridge",
		Name:      "deposits_observed_total",
		Help:      "Deposits accepted by the indexer after validation.",
	})
	DepositsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vista_bridge",
		Name:      "deposits_rejected_total",
		Help:      "Deposits dropped by the indexer, labeled by reason.",
	}, []string{"reason"})
	MirrorsConfirmed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "vista_bridge",
		Name:      "mirrors_confirmed_total",
		Help:      "Mirror transactions confirmed on the destination chain.",
	})
	MirrorsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "vista_bridge",
		Name:      "mirrors_failed_total",
		Help:      "Mirror attempts that ended in a terminal failure.",
	})
	PendingMirrorsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "vista_bridge",
		Name:      "pending_mirrors",
		Help:      "Current count of PendingMirror rows in the durable store.",
	})
)

// Registry bundles the bridge's collectors onto a dedicated registry
// rather than the global default, so the admin server can serve a scoped
// /metrics endpoint without surprise default-process collectors leaking
// the TS original's behavior into the port.
func Registry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(DepositsObserved, DepositsRejected, MirrorsConfirmed, MirrorsFailed, PendingMirrorsGauge)
	return reg
}
