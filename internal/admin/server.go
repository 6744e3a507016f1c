// Package admin exposes a read-only HTTP surface over the bridge's
// state: bridge state snapshot, pending mirrors, processed deposits,
// and a Prometheus /metrics endpoint. It mirrors the teacher's
// cmd/xchainserver admin server, narrowed to read-only operations
// since the bridge's only writer is the Relayer.
package admin

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vista-bridge/internal/bridge/metrics"
)

// NewRouter configures the admin HTTP routes.
func NewRouter(reader StateReader) *mux.Router {
	h := &handlers{reader: reader}

	r := mux.NewRouter()
	r.Use(requestLogger)
	r.Use(jsonHeaders)

	r.HandleFunc("/api/state", h.getState).Methods(http.MethodGet)
	r.HandleFunc("/api/pending", h.listPending).Methods(http.MethodGet)
	r.HandleFunc("/api/processed", h.listProcessed).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)

	return r
}
