package admin

import (
	"encoding/json"
	"net/http"

	"vista-bridge/internal/bridge/model"
)

// StateReader is the subset of the Relayer contract the admin surface
// needs; a read-only view so this server can never mutate bridge state.
type StateReader interface {
	GetBridgeState() (model.BridgeState, error)
	GetPendingDeposits() ([]model.PendingMirror, error)
}

type handlers struct {
	reader StateReader
}

func (h *handlers) getState(w http.ResponseWriter, _ *http.Request) {
	state, err := h.reader.GetBridgeState()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, state)
}

func (h *handlers) listPending(w http.ResponseWriter, _ *http.Request) {
	pending, err := h.reader.GetPendingDeposits()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, pending)
}

func (h *handlers) listProcessed(w http.ResponseWriter, _ *http.Request) {
	state, err := h.reader.GetBridgeState()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, state.ProcessedDeposits)
}

func (h *handlers) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, v any) {
	_ = json.NewEncoder(w).Encode(v)
}
