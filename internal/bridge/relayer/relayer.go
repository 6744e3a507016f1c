// Package relayer implements the state broker at the center of the
// bridge: the single publication point for deposits and the sole
// mutator of the Durable Store (spec §4.3).
package relayer

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"vista-bridge/internal/bridge/config"
	brerrors "vista-bridge/internal/bridge/errors"
	"vista-bridge/internal/bridge/metrics"
	"vista-bridge/internal/bridge/model"
	"vista-bridge/internal/bridge/store"
)

// Relayer is the single in-process publication point and serialization
// point for all mutations to bridge state (spec §4.3). All exported
// methods are safe for concurrent use; mutations are linearized by mu.
type Relayer struct {
	mu     sync.Mutex
	store  *store.Store
	cfg    *config.BridgeConfig
	logger *zap.Logger

	subscribers []chan model.DepositEvent
	msgCounter  uint64
}

func New(st *store.Store, cfg *config.BridgeConfig, logger *zap.Logger) *Relayer {
	return &Relayer{store: st, cfg: cfg, logger: logger}
}

// Start loads the full BridgeState from the store and, per spec §9's
// mandated design, re-emits every surviving PendingMirror onto the
// subscriber stream so the Mirror Worker can resume them without
// waiting for the periodic sweep (the faster of the two valid options
// spec §9 allows).
func (r *Relayer) Start() (model.BridgeState, error) {
	state, err := r.store.LoadBridgeState()
	if err != nil {
		return model.BridgeState{}, err
	}
	r.mu.Lock()
	for _, pm := range state.PendingMirrors {
		r.broadcastLocked(pm.Deposit)
	}
	r.mu.Unlock()
	return state, nil
}

// SubscribeToDeposits returns a single-consumer FIFO channel of deposits
// published from this boot onward. The channel is never closed by the
// Relayer; callers drain until shutdown. The channel is buffered to
// 1<<20 events; once a consumer falls that far behind, publication
// blocks (with mu held) until it drains.
func (r *Relayer) SubscribeToDeposits() <-chan model.DepositEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan model.DepositEvent, 1<<20)
	r.subscribers = append(r.subscribers, ch)
	return ch
}

func (r *Relayer) broadcastLocked(ev model.DepositEvent) {
	for _, ch := range r.subscribers {
		ch <- ev
	}
}

// PublishDeposit persists a PendingMirror for this deposit (idempotent
// upsert by txHash, retryCount reset to 0) and offers it to subscribers.
// Enforces invariants 3 and 1 of spec §3 before writing: a deposit that
// already has a ProcessedDeposit is neither written nor broadcast, and
// the result reports Success=false.
func (r *Relayer) PublishDeposit(ev model.DepositEvent) (model.PublishResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.validateLocked(ev); err != nil {
		return model.PublishResult{}, err
	}

	state, err := r.store.LoadBridgeState()
	if err != nil {
		return model.PublishResult{}, err
	}
	if _, done := state.ProcessedDeposits[ev.TxHash]; done {
		r.logger.Info("deposit already processed, not republishing",
			zap.String("deposit_tx_hash", ev.TxHash))
		return model.PublishResult{Success: false}, nil
	}

	pm := model.PendingMirror{
		DepositTxHash: ev.TxHash,
		Deposit:       ev,
		RetryCount:    0,
	}
	if err := r.store.AddPendingMirror(pm); err != nil {
		return model.PublishResult{}, err
	}

	r.msgCounter++
	msgID := fmt.Sprintf("%s-%d", ev.TxHash, r.msgCounter)

	r.broadcastLocked(ev)

	r.logger.Info("deposit published",
		zap.String("deposit_tx_hash", ev.TxHash),
		zap.String("message_id", msgID))
	r.refreshPendingGaugeLocked()

	return model.PublishResult{Success: true, MessageID: msgID}, nil
}

// refreshPendingGaugeLocked recomputes the pending-mirrors gauge. Called
// with mu held, after every mutation that changes the pending set.
func (r *Relayer) refreshPendingGaugeLocked() {
	all, err := r.store.ListPendingMirrors()
	if err != nil {
		return
	}
	metrics.PendingMirrorsGauge.Set(float64(len(all)))
}

func (r *Relayer) validateLocked(ev model.DepositEvent) error {
	if ev.Amount == nil || ev.Amount.Sign() <= 0 {
		return brerrors.New(brerrors.ClassValidation, "amount must be > 0")
	}
	minD := r.cfg.MinDepositAmount
	maxD := r.cfg.MaxTransferAmount
	amt := ev.Amount.Uint64()
	if ev.Amount.IsUint64() && (amt < minD || amt > maxD) {
		return brerrors.New(brerrors.ClassValidation, "amount outside configured bounds")
	}
	if !ev.Amount.IsUint64() && ev.Amount.Sign() > 0 {
		// Amounts beyond uint64 range always exceed maxTransferAmount.
		return brerrors.New(brerrors.ClassValidation, "amount outside configured bounds")
	}
	if !r.cfg.AllowsAsset(ev.AssetType) {
		return brerrors.New(brerrors.ClassValidation, "asset type not allowed")
	}
	return nil
}

// UpdateMirrorStatus reports the outcome of a mirror attempt back to the
// Relayer (spec §4.3). Returns false if no matching PendingMirror row
// existed, which is how the idempotency invariant in spec §4.5 is
// enforced: a worker racing a concurrent promotion simply observes false
// and stops.
func (r *Relayer) UpdateMirrorStatus(depositTxHash, mirrorTxHash string, status model.MirrorStatus, errorMessage string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch status {
	case model.StatusConfirmed:
		pending, err := r.findPendingLocked(depositTxHash)
		if err != nil {
			return false, err
		}
		if pending == nil {
			return false, nil
		}
		processed := model.ProcessedDeposit{
			DepositTxHash: depositTxHash,
			ProcessedAt:   time.Now().UTC(),
			MirrorTxHash:  mirrorTxHash,
			Status:        model.StatusConfirmed,
		}
		if err := r.store.PromotePendingToProcessed(depositTxHash, processed); err != nil {
			return false, err
		}
		r.logger.Info("mirror confirmed",
			zap.String("deposit_tx_hash", depositTxHash),
			zap.String("mirror_tx_hash", mirrorTxHash))
		metrics.MirrorsConfirmed.Inc()
		r.refreshPendingGaugeLocked()
		return true, nil

	case model.StatusFailed:
		pending, err := r.findPendingLocked(depositTxHash)
		if err != nil {
			return false, err
		}
		if pending == nil {
			return false, nil
		}
		newRetryCount := pending.RetryCount + 1
		if newRetryCount >= r.cfg.RetryAttempts {
			processed := model.ProcessedDeposit{
				DepositTxHash: depositTxHash,
				ProcessedAt:   time.Now().UTC(),
				MirrorTxHash:  mirrorTxHash,
				Status:        model.StatusFailed,
			}
			if err := r.store.PromotePendingToProcessed(depositTxHash, processed); err != nil {
				return false, err
			}
			r.logger.Warn("mirror failed terminally, retries exhausted",
				zap.String("deposit_tx_hash", depositTxHash),
				zap.Int("retry_count", newRetryCount),
				zap.String("error", errorMessage))
			metrics.MirrorsFailed.Inc()
			r.refreshPendingGaugeLocked()
			return true, nil
		}
		found, err := r.store.UpdatePendingMirror(depositTxHash, newRetryCount, errorMessage)
		if err != nil {
			return false, err
		}
		r.logger.Warn("mirror attempt failed, will retry",
			zap.String("deposit_tx_hash", depositTxHash),
			zap.Int("retry_count", newRetryCount),
			zap.String("error", errorMessage))
		return found, nil

	default:
		return false, brerrors.New(brerrors.ClassValidation, "unsupported terminal status")
	}
}

func (r *Relayer) findPendingLocked(depositTxHash string) (*model.PendingMirror, error) {
	pm, found, err := r.store.GetPendingMirror(depositTxHash)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &pm, nil
}

// GetBridgeState returns the full snapshot, read-through to the store.
func (r *Relayer) GetBridgeState() (model.BridgeState, error) {
	return r.store.LoadBridgeState()
}

// GetPendingDeposits returns every PendingMirror row.
func (r *Relayer) GetPendingDeposits() ([]model.PendingMirror, error) {
	return r.store.ListPendingMirrors()
}

// GetPendingDepositsForRetry returns PendingMirrors whose retryCount is
// still under maxRetries, the set the periodic sweep should act on.
func (r *Relayer) GetPendingDepositsForRetry(maxRetries int) ([]model.PendingMirror, error) {
	all, err := r.store.ListPendingMirrors()
	if err != nil {
		return nil, err
	}
	out := make([]model.PendingMirror, 0, len(all))
	for _, pm := range all {
		if pm.RetryCount < maxRetries {
			out = append(out, pm)
		}
	}
	return out, nil
}

// PersistState is a no-op beyond what the Durable Store already
// guarantees (every mutation is durable before return); it exists as an
// explicit administrative hook for the Supervisor's shutdown path
// (spec §5).
func (r *Relayer) PersistState() error {
	return nil
}

// CleanupOldDeposits deletes ProcessedDeposits older than maxAge. Never
// called automatically (spec §9's retention policy is left open; the
// core's invariants do not depend on it), exposed for operator-triggered
// audit compaction.
func (r *Relayer) CleanupOldDeposits(maxAge time.Duration) (int, error) {
	all, err := r.store.ListProcessedDeposits()
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, p := range all {
		if p.ProcessedAt.Before(cutoff) {
			if err := r.store.DeleteProcessedDeposit(p.DepositTxHash); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}
