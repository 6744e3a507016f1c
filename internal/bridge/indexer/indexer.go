// Package indexer drives the Source Ledger Adapter, filters and
// validates incoming deposits, and forwards survivors to the Relayer
// (spec §4.4).
package indexer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"vista-bridge/internal/bridge/config"
	brerrors "vista-bridge/internal/bridge/errors"
	"vista-bridge/internal/bridge/metrics"
	"vista-bridge/internal/bridge/model"
	"vista-bridge/internal/ledger/source"
)

// Publisher is the subset of the Relayer contract the Indexer depends
// on, narrowed to ease testing and to keep the dependency direction
// one-way per spec §9's design note (the Relayer never calls back into
// the Indexer or Mirror Worker).
type Publisher interface {
	PublishDeposit(ev model.DepositEvent) (model.PublishResult, error)
}

// Indexer drives the source adapter for the configured deposit-address
// set.
type Indexer struct {
	adapter source.Adapter
	cfg     *config.BridgeConfig
	pub     Publisher
	logger  *zap.Logger

	mu      sync.Mutex
	seen    map[string]bool
}

func New(adapter source.Adapter, cfg *config.BridgeConfig, pub Publisher, logger *zap.Logger) *Indexer {
	return &Indexer{
		adapter: adapter,
		cfg:     cfg,
		pub:     pub,
		logger:  logger,
		seen:    make(map[string]bool),
	}
}

// Run blocks, driving the adapter stream until ctx is canceled or an
// unrecoverable (non-transient) error occurs. It is the Indexer's
// "infinite loop" the Supervisor blocks on.
func (ix *Indexer) Run(ctx context.Context) error {
	if len(ix.cfg.SourceDepositAddrs) == 0 {
		return brerrors.New(brerrors.ClassConfig, "no deposit addresses configured")
	}

	retryDelay := time.Duration(ix.cfg.RetryDelayMs) * time.Millisecond
	if retryDelay <= 0 {
		retryDelay = 30 * time.Second
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		events, err := ix.adapter.WatchAddresses(ctx, ix.cfg.SourceDepositAddrs)
		if err != nil {
			if se, ok := err.(*source.StreamError); ok && se.Class == source.ErrAuth {
				return brerrors.Wrap(brerrors.ClassAuth, err, "source adapter authentication failed")
			}
			ix.logger.Error("failed to open source stream", zap.Error(err))
			if !sleepCtx(ctx, retryDelay) {
				return nil
			}
			continue
		}

		streamErr := ix.drain(ctx, events)
		if streamErr == nil {
			// Channel closed cleanly (ctx canceled).
			return nil
		}
		if se, ok := streamErr.(*source.StreamError); ok && se.Class == source.ErrAuth {
			return brerrors.Wrap(brerrors.ClassAuth, streamErr, "source adapter authentication failed")
		}
		ix.logger.Warn("source stream ended, re-subscribing", zap.Error(streamErr), zap.Duration("delay", retryDelay))
		if !sleepCtx(ctx, retryDelay) {
			return nil
		}
	}
}

// drain consumes one stream's events until it closes or a terminating
// error is observed, returning that error (nil if the stream closed
// because ctx was canceled).
func (ix *Indexer) drain(ctx context.Context, events <-chan source.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return brerrors.New(brerrors.ClassTransient, "source stream closed")
			}
			if ev.Err != nil {
				if ev.Err.Class == source.ErrAuth {
					return ev.Err
				}
				if ev.Err.Class == source.ErrDecoding {
					ix.logger.Warn("decoding error, skipping", zap.Error(ev.Err))
					continue
				}
				return ev.Err
			}
			if ev.Deposit != nil {
				ix.handleDeposit(*ev.Deposit)
			}
		}
	}
}

func (ix *Indexer) handleDeposit(ev model.DepositEvent) {
	ix.mu.Lock()
	if ix.seen[ev.TxHash] {
		ix.mu.Unlock()
		return
	}
	ix.mu.Unlock()

	if !ix.validate(ev) {
		return
	}

	ix.mu.Lock()
	ix.seen[ev.TxHash] = true
	ix.mu.Unlock()

	if _, err := ix.pub.PublishDeposit(ev); err != nil {
		ix.mu.Lock()
		delete(ix.seen, ev.TxHash)
		ix.mu.Unlock()
		ix.logger.Error("publish failed, will retry on re-delivery",
			zap.String("deposit_tx_hash", ev.TxHash), zap.Error(err))
		return
	}
	metrics.DepositsObserved.Inc()
}

// validate applies spec §4.4 step 2's rules. Failures are logged and
// dropped — no retry, no surface.
func (ix *Indexer) validate(ev model.DepositEvent) bool {
	if ev.Amount == nil || !ev.Amount.IsUint64() {
		ix.logger.Warn("deposit amount out of range, dropping", zap.String("deposit_tx_hash", ev.TxHash))
		metrics.DepositsRejected.WithLabelValues("amount_out_of_range").Inc()
		return false
	}
	amt := ev.Amount.Uint64()
	if amt < ix.cfg.MinDepositAmount || amt > ix.cfg.MaxTransferAmount {
		ix.logger.Warn("deposit amount outside configured bounds, dropping",
			zap.String("deposit_tx_hash", ev.TxHash), zap.Uint64("amount", amt))
		metrics.DepositsRejected.WithLabelValues("amount_out_of_bounds").Inc()
		return false
	}
	if !ix.cfg.AllowsAsset(ev.AssetType) {
		ix.logger.Warn("deposit asset not allowed, dropping",
			zap.String("deposit_tx_hash", ev.TxHash), zap.String("asset_type", ev.AssetType))
		metrics.DepositsRejected.WithLabelValues("asset_not_allowed").Inc()
		return false
	}
	return true
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
