// Package mirror implements the Mirror Worker: for every PendingMirror
// it builds, signs, submits, and confirms the destination-side
// transaction, then reports the outcome back to the Relayer
// (spec §4.5).
package mirror

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"vista-bridge/internal/bridge/config"
	brerrors "vista-bridge/internal/bridge/errors"
	"vista-bridge/internal/bridge/model"
	"vista-bridge/internal/ledger/destination"
)

// StatusReporter is the subset of the Relayer contract the worker
// depends on.
type StatusReporter interface {
	UpdateMirrorStatus(depositTxHash, mirrorTxHash string, status model.MirrorStatus, errorMessage string) (bool, error)
	GetPendingDeposits() ([]model.PendingMirror, error)
}

// bridgeMetadataLabel is the metadata label spec §4.5 step 3 names.
const bridgeMetadataLabel = 1337

// bridgeVersion is attached to every mirror transaction's metadata.
const bridgeVersion = "1.0.0"

// sweepInterval is the periodic pending-deposit sweep cadence (spec §4.5).
const sweepInterval = 5 * time.Second

// poolSize is the parallelism cap applied to each work source: the live
// subscription path is bounded by the sem channel, the sweep by a
// golang.org/x/sync/errgroup limit. The two limits are separate, so live
// attempts still running when a sweep starts are not counted against it.
const poolSize = 3

// Worker is the Mirror Worker described in spec §4.5.
type Worker struct {
	adapter destination.Adapter
	cfg     *config.BridgeConfig
	relayer StatusReporter
	logger  *zap.Logger

	sem chan struct{}

	// nowFn is a test seam for deterministic metadata timestamps.
	nowFn func() time.Time
}

func New(adapter destination.Adapter, cfg *config.BridgeConfig, relayer StatusReporter, logger *zap.Logger) *Worker {
	return &Worker{
		adapter: adapter,
		cfg:     cfg,
		relayer: relayer,
		logger:  logger,
		sem:     make(chan struct{}, poolSize),
		nowFn:   time.Now,
	}
}

// Run drives both work sources named in spec §4.5: the live deposit
// subscription and the periodic pending sweep. It returns only when ctx
// is canceled.
func (w *Worker) Run(ctx context.Context, deposits <-chan model.DepositEvent) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-deposits:
			if !ok {
				deposits = nil
				continue
			}
			w.dispatch(ctx, ev)
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// dispatch processes a single live deposit under the bounded pool.
func (w *Worker) dispatch(ctx context.Context, ev model.DepositEvent) {
	select {
	case w.sem <- struct{}{}:
	case <-ctx.Done():
		return
	}
	go func() {
		defer func() { <-w.sem }()
		if err := w.processDeposit(ctx, ev); err != nil {
			w.logger.Error("mirror attempt failed",
				zap.String("deposit_tx_hash", ev.TxHash), zap.Error(err))
		}
	}()
}

// sweep calls Relayer.GetPendingDeposits and re-attempts each row with a
// parallelism cap of 3 (spec §4.5).
func (w *Worker) sweep(ctx context.Context) {
	pending, err := w.relayer.GetPendingDeposits()
	if err != nil {
		w.logger.Error("sweep: failed to list pending deposits", zap.Error(err))
		return
	}
	if len(pending) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(poolSize)
	for _, pm := range pending {
		pm := pm
		g.Go(func() error {
			if err := w.processDeposit(gctx, pm.Deposit); err != nil {
				w.logger.Error("sweep: mirror attempt failed",
					zap.String("deposit_tx_hash", pm.DepositTxHash), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

// processDeposit implements spec §4.5's algorithm end to end.
func (w *Worker) processDeposit(ctx context.Context, ev model.DepositEvent) error {
	net, err := w.computeNet(ev)
	if err != nil {
		return w.fail(ev.TxHash, brerrors.Wrap(brerrors.ClassMirrorBuild, err, "compute net amount"))
	}

	signed, err := w.build(ev, net)
	if err != nil {
		return w.fail(ev.TxHash, brerrors.Wrap(brerrors.ClassMirrorBuild, err, "build mirror transaction"))
	}

	preHash := signed.ToHash()

	ledgerHash, err := w.adapter.Submit(ctx, signed)
	if err != nil {
		return w.fail(ev.TxHash, brerrors.Wrap(brerrors.ClassMirrorSubmit, err, "submit mirror transaction"))
	}
	if ledgerHash != preHash {
		w.logger.Warn("ledger-reported hash disagrees with pre-computed hash, using ledger's",
			zap.String("deposit_tx_hash", ev.TxHash),
			zap.String("pre_hash", preHash), zap.String("ledger_hash", ledgerHash))
	}

	if _, err := w.relayer.UpdateMirrorStatus(ev.TxHash, ledgerHash, model.StatusConfirmed, ""); err != nil {
		return brerrors.Wrap(brerrors.ClassStore, err, "report confirmed status")
	}
	return nil
}

// computeNet implements spec §4.5 step 2: net = amount - feeAmount, with
// the insufficient-after-fee short-circuit before any build/submit
// attempt.
func (w *Worker) computeNet(ev model.DepositEvent) (uint64, error) {
	if ev.Amount == nil || !ev.Amount.IsUint64() {
		return 0, fmt.Errorf("deposit amount out of representable range")
	}
	amount := ev.Amount.Uint64()
	if amount < w.cfg.FeeAmount {
		return 0, fmt.Errorf("insufficient after fee")
	}
	net := amount - w.cfg.FeeAmount
	if net <= config.MinimumDestinationOutput {
		return 0, fmt.Errorf("insufficient after fee")
	}
	return net, nil
}

// build implements spec §4.5 step 3-4: one payment output to the
// deposit's sender, label-1337 metadata, then sign, extracting the
// mirror hash before submission.
func (w *Worker) build(ev model.DepositEvent, net uint64) (destination.SignedTx, error) {
	if len(w.cfg.DestSenderAddrs) == 0 {
		return nil, fmt.Errorf("no destination sender address configured")
	}
	if w.cfg.DestSenderSeed == "" {
		return nil, fmt.Errorf("no destination signer seed configured")
	}

	metadata := destination.Metadata{
		"msg":            []string{"VISTA Bridge: Mirroring deposit", ev.TxHash},
		"originalTx":     ev.TxHash,
		"bridgeVersion":  bridgeVersion,
		"timestamp":      w.nowFn().UnixMilli(),
	}

	unsigned, err := w.adapter.NewTxBuilder().
		PayToAddress(ev.SenderAddress, net).
		AttachMetadata(bridgeMetadataLabel, metadata).
		Complete()
	if err != nil {
		return nil, err
	}
	return unsigned.Sign(w.cfg.DestSenderSeed)
}

func (w *Worker) fail(depositTxHash string, cause error) error {
	if _, err := w.relayer.UpdateMirrorStatus(depositTxHash, "", model.StatusFailed, cause.Error()); err != nil {
		w.logger.Error("failed to report mirror failure to relayer",
			zap.String("deposit_tx_hash", depositTxHash), zap.Error(err))
	}
	return cause
}
