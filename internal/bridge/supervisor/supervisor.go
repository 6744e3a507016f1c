// Package supervisor starts the bridge's services in dependency order,
// runs the periodic status report, and propagates fatal errors
// (spec §4.6).
package supervisor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"vista-bridge/internal/bridge/config"
	"vista-bridge/internal/bridge/indexer"
	"vista-bridge/internal/bridge/metrics"
	"vista-bridge/internal/bridge/mirror"
	"vista-bridge/internal/bridge/model"
	"vista-bridge/internal/bridge/relayer"
	"vista-bridge/internal/bridge/store"
	"vista-bridge/internal/ledger/destination"
	"vista-bridge/internal/ledger/source"
)

const (
	statusReportInterval = 30 * time.Second
	statusWarmup         = 5 * time.Second
)

// Supervisor boots Store -> Relayer -> Source Adapter -> Mirror Worker
// (background) -> Indexer (blocking), per spec §4.6.
type Supervisor struct {
	cfg    *config.BridgeConfig
	logger *zap.Logger

	Store       *store.Store
	Relayer     *relayer.Relayer
	SourceAdapt source.Adapter
	DestAdapt   destination.Adapter
	Mirror      *mirror.Worker
	Indexer     *indexer.Indexer
}

// New wires the components together. sourceAdapter/destAdapter let
// callers (production main, or tests) supply either the real client or
// an in-memory fake, per spec §9's substitutable-adapter design note.
func New(cfg *config.BridgeConfig, st *store.Store, sourceAdapter source.Adapter, destAdapter destination.Adapter, logger *zap.Logger) *Supervisor {
	r := relayer.New(st, cfg, logger)
	mw := mirror.New(destAdapter, cfg, r, logger)
	ix := indexer.New(sourceAdapter, cfg, r, logger)

	return &Supervisor{
		cfg:         cfg,
		logger:      logger,
		Store:       st,
		Relayer:     r,
		SourceAdapt: sourceAdapter,
		DestAdapt:   destAdapter,
		Mirror:      mw,
		Indexer:     ix,
	}
}

// Run blocks until the Indexer exits (fatal, per spec §4.6) or ctx is
// canceled (graceful shutdown). Mirror Worker failures are logged and
// retried forever by its own internal loop; they never terminate Run.
func (s *Supervisor) Run(ctx context.Context) error {
	// Subscribe before Start so the pending mirrors Start re-emits reach
	// the Mirror Worker.
	deposits := s.Relayer.SubscribeToDeposits()

	state, err := s.Relayer.Start()
	if err != nil {
		return err
	}
	s.logger.Info("bridge state loaded",
		zap.Int("pending_mirrors", len(state.PendingMirrors)),
		zap.Int("processed_deposits", len(state.ProcessedDeposits)),
		zap.Uint64("watermark_slot", state.Watermark.LastProcessedSlot))
	metrics.PendingMirrorsGauge.Set(float64(len(state.PendingMirrors)))

	go s.runMirrorForever(ctx, deposits)
	go s.runStatusReports(ctx)

	err = s.Indexer.Run(ctx)
	if err != nil {
		s.logger.Error("indexer exited fatally", zap.Error(err))
	}

	_ = s.Relayer.PersistState()
	return err
}

// runMirrorForever retries the Mirror Worker forever if it ever returns,
// matching spec §4.6's "Mirror failure is retried forever". Worker.Run
// itself only returns on ctx cancellation, so this loop is a defensive
// wrapper rather than the primary recovery path.
func (s *Supervisor) runMirrorForever(ctx context.Context, deposits <-chan model.DepositEvent) {
	for {
		if ctx.Err() != nil {
			return
		}
		s.Mirror.Run(ctx, deposits)
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("mirror worker loop exited unexpectedly, restarting")
		time.Sleep(time.Second)
	}
}

func (s *Supervisor) runStatusReports(ctx context.Context) {
	warmup := time.NewTimer(statusWarmup)
	defer warmup.Stop()
	select {
	case <-ctx.Done():
		return
	case <-warmup.C:
		s.reportStatus()
	}

	ticker := time.NewTicker(statusReportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reportStatus()
		}
	}
}

func (s *Supervisor) reportStatus() {
	state, err := s.Relayer.GetBridgeState()
	if err != nil {
		s.logger.Error("status report: failed to load bridge state", zap.Error(err))
		return
	}
	lastMirror := ""
	var maxTime time.Time
	for _, p := range state.ProcessedDeposits {
		if p.MirrorTxHash != "" && p.ProcessedAt.After(maxTime) {
			maxTime = p.ProcessedAt
			lastMirror = p.MirrorTxHash
		}
	}
	s.logger.Info("bridge status report",
		zap.Int("processed_deposits", len(state.ProcessedDeposits)),
		zap.Int("pending_mirrors", len(state.PendingMirrors)),
		zap.String("most_recent_mirror_tx_hash", lastMirror))
}

// Shutdown runs the cancellation sequence spec §5 describes: stop
// accepting new source events (handled by canceling ctx before calling
// this), let in-flight mirror attempts drain, persist, then close the
// store.
func (s *Supervisor) Shutdown() error {
	if err := s.Relayer.PersistState(); err != nil {
		return err
	}
	return s.Store.Close()
}
