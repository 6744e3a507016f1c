package mirror

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"vista-bridge/internal/bridge/config"
	"vista-bridge/internal/bridge/model"
	"vista-bridge/internal/ledger/destination"
)

type statusUpdate struct {
	depositTxHash string
	mirrorTxHash  string
	status        model.MirrorStatus
	errorMessage  string
}

type recordingReporter struct {
	mu      sync.Mutex
	updates []statusUpdate
	pending []model.PendingMirror
}

func (r *recordingReporter) UpdateMirrorStatus(depositTxHash, mirrorTxHash string, status model.MirrorStatus, errorMessage string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, statusUpdate{depositTxHash, mirrorTxHash, status, errorMessage})
	return true, nil
}

func (r *recordingReporter) GetPendingDeposits() ([]model.PendingMirror, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending, nil
}

func (r *recordingReporter) lastUpdate() statusUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates[len(r.updates)-1]
}

func (r *recordingReporter) updateCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates)
}

func testWorkerConfig() *config.BridgeConfig {
	return &config.BridgeConfig{
		FeeAmount:       1_000_000,
		DestSenderAddrs: []string{"sender-on-dest"},
		DestSenderSeed:  "seed-phrase",
	}
}

func TestProcessDepositHappyPathConfirms(t *testing.T) {
	dest := destination.NewFake()
	reporter := &recordingReporter{}
	w := New(dest, testWorkerConfig(), reporter, zap.NewNop())

	ev := model.DepositEvent{TxHash: "aa", SenderAddress: "sender", Amount: big.NewInt(5_000_000), AssetType: "ADA"}
	if err := w.processDeposit(context.Background(), ev); err != nil {
		t.Fatalf("process deposit: %v", err)
	}

	if reporter.updateCount() != 1 {
		t.Fatalf("expected one status update, got %d", reporter.updateCount())
	}
	update := reporter.lastUpdate()
	if update.status != model.StatusConfirmed || update.depositTxHash != "aa" {
		t.Fatalf("expected a confirmed update for aa, got %+v", update)
	}
	if len(dest.Submitted) != 1 {
		t.Fatalf("expected exactly one submission, got %d", len(dest.Submitted))
	}
}

func TestProcessDepositSubmitFailureReportsFailed(t *testing.T) {
	dest := destination.NewFake()
	dest.SubmitErr = errors.New("network down")
	reporter := &recordingReporter{}
	w := New(dest, testWorkerConfig(), reporter, zap.NewNop())

	ev := model.DepositEvent{TxHash: "aa", SenderAddress: "sender", Amount: big.NewInt(5_000_000), AssetType: "ADA"}
	if err := w.processDeposit(context.Background(), ev); err == nil {
		t.Fatal("expected processDeposit to surface the submit error")
	}

	update := reporter.lastUpdate()
	if update.status != model.StatusFailed {
		t.Fatalf("expected a failed update, got %+v", update)
	}
}

func TestProcessDepositInsufficientAfterFeeFailsBeforeSubmit(t *testing.T) {
	dest := destination.NewFake()
	reporter := &recordingReporter{}
	w := New(dest, testWorkerConfig(), reporter, zap.NewNop())

	// amount - fee <= MinimumDestinationOutput (1_000_000)
	ev := model.DepositEvent{TxHash: "aa", SenderAddress: "sender", Amount: big.NewInt(1_500_000), AssetType: "ADA"}
	if err := w.processDeposit(context.Background(), ev); err == nil {
		t.Fatal("expected an insufficient-after-fee error")
	}
	if len(dest.Submitted) != 0 {
		t.Fatal("expected no submission for an insufficient-after-fee deposit")
	}
}

func TestProcessDepositUsesLedgerReportedHashOnDisagreement(t *testing.T) {
	dest := destination.NewFake()
	dest.HashOverride = "ledger-assigned-hash"
	reporter := &recordingReporter{}
	w := New(dest, testWorkerConfig(), reporter, zap.NewNop())

	ev := model.DepositEvent{TxHash: "aa", SenderAddress: "sender", Amount: big.NewInt(5_000_000), AssetType: "ADA"}
	if err := w.processDeposit(context.Background(), ev); err != nil {
		t.Fatalf("process deposit: %v", err)
	}
	update := reporter.lastUpdate()
	if update.mirrorTxHash != "ledger-assigned-hash" {
		t.Fatalf("expected the ledger-reported hash to win, got %q", update.mirrorTxHash)
	}
}

func TestRunDispatchesLiveDepositsUnderBoundedPool(t *testing.T) {
	dest := destination.NewFake()
	reporter := &recordingReporter{}
	w := New(dest, testWorkerConfig(), reporter, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	deposits := make(chan model.DepositEvent, 4)
	for i, hash := range []string{"a", "b", "c", "d"} {
		_ = i
		deposits <- model.DepositEvent{TxHash: hash, SenderAddress: "s", Amount: big.NewInt(5_000_000), AssetType: "ADA"}
	}

	done := make(chan struct{})
	go func() {
		w.Run(ctx, deposits)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && reporter.updateCount() < 4 {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done

	if reporter.updateCount() != 4 {
		t.Fatalf("expected all four deposits to be processed, got %d updates", reporter.updateCount())
	}
}
