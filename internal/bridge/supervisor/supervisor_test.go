package supervisor

import (
	"context"
	"math/big"
	"testing"
	"time"

	"go.uber.org/zap"

	"vista-bridge/internal/bridge/config"
	"vista-bridge/internal/bridge/model"
	"vista-bridge/internal/bridge/store"
	"vista-bridge/internal/ledger/destination"
	"vista-bridge/internal/ledger/source"
)

func testConfig() *config.BridgeConfig {
	return &config.BridgeConfig{
		SourceDepositAddrs: []string{"watched"},
		DestSenderAddrs:    []string{"sender-on-dest"},
		DestSenderSeed:     "seed",
		AllowedAssets:      []string{"ADA"},
		MinDepositAmount:   2_000_000,
		MaxTransferAmount:  100_000_000_000,
		FeeAmount:          1_000_000,
		RetryAttempts:      3,
		RetryDelayMs:       10,
	}
}

// TestEndToEndHappyPathThroughSupervisor exercises spec §8 scenario 1
// across the full wiring: Source Adapter -> Indexer -> Relayer ->
// Mirror Worker -> Destination Adapter -> Relayer.
func TestEndToEndHappyPathThroughSupervisor(t *testing.T) {
	st, err := store.Open("", zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	srcFake := source.NewFake()
	dstFake := destination.NewFake()
	sup := New(testConfig(), st, srcFake, dstFake, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runDone := make(chan error, 1)
	go func() { runDone <- sup.Run(ctx) }()

	// Give the indexer a moment to open its watch stream before pushing.
	time.Sleep(50 * time.Millisecond)
	srcFake.Push(source.RawEvent{Action: source.ActionApply, Tx: source.RawTx{
		Hash:    "aa",
		Inputs:  []source.RawTxInput{{SourceAddress: "sender"}},
		Outputs: []source.RawTxOutput{{Address: "watched", Coin: big.NewInt(5_000_000)}},
	}})

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		state, err := sup.Relayer.GetBridgeState()
		if err != nil {
			t.Fatalf("get state: %v", err)
		}
		if _, ok := state.ProcessedDeposits["aa"]; ok {
			if len(state.PendingMirrors) != 0 {
				t.Fatalf("expected no remaining pending mirrors, got %+v", state.PendingMirrors)
			}
			cancel()
			<-runDone
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	<-runDone
	t.Fatal("deposit never reached a confirmed processed state")
}

// TestCrashAndResumeRedeliversSurvivingPendingMirror covers spec §8
// scenario 5: a pending mirror persisted before a restart is re-offered
// to the Mirror Worker on the next boot without waiting for the sweep.
func TestCrashAndResumeRedeliversSurvivingPendingMirror(t *testing.T) {
	dir := t.TempDir()

	st, err := store.Open(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	pm := model.PendingMirror{
		DepositTxHash: "aa",
		Deposit: model.DepositEvent{
			TxHash: "aa", SenderAddress: "sender",
			Amount: big.NewInt(5_000_000), AssetType: "ADA",
		},
	}
	if err := st.AddPendingMirror(pm); err != nil {
		t.Fatalf("seed pending mirror: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := store.Open(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	srcFake := source.NewFake()
	dstFake := destination.NewFake()
	sup := New(testConfig(), reopened, srcFake, dstFake, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runDone := make(chan error, 1)
	go func() { runDone <- sup.Run(ctx) }()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		state, err := sup.Relayer.GetBridgeState()
		if err != nil {
			t.Fatalf("get state: %v", err)
		}
		if _, ok := state.ProcessedDeposits["aa"]; ok {
			cancel()
			<-runDone
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	<-runDone
	t.Fatal("surviving pending mirror was never resumed to a confirmed state")
}
