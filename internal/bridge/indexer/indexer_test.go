package indexer

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"vista-bridge/internal/bridge/config"
	"vista-bridge/internal/bridge/model"
	"vista-bridge/internal/ledger/source"
)

type recordingPublisher struct {
	mu        sync.Mutex
	published []model.DepositEvent
}

func (p *recordingPublisher) PublishDeposit(ev model.DepositEvent) (model.PublishResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, ev)
	return model.PublishResult{Success: true, MessageID: ev.TxHash}, nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

func testConfig() *config.BridgeConfig {
	return &config.BridgeConfig{
		SourceDepositAddrs: []string{"watched"},
		AllowedAssets:      []string{"ADA"},
		MinDepositAmount:   2_000_000,
		MaxTransferAmount:  100_000_000_000,
		RetryDelayMs:       10,
	}
}

func TestIndexerPublishesValidDeposit(t *testing.T) {
	fake := source.NewFake()
	pub := &recordingPublisher{}
	ix := New(fake, testConfig(), pub, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = ix.Run(ctx) }()

	fake.Push(source.RawEvent{Action: source.ActionApply, Tx: source.RawTx{
		Hash:    "aa",
		Inputs:  []source.RawTxInput{{SourceAddress: "sender"}},
		Outputs: []source.RawTxOutput{{Address: "watched", Coin: big.NewInt(5_000_000)}},
	}})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if pub.count() == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected one published deposit, got %d", pub.count())
}

func TestIndexerDropsBelowMinimum(t *testing.T) {
	fake := source.NewFake()
	pub := &recordingPublisher{}
	ix := New(fake, testConfig(), pub, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = ix.Run(ctx) }()

	fake.Push(source.RawEvent{Action: source.ActionApply, Tx: source.RawTx{
		Hash:    "aa",
		Outputs: []source.RawTxOutput{{Address: "watched", Coin: big.NewInt(1_500_000)}},
	}})

	time.Sleep(100 * time.Millisecond)
	if pub.count() != 0 {
		t.Fatalf("expected below-minimum deposit to be dropped, got %d published", pub.count())
	}
}

func TestIndexerDropsDisallowedAsset(t *testing.T) {
	cfg := testConfig()
	cfg.AllowedAssets = []string{"ADA"}
	fake := source.NewFake()
	pub := &recordingPublisher{}
	ix := New(fake, cfg, pub, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = ix.Run(ctx) }()

	fake.Push(source.RawEvent{Action: source.ActionApply, Tx: source.RawTx{
		Hash:    "aa",
		Outputs: []source.RawTxOutput{{Address: "watched", Coin: big.NewInt(5_000_000), AssetType: "ERC20"}},
	}})

	time.Sleep(100 * time.Millisecond)
	if pub.count() != 0 {
		t.Fatalf("expected disallowed-asset deposit to be dropped, got %d published", pub.count())
	}
}

func TestIndexerIgnoresUndoActions(t *testing.T) {
	fake := source.NewFake()
	pub := &recordingPublisher{}
	ix := New(fake, testConfig(), pub, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = ix.Run(ctx) }()

	fake.Push(source.RawEvent{Action: source.ActionUndo, Tx: source.RawTx{
		Hash:    "aa",
		Outputs: []source.RawTxOutput{{Address: "watched", Coin: big.NewInt(5_000_000)}},
	}})

	time.Sleep(100 * time.Millisecond)
	if pub.count() != 0 {
		t.Fatalf("expected undo-action events to never reach the publisher, got %d", pub.count())
	}
}
