package destination

import (
	"context"
	"sync"
)

// Fake is a deterministic, in-process Adapter used by the bridge's test
// suite. SubmitErr, when set, is returned by every Submit call so tests
// can exercise the retry-exhaustion scenario (spec §8 scenario 4).
// HashOverride, when set, makes Submit return a ledger hash different
// from the pre-computed SignedTx hash, exercising spec §4.5 step 5.
type Fake struct {
	mu sync.Mutex

	SubmitErr    error
	HashOverride string

	Submitted []SignedTx
}

func NewFake() *Fake { return &Fake{} }

func (f *Fake) NewTxBuilder() TxBuilder { return &builder{} }

func (f *Fake) Submit(ctx context.Context, signed SignedTx) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SubmitErr != nil {
		return "", f.SubmitErr
	}
	f.Submitted = append(f.Submitted, signed)
	if f.HashOverride != "" {
		return f.HashOverride, nil
	}
	return signed.ToHash(), nil
}

func (f *Fake) WaitForConfirmation(ctx context.Context, txHash string) (<-chan ConfirmationStage, error) {
	ch := make(chan ConfirmationStage, 2)
	ch <- StageSubmitted
	ch <- StageConfirmed
	close(ch)
	return ch, nil
}

func (f *Fake) Close() error { return nil }

var _ Adapter = (*Fake)(nil)
