package source

import (
	"context"
	"sync"
)

// Fake is a deterministic, in-process Adapter used by the bridge's test
// suite, per spec §9's "dynamic dispatch at the adapter boundary" design
// note: it implements the same Adapter interface production code does.
type Fake struct {
	mu      sync.Mutex
	pending []RawEvent
	pendErr []*StreamError
	watched map[string]bool
	ch      chan Event
	closed  bool
}

// NewFake returns an empty Fake ready to have events queued onto it.
func NewFake() *Fake {
	return &Fake{}
}

// Push queues a raw event (apply or undo); if a stream is already open it
// is decoded and delivered immediately, otherwise it is buffered until
// WatchAddresses is called.
func (f *Fake) Push(e RawEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ch == nil {
		f.pending = append(f.pending, e)
		return
	}
	f.deliverLocked(e)
}

// PushError queues a classified stream error for immediate or deferred
// delivery, same semantics as Push.
func (f *Fake) PushError(se *StreamError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ch == nil {
		f.pendErr = append(f.pendErr, se)
		return
	}
	f.ch <- Event{Err: se}
}

func (f *Fake) deliverLocked(e RawEvent) {
	if e.Action != ActionApply {
		return
	}
	for _, d := range DecodeDeposits(e.Tx, f.watched) {
		dep := d
		f.ch <- Event{Deposit: &dep}
	}
}

// WatchAddresses opens the fake stream, flushing any buffered events.
func (f *Fake) WatchAddresses(ctx context.Context, addresses []string) (<-chan Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.watched = make(map[string]bool, len(addresses))
	for _, a := range addresses {
		f.watched[a] = true
	}
	f.ch = make(chan Event, 256)
	f.closed = false

	for _, e := range f.pending {
		f.deliverLocked(e)
	}
	f.pending = nil
	for _, se := range f.pendErr {
		f.ch <- Event{Err: se}
	}
	f.pendErr = nil

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		defer f.mu.Unlock()
		if !f.closed {
			close(f.ch)
			f.closed = true
		}
	}()

	return f.ch, nil
}

func (f *Fake) SubmitTransaction(ctx context.Context, cborBytes []byte) (string, error) {
	return "", errNotImplemented
}

func (f *Fake) WaitForConfirmation(ctx context.Context, txHash string) (<-chan string, error) {
	return nil, errNotImplemented
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ch != nil && !f.closed {
		close(f.ch)
		f.closed = true
	}
	return nil
}

var _ Adapter = (*Fake)(nil)
