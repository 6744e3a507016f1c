// Package source defines the Source Ledger Adapter contract (spec §4.2,
// §6) and the capability-set abstraction spec §9 asks for: production
// code and tests both program against the Adapter interface, with a
// gRPC-shaped stub standing in for the concrete utxorpc SDK, which is
// explicitly out of scope.
package source

import (
	"context"
	"math/big"
	"time"

	"vista-bridge/internal/bridge/model"
)

// Action distinguishes the two kinds of event the source stream can
// emit. Only Apply actions produce deposit events; Undo is filtered out
// by the adapter per spec §4.2.
type Action int

const (
	ActionApply Action = iota
	ActionUndo
)

// ErrorClass distinguishes the three error kinds spec §4.2/§7 name.
type ErrorClass int

const (
	ErrTransient ErrorClass = iota
	ErrAuth
	ErrDecoding
)

// StreamError is a classified error surfaced on the event stream.
type StreamError struct {
	Class ErrorClass
	Err   error
}

func (e *StreamError) Error() string { return e.Err.Error() }
func (e *StreamError) Unwrap() error { return e.Err }

// Event is either a decoded DepositEvent or a StreamError, mirroring the
// Stream<DepositEvent | Error> contract of spec §4.2.
type Event struct {
	Deposit *model.DepositEvent
	Err     *StreamError
}

// Adapter is the capability set a source ledger connector must provide.
type Adapter interface {
	// WatchAddresses returns an infinite (while healthy) channel of
	// events for the given watched addresses. The channel is closed only
	// on an unrecoverable auth/authz failure or when ctx is canceled.
	WatchAddresses(ctx context.Context, addresses []string) (<-chan Event, error)

	// SubmitTransaction and WaitForConfirmation are used by the
	// destination side in some ledger families; kept here because the
	// two-RPC contract in spec §4.2/§6 is shared across both directions
	// of a single ledger SDK. Unused by this bridge's destination flow,
	// which submits via the destination Adapter instead.
	SubmitTransaction(ctx context.Context, cborBytes []byte) (string, error)
	WaitForConfirmation(ctx context.Context, txHash string) (<-chan string, error)

	Close() error
}

// RawTxOutput mirrors spec §6's wire shape: outputs[].{address, coin}.
// AssetType is an extension beyond the wire shape's bare lovelace
// coin field, populated by adapters that resolve a multi-asset policy;
// left empty it defaults to the ledger's native asset at decode time.
type RawTxOutput struct {
	Address   string
	Coin      *big.Int
	AssetType string
}

// RawTxInput mirrors inputs[].asOutput.address.
type RawTxInput struct {
	SourceAddress string
}

// RawMetadataEntry mirrors auxiliary.metadata[].{label, value}.
type RawMetadataEntry struct {
	Label string
	Value any // string, int64, []byte, or a composite (map/slice)
}

// RawTx is the decoded shape of a single transaction from the watch
// stream, before DecodeDeposits extracts DepositEvents from it.
type RawTx struct {
	Hash      string
	Inputs    []RawTxInput
	Outputs   []RawTxOutput
	Metadata  []RawMetadataEntry
	Slot      uint64
	BlockHash string
	Timestamp time.Time
}

// RawEvent is the {action, tx} shape of spec §6.
type RawEvent struct {
	Action Action
	Tx     RawTx
}
