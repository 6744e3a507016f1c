// Package destination defines the Destination Ledger Adapter contract
// (spec §4.2/§6): a transaction builder chain of pay-to-address,
// attach-metadata, complete, sign, toHash, submit, plus a
// waitForConfirmation stage stream. The concrete CBOR transaction
// builder and submission SDK are explicitly out of scope (spec §1); this
// package owns only the contract and the deterministic hash-before-submit
// sequencing spec §4.5 step 4 requires.
package destination

import "context"

// ConfirmationStage mirrors the destination adapter's waitForTx stage
// stream (spec §6).
type ConfirmationStage string

const (
	StageSubmitted ConfirmationStage = "submitted"
	StageInBlock   ConfirmationStage = "in_block"
	StageConfirmed ConfirmationStage = "confirmed"
)

// Metadata is the label -> value map attached to a built transaction,
// e.g. the label-1337 map spec §4.5 step 3 describes.
type Metadata map[string]any

// TxBuilder is the builder-chain capability spec §6 lists:
// pay-to-address -> attach-metadata -> complete -> sign -> toHash ->
// submit.
type TxBuilder interface {
	PayToAddress(address string, amount uint64) TxBuilder
	AttachMetadata(label uint64, value Metadata) TxBuilder
	Complete() (UnsignedTx, error)
}

// UnsignedTx is a completed but unsigned transaction.
type UnsignedTx interface {
	Sign(seed string) (SignedTx, error)
}

// SignedTx is a signed transaction ready for submission. ToHash is
// computed client-side before Submit is ever called, so retries remain
// idempotent by hash (spec §4.5 step 4).
type SignedTx interface {
	ToHash() string
	Bytes() []byte
}

// Adapter is the capability set a destination ledger connector provides.
type Adapter interface {
	NewTxBuilder() TxBuilder

	// Submit sends the signed transaction's CBOR bytes and returns the
	// ledger-reported hash, which is authoritative even if it disagrees
	// with the pre-computed SignedTx.ToHash() (spec §4.5 step 5).
	Submit(ctx context.Context, signed SignedTx) (string, error)

	// WaitForConfirmation streams confirmation stages for a submitted
	// transaction hash.
	WaitForConfirmation(ctx context.Context, txHash string) (<-chan ConfirmationStage, error)

	Close() error
}
