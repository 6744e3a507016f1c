// Package model defines the core data types shared by every bridge
// component: the deposit observed on the source chain, the mirror
// attempt derived from it, and the durable bookkeeping around both.
package model

import (
	"math/big"
	"time"
)

// MirrorStatus is the lifecycle state of a deposit's destination-side
// mirror transaction.
type MirrorStatus int

const (
	StatusUnspecified MirrorStatus = iota
	StatusPending
	StatusSubmitted
	StatusConfirmed
	StatusFailed
)

func (s MirrorStatus) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusSubmitted:
		return "Submitted"
	case StatusConfirmed:
		return "Confirmed"
	case StatusFailed:
		return "Failed"
	default:
		return "Unspecified"
	}
}

// DepositEvent is an immutable record of a value transfer observed on the
// source chain to a watched address. txHash is its identity within the
// bridge: two events with equal TxHash are the same logical deposit.
type DepositEvent struct {
	TxHash            string            `json:"txHash"`
	SenderAddress     string            `json:"senderAddress"`
	RecipientAddress  string            `json:"recipientAddress"`
	Amount            *big.Int          `json:"amount"`
	AssetType         string            `json:"assetType"`
	BlockSlot         uint64            `json:"blockSlot"`
	BlockHash         string            `json:"blockHash"`
	OutputIndex       uint32            `json:"outputIndex"`
	Metadata          map[string]string `json:"metadata"`
	Timestamp         time.Time         `json:"timestamp"`
}

// UnknownSender is substituted for SenderAddress when the first input's
// source address cannot be resolved by the source adapter.
const UnknownSender = "unknown_sender"

// UnknownBlockHash is substituted when a per-tx event carries no block
// attribution; higher layers must not rely on it for correctness.
const UnknownBlockHash = "unknown_block"

// PendingMirror tracks a deposit the bridge still owes a destination-side
// transaction for. Unique by DepositTxHash.
type PendingMirror struct {
	DepositTxHash string
	Deposit       DepositEvent
	RetryCount    int
	LastRetryAt   time.Time
	ErrorMessage  string
}

// ProcessedDeposit is the terminal record of a deposit the bridge has
// reached a final decision on, retained indefinitely for audit.
type ProcessedDeposit struct {
	DepositTxHash string
	ProcessedAt   time.Time
	MirrorTxHash  string
	Status        MirrorStatus // Confirmed or Failed (terminal)
}

// Watermark is a restart hint for the source adapter; never a correctness
// condition.
type Watermark struct {
	LastProcessedSlot      uint64
	LastProcessedBlockHash string
}

// GenesisWatermark is returned by a fresh store that has never observed a
// watermark checkpoint.
func GenesisWatermark() Watermark {
	return Watermark{LastProcessedSlot: 0, LastProcessedBlockHash: "genesis"}
}

// BridgeState is the full snapshot the Relayer loads from the Durable
// Store at boot.
type BridgeState struct {
	ProcessedDeposits map[string]ProcessedDeposit
	PendingMirrors    map[string]PendingMirror
	Watermark         Watermark
}

// PublishResult is the {success, messageId} pair returned by
// Relayer.PublishDeposit.
type PublishResult struct {
	Success   bool
	MessageID string
}

func NewBridgeState() BridgeState {
	return BridgeState{
		ProcessedDeposits: make(map[string]ProcessedDeposit),
		PendingMirrors:    make(map[string]PendingMirror),
		Watermark:         GenesisWatermark(),
	}
}
