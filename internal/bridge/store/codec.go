package store

import (
	"encoding/json"
	"math/big"
	"strings"

	"vista-bridge/internal/bridge/model"
)

// bigIntSentinel tags amounts that would lose precision in a plain JSON
// number (anything at or above 2^53), per spec §6/§9. Values under the
// threshold are written as a plain decimal JSON string (e.g. "42"); values
// at or above it are written as a tagged decimal string and restored to
// *big.Int on load, satisfying P6 (round-trip for any amount in
// [0, 2^128)).
const bigIntSentinelPrefix = "__BIGINT__"

// maxSafeInteger is 2^53, the largest integer a float64/JSON number
// round-trips exactly.
var maxSafeInteger = new(big.Int).Lsh(big.NewInt(1), 53)

type depositEventWire struct {
	TxHash           string            `json:"txHash"`
	SenderAddress    string            `json:"senderAddress"`
	RecipientAddress string            `json:"recipientAddress"`
	Amount           json.RawMessage   `json:"amount"`
	AssetType        string            `json:"assetType"`
	BlockSlot        uint64            `json:"blockSlot"`
	BlockHash        string            `json:"blockHash"`
	OutputIndex      uint32            `json:"outputIndex"`
	Metadata         map[string]string `json:"metadata"`
	TimestampUnixMs  int64             `json:"timestampUnixMs"`
}

func encodeAmount(amount *big.Int) (json.RawMessage, error) {
	if amount == nil {
		amount = big.NewInt(0)
	}
	if amount.CmpAbs(maxSafeInteger) < 0 {
		return json.Marshal(amount.String())
	}
	return json.Marshal(bigIntSentinelPrefix + amount.String())
}

func decodeAmount(raw json.RawMessage) (*big.Int, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		// Legacy/plain-number encoding: fall back to numeric unmarshal.
		var n int64
		if err2 := json.Unmarshal(raw, &n); err2 != nil {
			return nil, err
		}
		return big.NewInt(n), nil
	}
	s = strings.TrimPrefix(s, bigIntSentinelPrefix)
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errInvalidAmount(s)
	}
	return amount, nil
}

type amountDecodeError string

func (e amountDecodeError) Error() string { return "store: invalid amount literal: " + string(e) }

func errInvalidAmount(s string) error { return amountDecodeError(s) }

// marshalDeposit produces the self-describing blob stored under the
// pending_mirrors table's deposit_data column.
func marshalDeposit(d model.DepositEvent) ([]byte, error) {
	amt, err := encodeAmount(d.Amount)
	if err != nil {
		return nil, err
	}
	wire := depositEventWire{
		TxHash:           d.TxHash,
		SenderAddress:    d.SenderAddress,
		RecipientAddress: d.RecipientAddress,
		Amount:           amt,
		AssetType:        d.AssetType,
		BlockSlot:        d.BlockSlot,
		BlockHash:        d.BlockHash,
		OutputIndex:      d.OutputIndex,
		Metadata:         d.Metadata,
		TimestampUnixMs:  d.Timestamp.UnixMilli(),
	}
	return json.Marshal(wire)
}

func unmarshalDeposit(raw []byte) (model.DepositEvent, error) {
	var wire depositEventWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return model.DepositEvent{}, err
	}
	amount, err := decodeAmount(wire.Amount)
	if err != nil {
		return model.DepositEvent{}, err
	}
	return model.DepositEvent{
		TxHash:           wire.TxHash,
		SenderAddress:    wire.SenderAddress,
		RecipientAddress: wire.RecipientAddress,
		Amount:           amount,
		AssetType:        wire.AssetType,
		BlockSlot:        wire.BlockSlot,
		BlockHash:        wire.BlockHash,
		OutputIndex:      wire.OutputIndex,
		Metadata:         wire.Metadata,
		Timestamp:        msToTime(wire.TimestampUnixMs),
	}, nil
}
