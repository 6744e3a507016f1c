package source

import (
	"encoding/json"
	"math/big"

	"vista-bridge/internal/bridge/model"
)

// DecodeDeposits applies the decoding rules of spec §4.2 to a single raw
// apply-action transaction, yielding one DepositEvent per output that
// pays one of the watched addresses, in output order. Rollback (Undo)
// actions never reach this function; callers filter on Action first.
func DecodeDeposits(tx RawTx, watched map[string]bool) []model.DepositEvent {
	if len(tx.Outputs) == 0 {
		return nil
	}

	sender := model.UnknownSender
	if len(tx.Inputs) > 0 && tx.Inputs[0].SourceAddress != "" {
		sender = tx.Inputs[0].SourceAddress
	}

	metadata := flattenMetadata(tx.Metadata)

	blockHash := tx.BlockHash
	if blockHash == "" {
		blockHash = model.UnknownBlockHash
	}

	var out []model.DepositEvent
	for idx, output := range tx.Outputs {
		if !watched[output.Address] {
			continue
		}
		amount := output.Coin
		if amount == nil {
			amount = big.NewInt(0)
		}
		out = append(out, model.DepositEvent{
			TxHash:           tx.Hash,
			SenderAddress:    sender,
			RecipientAddress: output.Address,
			Amount:           new(big.Int).Set(amount),
			AssetType:        assetTypeOf(output),
			BlockSlot:        tx.Slot,
			BlockHash:        blockHash,
			OutputIndex:      uint32(idx),
			Metadata:         metadata,
			Timestamp:        tx.Timestamp,
		})
	}
	return out
}

// nativeAsset is the default AssetType assigned to an output that does
// not specify one, matching the wire shape's plain {address, coin} pair
// (spec §6), which carries no asset identifier of its own.
const nativeAsset = "ADA"

func assetTypeOf(output RawTxOutput) string {
	if output.AssetType != "" {
		return output.AssetType
	}
	return nativeAsset
}

// flattenMetadata implements spec §4.2's metadata rule: text passes
// through, integers are stringified, bytes are UTF-8 decoded, composite
// values are stringified as JSON, and non-representable entries are
// dropped silently.
func flattenMetadata(entries []RawMetadataEntry) map[string]string {
	if len(entries) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		switch v := e.Value.(type) {
		case string:
			out[e.Label] = v
		case []byte:
			out[e.Label] = string(v)
		case int, int32, int64, uint, uint32, uint64:
			raw, err := json.Marshal(v)
			if err != nil {
				continue
			}
			out[e.Label] = string(raw)
		case float32, float64:
			raw, err := json.Marshal(v)
			if err != nil {
				continue
			}
			out[e.Label] = string(raw)
		case map[string]any, []any:
			raw, err := json.Marshal(v)
			if err != nil {
				continue
			}
			out[e.Label] = string(raw)
		default:
			// Non-representable entry: dropped silently per spec §4.2.
		}
	}
	return out
}
