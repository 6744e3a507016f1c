package store

import (
	"math/big"
	"testing"
	"time"

	"vista-bridge/internal/bridge/model"
)

func TestMarshalUnmarshalDepositRoundTripsSmallAmount(t *testing.T) {
	ev := model.DepositEvent{
		TxHash:           "aa",
		SenderAddress:    "sender",
		RecipientAddress: "watched",
		Amount:           big.NewInt(5_000_000),
		AssetType:        "ADA",
		BlockSlot:        100,
		BlockHash:        "block1",
		OutputIndex:      0,
		Metadata:         map[string]string{"k": "v"},
		Timestamp:        time.UnixMilli(1_700_000_000_000).UTC(),
	}
	raw, err := marshalDeposit(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := unmarshalDeposit(raw)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Amount.Cmp(ev.Amount) != 0 {
		t.Fatalf("amount mismatch: got %s want %s", got.Amount, ev.Amount)
	}
	if got.TxHash != ev.TxHash || got.AssetType != ev.AssetType {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestMarshalUnmarshalDepositRoundTripsBeyondSafeInteger(t *testing.T) {
	huge, ok := new(big.Int).SetString("123456789012345678901234567890", 10)
	if !ok {
		t.Fatal("failed to construct huge big.Int")
	}
	ev := model.DepositEvent{TxHash: "bb", Amount: huge, AssetType: "ADA"}

	raw, err := marshalDeposit(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := unmarshalDeposit(raw)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Amount.Cmp(huge) != 0 {
		t.Fatalf("amount did not round-trip losslessly: got %s want %s", got.Amount, huge)
	}
}

func TestEncodeAmountUsesSentinelOnlyAboveThreshold(t *testing.T) {
	small, err := encodeAmount(big.NewInt(42))
	if err != nil {
		t.Fatalf("encode small: %v", err)
	}
	if string(small) != `"42"` {
		t.Fatalf("expected plain decimal string, got %s", small)
	}

	huge := new(big.Int).Lsh(big.NewInt(1), 60)
	raw, err := encodeAmount(huge)
	if err != nil {
		t.Fatalf("encode huge: %v", err)
	}
	want := `"` + bigIntSentinelPrefix + huge.String() + `"`
	if string(raw) != want {
		t.Fatalf("expected sentinel-tagged string, got %s want %s", raw, want)
	}
}
