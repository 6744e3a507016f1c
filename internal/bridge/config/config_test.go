package config

import (
	"os"
	"testing"
)

func clearBridgeEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"SOURCE_NETWORK_NAME", "SOURCE_UTXORPC_URL", "SOURCE_UTXORPC_API_KEY", "SOURCE_DEPOSIT_ADDRESSES",
		"DEST_NETWORK_NAME", "DEST_UTXORPC_URL", "DEST_UTXORPC_API_KEY", "DEST_LUCID_PROVIDER", "DEST_LUCID_NETWORK",
		"DEST_SENDER_ADDRESSES", "DEST_SENDER_WALLET_SEED",
		"BRIDGE_ALLOWED_ASSETS", "BRIDGE_MIN_DEPOSIT_AMOUNT", "BRIDGE_MAX_TRANSFER_AMOUNT", "BRIDGE_FEE_AMOUNT",
		"SECURITY_REQUIRED_CONFIRMATIONS", "SECURITY_RETRY_ATTEMPTS", "SECURITY_RETRY_DELAY_MS",
		"BRIDGE_DB_PATH", "BRIDGE_ADMIN_ADDR",
	}
	for _, k := range keys {
		_ = os.Unsetenv(k)
	}
}

func TestLoadRequiresDepositAddresses(t *testing.T) {
	clearBridgeEnv(t)
	_ = os.Setenv("DEST_SENDER_ADDRESSES", "addr1")
	defer os.Unsetenv("DEST_SENDER_ADDRESSES")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when SOURCE_DEPOSIT_ADDRESSES is unset")
	}
}

func TestLoadDefaultsAndValidate(t *testing.T) {
	clearBridgeEnv(t)
	_ = os.Setenv("SOURCE_DEPOSIT_ADDRESSES", "watched1")
	_ = os.Setenv("DEST_SENDER_ADDRESSES", "sender1")
	defer clearBridgeEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.AllowedAssets) != 1 || cfg.AllowedAssets[0] != "ADA" {
		t.Fatalf("expected default allowed assets [ADA], got %v", cfg.AllowedAssets)
	}
	if !cfg.AllowsAsset("ADA") || cfg.AllowsAsset("ERC20") {
		t.Fatal("AllowsAsset did not respect the configured whitelist")
	}
}

func TestValidateRejectsFeeAboveMin(t *testing.T) {
	cfg := &BridgeConfig{
		SourceDepositAddrs: []string{"a"},
		DestSenderAddrs:    []string{"b"},
		FeeAmount:          10,
		MinDepositAmount:   5,
		MaxTransferAmount:  100,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when fee >= min")
	}
}

func TestValidateRejectsBadEndpointScheme(t *testing.T) {
	cfg := &BridgeConfig{
		SourceDepositAddrs: []string{"a"},
		DestSenderAddrs:    []string{"b"},
		FeeAmount:          1,
		MinDepositAmount:   2,
		MaxTransferAmount:  100,
		SourceUTxORPCURL:   "not-a-url",
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-http(s) endpoint")
	}
}
