// Package config loads the bridge's process-wide, boot-immutable
// configuration record from the environment. The teacher's pkg/config
// reads and merges viper-backed YAML files (_teacher_ref/pkg/config/config.go);
// this spec's configuration surface is pure environment variables, with
// no document for viper to parse or merge, so loading here goes
// straight through the EnvOrDefault/EnvList helpers below.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"

	brerrors "vista-bridge/internal/bridge/errors"
)

// BridgeConfig is the process-wide, immutable-for-the-run configuration
// record described in spec §3/§6.
type BridgeConfig struct {
	SourceNetworkName   string
	SourceUTxORPCURL    string
	SourceUTxORPCAPIKey string
	SourceDepositAddrs  []string

	DestNetworkName   string
	DestUTxORPCURL    string
	DestUTxORPCAPIKey string
	DestLucidProvider string
	DestLucidNetwork  string
	DestSenderAddrs   []string
	DestSenderSeed    string

	AllowedAssets     []string
	MinDepositAmount  uint64
	MaxTransferAmount uint64
	FeeAmount         uint64

	RequiredConfirmations int
	RetryAttempts         int
	RetryDelayMs          int64

	DBPath     string
	AdminAddr  string
}

// MinimumDestinationOutput is the smallest net amount the Mirror Worker
// will ever submit, per spec §4.5 step 2.
const MinimumDestinationOutput = 1_000_000

// Load reads the configuration surface described in spec §6 from the
// environment, optionally merging a .env file first (ignored if absent,
// matching the teacher's godotenv usage in cmd entrypoints), and
// validates it per the rules in §6's final paragraph.
func Load() (*BridgeConfig, error) {
	_ = godotenv.Load()

	cfg := &BridgeConfig{
		SourceNetworkName:   EnvOrDefault("SOURCE_NETWORK_NAME", "mainnet"),
		SourceUTxORPCURL:    EnvOrDefault("SOURCE_UTXORPC_URL", ""),
		SourceUTxORPCAPIKey: EnvOrDefault("SOURCE_UTXORPC_API_KEY", ""),
		SourceDepositAddrs:  EnvList("SOURCE_DEPOSIT_ADDRESSES"),

		DestNetworkName:   EnvOrDefault("DEST_NETWORK_NAME", "mainnet"),
		DestUTxORPCURL:    EnvOrDefault("DEST_UTXORPC_URL", ""),
		DestUTxORPCAPIKey: EnvOrDefault("DEST_UTXORPC_API_KEY", ""),
		DestLucidProvider: EnvOrDefault("DEST_LUCID_PROVIDER", ""),
		DestLucidNetwork:  EnvOrDefault("DEST_LUCID_NETWORK", ""),
		DestSenderAddrs:   EnvList("DEST_SENDER_ADDRESSES"),
		DestSenderSeed:    EnvOrDefault("DEST_SENDER_WALLET_SEED", ""),

		AllowedAssets:     defaultAllowedAssets(EnvList("BRIDGE_ALLOWED_ASSETS")),
		MinDepositAmount:  EnvOrDefaultUint64("BRIDGE_MIN_DEPOSIT_AMOUNT", 2_000_000),
		MaxTransferAmount: EnvOrDefaultUint64("BRIDGE_MAX_TRANSFER_AMOUNT", 100_000_000_000),
		FeeAmount:         EnvOrDefaultUint64("BRIDGE_FEE_AMOUNT", 1_000_000),

		RequiredConfirmations: int(EnvOrDefaultInt64("SECURITY_REQUIRED_CONFIRMATIONS", 3)),
		RetryAttempts:         int(EnvOrDefaultInt64("SECURITY_RETRY_ATTEMPTS", 3)),
		RetryDelayMs:          EnvOrDefaultInt64("SECURITY_RETRY_DELAY_MS", 30_000),

		DBPath:    EnvOrDefault("BRIDGE_DB_PATH", "./data/bridge"),
		AdminAddr: EnvOrDefault("BRIDGE_ADMIN_ADDR", ":8088"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultAllowedAssets(v []string) []string {
	if len(v) == 0 {
		return []string{"ADA"}
	}
	return v
}

// Validate enforces the boot validation rules from spec §6: non-empty
// deposit/sender address lists, fee < min < max, and well-formed
// endpoint schemes.
func (c *BridgeConfig) Validate() error {
	if len(c.SourceDepositAddrs) == 0 {
		return brerrors.New(brerrors.ClassConfig, "SOURCE_DEPOSIT_ADDRESSES must be non-empty")
	}
	if len(c.DestSenderAddrs) == 0 {
		return brerrors.New(brerrors.ClassConfig, "DEST_SENDER_ADDRESSES must be non-empty")
	}
	if c.FeeAmount >= c.MinDepositAmount {
		return brerrors.New(brerrors.ClassConfig, "BRIDGE_FEE_AMOUNT must be less than BRIDGE_MIN_DEPOSIT_AMOUNT")
	}
	if c.MinDepositAmount >= c.MaxTransferAmount {
		return brerrors.New(brerrors.ClassConfig, "BRIDGE_MIN_DEPOSIT_AMOUNT must be less than BRIDGE_MAX_TRANSFER_AMOUNT")
	}
	for _, ep := range []string{c.SourceUTxORPCURL, c.DestUTxORPCURL} {
		if ep == "" {
			continue
		}
		if !strings.HasPrefix(ep, "http://") && !strings.HasPrefix(ep, "https://") {
			return brerrors.New(brerrors.ClassConfig, fmt.Sprintf("endpoint %q must be http(s)", ep))
		}
	}
	return nil
}

// AllowsAsset reports whether assetType is in the configured whitelist.
func (c *BridgeConfig) AllowsAsset(assetType string) bool {
	for _, a := range c.AllowedAssets {
		if a == assetType {
			return true
		}
	}
	return false
}
