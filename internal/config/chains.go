package config

import (
	"fmt"
	"os"

	"github.com/emperorhan/taxindexer/internal/domain/model"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// ChainSpec holds the per-chain constants the pipeline needs: native
// currency, explorer links and the fee-absorption epsilon. Epsilons are
// empirically tuned product constants carried as configuration, never
// derived at runtime.
type ChainSpec struct {
	Chain          model.Chain
	NativeCurrency string
	NativeDenom    string
	NativeDecimals int32
	// DenomAliases maps well-known denoms beyond the native one to their
	// display symbols (terra stablecoins, bridged assets).
	DenomAliases map[string]string
	// FeeEpsilon reclassifies outbound native-currency legs at or below
	// this threshold as fee. Zero disables absorption.
	FeeEpsilon    decimal.Decimal
	ExplorerTxURL string // fmt template, %s = tx hash
	APIBaseURL    string
	// ClaimMarkers are log event types that mark an embedded reward claim
	// inside a staking or swap message.
	ClaimMarkers []string
}

// ExplorerURL renders the user-facing link for one transaction.
func (s ChainSpec) ExplorerURL(txID string) string {
	if s.ExplorerTxURL == "" {
		return ""
	}
	return fmt.Sprintf(s.ExplorerTxURL, txID)
}

var cosmosClaimMarkers = []string{"withdraw_rewards", "claim"}

func defaultChainSpecs() map[model.Chain]ChainSpec {
	return map[model.Chain]ChainSpec{
		model.ChainCosmosHub: {
			Chain:          model.ChainCosmosHub,
			NativeCurrency: "ATOM",
			NativeDenom:    "uatom",
			NativeDecimals: 6,
			ExplorerTxURL:  "https://www.mintscan.io/cosmos/txs/%s",
			APIBaseURL:     "https://api.cosmos.network",
			ClaimMarkers:   cosmosClaimMarkers,
		},
		model.ChainOsmosis: {
			Chain:          model.ChainOsmosis,
			NativeCurrency: "OSMO",
			NativeDenom:    "uosmo",
			NativeDecimals: 6,
			ExplorerTxURL:  "https://www.mintscan.io/osmosis/txs/%s",
			APIBaseURL:     "https://lcd.osmosis.zone",
			ClaimMarkers:   cosmosClaimMarkers,
		},
		model.ChainTerra: {
			Chain:          model.ChainTerra,
			NativeCurrency: "LUNC",
			NativeDenom:    "uluna",
			NativeDecimals: 6,
			DenomAliases:   map[string]string{"uusd": "USTC", "ukrw": "KRTC"},
			ExplorerTxURL:  "https://finder.terra.money/classic/tx/%s",
			APIBaseURL:     "https://terra-classic-lcd.publicnode.com",
			ClaimMarkers:   cosmosClaimMarkers,
		},
		model.ChainTerra2: {
			Chain:          model.ChainTerra2,
			NativeCurrency: "LUNA",
			NativeDenom:    "uluna",
			NativeDecimals: 6,
			ExplorerTxURL:  "https://finder.terra.money/mainnet/tx/%s",
			APIBaseURL:     "https://phoenix-lcd.terra.dev",
			ClaimMarkers:   cosmosClaimMarkers,
		},
		model.ChainAlgorand: {
			Chain:          model.ChainAlgorand,
			NativeCurrency: "ALGO",
			NativeDecimals: 6,
			FeeEpsilon:     decimal.RequireFromString("0.05"),
			ExplorerTxURL:  "https://allo.info/tx/%s",
			APIBaseURL:     "https://mainnet-idx.algonode.cloud",
		},
		model.ChainSolana: {
			Chain:          model.ChainSolana,
			NativeCurrency: "SOL",
			NativeDecimals: 9,
			FeeEpsilon:     decimal.RequireFromString("0.05"),
			ExplorerTxURL:  "https://solscan.io/tx/%s",
			APIBaseURL:     "https://api.mainnet-beta.solana.com",
		},
	}
}

type chainSpecYAML struct {
	NativeCurrency string            `yaml:"native_currency"`
	NativeDenom    string            `yaml:"native_denom"`
	NativeDecimals int32             `yaml:"native_decimals"`
	DenomAliases   map[string]string `yaml:"denom_aliases"`
	FeeEpsilon     string            `yaml:"fee_epsilon"`
	ExplorerTxURL  string            `yaml:"explorer_tx_url"`
	APIBaseURL     string            `yaml:"api_base_url"`
	ClaimMarkers   []string          `yaml:"claim_markers"`
}

type chainsFileYAML struct {
	Chains map[string]chainSpecYAML `yaml:"chains"`
}

// LoadChainSpec resolves the spec for one chain: compiled-in defaults,
// optionally overlaid by a YAML catalog file.
func LoadChainSpec(chain model.Chain, path string) (ChainSpec, error) {
	specs := defaultChainSpecs()
	spec, ok := specs[chain]
	if !ok {
		return ChainSpec{}, fmt.Errorf("unknown chain %q", chain)
	}
	if path == "" {
		return spec, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return ChainSpec{}, fmt.Errorf("read chains config: %w", err)
	}
	var file chainsFileYAML
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return ChainSpec{}, fmt.Errorf("parse chains config: %w", err)
	}

	overlay, ok := file.Chains[chain.String()]
	if !ok {
		return spec, nil
	}
	if overlay.NativeCurrency != "" {
		spec.NativeCurrency = overlay.NativeCurrency
	}
	if overlay.NativeDenom != "" {
		spec.NativeDenom = overlay.NativeDenom
	}
	if overlay.DenomAliases != nil {
		spec.DenomAliases = overlay.DenomAliases
	}
	if overlay.NativeDecimals != 0 {
		spec.NativeDecimals = overlay.NativeDecimals
	}
	if overlay.FeeEpsilon != "" {
		eps, err := decimal.NewFromString(overlay.FeeEpsilon)
		if err != nil {
			return ChainSpec{}, fmt.Errorf("parse fee_epsilon for %s: %w", chain, err)
		}
		spec.FeeEpsilon = eps
	}
	if overlay.ExplorerTxURL != "" {
		spec.ExplorerTxURL = overlay.ExplorerTxURL
	}
	if overlay.APIBaseURL != "" {
		spec.APIBaseURL = overlay.APIBaseURL
	}
	if overlay.ClaimMarkers != nil {
		spec.ClaimMarkers = overlay.ClaimMarkers
	}
	return spec, nil
}
