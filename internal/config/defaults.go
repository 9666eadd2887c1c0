package config

import (
	"github.com/mrz1836/idealink/internal/chain"
	"github.com/mrz1836/idealink/internal/chain/eth"
	"github.com/mrz1836/idealink/internal/contract"
)

// DefaultRPCURL is the public Avalanche C-Chain endpoint.
const DefaultRPCURL = "https://api.avax.network/ext/bc/C/rpc"

// DefaultExchangeRate is the fiat price of one native unit.
const DefaultExchangeRate = "20"

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version: 1,
		Home:    "~/.idealink",
		Network: NetworkConfig{
			RPC:          DefaultRPCURL,
			ChainID:      chain.ChainIDAvalanche,
			Contract:     contract.DefaultAddress.Hex(),
			NativeSymbol: "AVAX",
		},
		Provider: ProviderConfig{
			Mode:              ProviderRPC,
			WalletURL:         "",
			RequestsPerSecond: 10,
			Burst:             20,
			TimeoutSeconds:    300,
		},
		Settlement: SettlementConfig{
			ExchangeRate:        DefaultExchangeRate,
			DefaultVestingDays:  30,
			GasMarginPercent:    eth.DefaultGasMarginPercent,
			FallbackGasLimit:    eth.FallbackGasLimit,
			Confirmations:       contract.DefaultConfirmations,
			PollIntervalSeconds: 2,
			RewardRate:          contract.DefaultRewardRate,
			GuardInFlight:       false,
		},
		DevWallet: DevWalletConfig{
			Keystore:     "~/.idealink/devwallet.age",
			AccountIndex: 0,
			Accounts:     5,
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Color:         "auto",
			Verbose:       false,
		},
		Logging: LoggingConfig{
			Level: "error",
			File:  "~/.idealink/idealink.log",
		},
	}
}
