package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseBool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"1", "1", true},
		{"true", "true", true},
		{"TRUE", "TRUE", true},
		{"yes", "yes", true},
		{"on", "on", true},
		{"with spaces", "  true  ", true},
		{"0", "0", false},
		{"false", "false", false},
		{"no", "no", false},
		{"off", "off", false},
		{"empty", "", false},
		{"random", "random", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, parseBool(tc.input))
		})
	}
}

func TestSanitizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"clean", "https://api.avax.network/ext/bc/C/rpc", "https://api.avax.network/ext/bc/C/rpc"},
		{"spaces", "  https://api.avax.network/ext/bc/C/rpc  ", "https://api.avax.network/ext/bc/C/rpc"},
		{"quoted", `"wss://wallet.local:8546"`, "wss://wallet.local:8546"},
		{"embedded newline", "https://api.avax.network/ext/bc/\nC/rpc", "https://api.avax.network/ext/bc/C/rpc"},
		{"upper case host", "HTTPS://API.AVAX.NETWORK/ext", "https://api.avax.network/ext"},
		{"not a url", " localhost ", "localhost"},
		{"empty", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, SanitizeURL(tc.input))
		})
	}
}

func TestApplyEnvironment(t *testing.T) {
	t.Setenv(EnvHome, "/tmp/idealink-home")
	t.Setenv(EnvRPC, " https://rpc.example.com ")
	t.Setenv(EnvWalletURL, "ws://127.0.0.1:8546")
	t.Setenv(EnvProvider, "DevWallet")
	t.Setenv(EnvContract, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	t.Setenv(EnvExchangeRate, " 25.5 ")
	t.Setenv(EnvOutputFormat, "JSON")
	t.Setenv(EnvVerbose, "yes")
	t.Setenv(EnvLogLevel, "DEBUG")
	t.Setenv(EnvNoColor, "")

	cfg := Defaults()
	ApplyEnvironment(cfg)

	assert.Equal(t, "/tmp/idealink-home", cfg.Home)
	assert.Equal(t, "https://rpc.example.com", cfg.Network.RPC)
	assert.Equal(t, "ws://127.0.0.1:8546", cfg.Provider.WalletURL)
	assert.Equal(t, ProviderDevWallet, cfg.Provider.Mode)
	assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", cfg.Network.Contract)
	assert.Equal(t, "25.5", cfg.Settlement.ExchangeRate)
	assert.Equal(t, "json", cfg.Output.DefaultFormat)
	assert.True(t, cfg.Output.Verbose)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "never", cfg.Output.Color)
}

func TestApplyEnvironment_Unset(t *testing.T) {
	t.Setenv(EnvRPC, "")
	t.Setenv(EnvExchangeRate, "")

	cfg := Defaults()
	ApplyEnvironment(cfg)
	assert.Equal(t, DefaultRPCURL, cfg.Network.RPC)
	assert.Equal(t, DefaultExchangeRate, cfg.Settlement.ExchangeRate)
}
