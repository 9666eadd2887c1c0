// Package config provides configuration management for IdeaLink.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mrz1836/idealink/internal/fileutil"
)

// Provider modes.
const (
	ProviderRPC       = "rpc"
	ProviderDevWallet = "devwallet"
)

// Config represents the application configuration.
type Config struct {
	Version    int              `yaml:"version"`
	Home       string           `yaml:"home"`
	Network    NetworkConfig    `yaml:"network"`
	Provider   ProviderConfig   `yaml:"provider"`
	Settlement SettlementConfig `yaml:"settlement"`
	DevWallet  DevWalletConfig  `yaml:"devwallet"`
	Output     OutputConfig     `yaml:"output"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// NetworkConfig describes the chain and the settlement contract.
type NetworkConfig struct {
	RPC          string `yaml:"rpc"`
	ChainID      uint64 `yaml:"chain_id"`
	Contract     string `yaml:"contract"`
	NativeSymbol string `yaml:"native_symbol"`
}

// ProviderConfig selects the wallet provider.
type ProviderConfig struct {
	// Mode is "rpc" (an external wallet bridge at WalletURL) or "devwallet"
	// (the local development wallet signing through Network.RPC).
	Mode              string  `yaml:"mode"`
	WalletURL         string  `yaml:"wallet_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	TimeoutSeconds    int     `yaml:"timeout_seconds"`
}

// SettlementConfig holds the settlement parameters.
type SettlementConfig struct {
	// ExchangeRate is fiat units per native unit, kept as a string so it
	// round-trips without float error.
	ExchangeRate        string `yaml:"exchange_rate"`
	DefaultVestingDays  int    `yaml:"default_vesting_days"`
	GasMarginPercent    uint64 `yaml:"gas_margin_percent"`
	FallbackGasLimit    uint64 `yaml:"fallback_gas_limit"`
	Confirmations       uint64 `yaml:"confirmations"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	RewardRate          int64  `yaml:"reward_rate"`
	GuardInFlight       bool   `yaml:"guard_in_flight"`
}

// DevWalletConfig configures the development wallet.
type DevWalletConfig struct {
	Keystore     string `yaml:"keystore"`
	AccountIndex uint32 `yaml:"account_index"`
	Accounts     uint32 `yaml:"accounts"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
	Color         string `yaml:"color"`
	Verbose       bool   `yaml:"verbose"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads configuration from the specified file. Missing keys keep
// their defaults.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

// LoadOrDefault reads the file at path, returning Defaults when it does
// not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		return Defaults(), nil
	}
	return cfg, err
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), fileutil.DirPermissions); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return fileutil.WriteAtomic(path, data, 0o600)
}

// Path returns the default config file path.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// JournalDir returns the attempt journal directory.
func (c *Config) JournalDir() string {
	return filepath.Join(ExpandHome(c.Home), "journal")
}

// KeystorePath returns the expanded development wallet keystore path.
func (c *Config) KeystorePath() string {
	if c.DevWallet.Keystore == "" {
		return filepath.Join(ExpandHome(c.Home), "devwallet.age")
	}
	return ExpandHome(c.DevWallet.Keystore)
}

// DefaultVesting returns the default vesting period for ideas that are not
// tokenized.
func (c *Config) DefaultVesting() time.Duration {
	return time.Duration(c.Settlement.DefaultVestingDays) * 24 * time.Hour
}

// PollInterval returns the receipt poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Settlement.PollIntervalSeconds) * time.Second
}

// RequestTimeout returns the bound applied to a single command's network work.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Provider.TimeoutSeconds) * time.Second
}

// GetOutputFormat returns the default output format.
func (c *Config) GetOutputFormat() string {
	return c.Output.DefaultFormat
}

// IsVerbose returns true if verbose output is enabled.
func (c *Config) IsVerbose() bool {
	return c.Output.Verbose
}

// DefaultHome returns the default idealink home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".idealink"
	}
	return filepath.Join(home, ".idealink")
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
