package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mrz1836/idealink/internal/chain/eth"
	ilerr "github.com/mrz1836/idealink/pkg/errors"
)

var errNoHost = errors.New("url has no host")

// ExchangeRate parses the configured exchange rate.
func (c *Config) ExchangeRate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.Settlement.ExchangeRate))
	if err != nil {
		return decimal.Zero, invalid("settlement.exchange_rate", "not a number")
	}
	if !rate.IsPositive() {
		return decimal.Zero, invalid("settlement.exchange_rate", "must be positive")
	}
	return rate, nil
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	if _, err := c.ExchangeRate(); err != nil {
		return err
	}
	if !eth.IsValidAddress(c.Network.Contract) {
		return invalid("network.contract", "not an address")
	}
	if c.Settlement.Confirmations == 0 {
		return invalid("settlement.confirmations", "must be at least 1")
	}
	if c.Settlement.DefaultVestingDays <= 0 {
		return invalid("settlement.default_vesting_days", "must be positive")
	}
	if c.Settlement.PollIntervalSeconds <= 0 {
		return invalid("settlement.poll_interval_seconds", "must be positive")
	}
	if c.Settlement.RewardRate <= 0 {
		return invalid("settlement.reward_rate", "must be positive")
	}

	switch c.Provider.Mode {
	case ProviderRPC:
		if c.Provider.WalletURL != "" {
			if err := validURL(c.Provider.WalletURL); err != nil {
				return invalid("provider.wallet_url", err.Error())
			}
		}
	case ProviderDevWallet:
		if err := validURL(c.Network.RPC); err != nil {
			return invalid("network.rpc", err.Error())
		}
	default:
		return invalid("provider.mode", `must be "rpc" or "devwallet"`)
	}

	switch c.Output.DefaultFormat {
	case "auto", "text", "json":
	default:
		return invalid("output.default_format", `must be "auto", "text" or "json"`)
	}
	return nil
}

func validURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errNoHost
	}
	return nil
}

func invalid(key, reason string) error {
	return ilerr.WithDetails(ilerr.ErrConfigInvalid, map[string]string{
		"key":              key,
		ilerr.DetailReason: reason,
	})
}
