package config

import (
	"sort"
	"strconv"
	"strings"

	ilerr "github.com/mrz1836/idealink/pkg/errors"
)

// field reads and writes one dotted configuration key.
type field struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringField(p func(c *Config) *string) field {
	return field{
		get: func(c *Config) string { return *p(c) },
		set: func(c *Config, v string) error { *p(c) = v; return nil },
	}
}

func lowerField(p func(c *Config) *string) field {
	return field{
		get: func(c *Config) string { return *p(c) },
		set: func(c *Config, v string) error { *p(c) = strings.ToLower(strings.TrimSpace(v)); return nil },
	}
}

func urlField(p func(c *Config) *string) field {
	return field{
		get: func(c *Config) string { return *p(c) },
		set: func(c *Config, v string) error { *p(c) = SanitizeURL(v); return nil },
	}
}

func intField(p func(c *Config) *int) field {
	return field{
		get: func(c *Config) string { return strconv.Itoa(*p(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return badValue(v, "an integer")
			}
			*p(c) = n
			return nil
		},
	}
}

func uint64Field(p func(c *Config) *uint64) field {
	return field{
		get: func(c *Config) string { return strconv.FormatUint(*p(c), 10) },
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return badValue(v, "a non-negative integer")
			}
			*p(c) = n
			return nil
		},
	}
}

func uint32Field(p func(c *Config) *uint32) field {
	return field{
		get: func(c *Config) string { return strconv.FormatUint(uint64(*p(c)), 10) },
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 32)
			if err != nil {
				return badValue(v, "a non-negative integer")
			}
			*p(c) = uint32(n)
			return nil
		},
	}
}

func int64Field(p func(c *Config) *int64) field {
	return field{
		get: func(c *Config) string { return strconv.FormatInt(*p(c), 10) },
		set: func(c *Config, v string) error {
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return badValue(v, "an integer")
			}
			*p(c) = n
			return nil
		},
	}
}

func floatField(p func(c *Config) *float64) field {
	return field{
		get: func(c *Config) string { return strconv.FormatFloat(*p(c), 'f', -1, 64) },
		set: func(c *Config, v string) error {
			n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return badValue(v, "a number")
			}
			*p(c) = n
			return nil
		},
	}
}

func boolField(p func(c *Config) *bool) field {
	return field{
		get: func(c *Config) string { return strconv.FormatBool(*p(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return badValue(v, "true or false")
			}
			*p(c) = b
			return nil
		},
	}
}

//nolint:gochecknoglobals // key table
var fields = map[string]field{
	"home": stringField(func(c *Config) *string { return &c.Home }),

	"network.rpc":           urlField(func(c *Config) *string { return &c.Network.RPC }),
	"network.chain_id":      uint64Field(func(c *Config) *uint64 { return &c.Network.ChainID }),
	"network.contract":      stringField(func(c *Config) *string { return &c.Network.Contract }),
	"network.native_symbol": stringField(func(c *Config) *string { return &c.Network.NativeSymbol }),

	"provider.mode":                lowerField(func(c *Config) *string { return &c.Provider.Mode }),
	"provider.wallet_url":          urlField(func(c *Config) *string { return &c.Provider.WalletURL }),
	"provider.requests_per_second": floatField(func(c *Config) *float64 { return &c.Provider.RequestsPerSecond }),
	"provider.burst":               intField(func(c *Config) *int { return &c.Provider.Burst }),
	"provider.timeout_seconds":     intField(func(c *Config) *int { return &c.Provider.TimeoutSeconds }),

	"settlement.exchange_rate":         stringField(func(c *Config) *string { return &c.Settlement.ExchangeRate }),
	"settlement.default_vesting_days":  intField(func(c *Config) *int { return &c.Settlement.DefaultVestingDays }),
	"settlement.gas_margin_percent":    uint64Field(func(c *Config) *uint64 { return &c.Settlement.GasMarginPercent }),
	"settlement.fallback_gas_limit":    uint64Field(func(c *Config) *uint64 { return &c.Settlement.FallbackGasLimit }),
	"settlement.confirmations":         uint64Field(func(c *Config) *uint64 { return &c.Settlement.Confirmations }),
	"settlement.poll_interval_seconds": intField(func(c *Config) *int { return &c.Settlement.PollIntervalSeconds }),
	"settlement.reward_rate":           int64Field(func(c *Config) *int64 { return &c.Settlement.RewardRate }),
	"settlement.guard_in_flight":       boolField(func(c *Config) *bool { return &c.Settlement.GuardInFlight }),

	"devwallet.keystore":      stringField(func(c *Config) *string { return &c.DevWallet.Keystore }),
	"devwallet.account_index": uint32Field(func(c *Config) *uint32 { return &c.DevWallet.AccountIndex }),
	"devwallet.accounts":      uint32Field(func(c *Config) *uint32 { return &c.DevWallet.Accounts }),

	"output.default_format": lowerField(func(c *Config) *string { return &c.Output.DefaultFormat }),
	"output.color":          lowerField(func(c *Config) *string { return &c.Output.Color }),
	"output.verbose":        boolField(func(c *Config) *bool { return &c.Output.Verbose }),

	"logging.level": lowerField(func(c *Config) *string { return &c.Logging.Level }),
	"logging.file":  stringField(func(c *Config) *string { return &c.Logging.File }),
}

// Keys returns every settable key, sorted.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value of a dotted key such as "settlement.exchange_rate".
func (c *Config) Get(key string) (string, error) {
	f, ok := fields[key]
	if !ok {
		return "", unknownKey(key)
	}
	return f.get(c), nil
}

// Set assigns a dotted key. The value is parsed for the key's type; the
// resulting configuration is not validated.
func (c *Config) Set(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return unknownKey(key)
	}
	return f.set(c, value)
}

func unknownKey(key string) error {
	err := ilerr.WithDetails(ilerr.ErrUnknownConfigKey, map[string]string{"key": key})
	section, _, _ := strings.Cut(key, ".")
	var near []string
	for _, k := range Keys() {
		if strings.HasPrefix(k, section+".") {
			near = append(near, k)
		}
	}
	if len(near) > 0 {
		err = ilerr.WithSuggestion(err, "Known keys in this section: "+strings.Join(near, ", "))
	}
	return err
}

func badValue(v, want string) error {
	return ilerr.WithDetails(ilerr.ErrInvalidInput, map[string]string{
		"value":            v,
		ilerr.DetailReason: "expected " + want,
	})
}
