package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Environment variable names.
const (
	EnvHome         = "IDEALINK_HOME"
	EnvRPC          = "IDEALINK_RPC"
	EnvWalletURL    = "IDEALINK_WALLET_URL"
	EnvProvider     = "IDEALINK_PROVIDER"
	EnvContract     = "IDEALINK_CONTRACT"
	EnvExchangeRate = "IDEALINK_EXCHANGE_RATE"
	EnvOutputFormat = "IDEALINK_OUTPUT_FORMAT"
	EnvVerbose      = "IDEALINK_VERBOSE"
	EnvLogLevel     = "IDEALINK_LOG_LEVEL"
	EnvNoColor      = "NO_COLOR"
)

// ApplyEnvironment applies environment variable overrides to the configuration.
//
//nolint:gocyclo // Environment variable overrides require sequential checks
func ApplyEnvironment(cfg *Config) {
	if v := os.Getenv(EnvHome); v != "" {
		cfg.Home = v
	}

	if v := os.Getenv(EnvRPC); v != "" {
		cfg.Network.RPC = SanitizeURL(v)
	}

	if v := os.Getenv(EnvWalletURL); v != "" {
		cfg.Provider.WalletURL = SanitizeURL(v)
	}

	if v := os.Getenv(EnvProvider); v != "" {
		cfg.Provider.Mode = strings.ToLower(strings.TrimSpace(v))
	}

	if v := os.Getenv(EnvContract); v != "" {
		cfg.Network.Contract = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvExchangeRate); v != "" {
		cfg.Settlement.ExchangeRate = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvOutputFormat); v != "" {
		cfg.Output.DefaultFormat = strings.ToLower(v)
	}

	if v := os.Getenv(EnvVerbose); v != "" {
		cfg.Output.Verbose = parseBool(v)
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}

	// NO_COLOR disables colored output
	if _, ok := os.LookupEnv(EnvNoColor); ok {
		cfg.Output.Color = "never"
	}
}

// parseBool parses a boolean string value.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "1" || s == "true" || s == "yes" || s == "on" {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}

// SanitizeURL trims whitespace and copy-paste artifacts from an endpoint
// URL. Strings that do not parse as a URL are returned trimmed.
func SanitizeURL(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, `"'<>`)
	s = strings.Map(func(r rune) rune {
		if r < 0x21 || r == 0x7f {
			return -1
		}
		return r
	}, s)

	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return s
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	return u.String()
}
