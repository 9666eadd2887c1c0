package cli

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/idealink/internal/config"
	ilerr "github.com/mrz1836/idealink/pkg/errors"
)

func TestRunConfigInit(t *testing.T) {
	home := setupTestEnv(t)

	cmd, stdout, _ := newTestCmd(testCommandContext(t, nil))
	require.NoError(t, runConfigInit(cmd, nil))
	assert.Contains(t, stdout.String(), "Configuration written to")

	_, err := os.Stat(config.Path(home))
	require.NoError(t, err)
}

func TestRunConfigInitRefusesWithoutForce(t *testing.T) {
	setupTestEnv(t)

	cmd, _, _ := newTestCmd(testCommandContext(t, nil))
	require.NoError(t, runConfigInit(cmd, nil))

	cmd, _, _ = newTestCmd(testCommandContext(t, nil))
	require.Error(t, runConfigInit(cmd, nil))

	configForce = true
	cmd, _, _ = newTestCmd(testCommandContext(t, nil))
	require.NoError(t, runConfigInit(cmd, nil))
}

func TestRunConfigShow(t *testing.T) {
	setupTestEnv(t)

	cmd, stdout, _ := newTestCmd(testCommandContext(t, nil))
	require.NoError(t, runConfigShow(cmd, nil))

	out := stdout.String()
	assert.Contains(t, out, "settlement.exchange_rate")
	assert.Contains(t, out, "network.contract")
}

func TestRunConfigShowJSON(t *testing.T) {
	setupTestEnv(t)

	cc := testCommandContext(t, nil)
	useJSON(cc)
	cmd, stdout, _ := newTestCmd(cc)
	require.NoError(t, runConfigShow(cmd, nil))

	var values map[string]string
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &values))
	assert.Equal(t, "20", values["settlement.exchange_rate"])
	assert.Equal(t, "AVAX", values["network.native_symbol"])
	assert.Len(t, values, len(config.Keys()))
}

func TestRunConfigGet(t *testing.T) {
	setupTestEnv(t)

	tests := []struct {
		key  string
		want string
	}{
		{"settlement.exchange_rate", "20"},
		{"network.chain_id", "43114"},
		{"provider.mode", "rpc"},
		{"settlement.guard_in_flight", "false"},
	}
	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			cmd, stdout, _ := newTestCmd(testCommandContext(t, nil))
			require.NoError(t, runConfigGet(cmd, []string{tc.key}))
			assert.Equal(t, tc.want+"\n", stdout.String())
		})
	}
}

func TestRunConfigGetUnknownKey(t *testing.T) {
	setupTestEnv(t)

	cmd, _, _ := newTestCmd(testCommandContext(t, nil))
	err := runConfigGet(cmd, []string{"settlement.exchange"})
	require.ErrorIs(t, err, ilerr.ErrUnknownConfigKey)
}

func TestRunConfigSet(t *testing.T) {
	home := setupTestEnv(t)

	cmd, stdout, _ := newTestCmd(testCommandContext(t, nil))
	require.NoError(t, runConfigSet(cmd, []string{"settlement.exchange_rate", "21.35"}))
	assert.Contains(t, stdout.String(), "settlement.exchange_rate = 21.35")

	saved, err := config.Load(config.Path(home))
	require.NoError(t, err)
	assert.Equal(t, "21.35", saved.Settlement.ExchangeRate)
}

func TestRunConfigSetDoesNotPersistEnvironment(t *testing.T) {
	home := setupTestEnv(t)
	cfg.Provider.WalletURL = "http://from-environment:8545"

	cmd, _, _ := newTestCmd(testCommandContext(t, nil))
	require.NoError(t, runConfigSet(cmd, []string{"logging.level", "debug"}))

	saved, err := config.Load(config.Path(home))
	require.NoError(t, err)
	assert.Equal(t, "debug", saved.Logging.Level)
	assert.Empty(t, saved.Provider.WalletURL)
}

func TestRunConfigSetRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown key", "settlement.nope", "1"},
		{"zero exchange rate", "settlement.exchange_rate", "0"},
		{"bad provider mode", "provider.mode", "browser"},
		{"non-numeric chain", "network.chain_id", "avalanche"},
		{"bad contract", "network.contract", "0x1234"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			home := setupTestEnv(t)

			cmd, _, _ := newTestCmd(testCommandContext(t, nil))
			require.Error(t, runConfigSet(cmd, []string{tc.key, tc.value}))

			_, err := os.Stat(config.Path(home))
			assert.True(t, os.IsNotExist(err), "nothing written on a rejected value")
		})
	}
}
