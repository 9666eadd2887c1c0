package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mrz1836/idealink/internal/config"
	"github.com/mrz1836/idealink/internal/metrics"
	"github.com/mrz1836/idealink/internal/output"
	"github.com/mrz1836/idealink/internal/provider"
	"github.com/mrz1836/idealink/internal/provider/providertest"
)

const (
	testInvestor = "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
	testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
)

//nolint:gochecknoglobals // shared test fixture
var testTxHash = "0x" + strings.Repeat("cd", 32)

// setupTestEnv points the globals at a fresh home directory with default
// configuration and text output, and resets every flag variable.
func setupTestEnv(t *testing.T) string {
	t.Helper()

	origCfg, origLogger, origFormatter := cfg, logger, formatter
	origWorkFactor := keystoreWorkFactor

	home := t.TempDir()
	testCfg := config.Defaults()
	testCfg.Home = home
	testCfg.DevWallet.Keystore = filepath.Join(home, "devwallet.age")
	testCfg.Logging.File = ""
	testCfg.Settlement.PollIntervalSeconds = 1

	cfg = testCfg
	logger = zaptest.NewLogger(t)
	formatter = output.NewFormatter(output.FormatText, &bytes.Buffer{})
	keystoreWorkFactor = 10
	resetFlags()

	t.Cleanup(func() {
		cfg, logger, formatter = origCfg, origLogger, origFormatter
		keystoreWorkFactor = origWorkFactor
		resetFlags()
	})
	return home
}

func resetFlags() {
	settlePrice, settleAmount = "", ""
	vestingSeconds, investTokenized = 0, false
	assumeYes = false
	historyIdea, historyOperation, historyFailed, historyLimit, historyClear = "", "", false, 20, false
	devWords, devAccounts, devPassphrase, devMnemonicFile = 12, 0, false, ""
	vestingInvestor, vestingWatch = "", false
	configForce = false
	watchFor = 0
}

// withMockPrompts replaces prompt functions for testing and restores on cleanup.
func withMockPrompts(t *testing.T, password []byte, confirm bool) {
	t.Helper()
	origPW := promptPasswordFn
	origNewPW := promptNewPasswordFn
	origConfirm := promptConfirmFn
	origMnemonic := promptMnemonicFn
	t.Cleanup(func() {
		promptPasswordFn = origPW
		promptNewPasswordFn = origNewPW
		promptConfirmFn = origConfirm
		promptMnemonicFn = origMnemonic
	})
	promptPasswordFn = func(_ string) ([]byte, error) {
		cp := make([]byte, len(password))
		copy(cp, password)
		return cp, nil
	}
	promptNewPasswordFn = func() ([]byte, error) {
		cp := make([]byte, len(password))
		copy(cp, password)
		return cp, nil
	}
	promptConfirmFn = func(string) bool { return confirm }
	promptMnemonicFn = func() (string, error) { return testMnemonic, nil }
}

// testCommandContext builds a CommandContext from the globals whose Dial
// hands out p.
func testCommandContext(t *testing.T, p provider.Provider) *CommandContext {
	t.Helper()
	cc := NewCommandContext(cfg, logger, formatter)
	cc.Metrics = &metrics.Metrics{}
	cc.Dial = func(context.Context, *CommandContext) (provider.Provider, error) {
		if p == nil {
			return nil, errDialUnexpected
		}
		return p, nil
	}
	return cc
}

// newTestCmd creates a command carrying cc with captured stdout and stderr.
func newTestCmd(cc *CommandContext) (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	cmd := &cobra.Command{}
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetContext(context.Background())
	SetCmdContext(cmd, cc)
	return cmd, &stdout, &stderr
}

// useJSON switches cc to JSON output.
func useJSON(cc *CommandContext) {
	cc.Fmt = output.NewFormatter(output.FormatJSON, &bytes.Buffer{})
}

// scriptedWallet answers everything a settlement needs: an account on
// Avalanche, a passing simulation, a gas estimate, a hash and a
// successful receipt.
func scriptedWallet() *providertest.Provider {
	return providertest.New().
		Returns(provider.MethodRequestAccounts, []string{testInvestor}).
		Returns(provider.MethodAccounts, []string{testInvestor}).
		Returns(provider.MethodChainID, "0xa86a").
		Returns(provider.MethodGetBalance, "0xde0b6b3a7640000").
		Returns(provider.MethodCall, "0x").
		Returns(provider.MethodEstimateGas, "0x5208").
		Returns(provider.MethodSendTransaction, testTxHash).
		Returns(provider.MethodGetTransactionReceipt, map[string]any{
			"transactionHash": testTxHash,
			"blockNumber":     "0x10",
			"status":          "0x1",
			"gasUsed":         "0x5208",
			"logs":            []any{},
		})
}

type dialError string

func (e dialError) Error() string { return string(e) }

// forbidDial fails the test if cc dials a provider.
func forbidDial(t *testing.T, cc *CommandContext) {
	t.Helper()
	cc.Dial = func(context.Context, *CommandContext) (provider.Provider, error) {
		t.Error("provider dialed for input that failed validation")
		return nil, errDialUnexpected
	}
}

const errDialUnexpected = dialError("provider dialed unexpectedly")

func requireNoProviderCalls(t *testing.T, p *providertest.Provider) {
	t.Helper()
	require.Empty(t, p.Methods(), "no request should reach the wallet")
}
