package cli

import (
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/idealink/internal/contract"
	"github.com/mrz1836/idealink/internal/provider"
	"github.com/mrz1836/idealink/internal/wallet"
	ilerr "github.com/mrz1836/idealink/pkg/errors"
)

const abandonAddress0 = "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"

var testPassword = []byte("correct horse battery")

func TestRunDevwalletCreate(t *testing.T) {
	setupTestEnv(t)
	withMockPrompts(t, testPassword, true)
	devAccounts = 2

	cc := testCommandContext(t, nil)
	useJSON(cc)
	cmd, stdout, _ := newTestCmd(cc)
	require.NoError(t, runDevwalletCreate(cmd, nil))

	var view devwalletView
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &view))
	assert.Len(t, view.Addresses, 2)
	assert.Len(t, strings.Fields(view.Mnemonic), 12)
	require.NoError(t, wallet.ValidateMnemonic(view.Mnemonic))

	ks, err := wallet.LoadKeystore(cfg.KeystorePath())
	require.NoError(t, err)
	assert.Equal(t, view.Addresses, ks.Addresses)
}

func TestRunDevwalletCreateTextShowsMnemonicOnce(t *testing.T) {
	setupTestEnv(t)
	withMockPrompts(t, testPassword, true)
	devAccounts = 1

	cmd, stdout, _ := newTestCmd(testCommandContext(t, nil))
	require.NoError(t, runDevwalletCreate(cmd, nil))

	out := stdout.String()
	assert.Contains(t, out, "Write down your mnemonic")
	assert.Contains(t, out, " 1. ")
	assert.Contains(t, out, " 12. ")
	assert.Contains(t, out, "m/44'/60'/0'/0/0")
}

func TestRunDevwalletImportFromPrompt(t *testing.T) {
	setupTestEnv(t)
	withMockPrompts(t, testPassword, true)
	devAccounts = 1

	cmd, stdout, _ := newTestCmd(testCommandContext(t, nil))
	require.NoError(t, runDevwalletImport(cmd, nil))

	assert.Contains(t, stdout.String(), abandonAddress0)
}

func TestRunDevwalletImportFromFile(t *testing.T) {
	home := setupTestEnv(t)
	withMockPrompts(t, testPassword, true)

	file := filepath.Join(home, "mnemonic.txt")
	require.NoError(t, os.WriteFile(file, []byte("  "+testMnemonic+"\n"), 0o600))
	devMnemonicFile = file
	devAccounts = 3

	cmd, _, _ := newTestCmd(testCommandContext(t, nil))
	require.NoError(t, runDevwalletImport(cmd, nil))

	ks, err := wallet.LoadKeystore(cfg.KeystorePath())
	require.NoError(t, err)
	require.Len(t, ks.Addresses, 3)
	assert.Equal(t, abandonAddress0, ks.Addresses[0])
}

func TestRunDevwalletImportRejectsBadMnemonic(t *testing.T) {
	setupTestEnv(t)
	withMockPrompts(t, testPassword, true)
	promptMnemonicFn = func() (string, error) {
		return strings.Replace(testMnemonic, "about", "abandon", 1), nil
	}

	cmd, _, _ := newTestCmd(testCommandContext(t, nil))
	err := runDevwalletImport(cmd, nil)

	require.ErrorIs(t, err, ilerr.ErrInvalidMnemonic)
	assert.False(t, wallet.KeystoreExists(cfg.KeystorePath()))
}

func TestRunDevwalletCreateRefusesToOverwrite(t *testing.T) {
	setupTestEnv(t)
	withMockPrompts(t, testPassword, true)

	cmd, _, _ := newTestCmd(testCommandContext(t, nil))
	require.NoError(t, runDevwalletImport(cmd, nil))

	prompted := false
	promptNewPasswordFn = func() ([]byte, error) {
		prompted = true
		return testPassword, nil
	}
	cmd, _, _ = newTestCmd(testCommandContext(t, nil))
	err := runDevwalletCreate(cmd, nil)

	require.ErrorIs(t, err, ilerr.ErrKeystoreExists)
	assert.False(t, prompted, "no password prompt before the existence check")
}

func TestRunDevwalletAddress(t *testing.T) {
	setupTestEnv(t)
	withMockPrompts(t, testPassword, true)
	devAccounts = 2

	cmd, _, _ := newTestCmd(testCommandContext(t, nil))
	require.NoError(t, runDevwalletImport(cmd, nil))

	cfg.DevWallet.AccountIndex = 1
	cmd, stdout, _ := newTestCmd(testCommandContext(t, nil))
	require.NoError(t, runDevwalletAddress(cmd, nil))

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Contains(t, lines[len(lines)-1], "*")
	assert.Contains(t, stdout.String(), abandonAddress0)
}

func TestRunDevwalletAddressWithoutKeystore(t *testing.T) {
	setupTestEnv(t)

	cmd, _, _ := newTestCmd(testCommandContext(t, nil))
	err := runDevwalletAddress(cmd, nil)
	require.ErrorIs(t, err, ilerr.ErrKeystoreNotFound)
}

func TestOpenDevWalletWrongPassword(t *testing.T) {
	setupTestEnv(t)
	withMockPrompts(t, testPassword, true)
	devAccounts = 1

	cmd, _, _ := newTestCmd(testCommandContext(t, nil))
	require.NoError(t, runDevwalletImport(cmd, nil))

	promptPasswordFn = func(string) ([]byte, error) { return []byte("not the password"), nil }
	cfg.Provider.Mode = "devwallet"
	cc := testCommandContext(t, nil)

	_, err := openDevWallet(cmd.Context(), cc)
	require.ErrorIs(t, err, ilerr.ErrDecryptionFailed)
}

func TestApproveTransaction(t *testing.T) {
	setupTestEnv(t)

	var asked string
	withMockPrompts(t, nil, false)
	promptConfirmFn = func(q string) bool {
		asked = q
		return false
	}

	ok, err := approveTransaction("AVAX")(t.Context(), testSignRequest())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, asked, "sending 1.0 AVAX")
	assert.Contains(t, asked, "gas limit 21000 at 25.00 Gwei")
	assert.Contains(t, asked, "max fee 0.000525 AVAX")

	assumeYes = true
	ok, err = approveTransaction("AVAX")(t.Context(), testSignRequest())
	require.NoError(t, err)
	assert.True(t, ok)
}

func testSignRequest() provider.SignRequest {
	to := contract.DefaultAddress
	return provider.SignRequest{
		To:       &to,
		Value:    big.NewInt(1_000_000_000_000_000_000),
		GasLimit: 21000,
		GasPrice: big.NewInt(25_000_000_000),
		ChainID:  43114,
	}
}
