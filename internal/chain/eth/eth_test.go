package eth_test

import (
	"math"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/idealink/internal/chain/eth"
	ilerr "github.com/mrz1836/idealink/pkg/errors"
)

const (
	checksummed = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	contract    = "0xD5c64211e39CB3b6D2474AF4FD963ad0fdd9F2cF"
)

func TestValidateChecksumAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		address string
		wantErr error
	}{
		{"checksummed", checksummed, nil},
		{"lowercase", "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", nil},
		{"uppercase", "0x5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED", nil},
		{"bad checksum", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAeD", ilerr.ErrInvalidChecksum},
		{"no prefix", "5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", ilerr.ErrInvalidAddress},
		{"short", "0x1234", ilerr.ErrInvalidAddress},
		{"non-hex", "0xZZaeb6053f3e94c9b9a09f33669435e7ef1beaed", ilerr.ErrInvalidAddress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := eth.ValidateChecksumAddress(tt.address)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestToChecksumAddress(t *testing.T) {
	t.Parallel()
	assert.Equal(t, checksummed, eth.ToChecksumAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"))
	assert.Equal(t, "nope", eth.ToChecksumAddress("nope"))
}

func TestParseAddress(t *testing.T) {
	t.Parallel()
	addr, err := eth.ParseAddress(contract)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(contract), addr)

	_, err = eth.ParseAddress("0x123")
	require.ErrorIs(t, err, ilerr.ErrInvalidAddress)
}

func TestLowerAndSameAddress(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", eth.LowerAddress(checksummed))
	assert.True(t, eth.SameAddress(checksummed, eth.LowerAddress(checksummed)))
	assert.False(t, eth.SameAddress(checksummed, contract))
}

func TestApplyGasMargin(t *testing.T) {
	t.Parallel()
	assert.Equal(t, uint64(120_000), eth.ApplyGasMargin(100_000, eth.DefaultGasMarginPercent))
	assert.Equal(t, uint64(25_200), eth.ApplyGasMargin(21_000, 20))
	// Integer division truncates.
	assert.Equal(t, uint64(1), eth.ApplyGasMargin(1, 20))
	assert.Equal(t, uint64(math.MaxUint64), eth.ApplyGasMargin(math.MaxUint64, 20))
}

func TestTxCostAndFormatGasPrice(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "50000000000000", eth.TxCost(big.NewInt(25_000_000_000), 2000).String())
	assert.Equal(t, "0", eth.TxCost(nil, 10).String())
	assert.Equal(t, "25.00 Gwei", eth.FormatGasPrice(big.NewInt(25_000_000_000)))
	assert.Equal(t, "0.00 Gwei", eth.FormatGasPrice(nil))
}

func TestNonceManager_Progression(t *testing.T) {
	t.Parallel()
	nm := eth.NewNonceManager()

	assert.Equal(t, uint64(0), nm.Next(checksummed, 0))
	assert.Equal(t, uint64(1), nm.Next(checksummed, 0))
	// Case-insensitive tracking.
	assert.Equal(t, uint64(2), nm.Next(eth.LowerAddress(checksummed), 0))
	// Node caught up.
	assert.Equal(t, uint64(5), nm.Next(checksummed, 5))
}

func TestNonceManager_ReleaseAndReset(t *testing.T) {
	t.Parallel()
	nm := eth.NewNonceManager()

	n := nm.Next(checksummed, 3)
	nm.Release(checksummed, n)
	assert.Equal(t, n, nm.Next(checksummed, 3))

	// Releasing a stale nonce is ignored.
	_ = nm.Next(checksummed, 3)
	nm.Release(checksummed, n)
	assert.Equal(t, uint64(5), nm.Next(checksummed, 3))

	nm.Reset(checksummed)
	assert.Equal(t, uint64(0), nm.Next(checksummed, 0))
}

func TestNonceManager_Concurrent(t *testing.T) {
	t.Parallel()
	nm := eth.NewNonceManager()

	const n = 50
	seen := make(chan uint64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- nm.Next(contract, 0)
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[uint64]struct{})
	for v := range seen {
		unique[v] = struct{}{}
	}
	assert.Len(t, unique, n)
}

func TestSignTx(t *testing.T) {
	t.Parallel()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	to := common.HexToAddress(contract)
	chainID := big.NewInt(43114)
	tx, err := eth.SignTx(eth.TxParams{
		Nonce:    7,
		To:       &to,
		Value:    big.NewInt(1000),
		GasLimit: 120_000,
		GasPrice: big.NewInt(25_000_000_000),
		Data:     []byte{0x01, 0x02},
		ChainID:  chainID,
	}, key)
	require.NoError(t, err)

	sender, err := types.Sender(types.LatestSignerForChainID(chainID), tx)
	require.NoError(t, err)
	assert.Equal(t, eth.AddressFromKey(key), sender)
	assert.Equal(t, uint64(7), tx.Nonce())

	raw, err := eth.EncodeTx(tx)
	require.NoError(t, err)

	var decoded types.Transaction
	require.NoError(t, decoded.UnmarshalBinary(raw))
	assert.Equal(t, tx.Hash(), decoded.Hash())
}

func TestSignTxValidation(t *testing.T) {
	t.Parallel()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	_, err = eth.SignTx(eth.TxParams{GasPrice: big.NewInt(1)}, key)
	require.Error(t, err)

	_, err = eth.SignTx(eth.TxParams{ChainID: big.NewInt(1)}, key)
	require.Error(t, err)
}

func TestKeyFromBytes(t *testing.T) {
	t.Parallel()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	parsed, err := eth.KeyFromBytes(crypto.FromECDSA(key))
	require.NoError(t, err)
	assert.Equal(t, eth.AddressFromKey(key), eth.AddressFromKey(parsed))

	_, err = eth.KeyFromBytes([]byte{1, 2, 3})
	require.Error(t, err)
}
