package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tyler-smith/go-bip32"

	"github.com/mrz1836/idealink/internal/chain"
	"github.com/mrz1836/idealink/internal/chain/eth"
)

// MaxAccounts bounds how many accounts a development wallet derives.
const MaxAccounts = 100

// ErrInvalidSeed indicates the seed length is not a BIP32 seed.
var ErrInvalidSeed = errors.New("seed must be between 16 and 64 bytes")

// DerivationPathFor returns the BIP44 path of account index.
func DerivationPathFor(index uint32) string {
	return fmt.Sprintf("%s/%d", chain.DerivationPath, index)
}

// DeriveKey derives the private key at m/44'/60'/0'/0/index.
func DeriveKey(seed []byte, index uint32) (*ecdsa.PrivateKey, error) {
	if len(seed) < 16 || len(seed) > 64 {
		return nil, ErrInvalidSeed
	}
	if index >= bip32.FirstHardenedChild {
		return nil, fmt.Errorf("account index %d out of range", index)
	}

	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("creating master key: %w", err)
	}

	path := []uint32{
		bip32.FirstHardenedChild + 44,
		bip32.FirstHardenedChild + chain.CoinTypeETH,
		bip32.FirstHardenedChild,
		0,
		index,
	}
	key := master
	for _, child := range path {
		if key, err = key.NewChildKey(child); err != nil {
			return nil, fmt.Errorf("deriving %s: %w", DerivationPathFor(index), err)
		}
	}

	defer ZeroBytes(key.Key)
	return eth.KeyFromBytes(key.Key)
}

// DeriveKeys derives count consecutive keys starting at index 0.
func DeriveKeys(seed []byte, count uint32) ([]*ecdsa.PrivateKey, error) {
	if count == 0 || count > MaxAccounts {
		return nil, fmt.Errorf("account count must be between 1 and %d", MaxAccounts)
	}
	keys := make([]*ecdsa.PrivateKey, 0, count)
	for i := uint32(0); i < count; i++ {
		k, err := DeriveKey(seed, i)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// DeriveAddress returns the address at account index.
func DeriveAddress(seed []byte, index uint32) (common.Address, error) {
	key, err := DeriveKey(seed, index)
	if err != nil {
		return common.Address{}, err
	}
	return eth.AddressFromKey(key), nil
}
