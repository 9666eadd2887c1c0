package eth

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// TxParams contains the fields of a legacy transaction.
type TxParams struct {
	Nonce    uint64
	To       *common.Address // nil for contract creation
	Value    *big.Int
	GasLimit uint64
	GasPrice *big.Int
	Data     []byte
	ChainID  *big.Int
}

// SignTx builds and signs a legacy transaction with an EIP-155 replay-protected signer.
func SignTx(params TxParams, key *ecdsa.PrivateKey) (*types.Transaction, error) {
	if params.ChainID == nil || params.ChainID.Sign() <= 0 {
		return nil, fmt.Errorf("signing transaction: invalid chain id")
	}
	if params.GasPrice == nil {
		return nil, fmt.Errorf("signing transaction: gas price is required")
	}
	value := params.Value
	if value == nil {
		value = new(big.Int)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    params.Nonce,
		To:       params.To,
		Value:    value,
		Gas:      params.GasLimit,
		GasPrice: params.GasPrice,
		Data:     params.Data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(params.ChainID), key)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}
	return signed, nil
}

// EncodeTx returns the RLP/typed binary encoding of a signed transaction.
func EncodeTx(tx *types.Transaction) ([]byte, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encoding transaction: %w", err)
	}
	return raw, nil
}

// AddressFromKey returns the address controlled by key.
func AddressFromKey(key *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(key.PublicKey)
}

// KeyFromBytes parses a 32-byte secp256k1 private key.
func KeyFromBytes(b []byte) (*ecdsa.PrivateKey, error) {
	key, err := crypto.ToECDSA(b)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	return key, nil
}
