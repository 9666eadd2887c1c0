package provider

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// TxArgs are the arguments of eth_call, eth_estimateGas and eth_sendTransaction.
type TxArgs struct {
	From     *common.Address `json:"from,omitempty"`
	To       *common.Address `json:"to,omitempty"`
	Value    *hexutil.Big    `json:"value,omitempty"`
	Data     hexutil.Bytes   `json:"data,omitempty"`
	Gas      *hexutil.Uint64 `json:"gas,omitempty"`
	GasPrice *hexutil.Big    `json:"gasPrice,omitempty"`
	Nonce    *hexutil.Uint64 `json:"nonce,omitempty"`
}

// DecodeAccounts decodes an address array result.
func DecodeAccounts(raw json.RawMessage) ([]string, error) {
	var accounts []string
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return nil, fmt.Errorf("decoding accounts: %w", err)
	}
	return accounts, nil
}

// DecodeBig decodes a hex quantity result.
func DecodeBig(raw json.RawMessage) (*big.Int, error) {
	var v hexutil.Big
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decoding quantity: %w", err)
	}
	return v.ToInt(), nil
}

// DecodeUint64 decodes a hex quantity that fits in 64 bits.
func DecodeUint64(raw json.RawMessage) (uint64, error) {
	var v hexutil.Uint64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("decoding quantity: %w", err)
	}
	return uint64(v), nil
}

// DecodeBytes decodes a hex data result.
func DecodeBytes(raw json.RawMessage) ([]byte, error) {
	var v hexutil.Bytes
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decoding data: %w", err)
	}
	return v, nil
}

// DecodeHash decodes a 32-byte hash result.
func DecodeHash(raw json.RawMessage) (common.Hash, error) {
	var h common.Hash
	if err := json.Unmarshal(raw, &h); err != nil {
		return common.Hash{}, fmt.Errorf("decoding hash: %w", err)
	}
	return h, nil
}

// ParseChainID parses a chainChanged payload. Wallets send a hex string,
// but some send a decimal string or a bare number.
func ParseChainID(raw json.RawMessage) (uint64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var n uint64
		if nErr := json.Unmarshal(raw, &n); nErr != nil {
			return 0, fmt.Errorf("decoding chain id: %w", err)
		}
		return n, nil
	}

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseUint(s[2:], 16, 64)
		if err != nil {
			return 0, fmt.Errorf("decoding chain id %q: %w", s, err)
		}
		return v, nil
	}

	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decoding chain id %q: %w", s, err)
	}
	return v, nil
}

// EncodeChainID renders a chain id the way wallets publish it.
func EncodeChainID(chainID uint64) json.RawMessage {
	raw, _ := json.Marshal(hexutil.EncodeUint64(chainID)) //nolint:errchkjson // string marshal cannot fail
	return raw
}

// EncodeAccounts renders an accountsChanged payload.
func EncodeAccounts(accounts []string) json.RawMessage {
	if accounts == nil {
		accounts = []string{}
	}
	raw, _ := json.Marshal(accounts) //nolint:errchkjson // string slice marshal cannot fail
	return raw
}
