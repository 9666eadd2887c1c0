// Package chain describes the EVM networks IdeaLink settles on and holds
// shared helpers for native amounts, request rate limiting, and retries.
package chain

import (
	"fmt"
	"strings"
)

// Well-known chain identifiers.
const (
	ChainIDEthereum  uint64 = 1
	ChainIDAvalanche uint64 = 43114
	ChainIDFuji      uint64 = 43113
	ChainIDLocal     uint64 = 31337
)

// NativeDecimals is the number of decimals of every supported native coin.
const NativeDecimals = 18

// CoinTypeETH is the BIP44 coin type shared by EVM chains.
const CoinTypeETH uint32 = 60

// DerivationPath is the BIP44 account prefix used for EVM keys.
const DerivationPath = "m/44'/60'/0'/0"

// Network describes an EVM network.
type Network struct {
	ChainID  uint64 `json:"chain_id"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Explorer string `json:"explorer,omitempty"`
}

//nolint:gochecknoglobals // Static network table
var knownNetworks = map[uint64]Network{
	ChainIDEthereum:  {ChainID: ChainIDEthereum, Name: "Ethereum", Symbol: "ETH", Explorer: "https://etherscan.io"},
	ChainIDAvalanche: {ChainID: ChainIDAvalanche, Name: "Avalanche C-Chain", Symbol: "AVAX", Explorer: "https://snowtrace.io"},
	ChainIDFuji:      {ChainID: ChainIDFuji, Name: "Avalanche Fuji", Symbol: "AVAX", Explorer: "https://testnet.snowtrace.io"},
	ChainIDLocal:     {ChainID: ChainIDLocal, Name: "Local", Symbol: "ETH"},
}

// LookupNetwork returns the network for a chain id.
// Unknown chains get a generic entry so callers can always render something.
func LookupNetwork(chainID uint64) Network {
	if n, ok := knownNetworks[chainID]; ok {
		return n
	}
	return Network{
		ChainID: chainID,
		Name:    fmt.Sprintf("Chain %d", chainID),
		Symbol:  "ETH",
	}
}

// IsKnown reports whether the chain id is in the built-in network table.
func IsKnown(chainID uint64) bool {
	_, ok := knownNetworks[chainID]
	return ok
}

// TxURL returns the explorer link for a transaction hash, or "" when the
// network has no explorer.
func (n Network) TxURL(hash string) string {
	if n.Explorer == "" || hash == "" {
		return ""
	}
	return strings.TrimSuffix(n.Explorer, "/") + "/tx/" + hash
}

// String returns the display name of the network.
func (n Network) String() string {
	return fmt.Sprintf("%s (%d)", n.Name, n.ChainID)
}
