// Package session tracks the connection to a wallet provider: whether a
// wallet is connected, which account is active, and on which chain.
//
// A Manager is constructed once per provider and passed to the components
// that need it. Provider events (account or chain changes) are applied to
// the session as they arrive and forwarded to subscribers. The manager never
// polls; a provider that reports zero accounts disconnects the session.
//
// Disconnect only clears local state. A wallet keeps whatever permission the
// user granted until the user revokes it in the wallet itself.
package session

import (
	"time"

	"github.com/mrz1836/idealink/internal/chain"
)

// Session is a snapshot of a connected wallet.
type Session struct {
	// Address is the active account in lowercase hex.
	Address string `json:"address"`

	// ChainID is the network the wallet is on.
	ChainID uint64 `json:"chain_id"`

	// NativeBalance is the formatted native balance, or "" when unknown.
	// It is cleared on chain change until refreshed.
	NativeBalance string `json:"native_balance"`

	ConnectedAt time.Time `json:"connected_at"`
}

// Network returns the network the session is on.
func (s Session) Network() chain.Network {
	return chain.LookupNetwork(s.ChainID)
}
