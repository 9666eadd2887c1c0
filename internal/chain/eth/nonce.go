package eth

import "sync"

// NonceManager tracks the next nonce per address so that transactions sent
// in quick succession do not reuse a nonce the node has not seen yet.
type NonceManager struct {
	mu     sync.Mutex
	nonces map[string]uint64 // lowercase address -> next nonce
}

// NewNonceManager creates a new NonceManager.
func NewNonceManager() *NonceManager {
	return &NonceManager{
		nonces: make(map[string]uint64),
	}
}

// Next returns the nonce to use for address given the node's pending nonce.
// The higher of the node nonce and the locally tracked nonce wins, and the
// local nonce advances past the returned value.
func (nm *NonceManager) Next(address string, pendingNonce uint64) uint64 {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	key := LowerAddress(address)
	nonce := pendingNonce
	if local, ok := nm.nonces[key]; ok && local > pendingNonce {
		nonce = local
	}
	nm.nonces[key] = nonce + 1
	return nonce
}

// Release gives back a nonce that was never broadcast, such as after the
// user declined to sign. Only the most recent nonce can be released.
func (nm *NonceManager) Release(address string, nonce uint64) {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	key := LowerAddress(address)
	if next, ok := nm.nonces[key]; ok && next == nonce+1 {
		nm.nonces[key] = nonce
	}
}

// Reset clears local tracking for an address.
func (nm *NonceManager) Reset(address string) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	delete(nm.nonces, LowerAddress(address))
}
