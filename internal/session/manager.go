package session

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mrz1836/idealink/internal/chain"
	"github.com/mrz1836/idealink/internal/chain/eth"
	"github.com/mrz1836/idealink/internal/provider"
	ilerr "github.com/mrz1836/idealink/pkg/errors"
)

// balanceRefreshTimeout bounds balance lookups triggered by provider events.
const balanceRefreshTimeout = 15 * time.Second

// Manager owns the wallet session.
type Manager struct {
	provider provider.Provider
	logger   *zap.Logger

	mu         sync.RWMutex
	session    *Session
	generation uint64

	handlersMu      sync.Mutex
	nextHandler     int
	accountHandlers map[int]func([]string)
	chainHandlers   map[int]func(uint64)

	unsubscribe []func()
}

// NewManager creates a Manager for p. A nil provider is allowed and makes
// Connect fail with ErrProviderUnavailable.
func NewManager(p provider.Provider, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Manager{
		provider:        p,
		logger:          logger.Named("session"),
		accountHandlers: make(map[int]func([]string)),
		chainHandlers:   make(map[int]func(uint64)),
	}

	if p != nil {
		m.unsubscribe = append(m.unsubscribe,
			p.On(provider.EventAccountsChanged, m.handleAccountsChanged),
			p.On(provider.EventChainChanged, m.handleChainChanged),
		)
	}
	return m
}

// Connect asks the wallet for account access and starts a session.
// Failures are returned as is; the caller decides whether to try again.
func (m *Manager) Connect(ctx context.Context) (Session, error) {
	if m.provider == nil {
		return Session{}, ilerr.ErrProviderUnavailable
	}

	raw, err := m.provider.Request(ctx, provider.MethodRequestAccounts)
	if err != nil {
		return Session{}, requestError(err, "requesting accounts")
	}
	accounts, err := provider.DecodeAccounts(raw)
	if err != nil {
		return Session{}, ilerr.WithCause(ilerr.ErrNetworkError, err)
	}
	if len(accounts) == 0 {
		return Session{}, ilerr.WithDetails(ilerr.ErrNotConnected, map[string]string{
			ilerr.DetailReason: "wallet returned no accounts",
		})
	}

	raw, err = m.provider.Request(ctx, provider.MethodChainID)
	if err != nil {
		return Session{}, requestError(err, "reading chain id")
	}
	chainID, err := provider.ParseChainID(raw)
	if err != nil {
		return Session{}, ilerr.WithCause(ilerr.ErrNetworkError, err)
	}

	address := eth.LowerAddress(accounts[0])
	balance, err := m.fetchBalance(ctx, address)
	if err != nil {
		m.logger.Warn("balance lookup failed", zap.String("address", address), zap.Error(err))
	}

	s := &Session{
		Address:       address,
		ChainID:       chainID,
		NativeBalance: balance,
		ConnectedAt:   time.Now().UTC(),
	}

	m.mu.Lock()
	m.session = s
	m.generation++
	m.mu.Unlock()

	m.logger.Info("wallet connected",
		zap.String("address", address),
		zap.Uint64("chain_id", chainID))
	return *s, nil
}

// Disconnect clears the local session. Signers handed out earlier stop working.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	wasConnected := m.session != nil
	m.session = nil
	m.generation++
	m.mu.Unlock()

	if wasConnected {
		m.logger.Info("wallet disconnected")
	}
}

// CurrentAddress returns the active address, if connected.
func (m *Manager) CurrentAddress() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return "", false
	}
	return m.session.Address, true
}

// IsConnected reports whether a session is active.
func (m *Manager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session != nil
}

// Session returns a copy of the current session.
func (m *Manager) Session() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return Session{}, false
	}
	return *m.session, true
}

// Signer returns a handle for signing with the active account. The handle
// does not own the session and is invalidated by disconnects and account
// or chain changes.
func (m *Manager) Signer() (*Signer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil, ilerr.ErrNotConnected
	}
	return &Signer{
		manager:    m,
		address:    m.session.Address,
		chainID:    m.session.ChainID,
		generation: m.generation,
	}, nil
}

// RefreshBalance re-reads the native balance of the active account.
func (m *Manager) RefreshBalance(ctx context.Context) (string, error) {
	m.mu.RLock()
	if m.session == nil {
		m.mu.RUnlock()
		return "", ilerr.ErrNotConnected
	}
	address := m.session.Address
	gen := m.generation
	m.mu.RUnlock()

	balance, err := m.fetchBalance(ctx, address)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	if m.generation == gen && m.session != nil {
		updated := *m.session
		updated.NativeBalance = balance
		m.session = &updated
	}
	m.mu.Unlock()
	return balance, nil
}

// OnAccountsChanged registers h to be called with the new lowercase account
// list whenever the wallet reports an account change. An empty list means
// the wallet disconnected.
func (m *Manager) OnAccountsChanged(h func(accounts []string)) (unsubscribe func()) {
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()
	id := m.nextHandler
	m.nextHandler++
	m.accountHandlers[id] = h
	return func() {
		m.handlersMu.Lock()
		defer m.handlersMu.Unlock()
		delete(m.accountHandlers, id)
	}
}

// OnChainChanged registers h to be called with the new chain id whenever the
// wallet switches networks. Balances and contract state from the previous
// chain should be discarded by the handler.
func (m *Manager) OnChainChanged(h func(chainID uint64)) (unsubscribe func()) {
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()
	id := m.nextHandler
	m.nextHandler++
	m.chainHandlers[id] = h
	return func() {
		m.handlersMu.Lock()
		defer m.handlersMu.Unlock()
		delete(m.chainHandlers, id)
	}
}

// Close detaches the manager from its provider.
func (m *Manager) Close() {
	for _, unsub := range m.unsubscribe {
		unsub()
	}
	m.unsubscribe = nil
}

func (m *Manager) handleAccountsChanged(raw json.RawMessage) {
	accounts, err := provider.DecodeAccounts(raw)
	if err != nil {
		m.logger.Warn("ignoring malformed accountsChanged event", zap.Error(err))
		return
	}
	for i := range accounts {
		accounts[i] = eth.LowerAddress(accounts[i])
	}

	var refresh bool
	m.mu.Lock()
	switch {
	case m.session == nil:
		// Not connected; connecting is always user initiated.
	case len(accounts) == 0:
		m.session = nil
		m.generation++
		m.logger.Info("wallet disconnected by provider")
	case accounts[0] != m.session.Address:
		m.session = &Session{
			Address:     accounts[0],
			ChainID:     m.session.ChainID,
			ConnectedAt: m.session.ConnectedAt,
		}
		m.generation++
		refresh = true
		m.logger.Info("wallet account changed", zap.String("address", accounts[0]))
	}
	m.mu.Unlock()

	if refresh {
		m.refreshAfterEvent()
	}

	for _, h := range m.accountHandlersSnapshot() {
		h(accounts)
	}
}

func (m *Manager) handleChainChanged(raw json.RawMessage) {
	chainID, err := provider.ParseChainID(raw)
	if err != nil {
		m.logger.Warn("ignoring malformed chainChanged event", zap.Error(err))
		return
	}

	var refresh bool
	m.mu.Lock()
	if m.session != nil && m.session.ChainID != chainID {
		m.session = &Session{
			Address:     m.session.Address,
			ChainID:     chainID,
			ConnectedAt: m.session.ConnectedAt,
		}
		m.generation++
		refresh = true
		m.logger.Info("wallet chain changed",
			zap.Uint64("chain_id", chainID),
			zap.String("network", chain.LookupNetwork(chainID).Name))
	}
	m.mu.Unlock()

	if refresh {
		m.refreshAfterEvent()
	}

	for _, h := range m.chainHandlersSnapshot() {
		h(chainID)
	}
}

func (m *Manager) refreshAfterEvent() {
	ctx, cancel := context.WithTimeout(context.Background(), balanceRefreshTimeout)
	defer cancel()
	if _, err := m.RefreshBalance(ctx); err != nil {
		m.logger.Warn("balance refresh failed", zap.Error(err))
	}
}

func (m *Manager) fetchBalance(ctx context.Context, address string) (string, error) {
	raw, err := m.provider.Request(ctx, provider.MethodGetBalance, address, "latest")
	if err != nil {
		return "", requestError(err, "reading balance")
	}
	wei, err := provider.DecodeBig(raw)
	if err != nil {
		return "", err
	}
	return chain.FormatEther(wei), nil
}

func (m *Manager) accountHandlersSnapshot() []func([]string) {
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()
	ids := make([]int, 0, len(m.accountHandlers))
	for id := range m.accountHandlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func([]string), len(ids))
	for i, id := range ids {
		out[i] = m.accountHandlers[id]
	}
	return out
}

func (m *Manager) chainHandlersSnapshot() []func(uint64) {
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()
	ids := make([]int, 0, len(m.chainHandlers))
	for id := range m.chainHandlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(uint64), len(ids))
	for i, id := range ids {
		out[i] = m.chainHandlers[id]
	}
	return out
}

// requestError maps a provider failure during connection to an IdeaLink error.
func requestError(err error, action string) error {
	switch {
	case provider.IsUserRejected(err):
		return ilerr.WithCause(ilerr.ErrUserRejected, err)
	case provider.IsTimeout(err):
		return ilerr.WithCause(ilerr.ErrTimeout, err)
	case provider.HasCode(err, provider.CodeRequestPending):
		return ilerr.WithSuggestion(
			ilerr.Wrap(ilerr.WithCause(ilerr.ErrNetworkError, err), "%s", action),
			"A request is already waiting in your wallet; approve or dismiss it first",
		)
	default:
		return ilerr.Wrap(ilerr.WithCause(ilerr.ErrNetworkError, err), "%s", action)
	}
}

func (m *Manager) isCurrent(generation uint64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session != nil && m.generation == generation
}
