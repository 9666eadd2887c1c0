package session

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/mrz1836/idealink/internal/provider"
	ilerr "github.com/mrz1836/idealink/pkg/errors"
)

// Signer sends requests on behalf of the session's account.
//
// Reads go through for as long as the provider is alive, so a transaction
// already submitted can still be confirmed after an account switch. Sending
// a new transaction requires the session that issued the signer to still be
// current.
type Signer struct {
	manager    *Manager
	address    string
	chainID    uint64
	generation uint64
}

// Address returns the lowercase address the signer sends from.
func (s *Signer) Address() string {
	return s.address
}

// ChainID returns the chain the session was on when the signer was issued.
func (s *Signer) ChainID() uint64 {
	return s.chainID
}

// Valid reports whether the issuing session is still current.
func (s *Signer) Valid() bool {
	return s.manager.isCurrent(s.generation)
}

// Request forwards a read-only request to the provider.
func (s *Signer) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	return s.manager.provider.Request(ctx, method, params...)
}

// SendTransaction asks the wallet to sign and broadcast a transaction from
// the signer's address and returns its hash. Provider errors are returned
// unchanged.
func (s *Signer) SendTransaction(ctx context.Context, args provider.TxArgs) (common.Hash, error) {
	if !s.Valid() {
		return common.Hash{}, ilerr.WithDetails(ilerr.ErrNotConnected, map[string]string{
			ilerr.DetailReason: "wallet session changed",
		})
	}

	from := common.HexToAddress(s.address)
	args.From = &from
	raw, err := s.manager.provider.Request(ctx, provider.MethodSendTransaction, args)
	if err != nil {
		return common.Hash{}, err
	}
	hash, err := provider.DecodeHash(raw)
	if err != nil {
		s.manager.logger.Warn("transaction accepted without a readable hash",
			zap.String("result", string(raw)), zap.Error(err))
		return common.Hash{}, ilerr.WithDetails(ilerr.WithCause(ilerr.ErrTxHashUnreadable, err), map[string]string{
			ilerr.DetailResult: string(raw),
		})
	}
	return hash, nil
}
