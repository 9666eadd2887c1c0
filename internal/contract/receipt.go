package contract

import (
	"context"
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/mrz1836/idealink/internal/chain"
	"github.com/mrz1836/idealink/internal/provider"
	"github.com/mrz1836/idealink/internal/session"
	ilerr "github.com/mrz1836/idealink/pkg/errors"
)

// maxReceiptErrors is how many consecutive failed receipt lookups are
// tolerated while waiting for confirmation.
const maxReceiptErrors = 5

// Receipt is the subset of a transaction receipt the gateway reads.
type Receipt struct {
	TxHash      common.Hash    `json:"transactionHash"`
	BlockNumber *hexutil.Big   `json:"blockNumber"`
	Status      hexutil.Uint64 `json:"status"`
	GasUsed     hexutil.Uint64 `json:"gasUsed"`
	Logs        []Log          `json:"logs"`
}

// Log is an event log from a receipt.
type Log struct {
	Address common.Address `json:"address"`
	Topics  []common.Hash  `json:"topics"`
	Data    hexutil.Bytes  `json:"data"`
}

// Succeeded reports whether the transaction executed without reverting.
func (r *Receipt) Succeeded() bool {
	return r.Status == 1
}

// Block returns the block number the transaction was mined in.
func (r *Receipt) Block() uint64 {
	if r.BlockNumber == nil {
		return 0
	}
	return r.BlockNumber.ToInt().Uint64()
}

func (r *Receipt) result() TxResult {
	return TxResult{
		TxHash:      r.TxHash,
		BlockNumber: r.Block(),
		GasUsed:     uint64(r.GasUsed),
	}
}

// waitForReceipt polls until the transaction has the configured number of
// confirmations. It waits for as long as ctx allows.
func (g *Gateway) waitForReceipt(ctx context.Context, signer *session.Signer, hash common.Hash) (*Receipt, error) {
	failures := 0
	cfg := chain.PollConfig(g.opts.PollInterval, 4*g.opts.PollInterval)

	rcpt, err := chain.RetryWithConfig(ctx, cfg, func() (*Receipt, error) {
		r, err := g.fetchReceipt(ctx, signer, hash)
		if err != nil {
			if ctx.Err() != nil || provider.IsTimeout(err) {
				return nil, err
			}
			failures++
			if failures >= maxReceiptErrors {
				return nil, err
			}
			return nil, chain.WrapRetryable(err)
		}
		failures = 0
		if r == nil {
			return nil, chain.ErrPending
		}
		if g.opts.Confirmations > 1 {
			confirmed, err := g.confirmed(ctx, signer, r)
			if err != nil {
				return nil, chain.WrapRetryable(err)
			}
			if !confirmed {
				return nil, chain.ErrPending
			}
		}
		return r, nil
	})
	if err == nil {
		return rcpt, nil
	}

	details := map[string]string{ilerr.DetailTxHash: hash.Hex()}
	if ctx.Err() != nil || provider.IsTimeout(err) {
		return nil, ilerr.WithSuggestion(
			ilerr.WithDetails(ilerr.WithCause(ilerr.ErrTimeout, err), details),
			"The transaction was submitted and may still confirm; check it in a block explorer",
		)
	}
	return nil, ilerr.WithDetails(ilerr.Wrap(ilerr.WithCause(ilerr.ErrNetworkError, err), "waiting for confirmation"), details)
}

// fetchReceipt returns nil without error while the transaction is pending.
func (g *Gateway) fetchReceipt(ctx context.Context, signer *session.Signer, hash common.Hash) (*Receipt, error) {
	raw, err := signer.Request(ctx, provider.MethodGetTransactionReceipt, hash)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil //nolint:nilnil // pending
	}

	var r Receipt
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	if r.BlockNumber == nil {
		return nil, nil //nolint:nilnil // some wallets return pending receipts without a block
	}
	return &r, nil
}

func (g *Gateway) confirmed(ctx context.Context, signer *session.Signer, r *Receipt) (bool, error) {
	raw, err := signer.Request(ctx, provider.MethodBlockNumber)
	if err != nil {
		return false, err
	}
	head, err := provider.DecodeBig(raw)
	if err != nil {
		return false, err
	}
	// A receipt in the head block has one confirmation.
	depth := new(big.Int).Sub(head, r.BlockNumber.ToInt())
	depth.Add(depth, big.NewInt(1))
	return depth.Cmp(new(big.Int).SetUint64(g.opts.Confirmations)) >= 0, nil
}

// findEvent returns the non-indexed values of the first contract log named
// event for ideaID and investor.
func (g *Gateway) findEvent(r *Receipt, event string, ideaID uint64, investor string) ([]any, bool, error) {
	ev, ok := g.abi.Events[event]
	if !ok {
		return nil, false, nil
	}
	wantIdea := common.BigToHash(new(big.Int).SetUint64(ideaID))
	wantInvestor := common.BytesToHash(common.HexToAddress(investor).Bytes())

	for _, l := range r.Logs {
		if l.Address != g.opts.Address || len(l.Topics) < 3 {
			continue
		}
		if l.Topics[0] != ev.ID || l.Topics[1] != wantIdea || l.Topics[2] != wantInvestor {
			continue
		}
		values, err := g.abi.Unpack(event, l.Data)
		if err != nil {
			return nil, false, err
		}
		return values, true, nil
	}
	return nil, false, nil
}
