package settlement_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mrz1836/idealink/internal/contract"
	"github.com/mrz1836/idealink/internal/metrics"
	"github.com/mrz1836/idealink/internal/provider"
	"github.com/mrz1836/idealink/internal/provider/providertest"
	"github.com/mrz1836/idealink/internal/session"
	"github.com/mrz1836/idealink/internal/settlement"
	ilerr "github.com/mrz1836/idealink/pkg/errors"
)

func newLiveOrchestrator(t *testing.T) (*providertest.Provider, *session.Manager, *settlement.Orchestrator) {
	t.Helper()
	p := providertest.New().
		Returns(provider.MethodRequestAccounts, []string{investor}).
		Returns(provider.MethodChainID, "0xa86a").
		Returns(provider.MethodGetBalance, "0x0").
		Returns(provider.MethodCall, "0x").
		Returns(provider.MethodEstimateGas, "0x5208").
		Returns(provider.MethodSendTransaction, txHash.Hex()).
		Returns(provider.MethodGetTransactionReceipt, map[string]any{
			"transactionHash": txHash.Hex(),
			"blockNumber":     "0x10",
			"status":          "0x1",
			"gasUsed":         "0x5208",
			"logs":            []any{},
		})

	m := session.NewManager(p, zaptest.NewLogger(t))
	t.Cleanup(m.Close)

	logger := zaptest.NewLogger(t)
	g := contract.NewGateway(m, contract.Options{
		PollInterval: time.Millisecond,
		Logger:       logger,
		Metrics:      &metrics.Metrics{},
	})
	o, err := settlement.New(g, m, settlement.Options{
		ExchangeRate: decimal.NewFromInt(20),
		Logger:       logger,
		Metrics:      &metrics.Metrics{},
	})
	require.NoError(t, err)
	return p, m, o
}

func TestPurchaseThroughGateway(t *testing.T) {
	t.Parallel()
	p, m, o := newLiveOrchestrator(t)
	_, err := m.Connect(context.Background())
	require.NoError(t, err)
	p.Reset()

	out, err := o.SubmitPurchase(context.Background(), "idea7", decimal.NewFromInt(20),
		settlement.WithConfirmedAmount("1.0000"))
	require.NoError(t, err)

	assert.Equal(t, settlement.StateConfirmed, out.Attempt.State)
	assert.Equal(t, txHash.Hex(), out.TxHash)
	assert.Equal(t, investor, out.Attempt.Investor)

	sends := p.Calls(provider.MethodSendTransaction)
	require.Len(t, sends, 1)
	args, ok := sends[0].Params[0].(provider.TxArgs)
	require.True(t, ok)
	assert.Equal(t, "0xde0b6b3a7640000", args.Value.String())
}

func TestPurchaseWithoutSessionNeverReachesProvider(t *testing.T) {
	t.Parallel()
	p, _, o := newLiveOrchestrator(t)

	out, err := o.SubmitPurchase(context.Background(), "idea7", decimal.NewFromInt(20))
	require.ErrorIs(t, err, ilerr.ErrNotConnected)
	assert.Equal(t, settlement.StateFailed, out.Attempt.State)
	assert.Empty(t, p.Methods())
}

func TestPurchaseSimulationRevertThroughGateway(t *testing.T) {
	t.Parallel()
	p, m, o := newLiveOrchestrator(t)
	_, err := m.Connect(context.Background())
	require.NoError(t, err)

	re := provider.NewRPCError(provider.CodeExecutionReverted, "execution reverted: Idea already sold")
	re.Data = json.RawMessage(`"0x"`)
	p.Fails(provider.MethodCall, re)
	p.Reset()

	out, err := o.SubmitPurchase(context.Background(), "idea7", decimal.NewFromInt(20))
	require.ErrorIs(t, err, ilerr.ErrSimulationReverted)
	assert.Equal(t, "Idea already sold", out.Attempt.Reason)
	assert.Zero(t, p.CallCount(provider.MethodSendTransaction))
}
