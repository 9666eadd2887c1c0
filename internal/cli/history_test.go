package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/idealink/internal/journal"
	"github.com/mrz1836/idealink/internal/settlement"
	ilerr "github.com/mrz1836/idealink/pkg/errors"
)

// recordAttempts journals a confirmed purchase of idea7 and a failed
// investment in idea3.
func recordAttempts(t *testing.T) (confirmed, failed settlement.Attempt) {
	t.Helper()
	store := journal.New(cfg.JournalDir())

	p := settlement.NewAttempt(settlement.OperationPurchase, "idea7")
	p.NativeAmount = "1.0000"
	for _, s := range []settlement.State{
		settlement.StateValidating, settlement.StateSimulating, settlement.StateAwaitingSignature,
		settlement.StateSubmitted, settlement.StateConfirmed,
	} {
		require.NoError(t, p.Advance(s))
	}
	p.TxHash = testTxHash
	require.NoError(t, store.Record(p.Snapshot()))

	i := settlement.NewAttempt(settlement.OperationInvest, "idea3")
	require.NoError(t, i.Advance(settlement.StateValidating))
	i.Fail(ilerr.WithDetails(ilerr.ErrSimulationReverted, map[string]string{ilerr.DetailReason: "Idea already sold"}))
	require.NoError(t, store.Record(i.Snapshot()))

	return p.Snapshot(), i.Snapshot()
}

func TestRunHistoryEmpty(t *testing.T) {
	setupTestEnv(t)

	cmd, stdout, _ := newTestCmd(testCommandContext(t, nil))
	require.NoError(t, runHistory(cmd, nil))
	assert.Contains(t, stdout.String(), "No settlement attempts recorded")
}

func TestRunHistoryEmptyJSON(t *testing.T) {
	setupTestEnv(t)

	cc := testCommandContext(t, nil)
	useJSON(cc)
	cmd, stdout, _ := newTestCmd(cc)
	require.NoError(t, runHistory(cmd, nil))
	assert.JSONEq(t, "[]", stdout.String())
}

func TestRunHistoryTable(t *testing.T) {
	setupTestEnv(t)
	recordAttempts(t)

	cmd, stdout, _ := newTestCmd(testCommandContext(t, nil))
	require.NoError(t, runHistory(cmd, nil))

	out := stdout.String()
	assert.Contains(t, out, "idea7")
	assert.Contains(t, out, "idea3")
	assert.Contains(t, out, "SIMULATION_REVERTED: Idea already sold")
}

func TestRunHistoryFilters(t *testing.T) {
	setupTestEnv(t)
	_, failed := recordAttempts(t)

	cc := testCommandContext(t, nil)
	useJSON(cc)

	historyFailed = true
	cmd, stdout, _ := newTestCmd(cc)
	require.NoError(t, runHistory(cmd, nil))

	var attempts []settlement.Attempt
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &attempts))
	require.Len(t, attempts, 1)
	assert.Equal(t, failed.ID, attempts[0].ID)

	historyFailed = false
	historyOperation = "purchase"
	cmd, stdout, _ = newTestCmd(cc)
	require.NoError(t, runHistory(cmd, nil))
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &attempts))
	require.Len(t, attempts, 1)
	assert.Equal(t, "idea7", attempts[0].IdeaRef)
}

func TestRunHistoryRejectsUnknownOperation(t *testing.T) {
	setupTestEnv(t)
	historyOperation = "refund"

	cmd, _, _ := newTestCmd(testCommandContext(t, nil))
	err := runHistory(cmd, nil)
	require.ErrorIs(t, err, ilerr.ErrInvalidInput)
}

func TestRunHistorySingleAttempt(t *testing.T) {
	setupTestEnv(t)
	confirmed, _ := recordAttempts(t)

	cmd, stdout, _ := newTestCmd(testCommandContext(t, nil))
	require.NoError(t, runHistory(cmd, []string{confirmed.ID}))

	out := stdout.String()
	assert.Contains(t, out, confirmed.ID)
	assert.Contains(t, out, "1.0000 AVAX")
	assert.Contains(t, out, testTxHash)
	assert.Contains(t, out, "awaiting_signature")
}

func TestRunHistoryUnknownAttempt(t *testing.T) {
	setupTestEnv(t)

	cmd, _, _ := newTestCmd(testCommandContext(t, nil))
	err := runHistory(cmd, []string{"no-such-attempt"})
	require.ErrorIs(t, err, ilerr.ErrNotFound)
}

func TestRunHistoryClear(t *testing.T) {
	setupTestEnv(t)
	recordAttempts(t)
	historyClear = true

	cmd, stdout, _ := newTestCmd(testCommandContext(t, nil))
	require.NoError(t, runHistory(cmd, nil))
	assert.Contains(t, stdout.String(), "History cleared")

	attempts, err := journal.New(cfg.JournalDir()).List(journal.Filter{})
	require.NoError(t, err)
	assert.Empty(t, attempts)
}

func TestAttemptSummary(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "purchased", attemptSummary(settlement.Attempt{Result: "purchased"}))
	assert.Equal(t, "TIMEOUT", attemptSummary(settlement.Attempt{FailureKind: "TIMEOUT"}))
	assert.Equal(t, "USER_REJECTED: declined",
		attemptSummary(settlement.Attempt{FailureKind: "USER_REJECTED", Reason: "declined"}))
}
