package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mrz1836/idealink/internal/chain"
	"github.com/mrz1836/idealink/internal/settlement"
)

func TestNotifierText(t *testing.T) {
	setupTestEnv(t)
	cc := testCommandContext(t, nil)

	var buf bytes.Buffer
	n := newNotifier(&buf, cc, chain.LookupNetwork(chain.ChainIDAvalanche))
	n.Notify(settlement.Notification{
		Level:   settlement.LevelSuccess,
		Title:   "Purchase confirmed",
		Message: "You now own idea7",
		TxHash:  testTxHash,
	})

	assert.Contains(t, buf.String(), "You now own idea7")
	assert.Contains(t, buf.String(), "https://snowtrace.io/tx/"+testTxHash)
}

func TestNotifierLeavesErrorsToErrorOutput(t *testing.T) {
	setupTestEnv(t)
	cc := testCommandContext(t, nil)

	var buf bytes.Buffer
	n := newNotifier(&buf, cc, chain.LookupNetwork(chain.ChainIDLocal))
	n.Notify(settlement.Notification{Level: settlement.LevelError, Message: "Transaction reverted"})

	assert.NotContains(t, buf.String(), "Transaction reverted")
}

func TestNotifierQuietInJSON(t *testing.T) {
	setupTestEnv(t)
	cc := testCommandContext(t, nil)
	useJSON(cc)

	var buf bytes.Buffer
	n := newNotifier(&buf, cc, chain.LookupNetwork(chain.ChainIDAvalanche))
	n.Notify(settlement.Notification{Level: settlement.LevelSuccess, Message: "done", TxHash: testTxHash})

	assert.Empty(t, buf.String())
}

func TestProgressVerboseText(t *testing.T) {
	setupTestEnv(t)
	cfg.Output.Verbose = true
	cc := testCommandContext(t, nil)

	var buf bytes.Buffer
	progress(cc, &buf)(settlement.Attempt{ID: "a1", State: settlement.StateAwaitingSignature})

	assert.Contains(t, buf.String(), "awaiting signature")
}
