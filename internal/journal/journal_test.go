package journal_test

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/idealink/internal/journal"
	"github.com/mrz1836/idealink/internal/settlement"
	ilerr "github.com/mrz1836/idealink/pkg/errors"
)

func attempt(op settlement.Operation, idea string) settlement.Attempt {
	a := settlement.NewAttempt(op, idea)
	_ = a.Advance(settlement.StateConfirmed)
	return a.Snapshot()
}

func TestRecordAndList(t *testing.T) {
	t.Parallel()
	s := journal.New(t.TempDir())

	first := attempt(settlement.OperationPurchase, "idea1")
	second := attempt(settlement.OperationInvest, "idea2")
	require.NoError(t, s.Record(first))
	require.NoError(t, s.Record(second))

	list, err := s.List(journal.Filter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")
	assert.Equal(t, first.ID, list[1].ID)
	assert.Equal(t, settlement.StateConfirmed, list[0].State)
	assert.Len(t, list[0].Transitions, 2)
}

func TestListEmpty(t *testing.T) {
	t.Parallel()
	s := journal.New(filepath.Join(t.TempDir(), "missing"))

	list, err := s.List(journal.Filter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRecordReplacesSameAttempt(t *testing.T) {
	t.Parallel()
	s := journal.New(t.TempDir())

	a := settlement.NewAttempt(settlement.OperationRelease, "idea4")
	require.NoError(t, s.Record(a.Snapshot()))
	require.NoError(t, a.Advance(settlement.StateConfirmed))
	require.NoError(t, s.Record(a.Snapshot()))

	list, err := s.List(journal.Filter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, settlement.StateConfirmed, list[0].State)
}

func TestRecordIsBounded(t *testing.T) {
	t.Parallel()
	s := journal.NewWithLimit(t.TempDir(), 3)

	var ids []string
	for i := 1; i <= 5; i++ {
		a := attempt(settlement.OperationPurchase, fmt.Sprintf("idea%d", i))
		ids = append(ids, a.ID)
		require.NoError(t, s.Record(a))
	}

	list, err := s.List(journal.Filter{})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, ids[4], list[0].ID)
	assert.Equal(t, ids[2], list[2].ID)
}

func TestListFilter(t *testing.T) {
	t.Parallel()
	s := journal.New(t.TempDir())

	require.NoError(t, s.Record(attempt(settlement.OperationPurchase, "idea1")))
	require.NoError(t, s.Record(attempt(settlement.OperationInvest, "idea1")))
	require.NoError(t, s.Record(attempt(settlement.OperationInvest, "idea2")))

	failed := settlement.NewAttempt(settlement.OperationInvest, "idea2")
	failed.Fail(ilerr.ErrUserRejected)
	require.NoError(t, s.Record(failed.Snapshot()))

	list, err := s.List(journal.Filter{Operation: settlement.OperationInvest})
	require.NoError(t, err)
	assert.Len(t, list, 3)

	list, err = s.List(journal.Filter{IdeaRef: "idea1"})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = s.List(journal.Filter{Failed: true})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "USER_REJECTED", list[0].FailureKind)

	list, err = s.List(journal.Filter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, failed.ID, list[0].ID)
}

func TestGet(t *testing.T) {
	t.Parallel()
	s := journal.New(t.TempDir())
	a := attempt(settlement.OperationPurchase, "idea1")
	require.NoError(t, s.Record(a))

	got, ok, err := s.Get(a.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "idea1", got.IdeaRef)

	_, ok, err = s.Get("nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCorruptJournalIsMovedAside(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s := journal.New(dir)
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0o600))

	list, err := s.List(journal.Filter{})
	require.ErrorIs(t, err, journal.ErrCorruptJournal)
	assert.Empty(t, list)
	assert.NoFileExists(t, s.Path())

	matches, err := filepath.Glob(s.Path() + ".corrupt.*")
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	require.NoError(t, s.Record(attempt(settlement.OperationPurchase, "idea1")))
	list, err = s.List(journal.Filter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRecordAfterCorruptionStartsFresh(t *testing.T) {
	t.Parallel()
	s := journal.New(t.TempDir())
	require.NoError(t, os.WriteFile(s.Path(), []byte("[]]"), 0o600))

	require.NoError(t, s.Record(attempt(settlement.OperationRelease, "idea9")))
	list, err := s.List(journal.Filter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "idea9", list[0].IdeaRef)
}

func TestClear(t *testing.T) {
	t.Parallel()
	s := journal.New(t.TempDir())
	require.NoError(t, s.Clear())
	require.NoError(t, s.Record(attempt(settlement.OperationPurchase, "idea1")))
	require.NoError(t, s.Clear())
	assert.NoFileExists(t, s.Path())
}

func TestConcurrentRecord(t *testing.T) {
	t.Parallel()
	s := journal.New(t.TempDir())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Record(attempt(settlement.OperationPurchase, fmt.Sprintf("idea%d", i+1))))
		}(i)
	}
	wg.Wait()

	list, err := s.List(journal.Filter{})
	require.NoError(t, err)
	assert.Len(t, list, 20)
}

func TestFilePermissions(t *testing.T) {
	t.Parallel()
	s := journal.New(t.TempDir())
	require.NoError(t, s.Record(attempt(settlement.OperationPurchase, "idea1")))

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
