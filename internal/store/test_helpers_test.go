package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/tokenworld/internal/amount"
	"github.com/roach88/tokenworld/internal/testutil"
)

// createTestStore creates a new store in a temp dir with a deterministic clock.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithClock(testutil.NewDeterministicClock()))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestTransfer creates a successful transfer entry with fixed parties.
func createTestTransfer(session, requestID string, amt uint64) TransferEntry {
	return TransferEntry{
		Session:   session,
		RequestID: requestID,
		Signer:    "signer",
		From:      "from",
		To:        "to",
		Amount:    amount.FromUint64(amt),
		Symbol:    "mfx",
		Outcome:   OutcomeOK,
	}
}

func amountPtr(n uint64) *amount.Amount {
	a := amount.FromUint64(n)
	return &a
}
