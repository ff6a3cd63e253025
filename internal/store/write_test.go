package store

import (
	"context"
	"strings"
	"testing"
)

func TestWriteTransfer_StampsSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"req-1", "req-2", "req-3"} {
		seq, err := s.WriteTransfer(ctx, createTestTransfer("s1", id, 10))
		if err != nil {
			t.Fatalf("WriteTransfer(%s) failed: %v", id, err)
		}
		if want := int64(i + 1); seq != want {
			t.Errorf("seq = %d, want %d", seq, want)
		}
	}
}

func TestWriteTransfer_KeepsExplicitSeq(t *testing.T) {
	s := createTestStore(t)

	e := createTestTransfer("s1", "req-1", 10)
	e.Seq = 42
	seq, err := s.WriteTransfer(context.Background(), e)
	if err != nil {
		t.Fatalf("WriteTransfer failed: %v", err)
	}
	if seq != 42 {
		t.Errorf("seq = %d, want 42", seq)
	}
}

func TestWriteTransfer_RequiresOutcome(t *testing.T) {
	s := createTestStore(t)

	e := createTestTransfer("s1", "req-1", 10)
	e.Outcome = ""
	_, err := s.WriteTransfer(context.Background(), e)
	if err == nil || !strings.Contains(err.Error(), "outcome is required") {
		t.Fatalf("WriteTransfer error = %v, want outcome is required", err)
	}
}

func TestWriteTransfer_DuplicateSeqRejected(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	e := createTestTransfer("s1", "req-1", 10)
	e.Seq = 7
	if _, err := s.WriteTransfer(ctx, e); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	e.RequestID = "req-2"
	if _, err := s.WriteTransfer(ctx, e); err == nil {
		t.Fatal("second write with same seq succeeded, want error")
	}
}

func TestWriteReconciliation_SharesClockWithTransfers(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.WriteTransfer(ctx, createTestTransfer("s1", "req-1", 10)); err != nil {
		t.Fatalf("WriteTransfer failed: %v", err)
	}
	seq, err := s.WriteReconciliation(ctx, ReconciliationEntry{
		Session:     "s1",
		Subject:     "alice",
		Reserve:     "faucet",
		Symbol:      "mfx",
		Target:      *amountPtr(10),
		Direction:   "increase",
		Before:      amountPtr(0),
		After:       amountPtr(10),
		Transferred: amountPtr(10),
		Outcome:     OutcomeOK,
	})
	if err != nil {
		t.Fatalf("WriteReconciliation failed: %v", err)
	}
	if seq != 2 {
		t.Errorf("seq = %d, want 2", seq)
	}
}

func TestWriteReconciliation_NullBalances(t *testing.T) {
	s := createTestStore(t)

	_, err := s.WriteReconciliation(context.Background(), ReconciliationEntry{
		Session: "s1",
		Subject: "alice",
		Reserve: "faucet",
		Symbol:  "mfx",
		Target:  *amountPtr(10),
		Outcome: "RESERVE_EMPTY",
		Error:   "reserve is empty",
	})
	if err != nil {
		t.Fatalf("WriteReconciliation failed: %v", err)
	}

	var nulls int
	err = s.db.QueryRow(`
		SELECT COUNT(*) FROM reconciliations
		WHERE before_bal IS NULL AND after_bal IS NULL AND transferred IS NULL
	`).Scan(&nulls)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if nulls != 1 {
		t.Errorf("rows with null balances = %d, want 1", nulls)
	}
}
