package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tokenworld/internal/amount"
	"github.com/roach88/tokenworld/internal/store"
	"github.com/roach88/tokenworld/internal/testutil"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Seq: 1, Phase: PhaseSetup, Action: ActionIdentity, Args: map[string]string{"alias": "alice"}, Outcome: OutcomeOK},
		{Seq: 2, Phase: PhaseFlow, Action: ActionHas, Args: map[string]string{"alias": "alice", "amount": "10", "symbol": "MFX"}, Outcome: OutcomeOK},
		{Seq: 5, Phase: PhaseFlow, Action: ActionSend, Args: map[string]string{"from": "alice", "to": "bob", "amount": "99", "symbol": "MFX"}, Outcome: "INSUFFICIENT_FUNDS"},
		{Seq: 7, Phase: PhaseFlow, Action: ActionSend, Args: map[string]string{"from": "alice", "to": "bob", "amount": "3", "symbol": "MFX"}, Outcome: OutcomeOK},
	}
}

func TestAssertTraceContains(t *testing.T) {
	trace := sampleTrace()

	tests := []struct {
		name      string
		assertion Assertion
		wantErr   bool
	}{
		{"action only", Assertion{Action: ActionHas}, false},
		{"args subset", Assertion{Action: ActionSend, Args: map[string]string{"amount": "3"}}, false},
		{"outcome filter", Assertion{Action: ActionSend, Outcome: "INSUFFICIENT_FUNDS"}, false},
		{"args and outcome disagree", Assertion{Action: ActionSend, Args: map[string]string{"amount": "3"}, Outcome: "INSUFFICIENT_FUNDS"}, true},
		{"missing action", Assertion{Action: ActionBalance}, true},
		{"wrong arg", Assertion{Action: ActionHas, Args: map[string]string{"alias": "bob"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertTraceContains(trace, tt.assertion)
			if tt.wantErr {
				var ae *AssertionError
				require.ErrorAs(t, err, &ae)
				assert.Equal(t, AssertTraceContains, ae.Type)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAssertTraceOrder(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceOrder(trace, Assertion{Actions: []string{ActionIdentity, ActionHas, ActionSend}}))
	assert.NoError(t, assertTraceOrder(trace, Assertion{Actions: []string{ActionIdentity, ActionSend}}))

	err := assertTraceOrder(trace, Assertion{Actions: []string{ActionSend, ActionHas}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send (pos 3) should be before has (pos 2)")

	err = assertTraceOrder(trace, Assertion{Actions: []string{ActionHas, ActionBalance}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing action: balance")
}

func TestAssertTraceCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceCount(trace, Assertion{Action: ActionSend, Count: 2}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Action: ActionBalance, Count: 0}))

	err := assertTraceCount(trace, Assertion{Action: ActionSend, Count: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected: 1 occurrences of send")
	assert.Contains(t, err.Error(), "Actual: 2 occurrences")
	assert.Contains(t, err.Error(), "[5] flow send {amount=99 from=alice symbol=MFX to=bob} -> INSUFFICIENT_FUNDS")
}

func journalWith(t *testing.T, session string, entries ...store.TransferEntry) *store.Store {
	t.Helper()
	st, err := store.Open(":memory:", store.WithClock(testutil.NewDeterministicClock()))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	for _, e := range entries {
		e.Session = session
		_, err := st.WriteTransfer(context.Background(), e)
		require.NoError(t, err)
	}
	return st
}

func transfer(requestID, amt, outcome string) store.TransferEntry {
	return store.TransferEntry{
		RequestID: requestID,
		Signer:    "signer",
		From:      "from",
		To:        "to",
		Amount:    amount.MustParse(amt),
		Symbol:    "mfx-id",
		Outcome:   outcome,
	}
}

func TestAssertFinalState(t *testing.T) {
	ctx := context.Background()
	st := journalWith(t, "s1",
		transfer("req-1", "10", "ok"),
		transfer("req-2", "99", "INSUFFICIENT_FUNDS"),
	)

	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{
			name: "match by request id",
			assertion: Assertion{
				Table:  "transfers",
				Where:  map[string]interface{}{"request_id": "req-2"},
				Expect: map[string]interface{}{"outcome": "INSUFFICIENT_FUNDS", "amount": "99", "seq": 2},
			},
		},
		{
			name: "integer matches text amount",
			assertion: Assertion{
				Table:  "transfers",
				Where:  map[string]interface{}{"seq": 1},
				Expect: map[string]interface{}{"amount": 10},
			},
		},
		{
			name: "value mismatch",
			assertion: Assertion{
				Table:  "transfers",
				Where:  map[string]interface{}{"request_id": "req-1"},
				Expect: map[string]interface{}{"outcome": "INSUFFICIENT_FUNDS"},
			},
			wantErr: `field "outcome"`,
		},
		{
			name: "ambiguous",
			assertion: Assertion{
				Table:  "transfers",
				Expect: map[string]interface{}{"symbol": "mfx-id"},
			},
			wantErr: "multiple rows matched",
		},
		{
			name: "other session is invisible",
			assertion: Assertion{
				Table:  "transfers",
				Where:  map[string]interface{}{"request_id": "req-1", "session": "s2"},
				Expect: map[string]interface{}{"outcome": "ok"},
			},
			wantErr: "row not found",
		},
		{
			name: "unknown column",
			assertion: Assertion{
				Table:  "transfers",
				Where:  map[string]interface{}{"seq": 1},
				Expect: map[string]interface{}{"balance": "10"},
			},
			wantErr: `field "balance" not present`,
		},
		{
			name: "injection in table name",
			assertion: Assertion{
				Table:  "transfers; DROP TABLE transfers",
				Expect: map[string]interface{}{"outcome": "ok"},
			},
			wantErr: "invalid table name",
		},
		{
			name: "injection in column name",
			assertion: Assertion{
				Table:  "transfers",
				Where:  map[string]interface{}{"1=1 OR seq": 1},
				Expect: map[string]interface{}{"outcome": "ok"},
			},
			wantErr: "invalid column name",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertFinalState(ctx, st, "s1", tt.assertion)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAssertTransferCount(t *testing.T) {
	st := journalWith(t, "s1",
		transfer("req-1", "10", "ok"),
		transfer("req-2", "99", "INSUFFICIENT_FUNDS"),
		transfer("req-3", "1", "ok"),
	)
	actx := &AssertionContext{Ctx: context.Background(), Store: st, Session: "s1"}

	assert.NoError(t, assertTransferCount(actx, Assertion{Count: 3}))
	assert.NoError(t, assertTransferCount(actx, Assertion{Outcome: "ok", Count: 2}))

	err := assertTransferCount(actx, Assertion{Outcome: "INSUFFICIENT_FUNDS", Count: 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Actual: 1 INSUFFICIENT_FUNDS transfers")

	other := &AssertionContext{Ctx: context.Background(), Store: st, Session: "s2"}
	assert.NoError(t, assertTransferCount(other, Assertion{Count: 0}))
}

func TestEvaluateAssertions_RequiresContext(t *testing.T) {
	result := NewResult("s1")
	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertFinalState, Table: "transfers", Expect: map[string]interface{}{"outcome": "ok"}},
		{Type: AssertTransferCount, Count: 0},
		{Type: AssertBalance, Alias: "alice", Amount: "0", Symbol: "MFX"},
		{Type: "bogus"},
	}, nil)

	require.Len(t, errs, 4)
	assert.Contains(t, errs[0], "final_state requires a journal")
	assert.Contains(t, errs[1], "transfer_count requires a journal")
	assert.Contains(t, errs[2], "balance requires a world")
	assert.Contains(t, errs[3], `unknown assertion type "bogus"`)
}

func TestStateValuesEqual(t *testing.T) {
	assert.True(t, stateValuesEqual("ok", "ok"))
	assert.True(t, stateValuesEqual("ok", []byte("ok")))
	assert.True(t, stateValuesEqual(3, int64(3)))
	assert.True(t, stateValuesEqual(40, "40"))
	assert.True(t, stateValuesEqual(true, int64(1)))
	assert.True(t, stateValuesEqual(nil, nil))
	assert.False(t, stateValuesEqual("ok", nil))
	assert.False(t, stateValuesEqual(3, "4"))
	assert.False(t, stateValuesEqual("3", int64(3)))
}
