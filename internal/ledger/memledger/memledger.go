// Package memledger is an in-process ledger service.
//
// It enforces the same contract a real ledger does for transfers: the
// signature must verify, the signing key must control the source account,
// the source must hold the amount, and the debit and credit happen together
// or not at all. Writes are serialized by a single mutex.
//
// Fault hooks (FailNextSubmit, FailNextBalance, OnSubmit) let tests simulate
// transport failures and concurrent interference.
package memledger

import (
	"context"
	"sort"
	"sync"

	"github.com/roach88/tokenworld/internal/amount"
	"github.com/roach88/tokenworld/internal/identity"
	"github.com/roach88/tokenworld/internal/ledger"
	"github.com/roach88/tokenworld/internal/symbol"
)

// Record is one applied transfer.
type Record struct {
	Seq      int64
	Transfer ledger.Transfer
}

// Ledger is an in-memory ledger.Service.
type Ledger struct {
	mu       sync.Mutex
	balances map[symbol.ID]map[identity.Address]amount.Amount
	history  []Record
	seen     map[string]struct{}

	failSubmit  []error
	failBalance []error
	onSubmit    func(ledger.Transfer)
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		balances: make(map[symbol.ID]map[identity.Address]amount.Amount),
		seen:     make(map[string]struct{}),
	}
}

// Mint credits amt of sym to addr out of thin air. Used for genesis funding.
func (l *Ledger) Mint(addr identity.Address, sym symbol.ID, amt amount.Amount) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(addr, sym, amt)
}

// SetBalance overwrites the balance of addr for sym. Test-only escape hatch
// for forcing states that transfers cannot reach, such as an empty reserve.
func (l *Ledger) SetBalance(addr identity.Address, sym symbol.ID, amt amount.Amount) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.account(sym)[addr] = amt
}

// FailNextSubmit makes the next Submit return err without touching balances.
func (l *Ledger) FailNextSubmit(err error) {
	l.mu.Lock()
	l.failSubmit = append(l.failSubmit, err)
	l.mu.Unlock()
}

// FailNextBalance makes the next Balance return err.
func (l *Ledger) FailNextBalance(err error) {
	l.mu.Lock()
	l.failBalance = append(l.failBalance, err)
	l.mu.Unlock()
}

// OnSubmit registers fn to run after every applied transfer, outside the lock.
func (l *Ledger) OnSubmit(fn func(ledger.Transfer)) {
	l.mu.Lock()
	l.onSubmit = fn
	l.mu.Unlock()
}

// Balance implements ledger.Service.
func (l *Ledger) Balance(ctx context.Context, addr identity.Address, sym symbol.ID) (amount.Amount, error) {
	if err := ctx.Err(); err != nil {
		return amount.Zero, ledger.CommunicationError("balance", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.failBalance) > 0 {
		err := l.failBalance[0]
		l.failBalance = l.failBalance[1:]
		return amount.Zero, err
	}
	return l.balances[sym][addr], nil
}

// Submit implements ledger.Service. A request ID that was already applied is
// acknowledged without moving funds again.
func (l *Ledger) Submit(ctx context.Context, st ledger.SignedTransfer) error {
	if err := ctx.Err(); err != nil {
		return ledger.CommunicationError("submit", err)
	}
	if err := st.Validate(); err != nil {
		return err
	}
	if err := st.Authorize(); err != nil {
		return err
	}

	hook, err := l.apply(st.Transfer)
	if err != nil {
		return err
	}
	if hook != nil {
		hook(st.Transfer)
	}
	return nil
}

func (l *Ledger) apply(t ledger.Transfer) (func(ledger.Transfer), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.failSubmit) > 0 {
		err := l.failSubmit[0]
		l.failSubmit = l.failSubmit[1:]
		return nil, err
	}

	if _, dup := l.seen[t.RequestID]; dup && t.RequestID != "" {
		return nil, nil
	}

	accounts := l.account(t.Symbol)
	remaining, err := accounts[t.From].Sub(t.Amount)
	if err != nil {
		return nil, ledger.NewError(ledger.CodeInsufficientFunds,
			"%s holds %s %s, needs %s", t.From.Short(), accounts[t.From], t.Symbol, t.Amount)
	}
	accounts[t.From] = remaining
	accounts[t.To] = accounts[t.To].Add(t.Amount)

	if t.RequestID != "" {
		l.seen[t.RequestID] = struct{}{}
	}
	l.history = append(l.history, Record{Seq: int64(len(l.history) + 1), Transfer: t})
	return l.onSubmit, nil
}

func (l *Ledger) account(sym symbol.ID) map[identity.Address]amount.Amount {
	accounts, ok := l.balances[sym]
	if !ok {
		accounts = make(map[identity.Address]amount.Amount)
		l.balances[sym] = accounts
	}
	return accounts
}

func (l *Ledger) credit(addr identity.Address, sym symbol.ID, amt amount.Amount) {
	accounts := l.account(sym)
	accounts[addr] = accounts[addr].Add(amt)
}

// Transfers returns the applied transfers in order.
func (l *Ledger) Transfers() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Record, len(l.history))
	copy(out, l.history)
	return out
}

// Supply returns the sum of all balances of sym.
func (l *Ledger) Supply(sym symbol.ID) amount.Amount {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := amount.Zero
	for _, bal := range l.balances[sym] {
		total = total.Add(bal)
	}
	return total
}

// Symbols returns every symbol that has ever held a balance, sorted.
func (l *Ledger) Symbols() []symbol.ID {
	l.mu.Lock()
	defer l.mu.Unlock()
	syms := make([]symbol.ID, 0, len(l.balances))
	for sym := range l.balances {
		syms = append(syms, sym)
	}
	sort.Slice(syms, func(i, j int) bool { return syms[i] < syms[j] })
	return syms
}
