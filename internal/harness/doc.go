// Package harness runs YAML test sessions against a ledger.
//
// A scenario declares identities and symbols, establishes balances, performs
// transfers, and checks the outcome. Each step maps onto one World
// operation, so a scenario exercises exactly the code paths a hand-written
// test would.
//
// # Scenario Format
//
//	name: top_up_and_send
//	description: "alice is topped up and pays bob"
//	config:
//	  faucet: { seed: "<hex>" }
//	  symbols: { MFX: mfx-id }
//	  genesis: { MFX: "1000" }
//	setup:
//	  - action: identity
//	    args: { alias: alice }
//	flow:
//	  - action: has
//	    args: { alias: alice, amount: "100", symbol: MFX }
//	  - action: send
//	    args: { from: alice, to: bob, amount: "500", symbol: MFX }
//	    expect: { error: INSUFFICIENT_FUNDS }
//	assertions:
//	  - type: balance
//	    alias: alice
//	    amount: "100"
//	    symbol: MFX
//
// Instead of an inline config a scenario may name a config_file, resolved
// relative to the scenario file.
//
// # Step Actions
//
//   - identity: declare alias with a fresh key (args: alias)
//   - symbol: require a configured symbol (args: name)
//   - has: reconcile alias's balance against the faucet (args: alias, amount, symbol)
//   - send: transfer signed by the sender (args: from, to, amount, symbol)
//   - balance: expect an exact balance (args: alias, amount, symbol)
//
// Setup steps must succeed. A flow step with expect.error must fail with
// that code; any other flow step must succeed.
//
// # Assertion Types
//
//   - trace_contains: a step with the given action and args subset ran
//   - trace_order: actions first appear in the given order
//   - trace_count: an action ran exactly N times
//   - transfer_count: the journal holds N transfers (optionally per outcome)
//   - final_state: exactly one journal row matches where and expect
//   - balance: the ledger reports the given balance after the flow
//
// # Deterministic Testing
//
// Runs use a logical clock (testutil.DeterministicClock) for trace and
// journal sequence numbers, sequential request IDs, keys derived from the
// configured namespace, and a fresh in-memory journal. Traces carry aliases
// and amounts only, so identical scenarios yield byte-identical traces for
// golden comparison.
package harness
