// Package membership provides a tiered subscription ledger for Go
// applications.
//
// A Ledger tracks which addresses hold a membership, at what tier and until
// when. Every change (purchase, renewal, upgrade, detail edit, fee edit,
// revocation, withdrawal) is validated against the current state and then
// recorded as one journal entry; the in-memory state is a projection of that
// journal and can always be rebuilt from it.
//
//   - Four ranked tiers with an owner-editable plan (fee, period length, active flag) each
//   - Payment checks with overpayment kept by the treasury
//   - Single-owner gate for catalog edits, revocation and withdrawal
//   - Append-only member directory that survives revocation
//   - Pluggable journal storage (memory, SQLite, PostgreSQL, MongoDB)
//   - Optional Redis lock so several processes can share one journal
//   - Plugin hooks for audit trails and metrics
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/membership"
//	    "github.com/xraph/membership/store/memory"
//	)
//
//	l, err := membership.New(memory.New(), membership.Config{
//	    Owner:    "0xowner",
//	    Currency: "usd",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
//	err = l.Purchase(ctx, "0xalice", tier.Basic, 2,
//	    member.Details{Name: "Alice", Email: "alice@example.com"},
//	    types.USD(2000))
//
// # Time
//
// Expiry is never swept. IsActiveMember compares the stored expiry with the
// ledger clock (see WithClock) on every call.
//
// # Concurrency
//
// Mutations are serialized by a writer lock. The default lock is local to
// the process; use WithLocker(lock.NewRedis(...)) when several processes
// append to the same store, and call Sync to pick up their entries.
package membership
