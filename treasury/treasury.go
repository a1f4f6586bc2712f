// Package treasury tracks the funds collected by paid membership operations.
package treasury

import (
	"time"

	"github.com/xraph/membership/id"
	"github.com/xraph/membership/types"
)

// Account is the single balance of the ledger.
// Collected and Withdrawn are lifetime totals; Balance == Collected - Withdrawn.
type Account struct {
	Balance   types.Money `json:"balance"`
	Collected types.Money `json:"collected"`
	Withdrawn types.Money `json:"withdrawn"`
}

// New returns an empty account in currency.
func New(currency string) Account {
	z := types.Zero(currency)
	return Account{Balance: z, Collected: z, Withdrawn: z}
}

// CanCredit reports types.ErrOverflow when crediting amount would push
// the balance or the lifetime total past int64.
func (a Account) CanCredit(amount types.Money) error {
	if _, err := a.Balance.Plus(amount); err != nil {
		return err
	}
	_, err := a.Collected.Plus(amount)
	return err
}

// Credit adds a payment to the balance. Callers check CanCredit first.
func (a *Account) Credit(amount types.Money) {
	a.Balance = a.Balance.Add(amount)
	a.Collected = a.Collected.Add(amount)
}

// Drain empties the balance and returns what it held.
func (a *Account) Drain() types.Money {
	out := a.Balance
	a.Withdrawn = a.Withdrawn.Add(out)
	a.Balance = types.Zero(out.Currency)
	return out
}

// Reconciles reports whether the lifetime totals agree with the balance.
func (a Account) Reconciles() bool {
	return a.Collected.Sub(a.Withdrawn).Equal(a.Balance)
}

// Withdrawal is the receipt of a completed withdrawal.
type Withdrawal struct {
	EntryID  id.ID       `json:"entry_id"`
	Sequence uint64      `json:"sequence"`
	To       string      `json:"to"`
	Amount   types.Money `json:"amount"`
	At       time.Time   `json:"at"`
}
