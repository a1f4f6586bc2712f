package treasury

import (
	"errors"
	"math"
	"testing"

	"github.com/xraph/membership/types"
)

func TestAccountCreditAndDrain(t *testing.T) {
	a := New("usd")
	if !a.Balance.IsZero() || a.Balance.Currency != "usd" {
		t.Fatalf("unexpected opening balance %v", a.Balance)
	}

	a.Credit(types.USD(1000))
	a.Credit(types.USD(2500))
	if !a.Balance.Equal(types.USD(3500)) {
		t.Errorf("Balance = %v", a.Balance)
	}

	out := a.Drain()
	if !out.Equal(types.USD(3500)) {
		t.Errorf("Drain returned %v", out)
	}
	if !a.Balance.IsZero() {
		t.Errorf("Balance after drain = %v", a.Balance)
	}

	a.Credit(types.USD(10))
	if !a.Collected.Equal(types.USD(3510)) || !a.Withdrawn.Equal(types.USD(3500)) {
		t.Errorf("totals: collected=%v withdrawn=%v", a.Collected, a.Withdrawn)
	}
	if !a.Reconciles() {
		t.Error("account should reconcile")
	}

	a.Balance = types.USD(1)
	if a.Reconciles() {
		t.Error("tampered account should not reconcile")
	}
}

func TestAccountCanCredit(t *testing.T) {
	a := New("usd")
	if err := a.CanCredit(types.USD(math.MaxInt64)); err != nil {
		t.Fatalf("CanCredit(max) on empty account: %v", err)
	}
	a.Credit(types.USD(math.MaxInt64))

	if err := a.CanCredit(types.USD(1)); !errors.Is(err, types.ErrOverflow) {
		t.Errorf("CanCredit on full balance: got %v, want ErrOverflow", err)
	}

	// Draining frees the balance but not the lifetime total.
	a.Drain()
	if err := a.CanCredit(types.USD(1)); !errors.Is(err, types.ErrOverflow) {
		t.Errorf("CanCredit after drain: got %v, want ErrOverflow", err)
	}
	if err := a.CanCredit(types.USD(0)); err != nil {
		t.Errorf("CanCredit(0): %v", err)
	}
}
