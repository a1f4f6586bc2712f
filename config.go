package membership

import (
	"fmt"
	"strings"

	"github.com/xraph/membership/member"
	"github.com/xraph/membership/tier"
)

// Config fixes the identity and opening terms of a ledger. It is written
// into the genesis entry the first time a ledger starts on an empty store;
// on later starts Owner and Currency must match what the journal recorded
// and Plans is ignored in favour of the journaled catalog.
type Config struct {
	// Owner is the only caller allowed to change plans, revoke members
	// and withdraw funds.
	Owner member.Address

	// Currency is the ISO code all fees and payments are denominated in.
	Currency string

	// Plans is the opening catalog; every tier must appear once.
	// Defaults to tier.DefaultPlans(Currency).
	Plans []tier.Plan

	// MaxPeriods caps the periods bought by one purchase or upgrade.
	// Zero means no cap.
	MaxPeriods int
}

// DefaultCurrency is used when Config.Currency is empty.
const DefaultCurrency = "usd"

func (c Config) normalize() (Config, error) {
	if c.Owner.IsZero() {
		return c, invalid("owner", "must not be empty")
	}
	c.Currency = strings.ToLower(strings.TrimSpace(c.Currency))
	if c.Currency == "" {
		c.Currency = DefaultCurrency
	}
	if c.MaxPeriods < 0 {
		return c, invalid("max_periods", "must not be negative, got %d", c.MaxPeriods)
	}
	if len(c.Plans) == 0 {
		c.Plans = tier.DefaultPlans(c.Currency)
	}
	for _, p := range c.Plans {
		if p.Fee.Currency != c.Currency {
			return c, invalid("plans", "%s fee in %q, ledger uses %q", p.Tier, p.Fee.Currency, c.Currency)
		}
	}
	if _, err := tier.NewCatalog(c.Plans); err != nil {
		return c, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return c, nil
}
