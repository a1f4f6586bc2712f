package tier

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/xraph/membership/types"
)

// Quarter is the default plan duration: one billing period of 90 days.
const Quarter = 90 * 24 * time.Hour

// Plan is the price and length of one period of a tier.
// Plans are never removed; Active toggles whether new purchases,
// renewals and upgrades into the tier are accepted.
type Plan struct {
	Tier      Tier          `json:"tier"`
	Fee       types.Money   `json:"fee"`
	Duration  time.Duration `json:"duration"`
	Active    bool          `json:"active"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Validate checks the invariants every stored plan must hold.
func (p Plan) Validate() error {
	if !p.Tier.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknown, uint8(p.Tier))
	}
	if p.Fee.IsNegative() {
		return errors.New("tier: fee must not be negative")
	}
	if p.Duration <= 0 {
		return errors.New("tier: duration must be positive")
	}
	return nil
}

// Cost returns the fee for the given number of periods.
func (p Plan) Cost(periods int) (types.Money, error) {
	if periods < 1 {
		return types.Money{}, fmt.Errorf("tier: periods must be at least 1, got %d", periods)
	}
	return p.Fee.Times(int64(periods))
}

// Span returns the membership time bought by the given number of periods.
func (p Plan) Span(periods int) (time.Duration, error) {
	if periods < 1 {
		return 0, fmt.Errorf("tier: periods must be at least 1, got %d", periods)
	}
	if p.Duration > time.Duration(math.MaxInt64)/time.Duration(periods) {
		return 0, fmt.Errorf("tier: %d periods of %s overflows", periods, p.Duration)
	}
	return p.Duration * time.Duration(periods), nil
}

// Catalog holds exactly one plan per tier.
type Catalog struct {
	plans [Count]Plan
}

// NewCatalog builds a catalog. Every tier must appear exactly once.
func NewCatalog(plans []Plan) (*Catalog, error) {
	c := &Catalog{}
	var seen [Count]bool
	for _, p := range plans {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if seen[p.Tier] {
			return nil, fmt.Errorf("tier: duplicate plan for %s", p.Tier)
		}
		seen[p.Tier] = true
		c.plans[p.Tier] = p
	}
	for t, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("tier: missing plan for %s", Tier(t))
		}
	}
	return c, nil
}

// Get returns the plan for t. ok is false for an out-of-range tier.
func (c *Catalog) Get(t Tier) (Plan, bool) {
	if !t.Valid() {
		return Plan{}, false
	}
	return c.plans[t], true
}

// Set replaces the plan for p.Tier. Callers validate first.
func (c *Catalog) Set(p Plan) {
	c.plans[p.Tier] = p
}

// SetActive flips availability of t and stamps the change.
func (c *Catalog) SetActive(t Tier, active bool, at time.Time) {
	c.plans[t].Active = active
	c.plans[t].UpdatedAt = at.UTC()
}

// List returns all plans in rank order.
func (c *Catalog) List() []Plan {
	out := make([]Plan, Count)
	copy(out, c.plans[:])
	return out
}

// DefaultPlans returns an active quarterly plan per tier priced
// 10, 20, 30 and 40 major units of currency.
func DefaultPlans(currency string) []Plan {
	plans := make([]Plan, 0, Count)
	for _, t := range All() {
		plans = append(plans, Plan{
			Tier:     t,
			Fee:      types.New(int64(t.Rank()+1)*1000, currency),
			Duration: Quarter,
			Active:   true,
		})
	}
	return plans
}
