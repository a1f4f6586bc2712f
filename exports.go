package membership

import (
	"github.com/xraph/membership/member"
	"github.com/xraph/membership/tier"
	"github.com/xraph/membership/types"
)

// Re-export common types for convenience so users don't have to import
// the leaf packages for everyday calls.

// Money is re-exported from types package.
type Money = types.Money

// Address is re-exported from member package.
type Address = member.Address

// Details is re-exported from member package.
type Details = member.Details

// Tier is re-exported from tier package.
type Tier = tier.Tier

// Re-export tier values
const (
	Basic    = tier.Basic
	Silver   = tier.Silver
	Gold     = tier.Gold
	Platinum = tier.Platinum
)

// Re-export Money constructors
var (
	USD  = types.USD
	EUR  = types.EUR
	Zero = types.Zero
)
