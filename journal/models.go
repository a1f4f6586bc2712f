// Package journal defines the append-only log of committed membership changes.
//
// Every successful mutation is recorded as exactly one Entry carrying the
// resulting values (expiry, amount credited, plan terms), so replaying the
// journal reproduces the ledger state without consulting a clock.
package journal

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/membership/id"
	"github.com/xraph/membership/member"
	"github.com/xraph/membership/tier"
	"github.com/xraph/membership/types"
)

// Kind names the operation an entry records.
type Kind string

const (
	KindGenesis        Kind = "genesis"
	KindPurchase       Kind = "purchase"
	KindRenewal        Kind = "renewal"
	KindUpgrade        Kind = "upgrade"
	KindDetailsChanged Kind = "details_changed"
	KindRevocation     Kind = "revocation"
	KindFeeChanged     Kind = "fee_changed"
	KindTierStatus     Kind = "tier_status"
	KindWithdrawal     Kind = "withdrawal"
)

// Entry is one committed change. Sequence numbers start at 1 and are
// contiguous; the genesis entry is always sequence 1.
type Entry struct {
	ID       id.ID          `json:"id"`
	Sequence uint64         `json:"sequence"`
	Kind     Kind           `json:"kind"`
	Caller   member.Address `json:"caller"`
	Subject  member.Address `json:"subject,omitempty"`

	Tier     tier.Tier      `json:"tier"`
	Periods  int            `json:"periods,omitempty"`
	Amount   types.Money    `json:"amount"`
	Fee      types.Money    `json:"fee"`
	Duration time.Duration  `json:"duration,omitempty"`
	Active   bool           `json:"active,omitempty"`
	Details  member.Details `json:"details"`
	Expiry   time.Time      `json:"expiry"`

	// Genesis only.
	Currency string      `json:"currency,omitempty"`
	Plans    []tier.Plan `json:"plans,omitempty"`

	RecordedAt time.Time `json:"recorded_at"`
}

// Touches reports whether the entry changed addr's record.
func (e *Entry) Touches(addr member.Address) bool {
	return e.Subject == addr
}

// Encode serializes an entry for storage as a single document.
func Encode(e *Entry) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("journal: encode entry %d: %w", e.Sequence, err)
	}
	return data, nil
}

// Decode is the inverse of Encode.
func Decode(data []byte) (*Entry, error) {
	e := new(Entry)
	if err := json.Unmarshal(data, e); err != nil {
		return nil, fmt.Errorf("journal: decode entry: %w", err)
	}
	return e, nil
}
