// Package member holds per-identity membership records and the append-only
// directory of every identity that has ever purchased.
package member

import (
	"errors"
	"strings"
	"time"

	"github.com/xraph/membership/tier"
	"github.com/xraph/membership/types"
)

// Address identifies a caller. It is opaque to the ledger.
type Address string

// ParseAddress trims s and rejects the empty address.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.New("member: empty address")
	}
	return Address(s), nil
}

func (a Address) String() string { return string(a) }

// IsZero reports whether a is the empty address.
func (a Address) IsZero() bool { return a == "" }

// Details is the free-form contact information a member supplies.
type Details struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Record is the membership state of one address.
// IsMember is false only after revocation.
type Record struct {
	types.Entity
	Address  Address   `json:"address"`
	IsMember bool      `json:"is_member"`
	Tier     tier.Tier `json:"tier"`
	Expiry   time.Time `json:"expiry"`
	Details
}

// Active reports whether the record grants access at now.
func (r *Record) Active(now time.Time) bool {
	return r.IsMember && r.Expiry.After(now)
}

// Expired reports whether a non-revoked record has lapsed at now.
func (r *Record) Expired(now time.Time) bool {
	return r.IsMember && !r.Expiry.After(now)
}
