// Package tier defines the closed, ordered set of membership tiers and the
// plan (fee, duration, availability) attached to each.
package tier

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknown is returned when a value does not name one of the four tiers.
var ErrUnknown = errors.New("tier: unknown tier")

// Tier is a membership level. Higher values rank above lower ones.
type Tier uint8

const (
	Basic Tier = iota
	Silver
	Gold
	Platinum
)

// Count is the number of tiers.
const Count = 4

var names = [Count]string{"basic", "silver", "gold", "platinum"}

// All returns every tier in rank order.
func All() []Tier {
	return []Tier{Basic, Silver, Gold, Platinum}
}

// Valid reports whether t is one of the four tiers.
func (t Tier) Valid() bool { return t < Count }

// Rank returns the ordering position of t; Basic is 0.
func (t Tier) Rank() int { return int(t) }

// Above reports whether t ranks strictly higher than other.
func (t Tier) Above(other Tier) bool { return t.Rank() > other.Rank() }

func (t Tier) String() string {
	if !t.Valid() {
		return fmt.Sprintf("tier(%d)", uint8(t))
	}
	return names[t]
}

// Parse accepts a tier name (case-insensitive) or its numeric rank.
func Parse(s string) (Tier, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range names {
		if s == n {
			return Tier(i), nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 && n < Count {
		return Tier(n), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknown, s)
}

// MarshalText implements encoding.TextMarshaler.
func (t Tier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknown, uint8(t))
	}
	return []byte(names[t]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tier) UnmarshalText(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
