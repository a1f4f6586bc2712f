// Package snapshot captures the full ledger state at a journal position so a
// restart only replays the entries recorded after it.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/membership/id"
	"github.com/xraph/membership/member"
	"github.com/xraph/membership/tier"
	"github.com/xraph/membership/treasury"
)

// Snapshot is the state after applying every entry up to Sequence.
// Members are stored in directory order.
type Snapshot struct {
	ID       id.ID            `json:"id"`
	Sequence uint64           `json:"sequence"`
	Owner    member.Address   `json:"owner"`
	Currency string           `json:"currency"`
	Plans    []tier.Plan      `json:"plans"`
	Members  []member.Record  `json:"members"`
	Treasury treasury.Account `json:"treasury"`
	TakenAt  time.Time        `json:"taken_at"`
}

// Store persists snapshots. LatestSnapshot returns the one with the highest
// Sequence, or an error wrapping ErrNotFound when none was saved.
type Store interface {
	SaveSnapshot(ctx context.Context, s *Snapshot) error
	LatestSnapshot(ctx context.Context) (*Snapshot, error)
}

// Encode serializes a snapshot as a single document.
func Encode(s *Snapshot) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode %d: %w", s.Sequence, err)
	}
	return data, nil
}

// Decode is the inverse of Encode.
func Decode(data []byte) (*Snapshot, error) {
	s := new(Snapshot)
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("snapshot: decode: %w", err)
	}
	return s, nil
}
