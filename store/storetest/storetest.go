// Package storetest holds the behaviour every store.Store backend must
// share. Backends call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/membership"
	"github.com/xraph/membership/id"
	"github.com/xraph/membership/journal"
	"github.com/xraph/membership/member"
	"github.com/xraph/membership/snapshot"
	"github.com/xraph/membership/store"
	"github.com/xraph/membership/tier"
	"github.com/xraph/membership/treasury"
	"github.com/xraph/membership/types"
)

// Run exercises s, which must be freshly migrated and empty.
func Run(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("EmptyJournal", func(t *testing.T) {
		last, err := s.LastSequence(ctx)
		if err != nil {
			t.Fatalf("LastSequence: %v", err)
		}
		if last != 0 {
			t.Errorf("LastSequence = %d, want 0", last)
		}
		if _, err := s.LatestSnapshot(ctx); !errors.Is(err, membership.ErrNotFound) {
			t.Errorf("LatestSnapshot err = %v, want ErrNotFound", err)
		}
	})

	entries := []*journal.Entry{
		{
			Kind:     journal.KindGenesis,
			Caller:   "owner",
			Currency: "usd",
			Plans:    tier.DefaultPlans("usd"),
		},
		{
			Kind:    journal.KindPurchase,
			Caller:  "alice",
			Subject: "alice",
			Tier:    tier.Silver,
			Periods: 2,
			Amount:  types.USD(4000),
			Details: member.Details{Name: "Alice", Email: "alice@example.com"},
			Expiry:  at.Add(2 * tier.Quarter),
		},
		{
			Kind:    journal.KindPurchase,
			Caller:  "bob",
			Subject: "bob",
			Tier:    tier.Basic,
			Periods: 1,
			Amount:  types.USD(1000),
			Expiry:  at.Add(tier.Quarter),
		},
		{
			Kind:    journal.KindRenewal,
			Caller:  "alice",
			Subject: "alice",
			Tier:    tier.Silver,
			Periods: 1,
			Amount:  types.USD(2000),
			Expiry:  at.Add(3 * tier.Quarter),
		},
	}
	for i, e := range entries {
		e.ID = id.NewEntryID()
		e.Sequence = uint64(i + 1)
		e.RecordedAt = at.Add(time.Duration(i) * time.Minute)
	}

	t.Run("Append", func(t *testing.T) {
		for _, e := range entries {
			if err := s.AppendEntry(ctx, e); err != nil {
				t.Fatalf("AppendEntry(%d): %v", e.Sequence, err)
			}
		}
		last, err := s.LastSequence(ctx)
		if err != nil {
			t.Fatalf("LastSequence: %v", err)
		}
		if last != uint64(len(entries)) {
			t.Errorf("LastSequence = %d, want %d", last, len(entries))
		}
	})

	t.Run("DuplicateSequence", func(t *testing.T) {
		dup := *entries[1]
		dup.ID = id.NewEntryID()
		err := s.AppendEntry(ctx, &dup)
		if !errors.Is(err, membership.ErrConflict) {
			t.Fatalf("AppendEntry duplicate err = %v, want ErrConflict", err)
		}
	})

	t.Run("ListAll", func(t *testing.T) {
		got, err := s.ListEntries(ctx, journal.ListOpts{})
		if err != nil {
			t.Fatalf("ListEntries: %v", err)
		}
		if len(got) != len(entries) {
			t.Fatalf("len = %d, want %d", len(got), len(entries))
		}
		for i, e := range got {
			if e.Sequence != uint64(i+1) {
				t.Errorf("entry %d sequence = %d", i, e.Sequence)
			}
			if e.ID.String() != entries[i].ID.String() {
				t.Errorf("entry %d id = %s, want %s", i, e.ID, entries[i].ID)
			}
			if e.Kind != entries[i].Kind {
				t.Errorf("entry %d kind = %s, want %s", i, e.Kind, entries[i].Kind)
			}
			if !e.Amount.Equal(entries[i].Amount) {
				t.Errorf("entry %d amount = %s, want %s", i, e.Amount, entries[i].Amount)
			}
			if !e.Expiry.Equal(entries[i].Expiry) {
				t.Errorf("entry %d expiry = %v, want %v", i, e.Expiry, entries[i].Expiry)
			}
		}
		if len(got[0].Plans) != int(tier.Count) {
			t.Errorf("genesis plans = %d, want %d", len(got[0].Plans), tier.Count)
		}
		if got[1].Details.Email != "alice@example.com" {
			t.Errorf("details = %+v", got[1].Details)
		}
	})

	t.Run("ListAfterAndLimit", func(t *testing.T) {
		got, err := s.ListEntries(ctx, journal.ListOpts{After: 1, Limit: 2})
		if err != nil {
			t.Fatalf("ListEntries: %v", err)
		}
		if len(got) != 2 || got[0].Sequence != 2 || got[1].Sequence != 3 {
			t.Fatalf("got %d entries starting at %v", len(got), sequences(got))
		}
	})

	t.Run("ListBySubject", func(t *testing.T) {
		got, err := s.ListEntries(ctx, journal.ListOpts{Subject: "alice"})
		if err != nil {
			t.Fatalf("ListEntries: %v", err)
		}
		want := []uint64{2, 4}
		if seqs := sequences(got); len(seqs) != 2 || seqs[0] != want[0] || seqs[1] != want[1] {
			t.Errorf("sequences = %v, want %v", seqs, want)
		}
	})

	t.Run("Snapshots", func(t *testing.T) {
		acct := treasury.New("usd")
		acct.Credit(types.USD(5000))

		older := &snapshot.Snapshot{
			ID:       id.NewSnapshotID(),
			Sequence: 2,
			Owner:    "owner",
			Currency: "usd",
			Plans:    tier.DefaultPlans("usd"),
			Members:  []member.Record{{Address: "alice", IsMember: true, Tier: tier.Silver}},
			Treasury: acct,
			TakenAt:  at,
		}
		newer := *older
		newer.ID = id.NewSnapshotID()
		newer.Sequence = 3
		newer.Members = append(newer.Members, member.Record{Address: "bob", IsMember: true})
		newer.TakenAt = at.Add(time.Minute)

		// Saved out of order on purpose.
		if err := s.SaveSnapshot(ctx, &newer); err != nil {
			t.Fatalf("SaveSnapshot: %v", err)
		}
		if err := s.SaveSnapshot(ctx, older); err != nil {
			t.Fatalf("SaveSnapshot: %v", err)
		}

		got, err := s.LatestSnapshot(ctx)
		if err != nil {
			t.Fatalf("LatestSnapshot: %v", err)
		}
		if got.Sequence != 3 {
			t.Errorf("Sequence = %d, want 3", got.Sequence)
		}
		if len(got.Members) != 2 || got.Members[1].Address != "bob" {
			t.Errorf("Members = %+v", got.Members)
		}
		if !got.Treasury.Balance.Equal(types.USD(5000)) {
			t.Errorf("Balance = %s", got.Treasury.Balance)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		if err := s.Ping(ctx); err != nil {
			t.Errorf("Ping: %v", err)
		}
	})
}

func sequences(entries []*journal.Entry) []uint64 {
	out := make([]uint64, len(entries))
	for i, e := range entries {
		out[i] = e.Sequence
	}
	return out
}
