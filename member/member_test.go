package member_test

import (
	"testing"
	"time"

	"github.com/xraph/membership/member"
)

func TestDirectory(t *testing.T) {
	d := member.NewDirectory()

	for _, addr := range []member.Address{"alice", "bob", "alice", "carol", "bob"} {
		d.Add(addr)
	}

	got := d.List()
	want := []member.Address{"alice", "bob", "carol"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: got %q, want %q", i, got[i], want[i])
		}
	}

	if d.Add("alice") {
		t.Error("Add should report false for a known address")
	}
	if !d.Contains("carol") || d.Contains("dave") {
		t.Error("Contains returned the wrong answer")
	}
	if d.Len() != 3 {
		t.Errorf("Len = %d", d.Len())
	}

	got[0] = "mallory"
	if d.List()[0] != "alice" {
		t.Error("List must return a copy")
	}
}

func TestRecordActive(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		rec     member.Record
		active  bool
		expired bool
	}{
		{"current", member.Record{IsMember: true, Expiry: now.Add(time.Hour)}, true, false},
		{"lapsed", member.Record{IsMember: true, Expiry: now.Add(-time.Hour)}, false, true},
		{"expires exactly now", member.Record{IsMember: true, Expiry: now}, false, true},
		{"revoked", member.Record{IsMember: false, Expiry: now.Add(time.Hour)}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.Active(now); got != tt.active {
				t.Errorf("Active = %v, want %v", got, tt.active)
			}
			if got := tt.rec.Expired(now); got != tt.expired {
				t.Errorf("Expired = %v, want %v", got, tt.expired)
			}
		})
	}
}

func TestParseAddress(t *testing.T) {
	if _, err := member.ParseAddress("   "); err == nil {
		t.Error("blank address should be rejected")
	}
	addr, err := member.ParseAddress(" 0xabc ")
	if err != nil || addr != "0xabc" {
		t.Errorf("got %q, %v", addr, err)
	}
}
