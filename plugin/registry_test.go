package plugin_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xraph/membership/member"
	"github.com/xraph/membership/plugin"
	"github.com/xraph/membership/tier"
	"github.com/xraph/membership/types"
)

type recorder struct {
	name string

	mu        sync.Mutex
	purchased []member.Address
	upgraded  []tier.Tier
	rejected  []string
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) OnMembershipPurchased(_ context.Context, rec member.Record, _ types.Money) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purchased = append(r.purchased, rec.Address)
	return nil
}

func (r *recorder) OnMembershipUpgraded(_ context.Context, _ member.Record, from tier.Tier, _ types.Money) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upgraded = append(r.upgraded, from)
	return nil
}

func (r *recorder) OnOperationRejected(_ context.Context, op string, _ member.Address, _ error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected = append(r.rejected, op)
	return errors.New("hook errors are logged, not returned")
}

type slow struct{}

func (slow) Name() string { return "slow" }

func (slow) OnMembershipPurchased(ctx context.Context, _ member.Record, _ types.Money) error {
	select {
	case <-time.After(time.Second):
	case <-ctx.Done():
	}
	return nil
}

func TestRegisterAndDispatch(t *testing.T) {
	reg := plugin.NewRegistry()
	rec := &recorder{name: "rec"}

	if err := reg.Register(rec); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.Register(&recorder{name: "rec"}); err == nil {
		t.Fatal("duplicate name should be rejected")
	}
	if reg.Count() != 1 {
		t.Fatalf("Count = %d, want 1", reg.Count())
	}
	if reg.Get("rec") != rec {
		t.Error("Get returned a different plugin")
	}
	if reg.Get("missing") != nil {
		t.Error("Get(missing) should be nil")
	}

	ctx := context.Background()
	reg.EmitMembershipPurchased(ctx, member.Record{Address: "alice"}, types.USD(1000))
	reg.EmitMembershipUpgraded(ctx, member.Record{Address: "alice", Tier: tier.Gold}, tier.Basic, types.USD(3000))
	reg.EmitOperationRejected(ctx, "purchase", "bob", errors.New("nope"))

	// Hooks the plugin does not implement are skipped.
	reg.EmitMembershipRevoked(ctx, member.Record{Address: "alice"})

	if len(rec.purchased) != 1 || rec.purchased[0] != "alice" {
		t.Errorf("purchased = %v", rec.purchased)
	}
	if len(rec.upgraded) != 1 || rec.upgraded[0] != tier.Basic {
		t.Errorf("upgraded = %v", rec.upgraded)
	}
	if len(rec.rejected) != 1 || rec.rejected[0] != "purchase" {
		t.Errorf("rejected = %v", rec.rejected)
	}
}

func TestHookTimeout(t *testing.T) {
	reg := plugin.NewRegistry().WithTimeout(20 * time.Millisecond)
	rec := &recorder{name: "after"}
	if err := reg.Register(slow{}); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register(rec); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	reg.EmitMembershipPurchased(context.Background(), member.Record{Address: "alice"}, types.USD(1000))
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("dispatch blocked for %s", elapsed)
	}
	if len(rec.purchased) != 1 {
		t.Error("plugin after a slow one was not called")
	}
}

func TestListOrder(t *testing.T) {
	reg := plugin.NewRegistry()
	for _, name := range []string{"a", "b", "c"} {
		if err := reg.Register(&recorder{name: name}); err != nil {
			t.Fatal(err)
		}
	}
	var names []string
	for _, p := range reg.List() {
		names = append(names, p.Name())
	}
	if len(names) != 3 || names[0] != "a" || names[2] != "c" {
		t.Errorf("List = %v", names)
	}
}
