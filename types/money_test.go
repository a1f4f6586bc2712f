package types

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"
)

func TestMoneyDisplay(t *testing.T) {
	tests := []struct {
		name    string
		money   Money
		display string
	}{
		{"USD", USD(4900), "$49.00"},
		{"EUR", EUR(19900), "€199.00"},
		{"New normalizes currency", New(1000, "GBP"), "£10.00"},
		{"JPY has no minor unit", New(100, "jpy"), "¥100"},
		{"wei", New(42, "wei"), "WEI 42"},
		{"unknown currency", New(250, "chf"), "CHF 2.50"},
		{"negative", USD(-150), "-$1.50"},
		{"negative JPY", New(-100, "jpy"), "-¥100"},
		{"negative unknown currency", New(-250, "chf"), "-CHF 2.50"},
		{"Zero", Zero("USD"), "$0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.money.String(); got != tt.display {
				t.Errorf("got %q, want %q", got, tt.display)
			}
		})
	}
}

func TestMoneyArithmetic(t *testing.T) {
	if got := USD(100).Add(USD(250)); !got.Equal(USD(350)) {
		t.Errorf("Add: got %v", got)
	}
	if got := USD(500).Sub(USD(200)); !got.Equal(USD(300)) {
		t.Errorf("Sub: got %v", got)
	}
	if !USD(1).LessThan(USD(2)) || USD(2).LessThan(USD(2)) {
		t.Error("LessThan returned wrong result")
	}
	if !USD(0).IsZero() || USD(-1).IsZero() {
		t.Error("IsZero returned wrong result")
	}
	if !USD(-1).IsNegative() || USD(0).IsNegative() {
		t.Error("IsNegative returned wrong result")
	}
	if USD(1).SameCurrency(EUR(1)) {
		t.Error("SameCurrency should differ for usd/eur")
	}
}

func TestMoneyTimes(t *testing.T) {
	tests := []struct {
		name    string
		money   Money
		n       int64
		want    Money
		wantErr bool
	}{
		{"simple", USD(1000), 4, USD(4000), false},
		{"zero factor", USD(1000), 0, USD(0), false},
		{"zero amount", USD(0), 7, USD(0), false},
		{"boundary", USD(math.MaxInt64 / 2), 2, USD(math.MaxInt64 - 1), false},
		{"overflow", USD(math.MaxInt64/2 + 1), 2, Money{}, true},
		{"negative factor", USD(10), -1, Money{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.money.Times(tt.n)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := USD(math.MaxInt64).Times(2); !errors.Is(err, ErrOverflow) {
		t.Errorf("expected ErrOverflow, got %v", err)
	}
}

func TestMoneyPlus(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Money
		want    Money
		wantErr bool
	}{
		{"simple", USD(100), USD(250), USD(350), false},
		{"negative", USD(100), USD(-250), USD(-150), false},
		{"at max", USD(math.MaxInt64 - 10), USD(10), USD(math.MaxInt64), false},
		{"past max", USD(math.MaxInt64), USD(1), Money{}, true},
		{"past min", USD(math.MinInt64), USD(-1), Money{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.a.Plus(tt.b)
			if tt.wantErr {
				if !errors.Is(err, ErrOverflow) {
					t.Fatalf("expected ErrOverflow, got %v (%v)", err, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMoneyCurrencyMismatch(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on currency mismatch")
		}
	}()
	_ = USD(100).Add(EUR(100))
}

func TestMoneyJSON(t *testing.T) {
	data, err := json.Marshal(USD(1250))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if raw["display"] != "$12.50" {
		t.Errorf("display: got %v", raw["display"])
	}

	var back Money
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(USD(1250)) {
		t.Errorf("got %v, want %v", back, USD(1250))
	}
}

func TestEntityTouch(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.FixedZone("X", 3600))
	e := NewEntity(created)
	if e.CreatedAt.Location() != time.UTC || !e.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt not normalized: %v", e.CreatedAt)
	}

	later := created.Add(time.Hour)
	e.Touch(later)
	if !e.UpdatedAt.Equal(later) || !e.CreatedAt.Equal(created) {
		t.Errorf("Touch changed the wrong field: %+v", e)
	}
}
