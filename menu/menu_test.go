package menu

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewCatalog(t *testing.T) {
	price := decimal.RequireFromString("10.00")

	tests := []struct {
		name    string
		items   []Item
		wantErr bool
	}{
		{
			name:  "valid catalog",
			items: []Item{{Key: "tea", Name: "Tea", Price: price}, {Key: "cake", Name: "Cake", Price: price}},
		},
		{
			name:    "empty catalog",
			wantErr: true,
		},
		{
			name:    "duplicate key",
			items:   []Item{{Key: "tea", Price: price}, {Key: "tea", Price: price}},
			wantErr: true,
		},
		{
			name:    "blank key",
			items:   []Item{{Key: "  ", Price: price}},
			wantErr: true,
		},
		{
			name:    "zero price",
			items:   []Item{{Key: "tea", Price: decimal.Zero}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(Rupee, tt.items...)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewCatalog() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	burger, ok := c.Lookup("burger")
	if !ok {
		t.Fatalf("expected burger on the default menu")
	}
	if !burger.Price.Equal(decimal.RequireFromString("150")) {
		t.Fatalf("burger price = %s, want 150", burger.Price)
	}
	if burger.DisplayName() != "🍔 Burger" {
		t.Fatalf("unexpected display name %q", burger.DisplayName())
	}
	if c.Has("unknown_item") {
		t.Fatalf("unknown_item must not be on the menu")
	}

	items := c.Items()
	if len(items) != 6 || items[0].Key != "burger" || items[5].Key != "donut" {
		t.Fatalf("unexpected menu order: %+v", items)
	}
	items[0].Key = "mutated"
	if _, ok := c.Lookup("burger"); !ok || c.Items()[0].Key != "burger" {
		t.Fatalf("Items must return a copy")
	}
}

func TestCurrencyFormat(t *testing.T) {
	got := Rupee.Format(decimal.RequireFromString("529.5"))
	if got != "₹529.50" {
		t.Fatalf("Format() = %q, want ₹529.50", got)
	}
}
