// Package menu holds the read-only food catalog the bot prices orders from.
package menu

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Item is a single dish on the menu.
type Item struct {
	Key   string          `json:"key"`
	Name  string          `json:"name"`
	Emoji string          `json:"emoji"`
	Price decimal.Decimal `json:"price"`
}

// DisplayName is the name shown in chat messages.
func (i Item) DisplayName() string {
	if i.Emoji == "" {
		return i.Name
	}
	return i.Emoji + " " + i.Name
}

// Currency describes how amounts are presented.
type Currency struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
	// Plain is used where the symbol glyph is unavailable, e.g. core PDF fonts.
	Plain string `json:"plain"`
}

// Format renders an amount with exactly two decimals behind the currency symbol.
func (c Currency) Format(amount decimal.Decimal) string {
	return c.Symbol + amount.StringFixed(2)
}

// Catalog is immutable once built and safe for concurrent reads.
type Catalog struct {
	currency Currency
	items    []Item
	byKey    map[string]Item
}

// NewCatalog validates items and keeps them in the given order.
func NewCatalog(currency Currency, items ...Item) (*Catalog, error) {
	if len(items) == 0 {
		return nil, errors.New("menu: catalog needs at least one item")
	}
	c := &Catalog{
		currency: currency,
		items:    make([]Item, 0, len(items)),
		byKey:    make(map[string]Item, len(items)),
	}
	for _, item := range items {
		item.Key = strings.TrimSpace(item.Key)
		if item.Key == "" {
			return nil, errors.New("menu: item key is required")
		}
		if _, dup := c.byKey[item.Key]; dup {
			return nil, fmt.Errorf("menu: duplicate item key %q", item.Key)
		}
		if !item.Price.IsPositive() {
			return nil, fmt.Errorf("menu: item %q must have a positive price", item.Key)
		}
		c.items = append(c.items, item)
		c.byKey[item.Key] = item
	}
	return c, nil
}

// Lookup returns the item registered under key.
func (c *Catalog) Lookup(key string) (Item, bool) {
	item, ok := c.byKey[key]
	return item, ok
}

// Has reports whether key is on the menu.
func (c *Catalog) Has(key string) bool {
	_, ok := c.byKey[key]
	return ok
}

// Items returns a copy of the menu in display order.
func (c *Catalog) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Currency returns the catalog currency.
func (c *Catalog) Currency() Currency {
	return c.currency
}

// Rupee is the currency of the default menu.
var Rupee = Currency{Code: "INR", Symbol: "₹", Plain: "Rs."}

// Default returns the house menu.
func Default() *Catalog {
	c, err := NewCatalog(Rupee,
		Item{Key: "burger", Name: "Burger", Emoji: "🍔", Price: decimal.RequireFromString("150.00")},
		Item{Key: "fries", Name: "Fries", Emoji: "🍟", Price: decimal.RequireFromString("100.00")},
		Item{Key: "hotdog", Name: "Hotdog", Emoji: "🌭", Price: decimal.RequireFromString("200.00")},
		Item{Key: "taco", Name: "Taco", Emoji: "🌮", Price: decimal.RequireFromString("150.00")},
		Item{Key: "pizza", Name: "Pizza", Emoji: "🍕", Price: decimal.RequireFromString("350.00")},
		Item{Key: "donut", Name: "Donut", Emoji: "🍩", Price: decimal.RequireFromString("80.00")},
	)
	if err != nil {
		panic(err)
	}
	return c
}
