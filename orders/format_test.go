package orders

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"telegram-food-bot/menu"
)

func TestConfirmation(t *testing.T) {
	s := NewSummarizer(menu.Default(), "RB")
	summary, err := s.Summarize([]string{"burger", "burger", "fries"}, "ring twice\nthanks", "upi")
	if err != nil {
		t.Fatalf("Summarize returned error: %v", err)
	}

	text := Confirmation(summary, menu.Rupee)
	for _, want := range []string{
		"#" + summary.Token,
		"• 2× 🍔 Burger = ₹300.00",
		"• 1× 🍟 Fries = ₹100.00",
		"💰 Total: ₹400.00",
		"💳 Payment Method: Upi",
		"💭 Your Comment:\nring twice\nthanks",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("confirmation missing %q:\n%s", want, text)
		}
	}
}

func TestConfirmationOmitsEmptyOptionalParts(t *testing.T) {
	s := NewSummarizer(menu.Default(), "RB")
	summary, _ := s.Summarize([]string{"donut"}, "   ", "")

	text := Confirmation(summary, menu.Rupee)
	if strings.Contains(text, "Payment Method") || strings.Contains(text, "Your Comment") {
		t.Fatalf("unexpected optional sections:\n%s", text)
	}
}

func TestCartText(t *testing.T) {
	if got := CartText(nil, decimal.Zero, menu.Rupee); got != "🛒 Your cart is empty." {
		t.Fatalf("empty cart text = %q", got)
	}
	lines, total, err := Group(menu.Default(), []string{"pizza", "pizza"})
	if err != nil {
		t.Fatalf("Group returned error: %v", err)
	}
	if got := CartText(lines, total, menu.Rupee); !strings.Contains(got, "2× 🍕 Pizza = ₹700.00") {
		t.Fatalf("cart text = %q", got)
	}
}
