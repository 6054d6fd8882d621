package orders

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"telegram-food-bot/menu"
)

// Confirmation is the chat message sent once an order is accepted.
func Confirmation(s Summary, currency menu.Currency) string {
	var b strings.Builder
	b.WriteString("🎉 Order Successfully Placed!\n\n")
	fmt.Fprintf(&b, "🔢 Order Token: #%s\n\n", s.Token)
	b.WriteString("📋 Order Summary:\n")
	writeLines(&b, s.Lines, currency)
	fmt.Fprintf(&b, "\n💰 Total: %s", currency.Format(s.Total))
	if s.PaymentMethod != "" {
		fmt.Fprintf(&b, "\n💳 Payment Method: %s", capitalize(s.PaymentMethod))
	}
	if s.Comment != "" {
		fmt.Fprintf(&b, "\n\n💭 Your Comment:\n%s", s.Comment)
	}
	return b.String()
}

// CartText lists a cart that has not been ordered yet.
func CartText(lines []Line, total decimal.Decimal, currency menu.Currency) string {
	if len(lines) == 0 {
		return "🛒 Your cart is empty."
	}
	var b strings.Builder
	b.WriteString("🛒 Your cart:\n")
	writeLines(&b, lines, currency)
	fmt.Fprintf(&b, "\n💰 Total: %s", currency.Format(total))
	return b.String()
}

func writeLines(b *strings.Builder, lines []Line, currency menu.Currency) {
	for _, l := range lines {
		fmt.Fprintf(b, "• %d× %s = %s\n", l.Count, l.Item.DisplayName(), currency.Format(l.Total))
	}
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	r := []rune(strings.ToLower(s))
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
