// Package orders turns carts into priced order summaries and keeps a journal
// of the orders that were accepted.
package orders

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"telegram-food-bot/cart"
	"telegram-food-bot/menu"
)

// Line is one distinct dish of an order.
type Line struct {
	Item  menu.Item
	Count int
	Total decimal.Decimal
}

// Summary is a priced order. It is never modified after Summarize returns it.
type Summary struct {
	Token         string
	Lines         []Line
	Total         decimal.Decimal
	Comment       string
	PaymentMethod string
	CreatedAt     time.Time
}

// Counts maps item keys to quantities.
func (s Summary) Counts() map[string]int {
	counts := make(map[string]int, len(s.Lines))
	for _, l := range s.Lines {
		counts[l.Item.Key] = l.Count
	}
	return counts
}

// Quantity is the number of dishes in the order.
func (s Summary) Quantity() int {
	n := 0
	for _, l := range s.Lines {
		n += l.Count
	}
	return n
}

// Group counts keys in first-seen order and prices them exactly.
func Group(catalog *menu.Catalog, keys []string) ([]Line, decimal.Decimal, error) {
	var (
		lines   []Line
		index   = make(map[string]int, len(keys))
		unknown []string
	)
	for _, key := range keys {
		if i, ok := index[key]; ok {
			lines[i].Count++
			continue
		}
		item, ok := catalog.Lookup(key)
		if !ok {
			unknown = append(unknown, key)
			continue
		}
		index[key] = len(lines)
		lines = append(lines, Line{Item: item, Count: 1})
	}
	if len(unknown) > 0 {
		return nil, decimal.Zero, &cart.UnknownItemError{Keys: unknown}
	}

	total := decimal.Zero
	for i := range lines {
		lines[i].Total = lines[i].Item.Price.Mul(decimal.NewFromInt(int64(lines[i].Count)))
		total = total.Add(lines[i].Total)
	}
	return lines, total, nil
}

// Summarizer prices carts against a catalog and stamps them with tokens.
type Summarizer struct {
	catalog *menu.Catalog
	prefix  string
	now     func() time.Time
}

// NewSummarizer returns a summarizer issuing tokens that start with prefix.
func NewSummarizer(catalog *menu.Catalog, prefix string) *Summarizer {
	return &Summarizer{catalog: catalog, prefix: prefix, now: time.Now}
}

// Summarize fails with ErrEmptyCart before any token is issued when keys is empty.
func (s *Summarizer) Summarize(keys []string, comment, paymentMethod string) (Summary, error) {
	if len(keys) == 0 {
		return Summary{}, ErrEmptyCart
	}
	lines, total, err := Group(s.catalog, keys)
	if err != nil {
		return Summary{}, err
	}

	now := s.now()
	return Summary{
		Token:         NewToken(s.prefix, now),
		Lines:         lines,
		Total:         total,
		Comment:       normalizeComment(comment),
		PaymentMethod: strings.TrimSpace(paymentMethod),
		CreatedAt:     now,
	}, nil
}

func normalizeComment(comment string) string {
	comment = strings.ReplaceAll(comment, "\r\n", "\n")
	return strings.TrimSpace(comment)
}
