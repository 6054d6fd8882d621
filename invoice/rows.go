package invoice

import (
	"strconv"

	"github.com/shopspring/decimal"

	"telegram-food-bot/menu"
	"telegram-food-bot/orders"
)

// RowKind tells the renderer how to style a row.
type RowKind int

const (
	HeaderRow RowKind = iota
	ItemRow
	TotalRow
)

// Row is one line of the invoice table: item, quantity, unit price, line total.
type Row struct {
	Kind  RowKind
	Cells [4]string
}

// Rows lays out the invoice table for s: a header, one row per distinct item
// in summary order, and the total.
func Rows(s orders.Summary, currency menu.Currency) []Row {
	rows := make([]Row, 0, len(s.Lines)+2)
	rows = append(rows, Row{Kind: HeaderRow, Cells: [4]string{"Item", "Quantity", "Price", "Total"}})
	for _, l := range s.Lines {
		rows = append(rows, Row{
			Kind: ItemRow,
			Cells: [4]string{
				l.Item.Name,
				strconv.Itoa(l.Count),
				amount(currency, l.Item.Price),
				amount(currency, l.Total),
			},
		})
	}
	rows = append(rows, Row{Kind: TotalRow, Cells: [4]string{"Total", "", "", amount(currency, s.Total)}})
	return rows
}

func amount(c menu.Currency, d decimal.Decimal) string {
	return c.Plain + " " + d.StringFixed(2)
}
