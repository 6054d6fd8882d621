// Package notify tells restaurant staff about new orders.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"telegram-food-bot/orders"
)

// Notifier is told about every accepted order.
type Notifier interface {
	OrderPlaced(ctx context.Context, r orders.Record) error
}

// Multi fans an order out to several notifiers and joins their errors.
type Multi []Notifier

func (m Multi) OrderPlaced(ctx context.Context, r orders.Record) error {
	var errs []error
	for _, n := range m {
		if err := n.OrderPlaced(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// TextSender delivers a plain text message to a chat.
type TextSender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// Dispatcher posts new orders into a staff chat.
type Dispatcher struct {
	sender TextSender
	chatID int64
}

// NewDispatcher returns nil when chatID is zero, i.e. no dispatcher chat is set.
func NewDispatcher(sender TextSender, chatID int64) *Dispatcher {
	if chatID == 0 {
		return nil
	}
	return &Dispatcher{sender: sender, chatID: chatID}
}

func (d *Dispatcher) OrderPlaced(ctx context.Context, r orders.Record) error {
	if err := d.sender.SendText(ctx, d.chatID, DispatcherText(r)); err != nil {
		return fmt.Errorf("notify dispatcher %d: %w", d.chatID, err)
	}
	return nil
}

// DispatcherText is the staff-facing summary of r.
func DispatcherText(r orders.Record) string {
	var b strings.Builder
	b.WriteString("🚨 NEW ORDER!\n\n")
	fmt.Fprintf(&b, "Token: #%s\n", r.Token)
	if r.Username != "" {
		fmt.Fprintf(&b, "Customer: @%s\n", r.Username)
	}
	fmt.Fprintf(&b, "Chat: %d\n", r.ChatID)
	for _, l := range r.Lines {
		fmt.Fprintf(&b, "• %d× %s = %s\n", l.Quantity, l.Name, l.Total.StringFixed(2))
	}
	fmt.Fprintf(&b, "Total: %s\n", r.Total.StringFixed(2))
	if r.PaymentMethod != "" {
		fmt.Fprintf(&b, "Payment: %s\n", r.PaymentMethod)
	}
	if r.Comment != "" {
		fmt.Fprintf(&b, "Comment: %s\n", r.Comment)
	}
	fmt.Fprintf(&b, "Time: %s", r.CreatedAt.Format("15:04 02.01.2006"))
	return b.String()
}
