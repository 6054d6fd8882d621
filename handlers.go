package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"telegram-food-bot/cart"
	"telegram-food-bot/invoice"
	"telegram-food-bot/menu"
	"telegram-food-bot/notify"
	"telegram-food-bot/orders"
)

const (
	msgEmptyCart      = "❌ Cart is empty."
	msgOrderFailed    = "⚠️ Something went wrong processing your order. Please try again."
	msgGenericFailure = "⚠️ Something went wrong. Please try again."
	msgInvoiceFailed  = "⚠️ Failed to generate invoice, but your order is confirmed."
	invoiceCaption    = "📄 Here's your order invoice!"

	buttonMenu = "📋 Menu"
	buttonCart = "🛒 Cart"
)

// Deps are the collaborators of an OrderBot.
type Deps struct {
	Gateway    Gateway
	Catalog    *menu.Catalog
	Carts      *cart.Service
	Summarizer *orders.Summarizer
	Renderer   *invoice.Renderer
	Journal    orders.Journal
	// Notifier may be nil.
	Notifier notify.Notifier
	ShopName string
	// WebAppURL is the menu page opened by the welcome button. Without it the
	// welcome falls back to a reply keyboard.
	WebAppURL string
	Log       *slog.Logger
}

// OrderBot turns Telegram messages into cart and order operations.
type OrderBot struct {
	gateway    Gateway
	catalog    *menu.Catalog
	carts      *cart.Service
	summarizer *orders.Summarizer
	renderer   *invoice.Renderer
	journal    orders.Journal
	notifier   notify.Notifier
	shopName   string
	webAppURL  string
	log        *slog.Logger
}

func NewOrderBot(d Deps) *OrderBot {
	return &OrderBot{
		gateway:    d.Gateway,
		catalog:    d.Catalog,
		carts:      d.Carts,
		summarizer: d.Summarizer,
		renderer:   d.Renderer,
		journal:    d.Journal,
		notifier:   d.Notifier,
		shopName:   d.ShopName,
		webAppURL:  d.WebAppURL,
		log:        d.Log,
	}
}

// HandleUpdate processes one update. Only messages are handled.
func (b *OrderBot) HandleUpdate(ctx context.Context, u update) {
	msg := u.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID

	if msg.WebAppData != nil {
		b.handleWebAppData(ctx, msg)
		return
	}

	command := ""
	if msg.IsCommand() {
		command = msg.Command()
	} else {
		switch strings.TrimSpace(msg.Text) {
		case buttonMenu:
			command = "menu"
		case buttonCart:
			command = "cart"
		}
	}

	switch command {
	case "start":
		if err := b.carts.Reset(ctx, chatID); err != nil {
			b.log.Error("failed to reset cart", "action", "cart_reset_failed", "chat_id", chatID, "error", err)
		}
		b.sendWelcome(ctx, chatID)
	case "menu":
		b.sendPriceList(ctx, chatID)
	case "cart":
		b.sendCart(ctx, chatID, "")
	case "checkout":
		b.placeOrder(ctx, chatID, displayName(msg.From), nil, false, "", "")
	case "clear":
		if err := b.carts.Clear(ctx, chatID); err != nil {
			b.log.Error("failed to clear cart", "action", "cart_clear_failed", "chat_id", chatID, "error", err)
			b.reply(ctx, chatID, msgGenericFailure)
			return
		}
		b.reply(ctx, chatID, "🧹 Your cart is empty now.")
	default:
		b.sendWelcome(ctx, chatID)
	}
}

func (b *OrderBot) handleWebAppData(ctx context.Context, msg *message) {
	chatID := msg.Chat.ID
	log := b.log.With("chat_id", chatID)

	// The service message only echoes the button text.
	if err := b.gateway.DeleteMessage(ctx, chatID, msg.MessageID); err != nil {
		log.Debug("could not delete web app message", "action", "delete_failed", "error", err)
	}

	sub, err := orders.ParseSubmission([]byte(msg.WebAppData.Data))
	if err != nil {
		log.Warn("rejected web app payload", "action", "payload_rejected", "error", err)
		b.reply(ctx, chatID, msgOrderFailed)
		return
	}

	if sub.Single {
		b.addToCart(ctx, chatID, sub.Keys())
		return
	}
	b.placeOrder(ctx, chatID, displayName(msg.From), sub.Keys(), true, sub.Comment, sub.PaymentMethod)
}

func (b *OrderBot) addToCart(ctx context.Context, chatID int64, keys []string) {
	res, err := b.carts.Add(ctx, chatID, keys)
	if err != nil {
		b.log.Error("failed to add to cart", "action", "cart_add_failed", "chat_id", chatID, "error", err)
		b.reply(ctx, chatID, msgGenericFailure)
		return
	}
	if len(res.Accepted) == 0 {
		b.reply(ctx, chatID, fmt.Sprintf("❌ %s is not on the menu.", strings.Join(unique(res.Rejected), ", ")))
		return
	}

	item, _ := b.catalog.Lookup(res.Accepted[0])
	b.sendCart(ctx, chatID, fmt.Sprintf("✅ Added %s to your cart.\n\n", item.DisplayName()))
}

// placeOrder summarizes and confirms an order. With replace set, keys become
// the cart; otherwise the stored cart is checked out.
func (b *OrderBot) placeOrder(ctx context.Context, chatID int64, username string, keys []string, replace bool, comment, paymentMethod string) {
	log := b.log.With("chat_id", chatID)

	confirmed := false
	place := func(res cart.Result) error {
		summary, err := b.summarizer.Summarize(res.Accepted, comment, paymentMethod)
		if err != nil {
			return err
		}
		b.complete(ctx, log, chatID, username, summary, res.Rejected)
		confirmed = true
		return nil
	}

	var (
		res cart.Result
		err error
	)
	if replace {
		res, err = b.carts.Submit(ctx, chatID, keys, place)
	} else {
		err = b.carts.Checkout(ctx, chatID, place)
	}

	switch {
	case err == nil:
	case confirmed:
		// The user already has the confirmation; only the cart clear failed.
		log.Error("failed to clear cart after order", "action", "cart_clear_failed", "error", err)
	case errors.Is(err, orders.ErrEmptyCart):
		log.Info("order for empty cart", "action", "empty_cart", "rejected", res.Rejected)
		text := msgEmptyCart
		if len(res.Rejected) > 0 {
			text += "\n\nNot on the menu: " + strings.Join(unique(res.Rejected), ", ")
		}
		b.reply(ctx, chatID, text)
	default:
		log.Error("order failed", "action", "order_failed", "error", err)
		b.reply(ctx, chatID, msgOrderFailed)
	}
}

// complete records, announces and confirms an accepted order. Nothing here
// fails the order; problems are logged and reported in the confirmation.
func (b *OrderBot) complete(ctx context.Context, log *slog.Logger, chatID int64, username string, summary orders.Summary, rejected []string) {
	log = log.With("token", summary.Token)
	log.Info("order placed", "action", "order_placed", "items", summary.Quantity(), "total", summary.Total.StringFixed(2))

	record := orders.NewRecord(summary, chatID, username)
	if err := b.journal.Save(ctx, record); err != nil {
		log.Error("failed to journal order", "action", "journal_failed", "error", err)
	}
	if b.notifier != nil {
		if err := b.notifier.OrderPlaced(ctx, record); err != nil {
			log.Warn("failed to notify about order", "action", "notify_failed", "error", err)
		}
	}

	text := orders.Confirmation(summary, b.catalog.Currency())
	if len(rejected) > 0 {
		text += "\n\n⚠️ Not on the menu, skipped: " + strings.Join(unique(rejected), ", ")
	}
	if err := b.sendInvoice(ctx, chatID, summary); err != nil {
		var renderErr *invoice.RenderError
		if errors.As(err, &renderErr) {
			log.Error("failed to render invoice", "action", "invoice_failed", "error", err)
		} else {
			log.Error("failed to deliver invoice", "action", "invoice_delivery_failed", "error", err)
		}
		text += "\n\n" + msgInvoiceFailed
	}
	b.reply(ctx, chatID, text)
}

func (b *OrderBot) sendInvoice(ctx context.Context, chatID int64, summary orders.Summary) error {
	file, err := b.renderer.Render(summary, chatID)
	if err != nil {
		return err
	}
	defer func() {
		if err := file.Remove(); err != nil {
			b.log.Warn("failed to remove invoice", "action", "invoice_cleanup_failed", "path", file.Path, "error", err)
		}
	}()

	f, err := file.Open()
	if err != nil {
		return &invoice.RenderError{Token: summary.Token, Err: err}
	}
	defer f.Close()

	return b.gateway.SendDocument(ctx, chatID, file.Name, f, invoiceCaption)
}

func (b *OrderBot) sendCart(ctx context.Context, chatID int64, prefix string) {
	keys, err := b.carts.Get(ctx, chatID)
	if err != nil {
		b.log.Error("failed to read cart", "action", "cart_read_failed", "chat_id", chatID, "error", err)
		b.reply(ctx, chatID, msgGenericFailure)
		return
	}
	lines, total, err := orders.Group(b.catalog, keys)
	if err != nil {
		b.log.Error("cart holds unknown items", "action", "cart_read_failed", "chat_id", chatID, "error", err)
		b.reply(ctx, chatID, msgGenericFailure)
		return
	}

	text := prefix + orders.CartText(lines, total, b.catalog.Currency())
	if len(lines) > 0 {
		text += "\n\nSend /checkout to place your order."
	}
	b.reply(ctx, chatID, text)
}

func (b *OrderBot) sendWelcome(ctx context.Context, chatID int64) {
	text := fmt.Sprintf("🍔 Welcome to %s! 🍔\n\n"+
		"Use this bot to order fictional fast food, the only fast food that is good for your health!\n\n", b.shopName)

	var err error
	if b.webAppURL != "" {
		err = b.gateway.SendWebAppButton(ctx, chatID, text+"Tap the button below to view the menu and place your order! 🎉", "🍽 Open Menu", b.webAppURL)
	} else {
		err = b.gateway.SendKeyboard(ctx, chatID, text+"Send /menu for prices or /cart to see your order.", buttonMenu, buttonCart)
	}
	if err != nil {
		b.log.Error("failed to send welcome", "action", "welcome_failed", "chat_id", chatID, "error", err)
		b.reply(ctx, chatID, msgGenericFailure)
	}
}

func (b *OrderBot) sendPriceList(ctx context.Context, chatID int64) {
	currency := b.catalog.Currency()
	var sb strings.Builder
	sb.WriteString("📋 Our menu:\n\n")
	for _, it := range b.catalog.Items() {
		fmt.Fprintf(&sb, "• %s - %s\n", it.DisplayName(), currency.Format(it.Price))
	}
	b.reply(ctx, chatID, strings.TrimRight(sb.String(), "\n"))
}

func (b *OrderBot) reply(ctx context.Context, chatID int64, text string) {
	if err := b.gateway.SendText(ctx, chatID, text); err != nil {
		b.log.Error("failed to send message", "action", "delivery_failed", "chat_id", chatID, "error", err)
	}
}

// unique drops repeated keys, keeping first-seen order.
func unique(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
