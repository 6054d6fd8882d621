package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"telegram-food-bot/menu"
	"telegram-food-bot/orders"
)

type recordingSender struct {
	chatID int64
	text   string
	err    error
}

func (s *recordingSender) SendText(_ context.Context, chatID int64, text string) error {
	s.chatID, s.text = chatID, text
	return s.err
}

type failing struct{ err error }

func (f failing) OrderPlaced(context.Context, orders.Record) error { return f.err }

func record(t *testing.T) orders.Record {
	t.Helper()
	s, err := orders.NewSummarizer(menu.Default(), "RB").Summarize([]string{"burger", "burger", "fries"}, "no onions", "cash")
	if err != nil {
		t.Fatalf("Summarize returned error: %v", err)
	}
	return orders.NewRecord(s, 99, "alice")
}

func TestDispatcher(t *testing.T) {
	if NewDispatcher(&recordingSender{}, 0) != nil {
		t.Fatalf("expected nil dispatcher without a chat id")
	}

	sender := &recordingSender{}
	r := record(t)
	if err := NewDispatcher(sender, 1155).OrderPlaced(context.Background(), r); err != nil {
		t.Fatalf("OrderPlaced returned error: %v", err)
	}
	if sender.chatID != 1155 {
		t.Fatalf("sent to %d, want 1155", sender.chatID)
	}
	for _, want := range []string{"#" + r.Token, "@alice", "• 2× Burger = 300.00", "Total: 400.00", "Comment: no onions"} {
		if !strings.Contains(sender.text, want) {
			t.Errorf("dispatcher text missing %q:\n%s", want, sender.text)
		}
	}
}

func TestDispatcherWrapsSendError(t *testing.T) {
	boom := errors.New("telegram down")
	err := NewDispatcher(&recordingSender{err: boom}, 1).OrderPlaced(context.Background(), record(t))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestMultiJoinsErrors(t *testing.T) {
	a, b := errors.New("a"), errors.New("b")
	sender := &recordingSender{}
	m := Multi{failing{a}, NewDispatcher(sender, 7), failing{b}}

	err := m.OrderPlaced(context.Background(), record(t))
	if !errors.Is(err, a) || !errors.Is(err, b) {
		t.Fatalf("expected both errors, got %v", err)
	}
	if sender.text == "" {
		t.Fatalf("a failing notifier must not stop the others")
	}
}
