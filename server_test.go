package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"telegram-food-bot/logger"
	"telegram-food-bot/menu"
	"telegram-food-bot/orders"
)

type recordingHandler struct {
	mu      sync.Mutex
	updates []update
}

func (h *recordingHandler) HandleUpdate(_ context.Context, u update) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates = append(h.updates, u)
}

func newTestServer(t *testing.T, bot updateHandler) (*httptest.Server, *orders.MemoryJournal) {
	t.Helper()
	journal := orders.NewMemoryJournal()
	srv := httptest.NewServer(NewServer(menu.Default(), journal, bot, logger.Discard()).Routes())
	t.Cleanup(srv.Close)
	return srv, journal
}

func TestServerPages(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	tests := []struct {
		path        string
		contentType string
		contains    string
	}{
		{"/", "text/plain", "Bot is running!"},
		{"/health", "application/json", `"status":"ok"`},
		{"/menu", "text/html", "Telegram.WebApp"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			if err != nil {
				t.Fatalf("GET: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, tt.contentType) {
				t.Fatalf("content type = %q", ct)
			}
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				t.Fatalf("read body: %v", err)
			}
			if !strings.Contains(string(body), tt.contains) {
				t.Fatalf("body lacks %q", tt.contains)
			}
		})
	}
}

func TestServerMenuAPI(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/api/menu")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var got menuResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Currency != "INR" || got.Symbol != "₹" {
		t.Fatalf("unexpected currency %+v", got)
	}
	if len(got.Items) != 6 {
		t.Fatalf("got %d items, want 6", len(got.Items))
	}
	if first := got.Items[0]; first.Key != "burger" || first.Price != "150.00" || first.Emoji != "🍔" {
		t.Fatalf("unexpected first item %+v", first)
	}
}

func TestServerOrdersAPI(t *testing.T) {
	srv, journal := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/api/orders")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var empty []orders.Record
	json.NewDecoder(resp.Body).Decode(&empty)
	resp.Body.Close()
	if empty == nil || len(empty) != 0 {
		t.Fatalf("want an empty JSON array, got %v", empty)
	}

	s, err := orders.NewSummarizer(menu.Default(), "RB").Summarize([]string{"taco"}, "", "card")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if err := journal.Save(context.Background(), orders.NewRecord(s, 7, "bob")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	resp, err = http.Get(srv.URL + "/api/orders")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	var got []orders.Record
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].Token != s.Token || got[0].Username != "bob" {
		t.Fatalf("unexpected orders %+v", got)
	}
}

func TestServerWebhook(t *testing.T) {
	bot := &recordingHandler{}
	srv, _ := newTestServer(t, bot)

	body := `{"update_id":10,"message":{"message_id":5,"date":1700000000,
		"chat":{"id":42,"type":"private"},"from":{"id":42,"is_bot":false,"first_name":"Alice"},
		"web_app_data":{"data":"{\"item\":\"burger\"}","button_text":"Open Menu"}}}`
	resp, err := http.Post(srv.URL+"/webhook", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	if len(bot.updates) != 1 {
		t.Fatalf("handler got %d updates", len(bot.updates))
	}
	msg := bot.updates[0].Message
	if msg == nil || msg.Chat.ID != 42 || msg.WebAppData == nil || msg.WebAppData.Data != `{"item":"burger"}` {
		t.Fatalf("unexpected update %+v", bot.updates[0])
	}

	resp, err = http.Post(srv.URL+"/webhook", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status for bad body = %d, want 400", resp.StatusCode)
	}
}

func TestServerWebhookOnlyWhenEnabled(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := http.Post(srv.URL+"/webhook", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		t.Fatalf("webhook served without a handler")
	}
}
