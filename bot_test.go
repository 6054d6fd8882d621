package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-food-bot/logger"
)

// fakeAPI answers Bot API calls in-process.
type fakeAPI struct {
	mu       sync.Mutex
	requests []*http.Request
	forms    []map[string]string
	replies  map[string][]string
	// hold, when set, keeps getUpdates waiting until it is closed.
	hold chan struct{}
}

func (f *fakeAPI) Do(req *http.Request) (*http.Response, error) {
	method := path.Base(req.URL.Path)
	if method == "getUpdates" && f.hold != nil {
		<-f.hold
	}

	form := map[string]string{}
	if strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/") {
		if err := req.ParseMultipartForm(1 << 20); err != nil {
			return nil, err
		}
		for k, v := range req.MultipartForm.Value {
			form[k] = v[0]
		}
		for k, v := range req.MultipartForm.File {
			form[k+".filename"] = v[0].Filename
		}
	} else if err := req.ParseForm(); err == nil {
		for k, v := range req.PostForm {
			form[k] = v[0]
		}
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.forms = append(f.forms, form)
	body := `{"ok":true,"result":true}`
	if queue := f.replies[method]; len(queue) > 0 {
		body = queue[0]
		if len(queue) > 1 {
			f.replies[method] = queue[1:]
		}
	}
	f.mu.Unlock()

	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}, nil
}

func (f *fakeAPI) formFor(t *testing.T, method string) map[string]string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		if path.Base(f.requests[i].URL.Path) == method {
			return f.forms[i]
		}
	}
	t.Fatalf("no %s request", method)
	return nil
}

const sentMessage = `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`

func newFakeGateway(t *testing.T, replies map[string][]string) (*TelegramGateway, *fakeAPI) {
	t.Helper()
	if replies == nil {
		replies = map[string][]string{}
	}
	replies["getMe"] = []string{`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Food","username":"food_bot"}}`}
	fake := &fakeAPI{replies: replies}
	api, err := tgbotapi.NewBotAPIWithClient("123:abc", tgbotapi.APIEndpoint, fake)
	if err != nil {
		t.Fatalf("NewBotAPIWithClient: %v", err)
	}
	g := NewTelegramGateway(api, logger.Discard())
	g.retryDelay = time.Millisecond
	return g, fake
}

func TestGatewaySendText(t *testing.T) {
	g, fake := newFakeGateway(t, map[string][]string{"sendMessage": {sentMessage}})

	if err := g.SendText(context.Background(), 42, "hello"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	form := fake.formFor(t, "sendMessage")
	if form["chat_id"] != "42" || form["text"] != "hello" {
		t.Fatalf("unexpected form %v", form)
	}
}

func TestGatewaySendWebAppButton(t *testing.T) {
	g, fake := newFakeGateway(t, map[string][]string{"sendMessage": {sentMessage}})

	if err := g.SendWebAppButton(context.Background(), 42, "welcome", "Open Menu", "https://example.org/menu"); err != nil {
		t.Fatalf("SendWebAppButton: %v", err)
	}
	markup := fake.formFor(t, "sendMessage")["reply_markup"]
	want := `{"inline_keyboard":[[{"text":"Open Menu","web_app":{"url":"https://example.org/menu"}}]]}`
	if markup != want {
		t.Fatalf("reply_markup = %s, want %s", markup, want)
	}
}

func TestGatewaySendDocument(t *testing.T) {
	g, fake := newFakeGateway(t, map[string][]string{"sendDocument": {sentMessage}})

	err := g.SendDocument(context.Background(), 42, "invoice_RB1.pdf", strings.NewReader("%PDF-1.3"), invoiceCaption)
	if err != nil {
		t.Fatalf("SendDocument: %v", err)
	}
	form := fake.formFor(t, "sendDocument")
	if form["document.filename"] != "invoice_RB1.pdf" || form["caption"] != invoiceCaption || form["chat_id"] != "42" {
		t.Fatalf("unexpected upload %v", form)
	}
}

func TestGatewayErrorsAreDeliveryErrors(t *testing.T) {
	g, _ := newFakeGateway(t, map[string][]string{
		"sendMessage": {`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`},
	})

	err := g.SendText(context.Background(), 42, "hello")
	var delivery *DeliveryError
	if !errors.As(err, &delivery) || delivery.ChatID != 42 {
		t.Fatalf("expected DeliveryError, got %v", err)
	}
	if !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("error lacks API description: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := g.DeleteMessage(ctx, 42, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}

func TestGatewayPoll(t *testing.T) {
	g, fake := newFakeGateway(t, map[string][]string{
		"getUpdates": {
			`{"ok":true,"result":[{"update_id":10,"message":{"message_id":3,"date":0,
				"chat":{"id":42,"type":"private"},
				"web_app_data":{"data":"{\"item\":\"taco\"}","button_text":"Open Menu"}}}]}`,
			`{"ok":true,"result":[]}`,
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan update, 1)
	done := make(chan error, 1)
	go func() {
		done <- g.Poll(ctx, 2, func(_ context.Context, u update) { got <- u })
	}()

	select {
	case u := <-got:
		if u.Message == nil || u.Message.WebAppData == nil || u.Message.WebAppData.Data != `{"item":"taco"}` {
			t.Fatalf("unexpected update %+v", u)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no update delivered")
	}

	// Wait until the next poll acknowledges update 10.
	deadline := time.Now().Add(5 * time.Second)
	for fake.formFor(t, "getUpdates")["offset"] != "11" {
		if time.Now().After(deadline) {
			t.Fatalf("offset never advanced")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Poll returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Poll did not stop")
	}
}

func TestGatewayPollKeepsChatOrder(t *testing.T) {
	g, _ := newFakeGateway(t, map[string][]string{
		"getUpdates": {
			`{"ok":true,"result":[
				{"update_id":10,"message":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"},"text":"first"}},
				{"update_id":11,"message":{"message_id":2,"date":0,"chat":{"id":42,"type":"private"},"text":"second"}},
				{"update_id":12,"message":{"message_id":3,"date":0,"chat":{"id":7,"type":"private"},"text":"other"}}]}`,
			`{"ok":true,"result":[]}`,
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu      sync.Mutex
		handled []string
	)
	all := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- g.Poll(ctx, 16, func(_ context.Context, u update) {
			if u.Message.Text == "first" {
				time.Sleep(50 * time.Millisecond)
			}
			mu.Lock()
			defer mu.Unlock()
			handled = append(handled, u.Message.Text)
			if len(handled) == 3 {
				close(all)
			}
		})
	}()

	select {
	case <-all:
	case <-time.After(5 * time.Second):
		t.Fatalf("updates not handled, got %v", handled)
	}
	cancel()
	<-done

	var chat42 []string
	for _, text := range handled {
		if text != "other" {
			chat42 = append(chat42, text)
		}
	}
	if len(chat42) != 2 || chat42[0] != "first" || chat42[1] != "second" {
		t.Fatalf("chat 42 handled as %v, want [first second]", chat42)
	}
	// The other chat is not stuck behind the slow one.
	if handled[0] != "other" {
		t.Fatalf("handled = %v, want the other chat first", handled)
	}
}

func TestGatewayPollStopsDuringLongPoll(t *testing.T) {
	g, fake := newFakeGateway(t, nil)
	fake.hold = make(chan struct{})
	t.Cleanup(func() { close(fake.hold) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- g.Poll(ctx, 2, func(context.Context, update) {})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Poll returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Poll kept waiting on the pending getUpdates")
	}
}
