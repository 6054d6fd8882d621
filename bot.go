package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Gateway is everything the order handlers need from the chat platform.
type Gateway interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendWebAppButton(ctx context.Context, chatID int64, text, buttonText, url string) error
	SendKeyboard(ctx context.Context, chatID int64, text string, buttons ...string) error
	SendDocument(ctx context.Context, chatID int64, name string, r io.Reader, caption string) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// DeliveryError is a failed outbound Telegram call.
type DeliveryError struct {
	Op     string
	ChatID int64
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s to chat %d: %v", e.Op, e.ChatID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// TelegramGateway talks to the Bot API through telegram-bot-api.
type TelegramGateway struct {
	api         *tgbotapi.BotAPI
	log         *slog.Logger
	pollTimeout int
	retryDelay  time.Duration
}

func NewTelegramGateway(api *tgbotapi.BotAPI, log *slog.Logger) *TelegramGateway {
	return &TelegramGateway{
		api:         api,
		log:         log,
		pollTimeout: 30,
		retryDelay:  3 * time.Second,
	}
}

func (g *TelegramGateway) SendText(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return &DeliveryError{Op: "send message", ChatID: chatID, Err: err}
	}
	if _, err := g.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return &DeliveryError{Op: "send message", ChatID: chatID, Err: err}
	}
	return nil
}

// SendWebAppButton sends text with an inline button that opens url as a
// Telegram Web App.
func (g *TelegramGateway) SendWebAppButton(ctx context.Context, chatID int64, text, buttonText, url string) error {
	if err := ctx.Err(); err != nil {
		return &DeliveryError{Op: "send menu button", ChatID: chatID, Err: err}
	}
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", chatID)
	params.AddNonEmpty("text", text)
	markup := inlineKeyboard{InlineKeyboard: [][]inlineButton{{{Text: buttonText, WebApp: &webAppInfo{URL: url}}}}}
	if err := params.AddInterface("reply_markup", markup); err != nil {
		return &DeliveryError{Op: "send menu button", ChatID: chatID, Err: err}
	}
	if _, err := g.api.MakeRequest("sendMessage", params); err != nil {
		return &DeliveryError{Op: "send menu button", ChatID: chatID, Err: err}
	}
	return nil
}

func (g *TelegramGateway) SendDocument(ctx context.Context, chatID int64, name string, r io.Reader, caption string) error {
	if err := ctx.Err(); err != nil {
		return &DeliveryError{Op: "send document", ChatID: chatID, Err: err}
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileReader{Name: name, Reader: r})
	doc.Caption = caption
	if _, err := g.api.Send(doc); err != nil {
		return &DeliveryError{Op: "send document", ChatID: chatID, Err: err}
	}
	return nil
}

func (g *TelegramGateway) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return &DeliveryError{Op: "delete message", ChatID: chatID, Err: err}
	}
	if _, err := g.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return &DeliveryError{Op: "delete message", ChatID: chatID, Err: err}
	}
	return nil
}

// Poll long-polls getUpdates until ctx is cancelled. Updates are spread over
// workers goroutines by chat id, so one chat's updates run in arrival order
// while different chats run in parallel. Poll waits for queued updates to be
// handled before returning.
func (g *TelegramGateway) Poll(ctx context.Context, workers int, handle func(context.Context, update)) error {
	if workers < 1 {
		workers = 1
	}

	// Handlers finish their reply even if shutdown starts mid-way.
	handlerCtx := context.WithoutCancel(ctx)

	queues := make([]chan update, workers)
	var wg sync.WaitGroup
	for i := range queues {
		queues[i] = make(chan update, 64)
		wg.Add(1)
		go func(q <-chan update) {
			defer wg.Done()
			for u := range q {
				handle(handlerCtx, u)
			}
		}(queues[i])
	}
	defer func() {
		for _, q := range queues {
			close(q)
		}
		wg.Wait()
	}()

	offset := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		updates, err := g.awaitUpdates(ctx, offset)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			g.log.Warn("getUpdates failed", "action", "poll_failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(g.retryDelay):
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			select {
			case queues[shard(u, workers)] <- u:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// awaitUpdates returns as soon as ctx is cancelled. The SDK call itself cannot
// be cancelled; its result is dropped and, never acknowledged, is delivered
// again on the next start.
func (g *TelegramGateway) awaitUpdates(ctx context.Context, offset int) ([]update, error) {
	type result struct {
		updates []update
		err     error
	}
	done := make(chan result, 1)
	go func() {
		updates, err := g.getUpdates(offset)
		done <- result{updates, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.updates, r.err
	}
}

func shard(u update, workers int) int {
	if u.Message == nil || u.Message.Chat == nil {
		return 0
	}
	return int(uint64(u.Message.Chat.ID) % uint64(workers))
}

func (g *TelegramGateway) getUpdates(offset int) ([]update, error) {
	params := tgbotapi.Params{}
	params.AddNonZero("offset", offset)
	params.AddNonZero("timeout", g.pollTimeout)
	if err := params.AddInterface("allowed_updates", []string{"message"}); err != nil {
		return nil, err
	}

	resp, err := g.api.MakeRequest("getUpdates", params)
	if err != nil {
		return nil, err
	}
	var updates []update
	if err := json.Unmarshal(resp.Result, &updates); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}
	return updates, nil
}

// SendKeyboard sends text with a one-row reply keyboard of buttons.
func (g *TelegramGateway) SendKeyboard(ctx context.Context, chatID int64, text string, buttons ...string) error {
	if err := ctx.Err(); err != nil {
		return &DeliveryError{Op: "send keyboard", ChatID: chatID, Err: err}
	}
	row := make([]tgbotapi.KeyboardButton, 0, len(buttons))
	for _, b := range buttons {
		row = append(row, tgbotapi.NewKeyboardButton(b))
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewReplyKeyboard(row)
	if _, err := g.api.Send(msg); err != nil {
		return &DeliveryError{Op: "send keyboard", ChatID: chatID, Err: err}
	}
	return nil
}
