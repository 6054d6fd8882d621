package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-food-bot/cart"
	"telegram-food-bot/invoice"
	"telegram-food-bot/logger"
	"telegram-food-bot/menu"
	"telegram-food-bot/notify"
	"telegram-food-bot/orders"
	"telegram-food-bot/orders/postgres"
	"telegram-food-bot/orders/sqlite"
)

func main() {
	cfg, err := parseConfig(os.Args[1:], os.Getenv)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	log := logger.New("food-bot", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("bot stopped", "action", "service_failed", "error", err)
		os.Exit(1)
	}
	log.Info("bot stopped", "action", "service_stopped")
}

func run(ctx context.Context, cfg Config, log *slog.Logger) error {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return fmt.Errorf("authorize bot: %w", err)
	}
	log.Info("authorized", "action", "bot_authorized", "username", api.Self.UserName)
	gateway := NewTelegramGateway(api, log)

	catalog := menu.Default()

	backend, closeBackend, err := openCartBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	journal, closeJournal, err := openJournal(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeJournal()

	notifier, closeNotifier, err := openNotifier(cfg, gateway)
	if err != nil {
		return err
	}
	defer closeNotifier()

	bot := NewOrderBot(Deps{
		Gateway:    gateway,
		Catalog:    catalog,
		Carts:      cart.NewService(catalog, backend),
		Summarizer: orders.NewSummarizer(catalog, cfg.TokenPrefix),
		Renderer:   invoice.NewRenderer(catalog.Currency(), invoice.WithDir(cfg.InvoiceDir), invoice.WithTitle(cfg.ShopName+" Order Invoice")),
		Journal:    journal,
		Notifier:   notifier,
		ShopName:   cfg.ShopName,
		WebAppURL:  cfg.WebAppURL,
		Log:        log,
	})

	var webhook updateHandler
	if cfg.Mode == modeWebhook {
		webhook = bot
	}
	server := &http.Server{
		Addr:         cfg.address(),
		Handler:      NewServer(catalog, journal, webhook, log).Routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("http server listening", "action", "http_started", "addr", server.Addr, "mode", cfg.Mode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	pollDone := make(chan struct{})
	if cfg.Mode == modePoll {
		go func() {
			defer close(pollDone)
			if err := gateway.Poll(ctx, cfg.Workers, bot.HandleUpdate); err != nil {
				errCh <- fmt.Errorf("polling: %w", err)
			}
		}()
	} else {
		close(pollDone)
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "action", "http_shutdown_failed", "error", err)
	}
	if runErr == nil {
		<-pollDone
	}
	return runErr
}

func openCartBackend(ctx context.Context, cfg Config) (cart.Backend, func(), error) {
	if cfg.CartBackend != "redis" {
		return cart.NewMemory(), func() {}, nil
	}
	r := cart.NewRedis(cfg.RedisAddr, cfg.CartTTL)
	if err := r.Ping(ctx); err != nil {
		r.Close()
		return nil, nil, fmt.Errorf("redis cart backend: %w", err)
	}
	return r, func() { r.Close() }, nil
}

func openJournal(ctx context.Context, cfg Config) (orders.Journal, func(), error) {
	switch cfg.JournalDriver {
	case "sqlite":
		j, err := sqlite.Open(cfg.JournalDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite journal: %w", err)
		}
		return j, func() { j.Close() }, nil
	case "postgres":
		j, err := postgres.Open(ctx, cfg.JournalDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres journal: %w", err)
		}
		return j, j.Close, nil
	default:
		return orders.NewMemoryJournal(), func() {}, nil
	}
}

// openNotifier combines the dispatcher chat and the AMQP publisher, whichever
// are configured. The result is nil when neither is.
func openNotifier(cfg Config, sender notify.TextSender) (notify.Notifier, func(), error) {
	var (
		multi  notify.Multi
		closer = func() {}
	)
	if d := notify.NewDispatcher(sender, cfg.DispatcherChatID); d != nil {
		multi = append(multi, d)
	}
	if cfg.AMQPURL != "" {
		p, err := notify.DialPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, nil, fmt.Errorf("amqp publisher: %w", err)
		}
		multi = append(multi, p)
		closer = func() { p.Close() }
	}
	if len(multi) == 0 {
		return nil, closer, nil
	}
	return multi, closer, nil
}
