package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"time"
)

const (
	modePoll    = "poll"
	modeWebhook = "webhook"
)

// Config is read from flags, each defaulting to an environment variable.
type Config struct {
	Token            string
	Mode             string
	Port             int
	WebAppURL        string
	ShopName         string
	DispatcherChatID int64
	Workers          int

	CartBackend string
	RedisAddr   string
	CartTTL     time.Duration

	JournalDriver string
	JournalDSN    string

	AMQPURL      string
	AMQPExchange string

	InvoiceDir  string
	TokenPrefix string
	LogLevel    string
}

func parseConfig(args []string, getenv func(string) string) (Config, error) {
	env := func(key, fallback string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return fallback
	}

	port, err := strconv.Atoi(env("PORT", "8080"))
	if err != nil {
		return Config{}, fmt.Errorf("PORT: %w", err)
	}
	dispatcher, err := strconv.ParseInt(env("DISPATCHER_CHAT_ID", "0"), 10, 64)
	if err != nil {
		return Config{}, fmt.Errorf("DISPATCHER_CHAT_ID: %w", err)
	}
	workers, err := strconv.Atoi(env("WORKERS", "16"))
	if err != nil {
		return Config{}, fmt.Errorf("WORKERS: %w", err)
	}
	ttl, err := time.ParseDuration(env("CART_TTL", "24h"))
	if err != nil {
		return Config{}, fmt.Errorf("CART_TTL: %w", err)
	}

	set := flag.NewFlagSet("food-bot", flag.ContinueOnError)
	set.SetOutput(io.Discard)

	var cfg Config
	set.StringVar(&cfg.Token, "token", getenv("TELEGRAM_BOT_TOKEN"), "Telegram bot token")
	set.StringVar(&cfg.Mode, "mode", env("MODE", modePoll), "Update delivery: poll or webhook")
	set.IntVar(&cfg.Port, "port", port, "HTTP port for the menu page, APIs and webhook")
	set.StringVar(&cfg.WebAppURL, "web-app-url", getenv("WEB_APP_URL"), "Public URL of the menu Web App")
	set.StringVar(&cfg.ShopName, "shop-name", env("SHOP_NAME", "Raju Burger"), "Name used in the welcome message")
	set.Int64Var(&cfg.DispatcherChatID, "dispatcher", dispatcher, "Chat that receives new order notifications, 0 to disable")
	set.IntVar(&cfg.Workers, "workers", workers, "Updates handled concurrently in poll mode")
	set.StringVar(&cfg.CartBackend, "cart-backend", env("CART_BACKEND", "memory"), "Cart storage: memory or redis")
	set.StringVar(&cfg.RedisAddr, "redis-addr", getenv("REDIS_ADDR"), "Redis address for the redis cart backend")
	set.DurationVar(&cfg.CartTTL, "cart-ttl", ttl, "Idle time after which redis carts expire")
	set.StringVar(&cfg.JournalDriver, "journal", env("JOURNAL_DRIVER", "memory"), "Order journal: memory, sqlite or postgres")
	set.StringVar(&cfg.JournalDSN, "journal-dsn", getenv("JOURNAL_DSN"), "SQLite path or PostgreSQL DSN")
	set.StringVar(&cfg.AMQPURL, "amqp-url", getenv("AMQP_URL"), "RabbitMQ URL for order events, empty to disable")
	set.StringVar(&cfg.AMQPExchange, "amqp-exchange", env("AMQP_EXCHANGE", "orders"), "Fanout exchange for order events")
	set.StringVar(&cfg.InvoiceDir, "invoice-dir", getenv("INVOICE_DIR"), "Directory for invoice files, default system temp")
	set.StringVar(&cfg.TokenPrefix, "token-prefix", env("TOKEN_PREFIX", "RB"), "Prefix of order tokens")
	set.StringVar(&cfg.LogLevel, "log-level", env("LOG_LEVEL", "info"), "debug, info, warn or error")

	if err := set.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.Token == "" {
		errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN is required"))
	}
	if c.Mode != modePoll && c.Mode != modeWebhook {
		errs = append(errs, fmt.Errorf("mode %q: want poll or webhook", c.Mode))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	switch c.CartBackend {
	case "memory":
	case "redis":
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("redis cart backend needs REDIS_ADDR"))
		}
	default:
		errs = append(errs, fmt.Errorf("cart backend %q: want memory or redis", c.CartBackend))
	}
	switch c.JournalDriver {
	case "memory":
	case "sqlite", "postgres":
		if c.JournalDSN == "" {
			errs = append(errs, fmt.Errorf("%s journal needs JOURNAL_DSN", c.JournalDriver))
		}
	default:
		errs = append(errs, fmt.Errorf("journal %q: want memory, sqlite or postgres", c.JournalDriver))
	}
	return errors.Join(errs...)
}

func (c Config) address() string {
	return ":" + strconv.Itoa(c.Port)
}
