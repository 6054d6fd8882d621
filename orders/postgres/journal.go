// Package postgres stores the order journal in PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"telegram-food-bot/orders"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
    id              BIGSERIAL PRIMARY KEY,
    token           TEXT          NOT NULL UNIQUE,
    chat_id         BIGINT        NOT NULL,
    username        TEXT          NOT NULL DEFAULT '',
    lines           JSONB         NOT NULL,
    total           NUMERIC(12,2) NOT NULL,
    comment         TEXT          NOT NULL DEFAULT '',
    payment_method  TEXT          NOT NULL DEFAULT '',
    status          TEXT          NOT NULL,
    created_at      TIMESTAMPTZ   NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_chat_id ON orders(chat_id, created_at);
`

// Journal implements orders.Journal on PostgreSQL.
type Journal struct {
	pool *pgxpool.Pool
}

// Open connects to dsn, retrying a few times while the database starts up,
// and applies the schema.
func Open(ctx context.Context, dsn string) (*Journal, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	var pool *pgxpool.Pool
	const maxRetries = 5
	for i := 0; i < maxRetries; i++ {
		pool, err = pgxpool.NewWithConfig(ctx, cfg)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = pool.Ping(pingCtx)
			cancel()
			if err == nil {
				break
			}
			pool.Close()
		}
		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(i+1) * 2 * time.Second):
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: connect after %d attempts: %w", maxRetries, err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: apply schema: %w", err)
	}
	return &Journal{pool: pool}, nil
}

// Close releases the pool.
func (j *Journal) Close() {
	j.pool.Close()
}

// Save appends r.
func (j *Journal) Save(ctx context.Context, r orders.Record) error {
	lines, err := json.Marshal(r.Lines)
	if err != nil {
		return fmt.Errorf("postgres: encode lines for %q: %w", r.Token, err)
	}
	_, err = j.pool.Exec(ctx,
		`INSERT INTO orders (token, chat_id, username, lines, total, comment, payment_method, status, created_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9)`,
		r.Token, r.ChatID, r.Username, string(lines), r.Total.StringFixed(2),
		r.Comment, r.PaymentMethod, r.Status, r.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("postgres: save order %q: %w", r.Token, err)
	}
	return nil
}

// List returns every order, newest first.
func (j *Journal) List(ctx context.Context) ([]orders.Record, error) {
	rows, err := j.pool.Query(ctx,
		`SELECT token, chat_id, username, lines::text, total::text, comment, payment_method, status, created_at
		FROM orders ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list orders: %w", err)
	}
	defer rows.Close()

	var out []orders.Record
	for rows.Next() {
		var (
			r     orders.Record
			lines string
			total string
		)
		if err := rows.Scan(&r.Token, &r.ChatID, &r.Username, &lines, &total, &r.Comment, &r.PaymentMethod, &r.Status, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan order: %w", err)
		}
		if err := json.Unmarshal([]byte(lines), &r.Lines); err != nil {
			return nil, fmt.Errorf("postgres: decode lines for %q: %w", r.Token, err)
		}
		if r.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("postgres: parse total for %q: %w", r.Token, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
