// Package sqlite stores the order journal in a SQLite file.
//
// WAL mode is enabled so the HTTP orders endpoint can read while a handler
// writes.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"telegram-food-bot/orders"

	// Pure-Go driver, registered as "sqlite".
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    token           TEXT    NOT NULL UNIQUE,
    chat_id         INTEGER NOT NULL,
    username        TEXT    NOT NULL DEFAULT '',
    lines           TEXT    NOT NULL,
    total           TEXT    NOT NULL,
    comment         TEXT    NOT NULL DEFAULT '',
    payment_method  TEXT    NOT NULL DEFAULT '',
    status          TEXT    NOT NULL,
    created_at      TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_chat_id ON orders(chat_id, created_at);
`

const timeLayout = "2006-01-02T15:04:05.999999999Z"

// Journal implements orders.Journal on SQLite.
type Journal struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Journal, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	// One writer connection; SQLite serialises writes anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close releases the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Save appends r.
func (j *Journal) Save(ctx context.Context, r orders.Record) error {
	lines, err := json.Marshal(r.Lines)
	if err != nil {
		return fmt.Errorf("sqlite: encode lines for %q: %w", r.Token, err)
	}

	const q = `
		INSERT INTO orders
			(token, chat_id, username, lines, total, comment, payment_method, status, created_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = j.db.ExecContext(ctx, q,
		r.Token,
		r.ChatID,
		r.Username,
		string(lines),
		r.Total.StringFixed(2),
		r.Comment,
		r.PaymentMethod,
		r.Status,
		r.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save order %q: %w", r.Token, err)
	}
	return nil
}

// List returns every order, newest first.
func (j *Journal) List(ctx context.Context) ([]orders.Record, error) {
	const q = `
		SELECT token, chat_id, username, lines, total, comment, payment_method, status, created_at
		FROM   orders
		ORDER  BY id DESC`

	rows, err := j.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list orders: %w", err)
	}
	defer rows.Close()

	var out []orders.Record
	for rows.Next() {
		var (
			r         orders.Record
			lines     string
			total     string
			createdAt string
		)
		if err := rows.Scan(&r.Token, &r.ChatID, &r.Username, &lines, &total, &r.Comment, &r.PaymentMethod, &r.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan order: %w", err)
		}
		if err := json.Unmarshal([]byte(lines), &r.Lines); err != nil {
			return nil, fmt.Errorf("sqlite: decode lines for %q: %w", r.Token, err)
		}
		if r.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("sqlite: parse total for %q: %w", r.Token, err)
		}
		if r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: parse time %q: %w", createdAt, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
