package orders

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// StatusNew is the status of an order that staff have not picked up yet.
const StatusNew = "new"

// RecordLine is a persisted order line.
type RecordLine struct {
	Key       string          `json:"key"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
}

// Record is an accepted order as kept in the journal.
type Record struct {
	Token         string          `json:"token"`
	ChatID        int64           `json:"chat_id"`
	Username      string          `json:"username"`
	Lines         []RecordLine    `json:"lines"`
	Total         decimal.Decimal `json:"total"`
	Comment       string          `json:"comment,omitempty"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewRecord captures summary for the journal.
func NewRecord(s Summary, chatID int64, username string) Record {
	lines := make([]RecordLine, 0, len(s.Lines))
	for _, l := range s.Lines {
		lines = append(lines, RecordLine{
			Key:       l.Item.Key,
			Name:      l.Item.Name,
			Quantity:  l.Count,
			UnitPrice: l.Item.Price,
			Total:     l.Total,
		})
	}
	return Record{
		Token:         s.Token,
		ChatID:        chatID,
		Username:      username,
		Lines:         lines,
		Total:         s.Total,
		Comment:       s.Comment,
		PaymentMethod: s.PaymentMethod,
		Status:        StatusNew,
		CreatedAt:     s.CreatedAt.UTC(),
	}
}

// Journal is an append-only log of accepted orders.
type Journal interface {
	Save(ctx context.Context, r Record) error
	List(ctx context.Context) ([]Record, error)
}

// MemoryJournal keeps orders for the life of the process.
type MemoryJournal struct {
	mu     sync.Mutex
	orders []Record
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{orders: make([]Record, 0)}
}

func (j *MemoryJournal) Save(_ context.Context, r Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.orders = append(j.orders, r)
	return nil
}

// List returns the newest order first.
func (j *MemoryJournal) List(_ context.Context) ([]Record, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Record, 0, len(j.orders))
	for i := len(j.orders) - 1; i >= 0; i-- {
		out = append(out, j.orders[i])
	}
	return out, nil
}
