// Package cart keeps each user's in-progress order.
//
// A cart is an ordered list of menu keys with repeats. Keys are checked
// against the catalog on the way in, so everything read back can be priced.
// Operations on one user are serialised. Users are spread over a fixed set of
// lock stripes, so memory does not grow with the number of users seen.
package cart

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"telegram-food-bot/menu"
)

// Backend stores raw cart contents. Implementations need not validate keys.
type Backend interface {
	Append(ctx context.Context, userID int64, keys []string) error
	Items(ctx context.Context, userID int64) ([]string, error)
	Replace(ctx context.Context, userID int64, keys []string) error
}

// UnknownItemError lists keys that are not on the menu.
type UnknownItemError struct {
	Keys []string
}

func (e *UnknownItemError) Error() string {
	return fmt.Sprintf("unknown menu items: %s", strings.Join(e.Keys, ", "))
}

// Result reports which keys of a request made it into the cart.
type Result struct {
	Accepted []string
	Rejected []string
}

// Err returns an *UnknownItemError when some keys were rejected.
func (r Result) Err() error {
	if len(r.Rejected) == 0 {
		return nil
	}
	return &UnknownItemError{Keys: append([]string(nil), r.Rejected...)}
}

// Service validates keys and serialises access per user.
type Service struct {
	catalog *menu.Catalog
	backend Backend
	locks   [lockStripes]sync.Mutex
}

const lockStripes = 256

// NewService builds a cart service over backend.
func NewService(catalog *menu.Catalog, backend Backend) *Service {
	return &Service{catalog: catalog, backend: backend}
}

// stripe maps a user id, negative for group chats, to a lock index.
func stripe(userID int64) int {
	return int(uint64(userID) % lockStripes)
}

func (s *Service) lock(userID int64) func() {
	mu := &s.locks[stripe(userID)]
	mu.Lock()
	return mu.Unlock
}

func (s *Service) split(keys []string) Result {
	var res Result
	for _, key := range keys {
		if s.catalog.Has(key) {
			res.Accepted = append(res.Accepted, key)
			continue
		}
		res.Rejected = append(res.Rejected, key)
	}
	return res
}

// Reset makes the user's cart empty.
func (s *Service) Reset(ctx context.Context, userID int64) error {
	defer s.lock(userID)()
	if err := s.backend.Replace(ctx, userID, nil); err != nil {
		return fmt.Errorf("reset cart %d: %w", userID, err)
	}
	return nil
}

// Add appends every known key in order. Unknown keys are skipped and listed
// in Result.Rejected; they do not fail the call.
func (s *Service) Add(ctx context.Context, userID int64, keys []string) (Result, error) {
	res := s.split(keys)
	if len(res.Accepted) == 0 {
		return res, nil
	}

	defer s.lock(userID)()
	if err := s.backend.Append(ctx, userID, res.Accepted); err != nil {
		return Result{}, fmt.Errorf("add to cart %d: %w", userID, err)
	}
	return res, nil
}

// Get returns the user's cart, empty if the user has none.
func (s *Service) Get(ctx context.Context, userID int64) ([]string, error) {
	defer s.lock(userID)()
	items, err := s.backend.Items(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read cart %d: %w", userID, err)
	}
	if items == nil {
		items = []string{}
	}
	return items, nil
}

// Clear empties the user's cart. Clearing an empty cart is a no-op.
func (s *Service) Clear(ctx context.Context, userID int64) error {
	defer s.lock(userID)()
	if err := s.backend.Replace(ctx, userID, nil); err != nil {
		return fmt.Errorf("clear cart %d: %w", userID, err)
	}
	return nil
}

// Submit replaces the cart with the known keys and runs fn while holding the
// user's lock. The cart is cleared when fn returns nil.
func (s *Service) Submit(ctx context.Context, userID int64, keys []string, fn func(Result) error) (Result, error) {
	res := s.split(keys)

	defer s.lock(userID)()
	if err := s.backend.Replace(ctx, userID, res.Accepted); err != nil {
		return Result{}, fmt.Errorf("replace cart %d: %w", userID, err)
	}
	return res, s.finish(ctx, userID, res, fn)
}

// Checkout runs fn over the stored cart and clears it when fn returns nil.
func (s *Service) Checkout(ctx context.Context, userID int64, fn func(Result) error) error {
	defer s.lock(userID)()
	items, err := s.backend.Items(ctx, userID)
	if err != nil {
		return fmt.Errorf("read cart %d: %w", userID, err)
	}
	return s.finish(ctx, userID, Result{Accepted: items}, fn)
}

func (s *Service) finish(ctx context.Context, userID int64, res Result, fn func(Result) error) error {
	if err := fn(res); err != nil {
		return err
	}
	if err := s.backend.Replace(ctx, userID, nil); err != nil {
		return fmt.Errorf("clear cart %d: %w", userID, err)
	}
	return nil
}
