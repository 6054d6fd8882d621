package orders

import (
	"errors"
	"fmt"
)

// ErrEmptyCart is returned when an order is placed with nothing in it.
var ErrEmptyCart = errors.New("cart is empty")

// MalformedPayloadError describes an order payload that cannot be used.
type MalformedPayloadError struct {
	Field   string
	Message string
	Err     error
}

func (e *MalformedPayloadError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("malformed order payload: %s", e.Message)
	}
	return fmt.Sprintf("malformed order payload: %s: %s", e.Field, e.Message)
}

func (e *MalformedPayloadError) Unwrap() error { return e.Err }

// IsMalformed helps callers tell a bad payload from an infrastructure failure.
func IsMalformed(err error) bool {
	var m *MalformedPayloadError
	return errors.As(err, &m)
}
