package orders

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MaxQuantity caps a single line of a submitted order.
const MaxQuantity = 99

// SubmittedItem is one line of a web menu order.
type SubmittedItem struct {
	Item     string
	Quantity int
}

// Submission is a validated web menu payload.
type Submission struct {
	Items         []SubmittedItem
	Comment       string
	PaymentMethod string
	// Single is set for the {"item": key} form that adds one dish to the cart
	// instead of placing an order.
	Single bool
}

// Keys expands quantities into cart keys, preserving line order.
func (s Submission) Keys() []string {
	var keys []string
	for _, it := range s.Items {
		for i := 0; i < it.Quantity; i++ {
			keys = append(keys, it.Item)
		}
	}
	return keys
}

// ParseSubmission decodes
//
//	{"items":[{"item":"burger","quantity":2}],"comment":"...","paymentMethod":"cash"}
//
// or the single-add form {"item":"burger"}.
func ParseSubmission(data []byte) (Submission, error) {
	var raw struct {
		Items *[]struct {
			Item     string `json:"item"`
			Quantity *int   `json:"quantity"`
		} `json:"items"`
		Item          *string `json:"item"`
		Comment       string  `json:"comment"`
		PaymentMethod string  `json:"paymentMethod"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Submission{}, &MalformedPayloadError{Message: "invalid JSON", Err: err}
	}

	sub := Submission{Comment: raw.Comment, PaymentMethod: raw.PaymentMethod}

	switch {
	case raw.Items != nil:
		for i, it := range *raw.Items {
			key := strings.TrimSpace(it.Item)
			if key == "" {
				return Submission{}, &MalformedPayloadError{Field: fmt.Sprintf("items[%d].item", i), Message: "item is required"}
			}
			if it.Quantity == nil {
				return Submission{}, &MalformedPayloadError{Field: fmt.Sprintf("items[%d].quantity", i), Message: "quantity is required"}
			}
			if q := *it.Quantity; q < 1 || q > MaxQuantity {
				return Submission{}, &MalformedPayloadError{
					Field:   fmt.Sprintf("items[%d].quantity", i),
					Message: fmt.Sprintf("quantity must be between 1 and %d", MaxQuantity),
				}
			}
			sub.Items = append(sub.Items, SubmittedItem{Item: key, Quantity: *it.Quantity})
		}
	case raw.Item != nil:
		key := strings.TrimSpace(*raw.Item)
		if key == "" {
			return Submission{}, &MalformedPayloadError{Field: "item", Message: "item is required"}
		}
		sub.Items = []SubmittedItem{{Item: key, Quantity: 1}}
		sub.Single = true
	default:
		return Submission{}, &MalformedPayloadError{Field: "items", Message: "items or item is required"}
	}
	return sub, nil
}
