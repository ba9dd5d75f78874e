package cart

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"
)

// itemRecord is the persisted shape of a LineItem
type itemRecord struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Category string      `json:"category"`
	Price    json.Number `json:"price"`
	Qty      json.Number `json:"qty"`
}

// Encode serializes items as a JSON array. A nil or empty cart encodes as "[]".
func Encode(items []LineItem) string {
	records := make([]itemRecord, len(items))
	for i, item := range items {
		records[i] = itemRecord{
			ID:       item.ID,
			Name:     item.Name,
			Category: item.Category,
			Price:    json.Number(item.Price.String()),
			Qty:      json.Number(strconv.Itoa(item.Qty)),
		}
	}
	// marshalling plain strings and numbers cannot fail
	data, _ := json.Marshal(records)
	return string(data)
}

// Decode parses a persisted cart. It reports ok=false for anything that is
// not a well-formed cart: invalid JSON, a non-array document, items with an
// empty or duplicate id, a negative or non-numeric price, or a qty that is
// not an integer >= 1. "null" and "[]" decode to an empty cart.
func Decode(raw string) (items []LineItem, ok bool) {
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 {
		return nil, false
	}

	var records []itemRecord
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, false
	}

	items = make([]LineItem, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r.ID == "" {
			return nil, false
		}
		if _, dup := seen[r.ID]; dup {
			return nil, false
		}
		seen[r.ID] = struct{}{}

		price, err := decimal.NewFromString(r.Price.String())
		if err != nil || price.IsNegative() {
			return nil, false
		}
		qty, err := strconv.Atoi(r.Qty.String())
		if err != nil || qty < 1 {
			return nil, false
		}

		items = append(items, LineItem{
			ID:       r.ID,
			Name:     r.Name,
			Category: r.Category,
			Price:    price,
			Qty:      qty,
		})
	}
	return items, true
}
