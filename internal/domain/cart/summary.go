package cart

import (
	"fmt"

	"github.com/astrogoddess/storefront/internal/domain/shared/valueobject"
)

// EmptySummaryLine is the single summary line shown for an empty cart
const EmptySummaryLine = "No items."

// Summary is the cart staged for a booking form submission
type Summary struct {
	// ItemsJSON is the serialized item list, identical to the persisted format
	ItemsJSON string
	// Total is the subtotal as a plain decimal string, e.g. "25" or "12.5"
	Total string
	// Lines holds one human-readable line per item, or EmptySummaryLine
	Lines []string
	Empty bool
}

// Project builds the order summary for items. It does not modify items.
func Project(items []LineItem) Summary {
	total := subtotalOf(items)
	summary := Summary{
		ItemsJSON: Encode(items),
		Total:     total.Amount().String(),
		Empty:     len(items) == 0,
	}

	if summary.Empty {
		summary.Lines = []string{EmptySummaryLine}
		return summary
	}

	summary.Lines = make([]string, len(items))
	for i, item := range items {
		summary.Lines[i] = SummaryLine(item)
	}
	return summary
}

// SummaryLine renders "name × qty — €total (category)". The parentheses are
// always present, so an item without a category ends in "()".
func SummaryLine(item LineItem) string {
	return fmt.Sprintf("%s × %d — %s (%s)", item.Name, item.Qty, item.LineTotal().Display(), item.Category)
}

func subtotalOf(items []LineItem) valueobject.Money {
	total := valueobject.ZeroEUR()
	for _, item := range items {
		total = total.MustAdd(item.LineTotal())
	}
	return total
}
