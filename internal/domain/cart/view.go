package cart

import "github.com/astrogoddess/storefront/internal/domain/shared/valueobject"

// LineView is one rendered cart row
type LineView struct {
	Index     int
	Item      LineItem
	LineTotal valueobject.Money
}

// View holds everything derived from the cart after a change:
// the badge count, the subtotal, the rendered rows and the order summary.
type View struct {
	Count    int
	Subtotal valueobject.Money
	HasItems bool
	Lines    []LineView
	Summary  Summary
}

// NewView derives a View from items
func NewView(items []LineItem) View {
	lines := make([]LineView, len(items))
	count := 0
	for i, item := range items {
		lines[i] = LineView{Index: i, Item: item, LineTotal: item.LineTotal()}
		count += item.Qty
	}
	return View{
		Count:    count,
		Subtotal: subtotalOf(items),
		HasItems: len(items) > 0,
		Lines:    lines,
		Summary:  Project(items),
	}
}
