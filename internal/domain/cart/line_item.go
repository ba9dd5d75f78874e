package cart

import (
	"strconv"
	"strings"
	"time"

	"github.com/astrogoddess/storefront/internal/domain/shared"
	"github.com/astrogoddess/storefront/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// DefaultItemName is used when neither a name nor a heading is supplied
const DefaultItemName = "Service"

// timeNow is swapped in tests to make timestamp ids deterministic
var timeNow = time.Now

// LineItem is one service entry in the cart.
// Price is fixed when the item is added; only Qty changes afterwards.
type LineItem struct {
	ID       string
	Name     string
	Category string
	Price    decimal.Decimal
	Qty      int
}

// Attributes carries the raw values an "add to cart" control exposes.
// Heading and Section are the visible card heading and section title,
// used as fallbacks when the explicit attributes are blank.
type Attributes struct {
	ID       string
	Name     string
	Category string
	Price    string
	Heading  string
	Section  string
}

// NewLineItem builds a LineItem with Qty 1 from raw attributes.
//
// Fallbacks for blank attributes:
//   - id: heading text, then the current Unix time in milliseconds
//   - name: heading text, then DefaultItemName
//   - category: section title, then ""
//   - price: 0
//
// Timestamp ids are not stable across reloads and two headings with the same
// text share an id; callers that need stable identity must send an explicit id.
func NewLineItem(attrs Attributes) (LineItem, error) {
	heading := strings.TrimSpace(attrs.Heading)

	id := firstNonBlank(attrs.ID, heading)
	if id == "" {
		id = strconv.FormatInt(timeNow().UnixMilli(), 10)
	}

	name := firstNonBlank(attrs.Name, heading)
	if name == "" {
		name = DefaultItemName
	}

	price := decimal.Zero
	if raw := strings.TrimSpace(attrs.Price); raw != "" {
		p, err := decimal.NewFromString(raw)
		if err != nil {
			return LineItem{}, shared.NewDomainError("INVALID_PRICE", "Price must be a number")
		}
		price = p
	}
	if price.IsNegative() {
		return LineItem{}, shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}

	return LineItem{
		ID:       id,
		Name:     name,
		Category: firstNonBlank(attrs.Category, attrs.Section),
		Price:    price,
		Qty:      1,
	}, nil
}

// PriceMoney returns the unit price as Money
func (i LineItem) PriceMoney() valueobject.Money {
	return valueobject.NewMoneyEUR(i.Price)
}

// LineTotal returns price × qty
func (i LineItem) LineTotal() valueobject.Money {
	return i.PriceMoney().MultiplyByInt(int64(i.Qty))
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
