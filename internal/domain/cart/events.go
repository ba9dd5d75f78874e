package cart

import (
	"github.com/astrogoddess/storefront/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeCart = "Cart"

// Event type constants
const (
	EventTypeCartChanged     = "CartChanged"
	EventTypeBookingCaptured = "BookingCaptured"
)

// CartChangedEvent is raised after a cart mutation has been persisted
type CartChangedEvent struct {
	shared.BaseDomainEvent
	Operation string          `json:"operation"`
	LineCount int             `json:"line_count"`
	TotalQty  int             `json:"total_qty"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// NewCartChangedEvent creates a CartChangedEvent for the cart stored under key
func NewCartChangedEvent(key, op string, view View) *CartChangedEvent {
	return &CartChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCartChanged, AggregateTypeCart, key),
		Operation:       op,
		LineCount:       len(view.Lines),
		TotalQty:        view.Count,
		Subtotal:        view.Subtotal.Amount(),
	}
}

// Booking is the contact data submitted alongside a staged order
type Booking struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Date    string `json:"date,omitempty"`
	Message string `json:"message,omitempty"`
}

// BookingCapturedEvent is raised when a booking form is submitted with the staged order
type BookingCapturedEvent struct {
	shared.BaseDomainEvent
	Booking    Booking  `json:"booking"`
	OrderItems string   `json:"order_items"`
	OrderTotal string   `json:"order_total"`
	Lines      []string `json:"lines"`
	Empty      bool     `json:"empty"`
}

// NewBookingCapturedEvent creates a BookingCapturedEvent from the summary staged at submit time
func NewBookingCapturedEvent(key string, booking Booking, summary Summary) *BookingCapturedEvent {
	return &BookingCapturedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBookingCaptured, AggregateTypeCart, key),
		Booking:         booking,
		OrderItems:      summary.ItemsJSON,
		OrderTotal:      summary.Total,
		Lines:           summary.Lines,
		Empty:           summary.Empty,
	}
}
