package cart

import (
	"context"
	"fmt"

	"github.com/astrogoddess/storefront/internal/domain/cart"
	"github.com/astrogoddess/storefront/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BookingLogHandler is the default booking sink: it writes each captured
// booking to the log so nothing is lost when no form backend is wired.
type BookingLogHandler struct {
	logger *zap.Logger
}

// NewBookingLogHandler creates a new handler for booking captured events
func NewBookingLogHandler(logger *zap.Logger) *BookingLogHandler {
	return &BookingLogHandler{logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *BookingLogHandler) EventTypes() []string {
	return []string{cart.EventTypeBookingCaptured}
}

// Handle logs a BookingCapturedEvent
func (h *BookingLogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	booking, ok := event.(*cart.BookingCapturedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			cart.EventTypeBookingCaptured, event.EventType())
	}

	h.logger.Info("booking received",
		zap.String("event_id", booking.EventID().String()),
		zap.String("name", booking.Booking.Name),
		zap.String("email", booking.Booking.Email),
		zap.String("date", booking.Booking.Date),
		zap.String("order_total", booking.OrderTotal),
		zap.Strings("lines", booking.Lines),
	)
	return nil
}

// ActivityRecorder receives cart activity, typically as metrics
type ActivityRecorder interface {
	RecordCartChanged(ctx context.Context, op string)
	RecordBookingCaptured(ctx context.Context, orderTotal decimal.Decimal, empty bool)
}

// CartActivityHandler logs cart changes at debug level and feeds cart
// and booking activity to an optional ActivityRecorder. It runs next to
// whichever booking sink is configured.
type CartActivityHandler struct {
	logger   *zap.Logger
	recorder ActivityRecorder
}

// ActivityOption configures a CartActivityHandler
type ActivityOption func(*CartActivityHandler)

// WithActivityRecorder records every handled event on r
func WithActivityRecorder(r ActivityRecorder) ActivityOption {
	return func(h *CartActivityHandler) {
		h.recorder = r
	}
}

// NewCartActivityHandler creates a new handler for cart activity events
func NewCartActivityHandler(logger *zap.Logger, opts ...ActivityOption) *CartActivityHandler {
	h := &CartActivityHandler{logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *CartActivityHandler) EventTypes() []string {
	return []string{cart.EventTypeCartChanged, cart.EventTypeBookingCaptured}
}

// Handle logs a CartChangedEvent and records cart and booking activity
func (h *CartActivityHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *cart.CartChangedEvent:
		h.logger.Debug("cart changed",
			zap.String("cart", e.AggregateID()),
			zap.String("op", e.Operation),
			zap.Int("lines", e.LineCount),
			zap.Int("qty", e.TotalQty),
			zap.String("subtotal", e.Subtotal.String()),
		)
		if h.recorder != nil {
			h.recorder.RecordCartChanged(ctx, e.Operation)
		}
		return nil

	case *cart.BookingCapturedEvent:
		if h.recorder == nil {
			return nil
		}
		total, err := decimal.NewFromString(e.OrderTotal)
		if err != nil {
			return fmt.Errorf("invalid order total %q: %w", e.OrderTotal, err)
		}
		h.recorder.RecordBookingCaptured(ctx, total, e.Empty)
		return nil

	default:
		return fmt.Errorf("unexpected event type: expected %s or %s, got %s",
			cart.EventTypeCartChanged, cart.EventTypeBookingCaptured, event.EventType())
	}
}
