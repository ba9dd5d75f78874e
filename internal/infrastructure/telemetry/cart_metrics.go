package telemetry

import (
	"context"
	"errors"

	"github.com/astrogoddess/storefront/internal/domain/cart"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when CartMetrics is built without a meter
var ErrMeterNil = errors.New("meter cannot be nil")

// Attribute keys on cart metrics
const (
	AttrCartOperation = "cart.operation"
	AttrBookingEmpty  = "booking.empty"
)

// OrderValueBuckets are histogram boundaries for booked order totals in EUR
var OrderValueBuckets = []float64{10, 25, 50, 100, 250, 500, 1000, 2500}

// CartMetrics records cart activity counters
type CartMetrics struct {
	operations       *Counter
	itemsAdded       *Counter
	bookingsCaptured *Counter
	bookedCents      *Counter
	orderValue       *Histogram
}

// NewCartMetrics creates the cart instruments on meter
func NewCartMetrics(meter metric.Meter) (*CartMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	var (
		m   CartMetrics
		err error
	)
	if m.operations, err = NewCounter(meter, "cart_operations_total",
		"Persisted cart mutations by operation", "{operation}"); err != nil {
		return nil, err
	}
	if m.itemsAdded, err = NewCounter(meter, "cart_items_added_total",
		"Items added to carts", "{item}"); err != nil {
		return nil, err
	}
	if m.bookingsCaptured, err = NewCounter(meter, "cart_bookings_captured_total",
		"Booking forms submitted with a staged order", "{booking}"); err != nil {
		return nil, err
	}
	if m.bookedCents, err = NewCounter(meter, "cart_booked_order_total_cents",
		"Sum of booked order totals in euro cents", "{cent}"); err != nil {
		return nil, err
	}
	if m.orderValue, err = NewHistogram(meter, "cart_booked_order_value",
		"Distribution of booked order totals", "EUR", OrderValueBuckets); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordCartChanged counts one persisted cart mutation
func (m *CartMetrics) RecordCartChanged(ctx context.Context, op string) {
	m.operations.Inc(ctx, attribute.String(AttrCartOperation, op))
	if op == cart.OpAdd {
		m.itemsAdded.Inc(ctx)
	}
}

// RecordBookingCaptured counts a booking and adds its order total
func (m *CartMetrics) RecordBookingCaptured(ctx context.Context, orderTotal decimal.Decimal, empty bool) {
	m.bookingsCaptured.Inc(ctx, attribute.Bool(AttrBookingEmpty, empty))

	cents := orderTotal.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	if cents > 0 {
		m.bookedCents.Add(ctx, cents)
	}
	value, _ := orderTotal.Float64()
	m.orderValue.Record(ctx, value)
}
