package cart

import (
	"context"
	"testing"

	"github.com/astrogoddess/storefront/internal/domain/cart"
	"github.com/astrogoddess/storefront/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestBookingLogHandler(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := NewBookingLogHandler(zap.New(core))
	assert.Equal(t, []string{cart.EventTypeBookingCaptured}, h.EventTypes())

	evt := cart.NewBookingCapturedEvent("k", cart.Booking{Name: "Ada", Email: "ada@example.org"}, cart.Project(nil))
	require.NoError(t, h.Handle(context.Background(), evt))

	entries := logs.FilterMessage("booking received").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "ada@example.org", entries[0].ContextMap()["email"])

	wrong := cart.NewCartChangedEvent("k", cart.OpAdd, cart.NewView(nil))
	assert.Error(t, h.Handle(context.Background(), wrong))
}

type recordedBooking struct {
	total decimal.Decimal
	empty bool
}

type fakeRecorder struct {
	ops      []string
	bookings []recordedBooking
}

func (r *fakeRecorder) RecordCartChanged(_ context.Context, op string) {
	r.ops = append(r.ops, op)
}

func (r *fakeRecorder) RecordBookingCaptured(_ context.Context, total decimal.Decimal, empty bool) {
	r.bookings = append(r.bookings, recordedBooking{total: total, empty: empty})
}

func TestCartActivityHandler(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := NewCartActivityHandler(zap.New(core))
	assert.ElementsMatch(t, []string{cart.EventTypeCartChanged, cart.EventTypeBookingCaptured}, h.EventTypes())

	require.NoError(t, h.Handle(context.Background(), cart.NewCartChangedEvent("k", cart.OpClear, cart.NewView(nil))))
	assert.Equal(t, 1, logs.FilterMessage("cart changed").Len())

	booking := cart.NewBookingCapturedEvent("k", cart.Booking{}, cart.Project(nil))
	assert.NoError(t, h.Handle(context.Background(), booking), "bookings are ignored without a recorder")
}

func TestCartActivityHandler_RecordsActivity(t *testing.T) {
	ctx := context.Background()
	recorder := &fakeRecorder{}
	h := NewCartActivityHandler(zap.NewNop(), WithActivityRecorder(recorder))

	items := []cart.LineItem{
		{ID: "a", Name: "Reading", Price: decimal.RequireFromString("12.5"), Qty: 2},
	}
	require.NoError(t, h.Handle(ctx, cart.NewCartChangedEvent("k", cart.OpAdd, cart.NewView(items))))
	require.NoError(t, h.Handle(ctx, cart.NewCartChangedEvent("k", cart.OpIncrement, cart.NewView(items))))
	require.NoError(t, h.Handle(ctx, cart.NewBookingCapturedEvent("k", cart.Booking{}, cart.Project(items))))
	require.NoError(t, h.Handle(ctx, cart.NewBookingCapturedEvent("k", cart.Booking{}, cart.Project(nil))))

	assert.Equal(t, []string{cart.OpAdd, cart.OpIncrement}, recorder.ops)
	require.Len(t, recorder.bookings, 2)
	assert.True(t, recorder.bookings[0].total.Equal(decimal.NewFromInt(25)))
	assert.False(t, recorder.bookings[0].empty)
	assert.True(t, recorder.bookings[1].total.IsZero())
	assert.True(t, recorder.bookings[1].empty)
}

func TestCartActivityHandler_RejectsOtherEvents(t *testing.T) {
	h := NewCartActivityHandler(zap.NewNop(), WithActivityRecorder(&fakeRecorder{}))

	bad := cart.NewBookingCapturedEvent("k", cart.Booking{}, cart.Project(nil))
	bad.OrderTotal = "n/a"
	assert.ErrorContains(t, h.Handle(context.Background(), bad), "invalid order total")

	other := &otherEvent{BaseDomainEvent: shared.NewBaseDomainEvent("Other", cart.AggregateTypeCart, "k")}
	assert.ErrorContains(t, h.Handle(context.Background(), other), "unexpected event type")
}

type otherEvent struct {
	shared.BaseDomainEvent
}
