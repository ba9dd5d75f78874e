package cart

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/astrogoddess/storefront/internal/domain/cart"
	"github.com/astrogoddess/storefront/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type memoryStorage struct {
	mu     sync.Mutex
	data   map[string]string
	setErr error
	delErr error
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{data: make(map[string]string)}
}

func (m *memoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memoryStorage) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func (m *memoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.delErr != nil {
		return m.delErr
	}
	delete(m.data, key)
	return nil
}

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

func addReq(id, price string) AddItemRequest {
	return AddItemRequest{ID: id, Name: "Item " + id, Category: "Readings", Price: json.Number(price)}
}

func TestService_AddAndGet(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryStorage())

	_, err := svc.AddItem(ctx, "s1", addReq("a", "10"))
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "s1", addReq("a", "10"))
	require.NoError(t, err)
	resp, err := svc.AddItem(ctx, "s1", addReq("b", "5"))
	require.NoError(t, err)

	assert.Equal(t, 3, resp.Count)
	assert.Equal(t, "25", resp.Subtotal)
	assert.Equal(t, "€25.00", resp.SubtotalDisplay)
	assert.True(t, resp.HasItems)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, 2, resp.Items[0].Qty)
	assert.Equal(t, "€20.00", resp.Items[0].LineTotalDisplay)

	assert.Equal(t, resp, svc.Get(ctx, "s1"))
	assert.False(t, svc.Get(ctx, "s2").HasItems)
}

func TestService_AddItemRejectsBadPrice(t *testing.T) {
	svc := NewService(newMemoryStorage())
	_, err := svc.AddItem(context.Background(), "s1", addReq("a", "-3"))

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_PRICE", domainErr.Code)
}

func TestService_QuantityOperations(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryStorage())
	_, _ = svc.AddItem(ctx, "s1", addReq("a", "10"))

	assert.Equal(t, 2, svc.Increment(ctx, "s1", 0).Items[0].Qty)
	assert.Equal(t, 1, svc.Decrement(ctx, "s1", 0).Items[0].Qty)
	assert.Equal(t, 1, svc.Decrement(ctx, "s1", 0).Items[0].Qty)
	assert.Equal(t, 7, svc.SetQty(ctx, "s1", 0, "7.8").Items[0].Qty)
	assert.Equal(t, 1, svc.SetQty(ctx, "s1", 0, "abc").Items[0].Qty)
	assert.Equal(t, 1, svc.SetQty(ctx, "s1", 0, "-5").Items[0].Qty)
	assert.Equal(t, 1, svc.SetQty(ctx, "s1", 0, "").Items[0].Qty)

	resp := svc.Increment(ctx, "s1", 9)
	assert.Equal(t, 1, resp.Count)

	assert.False(t, svc.RemoveItem(ctx, "s1", 0).HasItems)
}

func TestService_Clear(t *testing.T) {
	ctx := context.Background()
	storage := newMemoryStorage()
	svc := NewService(storage)
	_, _ = svc.AddItem(ctx, "s1", addReq("a", "10"))

	resp := svc.Clear(ctx, "s1")
	assert.Equal(t, "0", resp.Subtotal)
	assert.Equal(t, "[]", storage.data[cart.SessionKey("s1")])
}

func TestService_Forget(t *testing.T) {
	ctx := context.Background()
	storage := newMemoryStorage()
	svc := NewService(storage)
	_, _ = svc.AddItem(ctx, "s1", addReq("a", "10"))
	_, _ = svc.AddItem(ctx, "s2", addReq("b", "5"))

	require.NoError(t, svc.Forget(ctx, "s1"))
	_, found := storage.data[cart.SessionKey("s1")]
	assert.False(t, found)
	assert.Contains(t, storage.data, cart.SessionKey("s2"))
	assert.False(t, svc.Get(ctx, "s1").HasItems)

	storage.delErr = errors.New("disk gone")
	err := svc.Forget(ctx, "s2")
	assert.ErrorContains(t, err, "forget cart ag_cart_v2:s2")
}

func TestService_Checkout(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryStorage())

	empty := svc.Checkout(ctx, "s1")
	assert.True(t, empty.Empty)
	assert.Equal(t, []string{cart.EmptySummaryLine}, empty.Lines)

	_, _ = svc.AddItem(ctx, "s1", addReq("a", "12.5"))
	summary := svc.Checkout(ctx, "s1")
	assert.Equal(t, "12.5", summary.OrderTotal)
	assert.Equal(t, []string{"Item a × 1 — €12.50 (Readings)"}, summary.Lines)
	assert.JSONEq(t, `[{"id":"a","name":"Item a","category":"Readings","price":12.5,"qty":1}]`, summary.OrderItems)
}

func TestService_SubmitBooking(t *testing.T) {
	ctx := context.Background()
	storage := newMemoryStorage()
	publisher := new(MockEventPublisher)
	svc := NewService(storage, WithEventPublisher(publisher))

	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(events []shared.DomainEvent) bool {
		return len(events) == 1 && events[0].EventType() == cart.EventTypeCartChanged
	})).Return(nil)

	var captured *cart.BookingCapturedEvent
	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(events []shared.DomainEvent) bool {
		return len(events) == 1 && events[0].EventType() == cart.EventTypeBookingCaptured
	})).Run(func(args mock.Arguments) {
		captured = args.Get(1).([]shared.DomainEvent)[0].(*cart.BookingCapturedEvent)
	}).Return(errors.New("broker down"))

	_, _ = svc.AddItem(ctx, "s1", addReq("a", "10"))
	_, _ = svc.AddItem(ctx, "s1", addReq("a", "10"))

	resp := svc.SubmitBooking(ctx, "s1", BookingRequest{Name: "Ada", Email: "ada@example.org"})

	assert.Equal(t, BookingCapturedMessage, resp.Message)
	require.NotNil(t, resp.Summary)
	assert.Equal(t, "20", resp.Summary.OrderTotal)

	require.NotNil(t, captured)
	assert.Equal(t, "Ada", captured.Booking.Name)
	assert.Equal(t, "20", captured.OrderTotal)
	assert.Equal(t, cart.SessionKey("s1"), captured.AggregateID())

	assert.Equal(t, "[]", storage.data[cart.SessionKey("s1")])
	assert.False(t, svc.Get(ctx, "s1").HasItems)
}

func TestService_SubmitContact(t *testing.T) {
	svc := NewService(newMemoryStorage())
	resp := svc.SubmitContact(context.Background(), ContactRequest{Name: "Ada", Email: "ada@example.org", Message: "hi"})
	assert.Equal(t, ContactCapturedMessage, resp.Message)
	assert.Nil(t, resp.Summary)
}

func TestService_PublishesCartChanged(t *testing.T) {
	ctx := context.Background()
	publisher := new(MockEventPublisher)
	svc := NewService(newMemoryStorage(), WithEventPublisher(publisher))

	var ops []string
	publisher.On("Publish", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		evt := args.Get(1).([]shared.DomainEvent)[0].(*cart.CartChangedEvent)
		ops = append(ops, evt.Operation)
	}).Return(nil)

	_, _ = svc.AddItem(ctx, "s1", addReq("a", "1"))
	svc.Increment(ctx, "s1", 0)
	svc.Increment(ctx, "s1", 5)
	svc.Clear(ctx, "s1")

	assert.Equal(t, []string{cart.OpAdd, cart.OpIncrement, cart.OpClear}, ops)
}

func TestService_StorageFailureKeepsResponse(t *testing.T) {
	storage := newMemoryStorage()
	storage.setErr = errors.New("disk full")
	svc := NewService(storage)

	resp, err := svc.AddItem(context.Background(), "s1", addReq("a", "10"))
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Count)
}

func TestService_ConcurrentSameSession(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryStorage())
	_, _ = svc.AddItem(ctx, "s1", addReq("a", "1"))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Increment(ctx, "s1", 0)
		}()
	}
	wg.Wait()

	assert.Equal(t, 51, svc.Get(ctx, "s1").Count)
	assert.Zero(t, svc.locks.size())
}

func TestParseQtyInput(t *testing.T) {
	assert.Equal(t, 1.0, ParseQtyInput(""))
	assert.Equal(t, 1.0, ParseQtyInput("  "))
	assert.Equal(t, 3.5, ParseQtyInput("3.5"))
	assert.True(t, math.IsNaN(ParseQtyInput("abc")))
	assert.True(t, math.IsInf(ParseQtyInput("Inf"), 1))
}

func TestSetQtyRequest_Raw(t *testing.T) {
	assert.Equal(t, "4", SetQtyRequest{Value: []byte(`"4"`)}.Raw())
	assert.Equal(t, "4.5", SetQtyRequest{Value: []byte(`4.5`)}.Raw())
	assert.Equal(t, "", SetQtyRequest{}.Raw())
}
