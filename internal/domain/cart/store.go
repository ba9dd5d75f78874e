package cart

import (
	"context"
	"math"

	"github.com/astrogoddess/storefront/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// MaxQty caps a single line's quantity
const MaxQty = math.MaxInt32

// Operation names passed to observers and error handlers
const (
	OpLoad      = "load"
	OpAdd       = "add"
	OpRemove    = "remove"
	OpSetQty    = "set_qty"
	OpIncrement = "increment"
	OpDecrement = "decrement"
	OpClear     = "clear"
)

// Observer is notified after every applied mutation, once the cart has been persisted
type Observer interface {
	CartChanged(ctx context.Context, op string, view View)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(ctx context.Context, op string, view View)

// CartChanged implements Observer
func (f ObserverFunc) CartChanged(ctx context.Context, op string, view View) {
	f(ctx, op, view)
}

// ErrorHandler receives storage failures. The cart never returns them:
// a failed read leaves the cart empty and a failed write keeps the
// in-memory change.
type ErrorHandler func(ctx context.Context, op string, err error)

// Store is an ordered list of line items mirrored to Storage under one key.
// A Store is owned by a single caller and is not safe for concurrent use.
type Store struct {
	storage   Storage
	key       string
	items     []LineItem
	observers []Observer
	onError   ErrorHandler
}

// StoreOption is a functional option for Store configuration
type StoreOption func(*Store)

// WithObserver registers an observer
func WithObserver(o Observer) StoreOption {
	return func(s *Store) {
		s.observers = append(s.observers, o)
	}
}

// WithErrorHandler sets the handler for storage failures
func WithErrorHandler(h ErrorHandler) StoreOption {
	return func(s *Store) {
		s.onError = h
	}
}

// NewStore creates an empty Store bound to key. Call Load to restore a saved cart.
func NewStore(storage Storage, key string, opts ...StoreOption) *Store {
	s := &Store{
		storage: storage,
		key:     key,
		items:   make([]LineItem, 0),
		onError: func(context.Context, string, error) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the storage key this store persists under
func (s *Store) Key() string {
	return s.key
}

// Load replaces the in-memory cart with the persisted one.
// Missing, unreadable or malformed data yields an empty cart.
func (s *Store) Load(ctx context.Context) {
	s.items = make([]LineItem, 0)

	raw, found, err := s.storage.Get(ctx, s.key)
	if err != nil {
		s.onError(ctx, OpLoad, err)
		return
	}
	if !found {
		return
	}
	if items, ok := Decode(raw); ok {
		s.items = items
	}
}

// Add merges item into the cart: an existing line with the same id gets
// qty+1, otherwise item is appended with qty 1.
func (s *Store) Add(ctx context.Context, item LineItem) {
	if idx := s.indexOf(item.ID); idx >= 0 {
		s.items[idx].Qty = capQty(int64(s.items[idx].Qty) + 1)
	} else {
		item.Qty = 1
		s.items = append(s.items, item)
	}
	s.commit(ctx, OpAdd)
}

// Remove deletes the line at index. Out-of-range indexes are ignored.
func (s *Store) Remove(ctx context.Context, index int) {
	if !s.inRange(index) {
		return
	}
	s.items = append(s.items[:index], s.items[index+1:]...)
	s.commit(ctx, OpRemove)
}

// SetQty sets the quantity at index from a raw input value. Non-finite
// values become 1, fractions are truncated and the result is at least 1.
func (s *Store) SetQty(ctx context.Context, index int, value float64) {
	if !s.inRange(index) {
		return
	}
	s.items[index].Qty = NormalizeQty(value)
	s.commit(ctx, OpSetQty)
}

// Increment adds one to the quantity at index
func (s *Store) Increment(ctx context.Context, index int) {
	if !s.inRange(index) {
		return
	}
	s.items[index].Qty = capQty(int64(s.items[index].Qty) + 1)
	s.commit(ctx, OpIncrement)
}

// Decrement subtracts one from the quantity at index, never going below 1.
// At qty 1 the line stays and the cart is still re-persisted.
func (s *Store) Decrement(ctx context.Context, index int) {
	if !s.inRange(index) {
		return
	}
	if s.items[index].Qty > 1 {
		s.items[index].Qty--
	}
	s.commit(ctx, OpDecrement)
}

// Clear empties the cart
func (s *Store) Clear(ctx context.Context) {
	s.items = make([]LineItem, 0)
	s.commit(ctx, OpClear)
}

// Subtotal returns Σ price × qty
func (s *Store) Subtotal() valueobject.Money {
	return subtotalOf(s.items)
}

// SubtotalAmount returns the subtotal as a bare decimal
func (s *Store) SubtotalAmount() decimal.Decimal {
	return s.Subtotal().Amount()
}

// TotalQty returns Σ qty
func (s *Store) TotalQty() int {
	total := 0
	for _, item := range s.items {
		total += item.Qty
	}
	return total
}

// Len returns the number of lines
func (s *Store) Len() int {
	return len(s.items)
}

// Items returns a copy of the lines in display order
func (s *Store) Items() []LineItem {
	out := make([]LineItem, len(s.items))
	copy(out, s.items)
	return out
}

// View derives the current View
func (s *Store) View() View {
	return NewView(s.Items())
}

// Summary projects the current order summary
func (s *Store) Summary() Summary {
	return Project(s.items)
}

// NormalizeQty turns a raw quantity input into a valid quantity
func NormalizeQty(value float64) int {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 1
	}
	v := math.Trunc(value)
	if v < 1 {
		return 1
	}
	if v > MaxQty {
		return MaxQty
	}
	return int(v)
}

func (s *Store) commit(ctx context.Context, op string) {
	if err := s.storage.Set(ctx, s.key, Encode(s.items)); err != nil {
		s.onError(ctx, op, err)
	}

	if len(s.observers) == 0 {
		return
	}
	view := s.View()
	for _, o := range s.observers {
		o.CartChanged(ctx, op, view)
	}
}

func (s *Store) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) inRange(index int) bool {
	return index >= 0 && index < len(s.items)
}

func capQty(q int64) int {
	if q > MaxQty {
		return MaxQty
	}
	return int(q)
}
