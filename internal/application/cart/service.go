package cart

import (
	"context"
	"fmt"

	"github.com/astrogoddess/storefront/internal/domain/cart"
	"github.com/astrogoddess/storefront/internal/domain/shared"
	"github.com/astrogoddess/storefront/internal/infrastructure/logger"
	"github.com/astrogoddess/storefront/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Feedback messages shown after form submissions
const (
	BookingCapturedMessage = "Order captured locally ✅. Connect a form service (Netlify, Formspree…) to receive it."
	ContactCapturedMessage = "Message captured locally ✅. Connect a form service to receive emails."
)

// Service runs cart use cases for visitor sessions. Each call loads the
// session's cart from storage, applies one operation and lets the store
// persist it. Calls for the same session are serialised.
type Service struct {
	storage   cart.Storage
	publisher shared.EventPublisher
	logger    *zap.Logger
	locks     *sessionLocks
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithEventPublisher publishes cart and booking events to p
func WithEventPublisher(p shared.EventPublisher) ServiceOption {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithLogger sets the fallback logger used when the request context carries none
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService creates a cart service on top of storage
func NewService(storage cart.Storage, opts ...ServiceOption) *Service {
	s := &Service{
		storage: storage,
		logger:  zap.NewNop(),
		locks:   newSessionLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the session's cart
func (s *Service) Get(ctx context.Context, sessionID string) *CartResponse {
	var view cart.View
	s.withStore(ctx, sessionID, func(store *cart.Store) {
		view = store.View()
	})
	return ToCartResponse(view)
}

// AddItem merges an item into the cart. Only an invalid price is an error.
func (s *Service) AddItem(ctx context.Context, sessionID string, req AddItemRequest) (*CartResponse, error) {
	item, err := cart.NewLineItem(req.Attributes())
	if err != nil {
		return nil, err
	}

	var view cart.View
	s.withStore(ctx, sessionID, func(store *cart.Store) {
		store.Add(ctx, item)
		view = store.View()
	})
	return ToCartResponse(view), nil
}

// RemoveItem deletes the line at index; out-of-range indexes are ignored
func (s *Service) RemoveItem(ctx context.Context, sessionID string, index int) *CartResponse {
	return s.mutate(ctx, sessionID, func(store *cart.Store) { store.Remove(ctx, index) })
}

// SetQty applies a raw quantity input to the line at index
func (s *Service) SetQty(ctx context.Context, sessionID string, index int, raw string) *CartResponse {
	value := ParseQtyInput(raw)
	return s.mutate(ctx, sessionID, func(store *cart.Store) { store.SetQty(ctx, index, value) })
}

// Increment adds one to the line at index
func (s *Service) Increment(ctx context.Context, sessionID string, index int) *CartResponse {
	return s.mutate(ctx, sessionID, func(store *cart.Store) { store.Increment(ctx, index) })
}

// Decrement removes one from the line at index, keeping at least one
func (s *Service) Decrement(ctx context.Context, sessionID string, index int) *CartResponse {
	return s.mutate(ctx, sessionID, func(store *cart.Store) { store.Decrement(ctx, index) })
}

// Clear empties the cart
func (s *Service) Clear(ctx context.Context, sessionID string) *CartResponse {
	return s.mutate(ctx, sessionID, func(store *cart.Store) { store.Clear(ctx) })
}

// Checkout returns the order summary staged into the booking form
func (s *Service) Checkout(ctx context.Context, sessionID string) SummaryResponse {
	var summary cart.Summary
	s.withStore(ctx, sessionID, func(store *cart.Store) {
		summary = store.Summary()
	})
	return ToSummaryResponse(summary)
}

// SubmitBooking stages the current order with the booking details, hands
// both to the event publisher and clears the cart. Delivery failures are
// logged and never reach the visitor.
func (s *Service) SubmitBooking(ctx context.Context, sessionID string, req BookingRequest) *FeedbackResponse {
	ctx, span := telemetry.StartSpan(ctx, "cart.submit_booking")
	defer span.End()

	var summary cart.Summary
	s.withStore(ctx, sessionID, func(store *cart.Store) {
		summary = store.Summary()
		booking := cart.Booking{
			Name:    req.Name,
			Email:   req.Email,
			Phone:   req.Phone,
			Date:    req.Date,
			Message: req.Message,
		}
		s.publish(ctx, cart.NewBookingCapturedEvent(store.Key(), booking, summary))
		store.Clear(ctx)
	})

	s.log(ctx).Info("booking captured",
		zap.Int("lines", len(summary.Lines)),
		zap.String("order_total", summary.Total),
	)
	span.SetAttributes(
		attribute.Int("cart.lines", len(summary.Lines)),
		attribute.String("cart.order_total", summary.Total),
	)
	staged := ToSummaryResponse(summary)
	return &FeedbackResponse{Message: BookingCapturedMessage, Summary: &staged}
}

// SubmitContact acknowledges a contact form. Nothing is stored.
func (s *Service) SubmitContact(ctx context.Context, req ContactRequest) *FeedbackResponse {
	s.log(ctx).Info("contact message captured", zap.Int("message_length", len(req.Message)))
	return &FeedbackResponse{Message: ContactCapturedMessage}
}

// Forget removes the session's saved cart from storage. Unlike Clear it
// leaves no empty entry behind and publishes no event.
func (s *Service) Forget(ctx context.Context, sessionID string) error {
	key := cart.SessionKey(sessionID)
	unlock := s.locks.lock(key)
	defer unlock()

	if err := s.storage.Delete(ctx, key); err != nil {
		return fmt.Errorf("forget cart %s: %w", key, err)
	}
	s.log(ctx).Info("cart forgotten", zap.String("cart", key))
	return nil
}

func (s *Service) mutate(ctx context.Context, sessionID string, op func(*cart.Store)) *CartResponse {
	var view cart.View
	s.withStore(ctx, sessionID, func(store *cart.Store) {
		op(store)
		view = store.View()
	})
	return ToCartResponse(view)
}

// withStore runs fn against the session's freshly loaded cart while holding the session lock
func (s *Service) withStore(ctx context.Context, sessionID string, fn func(*cart.Store)) {
	key := cart.SessionKey(sessionID)
	unlock := s.locks.lock(key)
	defer unlock()

	store := cart.NewStore(s.storage, key,
		cart.WithErrorHandler(s.storageError),
		cart.WithObserver(cart.ObserverFunc(func(ctx context.Context, op string, view cart.View) {
			s.publish(ctx, cart.NewCartChangedEvent(key, op, view))
		})),
	)
	store.Load(ctx)
	fn(store)
}

func (s *Service) storageError(ctx context.Context, op string, err error) {
	s.log(ctx).Warn("cart storage failed", zap.String("op", op), zap.Error(err))
}

func (s *Service) publish(ctx context.Context, event shared.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log(ctx).Error("failed to publish event",
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
	}
}

func (s *Service) log(ctx context.Context) *zap.Logger {
	return logger.Enrich(ctx, logger.FromContextOr(ctx, s.logger))
}
