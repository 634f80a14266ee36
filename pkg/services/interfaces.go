package services

import (
	"context"
	"time"

	"ordercore-api-io/api/pkg/coupons"
	"ordercore-api-io/api/pkg/models"
	"ordercore-api-io/api/pkg/util"

	"github.com/shopspring/decimal"
)

// SessionService defines the cart and coupon operations of an order-creation session
type SessionService interface {
	Open(ctx context.Context, req models.OpenSessionRequest) (models.SessionView, error)
	Get(ctx context.Context, sessionID string) (models.SessionView, error)
	Totals(ctx context.Context, sessionID string) (models.Totals, error)
	Close(ctx context.Context, sessionID string) error

	AddItem(ctx context.Context, sessionID string, req models.CartItemRequest) (models.SessionView, error)
	UpdateQuantity(ctx context.Context, sessionID, itemID string, quantity int) (models.SessionView, error)
	SetPriceOverride(ctx context.Context, sessionID, itemID string, price *decimal.Decimal) (models.SessionView, error)
	RemoveItem(ctx context.Context, sessionID, itemID string) (models.SessionView, error)
	ClearCart(ctx context.Context, sessionID string) (models.SessionView, error)
	SetShipping(ctx context.Context, sessionID string, amount decimal.Decimal) (models.SessionView, error)

	SetAutoApply(ctx context.Context, sessionID string, enabled bool) (models.SessionView, error)
	ApplyCoupon(ctx context.Context, sessionID, code string) (models.AppliedCoupon, error)
	RemoveCoupon(ctx context.Context, sessionID, code string) (models.SessionView, error)
}

// OrderService defines order submission for a session
type OrderService interface {
	Submit(ctx context.Context, sessionID string, customer models.Customer) (models.SubmitResult, error)
	ConfirmPayment(ctx context.Context, sessionID string, confirmation models.PaymentConfirmation) (models.SubmitResult, error)
	RecentOrders(ctx context.Context, pagination util.PaginationArgs) ([]models.LedgerEntry, int64, error)
}

// CouponValidator is the remote coupon service.
type CouponValidator interface {
	Validate(ctx context.Context, code string, cart coupons.CartState) coupons.ValidationOutcome
	Revalidate(ctx context.Context, cart coupons.CartState) ([]models.AppliedCoupon, error)
	ListActive(ctx context.Context) ([]models.CouponCandidate, error)
}

type OrderCreator interface {
	CreateOrder(ctx context.Context, payload models.OrderPayload) (models.OrderResponse, error)
}

type PaymentIntentCreator interface {
	CreatePaymentIntent(ctx context.Context, req models.PaymentIntentRequest) (models.PaymentIntentResponse, error)
}

type OrderLedger interface {
	Record(ctx context.Context, entry models.LedgerEntry) error
	Recent(ctx context.Context, pagination util.PaginationArgs) ([]models.LedgerEntry, int64, error)
}

type OrderEventPublisher interface {
	PublishOrderCreated(ctx context.Context, event models.OrderEvent) error
}

type SessionEventPublisher interface {
	PublishSessionEvent(ctx context.Context, event models.SessionEvent) error
}

type SubmitLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}
