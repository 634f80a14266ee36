package services

import (
	"context"
	"time"

	"ordercore-api-io/api/internal/common"
	"ordercore-api-io/api/internal/events"
	"ordercore-api-io/api/internal/metrics"
	"ordercore-api-io/api/pkg/models"
	"ordercore-api-io/api/pkg/pricing"
	"ordercore-api-io/api/pkg/util"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// OrderServiceImpl implements the OrderService interface
type OrderServiceImpl struct {
	sessions *SessionServiceImpl
	calc     pricing.Calculator
	orders   OrderCreator
	payments PaymentIntentCreator
	ledger   OrderLedger
	events   OrderEventPublisher
	locker   SubmitLocker
	now      func() time.Time
}

type OrderServiceDeps struct {
	Sessions *SessionServiceImpl
	Calc     pricing.Calculator
	Orders   OrderCreator
	Payments PaymentIntentCreator
	// Ledger, Events and Locker are optional.
	Ledger OrderLedger
	Events OrderEventPublisher
	Locker SubmitLocker
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(deps OrderServiceDeps) *OrderServiceImpl {
	return &OrderServiceImpl{
		sessions: deps.Sessions,
		calc:     deps.Calc,
		orders:   deps.Orders,
		payments: deps.Payments,
		ledger:   deps.Ledger,
		events:   deps.Events,
		locker:   deps.Locker,
		now:      time.Now,
	}
}

// Submit prices the session one last time and either creates a free order
// directly or starts card payment.
func (o *OrderServiceImpl) Submit(ctx context.Context, sessionID string, customer models.Customer) (models.SubmitResult, error) {
	if err := common.Validate.Struct(&customer); err != nil {
		return models.SubmitResult{}, newError(CodeInvalidArgument, err.Error())
	}

	s, release, err := o.begin(ctx, sessionID)
	if err != nil {
		return models.SubmitResult{}, err
	}
	defer release()

	s.mu.Lock()
	items := cloneItems(s.items)
	applied := cloneCoupons(s.coupons)
	shipping := s.manualShipping
	s.mu.Unlock()

	if len(items) == 0 {
		return models.SubmitResult{}, newError(CodeInvalidArgument, ErrMsgCartEmpty)
	}

	totals := o.calc.Compute(items, applied, shipping)
	payload := BuildOrderPayload(customer, items, applied, totals)

	if totals.Total.IsZero() {
		return o.createOrder(ctx, s, freeOrder(payload))
	}

	intent, err := o.payments.CreatePaymentIntent(ctx, models.PaymentIntentRequest{
		Amount:    pricing.ToMinorUnits(totals.Total),
		Email:     customer.Email,
		Cart:      payload.Cart,
		OrderData: payload,
	})
	if err != nil {
		metrics.RecordOrderOperation("payment_intent", "failed")
		zap.L().Error("payment intent failed", zap.String("session", sessionID), zap.Error(err))
		return models.SubmitResult{}, networkError(ErrMsgPaymentServiceDown, err)
	}
	if intent.IsFreeOrder {
		return o.createOrder(ctx, s, freeOrder(payload))
	}

	s.mu.Lock()
	s.pending = &pendingPayment{payload: payload, intentID: intent.PaymentIntentId}
	s.mu.Unlock()

	metrics.RecordOrderOperation("payment_intent", "created")
	return models.SubmitResult{
		Status:       models.SubmitStatusPaymentRequired,
		IsFreeOrder:  false,
		ClientSecret: intent.ClientSecret,
		Order:        &payload,
	}, nil
}

// ConfirmPayment finishes a card payment started by Submit. A declined
// payment keeps the pending order so the customer can retry with another card.
func (o *OrderServiceImpl) ConfirmPayment(ctx context.Context, sessionID string, confirmation models.PaymentConfirmation) (models.SubmitResult, error) {
	if err := common.Validate.Struct(&confirmation); err != nil {
		return models.SubmitResult{}, newError(CodeInvalidArgument, err.Error())
	}

	s, release, err := o.begin(ctx, sessionID)
	if err != nil {
		return models.SubmitResult{}, err
	}
	defer release()

	s.mu.Lock()
	pending := s.pending
	s.mu.Unlock()

	if pending == nil {
		return models.SubmitResult{}, newError(CodeInvalidArgument, ErrMsgNoPendingPayment)
	}
	if pending.intentID != "" && pending.intentID != confirmation.PaymentIntentId {
		return models.SubmitResult{}, newError(CodeInvalidArgument, ErrMsgPaymentIntentMissing)
	}

	if confirmation.Failed() {
		metrics.RecordOrderOperation("payment", "declined")
		zap.L().Info("payment declined", zap.String("session", sessionID), zap.String("code", confirmation.DeclineCode))
		return models.SubmitResult{}, paymentDeclined(confirmation.DeclineCode, confirmation.ErrorMessage)
	}

	payload := pending.payload
	payload.PaymentMethod = models.PaymentMethodCard
	payload.IsFreeOrder = false
	payload.PaymentIntentId = confirmation.PaymentIntentId
	return o.createOrder(ctx, s, payload)
}

func (o *OrderServiceImpl) RecentOrders(ctx context.Context, pagination util.PaginationArgs) ([]models.LedgerEntry, int64, error) {
	if o.ledger == nil {
		return []models.LedgerEntry{}, 0, nil
	}
	return o.ledger.Recent(ctx, pagination)
}

// begin looks the session up and takes the submit guards. release must be
// called once the submission is over.
func (o *OrderServiceImpl) begin(ctx context.Context, sessionID string) (*Session, func(), error) {
	s, err := o.sessions.lookup(sessionID)
	if err != nil {
		return nil, nil, err
	}
	if !s.submitting.CompareAndSwap(false, true) {
		return nil, nil, newError(CodeConflict, ErrMsgSubmitInProgress)
	}

	lockKey := "submit:" + sessionID
	locked := false
	if o.locker != nil {
		ok, err := o.locker.Acquire(ctx, lockKey, common.SUBMIT_LOCK_TTL)
		switch {
		case err != nil:
			zap.L().Warn("submit lock unavailable, continuing with local guard", zap.String("session", sessionID), zap.Error(err))
		case !ok:
			s.submitting.Store(false)
			return nil, nil, newError(CodeConflict, ErrMsgSubmitInProgress)
		default:
			locked = true
		}
	}

	release := func() {
		if locked {
			if err := o.locker.Release(context.Background(), lockKey); err != nil {
				zap.L().Warn("failed to release submit lock", zap.String("session", sessionID), zap.Error(err))
			}
		}
		s.submitting.Store(false)
	}
	return s, release, nil
}

func (o *OrderServiceImpl) createOrder(ctx context.Context, s *Session, payload models.OrderPayload) (models.SubmitResult, error) {
	operation := "order_paid"
	if payload.IsFreeOrder {
		operation = "order_free"
	}

	resp, err := o.orders.CreateOrder(ctx, payload)
	if err != nil {
		metrics.RecordOrderOperation(operation, "failed")
		zap.L().Error("order creation failed", zap.String("session", s.id), zap.Error(err))
		return models.SubmitResult{}, networkError(ErrMsgOrderServiceDown, err)
	}
	if !resp.Success {
		metrics.RecordOrderOperation(operation, "rejected")
		message := resp.Message
		if message == "" {
			message = ErrMsgOrderRejected
		}
		return models.SubmitResult{}, newError(CodeOrderRejected, message)
	}

	metrics.RecordOrderOperation(operation, "created")
	o.recordOrder(s.id, resp, payload)
	o.sessions.closeSession(s.id, "ordered")

	return models.SubmitResult{
		Status:      models.SubmitStatusCreated,
		OrderId:     resp.OrderId,
		IsFreeOrder: payload.IsFreeOrder,
		Message:     resp.Message,
		Order:       &payload,
	}, nil
}

// recordOrder writes the ledger entry and the order event. Neither may fail
// an order that already exists remotely, so errors are only logged.
func (o *OrderServiceImpl) recordOrder(sessionID string, resp models.OrderResponse, payload models.OrderPayload) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	now := o.now()

	if o.ledger != nil {
		entry := models.NewLedgerEntry(sessionID, resp.OrderId, resp.Message, payload, now)
		if err := o.ledger.Record(ctx, entry); err != nil {
			util.LogError("failed to record order in ledger", err, zap.String("session", sessionID))
		}
	}

	if o.events != nil {
		event := models.OrderEvent{
			OrderId:     resp.OrderId,
			SessionId:   sessionID,
			Type:        events.OrderCreatedEvent,
			IsFreeOrder: payload.IsFreeOrder,
			Total:       payload.TotalAmount,
			Occurred:    now,
		}
		if err := o.events.PublishOrderCreated(ctx, event); err != nil {
			util.LogError("failed to publish order event", errors.Wrap(err, resp.OrderId), zap.String("session", sessionID))
		}
	}
}

func freeOrder(payload models.OrderPayload) models.OrderPayload {
	payload.PaymentMethod = models.PaymentMethodFree
	payload.IsFreeOrder = true
	payload.PaymentIntentId = ""
	return payload
}

// BuildOrderPayload assembles the order body from the customer, the priced
// cart and the applied coupons.
func BuildOrderPayload(customer models.Customer, items []models.CartItem, applied []models.AppliedCoupon, totals models.Totals) models.OrderPayload {
	lines := make([]models.OrderLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, models.OrderLine{
			Id:                     item.Id,
			Title:                  item.Title,
			Sku:                    item.Sku,
			Price:                  pricing.EffectiveUnitPrice(item).Round(2),
			OrderQuantity:          item.Quantity,
			LineTotal:              pricing.LineTotal(item).Round(2),
			IsCustomPrice:          item.CustomPriceOverride != nil,
			SelectedOption:         item.SelectedOption,
			SelectedConfigurations: item.SelectedConfigurations,
		})
	}

	summaries := make([]models.CouponSummary, 0, len(applied))
	for _, c := range applied {
		summaries = append(summaries, models.CouponSummary{
			Id:           c.Id,
			Code:         c.Code,
			Title:        c.Title,
			Discount:     c.DiscountAmount,
			DiscountType: c.DiscountType,
		})
	}

	return models.OrderPayload{
		Name:           customer.Name,
		Email:          customer.Email,
		Contact:        customer.Contact,
		Address:        customer.Address,
		City:           customer.City,
		Country:        customer.Country,
		ZipCode:        customer.ZipCode,
		ShippingOption: customer.ShippingOption,
		Cart:           lines,
		SubTotal:       totals.Subtotal,
		ShippingCost:   totals.ShippingCost,
		Discount:       totals.Subtotal.Sub(totals.SubtotalAfterDiscount),
		TotalAmount:    totals.Total,
		AppliedCoupons: summaries,
		PaymentMethod:  models.PaymentMethodCard,
		IsFreeOrder:    totals.Total.IsZero(),
	}
}
