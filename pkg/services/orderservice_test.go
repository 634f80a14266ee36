package services

import (
	"context"
	"errors"
	"testing"

	"ordercore-api-io/api/pkg/models"
	"ordercore-api-io/api/pkg/pricing"
	"ordercore-api-io/api/pkg/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderHarness struct {
	*harness
	orders   *fakeOrders
	payments *fakePayments
	ledger   *fakeLedger
	events   *fakeOrderEvents
	locker   *fakeLocker
	svc      *OrderServiceImpl
}

func newOrderHarness(t *testing.T) *orderHarness {
	t.Helper()
	h := &orderHarness{
		harness:  newHarness(t),
		orders:   &fakeOrders{resp: models.OrderResponse{Success: true, OrderId: "ord-1", Message: "Order placed"}},
		payments: &fakePayments{resp: models.PaymentIntentResponse{ClientSecret: "pi_1_secret", PaymentIntentId: "pi_1"}},
		ledger:   &fakeLedger{},
		events:   &fakeOrderEvents{},
		locker:   &fakeLocker{},
	}
	h.svc = NewOrderService(OrderServiceDeps{
		Sessions: h.sessions,
		Calc:     pricing.DefaultCalculator(),
		Orders:   h.orders,
		Payments: h.payments,
		Ledger:   h.ledger,
		Events:   h.events,
		Locker:   h.locker,
	})
	return h
}

func customer() models.Customer {
	return models.Customer{
		Name:    "Ada Buyer",
		Email:   "ada@example.com",
		Contact: "+15550100",
		Address: "1 Main St",
		City:    "Springfield",
		Country: "US",
		ZipCode: "12345",
	}
}

func (h *orderHarness) withCoupon(t *testing.T, sessionID, code, amount string) {
	t.Helper()
	s, err := h.sessions.lookup(sessionID)
	require.NoError(t, err)
	s.mu.Lock()
	s.coupons = append(s.coupons, models.AppliedCoupon{Id: "c-" + code, Code: code, DiscountAmount: d(amount), DiscountType: models.DiscountFixedAmount})
	s.mu.Unlock()
}

func TestSubmit_FreeOrderSkipsPayment(t *testing.T) {
	h := newOrderHarness(t)
	id := h.open(t, false)
	h.add(t, id, "p1", "100", 1)
	h.withCoupon(t, id, "ALLFREE", "100")

	result, err := h.svc.Submit(context.Background(), id, customer())

	require.NoError(t, err)
	assert.Equal(t, models.SubmitStatusCreated, result.Status)
	assert.True(t, result.IsFreeOrder)
	assert.Equal(t, "ord-1", result.OrderId)
	assert.Empty(t, h.payments.requests)

	require.Len(t, h.orders.payloads, 1)
	payload := h.orders.payloads[0]
	assert.Equal(t, models.PaymentMethodFree, payload.PaymentMethod)
	assert.True(t, payload.IsFreeOrder)
	assert.True(t, payload.TotalAmount.IsZero())
	require.Len(t, payload.AppliedCoupons, 1)
	assert.Equal(t, "ALLFREE", payload.AppliedCoupons[0].Code)

	require.Len(t, h.ledger.entries, 1)
	assert.Equal(t, models.OrderOutcomeFree, h.ledger.entries[0].Outcome)
	require.Len(t, h.events.events, 1)
	assert.Equal(t, "ord-1", h.events.events[0].OrderId)

	_, err = h.sessions.Get(context.Background(), id)
	requireCode(t, err, CodeNotFound)
}

func TestSubmit_PaidOrderStartsPayment(t *testing.T) {
	h := newOrderHarness(t)
	id := h.open(t, false)
	h.add(t, id, "p1", "200", 2)
	h.withCoupon(t, id, "SAVE50", "50")
	_, err := h.sessions.SetShipping(context.Background(), id, d("25"))
	require.NoError(t, err)

	result, err := h.svc.Submit(context.Background(), id, customer())

	require.NoError(t, err)
	assert.Equal(t, models.SubmitStatusPaymentRequired, result.Status)
	assert.Equal(t, "pi_1_secret", result.ClientSecret)
	assert.Empty(t, h.orders.payloads)

	require.Len(t, h.payments.requests, 1)
	req := h.payments.requests[0]
	assert.Equal(t, int64(37500), req.Amount)
	assert.Equal(t, "ada@example.com", req.Email)
	assert.True(t, d("375").Equal(req.OrderData.TotalAmount))
	assert.True(t, d("50").Equal(req.OrderData.Discount))
	assert.True(t, d("25").Equal(req.OrderData.ShippingCost))

	view, err := h.sessions.Get(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, view.PendingPayment)
}

func TestSubmit_PaymentServiceSaysFree(t *testing.T) {
	h := newOrderHarness(t)
	h.payments.resp = models.PaymentIntentResponse{IsFreeOrder: true}
	id := h.open(t, false)
	h.add(t, id, "p1", "10", 1)

	result, err := h.svc.Submit(context.Background(), id, customer())

	require.NoError(t, err)
	assert.True(t, result.IsFreeOrder)
	require.Len(t, h.orders.payloads, 1)
	assert.Equal(t, models.PaymentMethodFree, h.orders.payloads[0].PaymentMethod)
}

func TestConfirmPayment_CreatesCardOrder(t *testing.T) {
	h := newOrderHarness(t)
	id := h.open(t, false)
	h.add(t, id, "p1", "10", 3)
	_, err := h.svc.Submit(context.Background(), id, customer())
	require.NoError(t, err)

	result, err := h.svc.ConfirmPayment(context.Background(), id, models.PaymentConfirmation{PaymentIntentId: "pi_1"})

	require.NoError(t, err)
	assert.Equal(t, models.SubmitStatusCreated, result.Status)
	require.Len(t, h.orders.payloads, 1)
	assert.Equal(t, models.PaymentMethodCard, h.orders.payloads[0].PaymentMethod)
	assert.Equal(t, "pi_1", h.orders.payloads[0].PaymentIntentId)
	assert.Equal(t, models.OrderOutcomePaid, h.ledger.entries[0].Outcome)
}

func TestConfirmPayment_Declines(t *testing.T) {
	tests := []struct {
		declineCode string
		raw         string
		want        string
	}{
		{"card_declined", "", "Your card was declined. Please use a different card."},
		{"expired_card", "", "Your card has expired. Please use a different card."},
		{"incorrect_cvc", "", "Your card's security code is incorrect."},
		{"processing_error", "", "An error occurred while processing your card. Please try again."},
		{"do_not_honor", "The bank said no.", "The bank said no."},
	}
	for _, tt := range tests {
		t.Run(tt.declineCode, func(t *testing.T) {
			h := newOrderHarness(t)
			id := h.open(t, false)
			h.add(t, id, "p1", "10", 1)
			_, err := h.svc.Submit(context.Background(), id, customer())
			require.NoError(t, err)

			_, err = h.svc.ConfirmPayment(context.Background(), id, models.PaymentConfirmation{
				PaymentIntentId: "pi_1",
				DeclineCode:     tt.declineCode,
				ErrorMessage:    tt.raw,
			})

			requireCode(t, err, CodePaymentDeclined)
			assert.Equal(t, tt.want, err.Error())
			assert.Empty(t, h.orders.payloads)

			view, err := h.sessions.Get(context.Background(), id)
			require.NoError(t, err)
			assert.True(t, view.PendingPayment)
		})
	}
}

func TestConfirmPayment_RequiresPendingPayment(t *testing.T) {
	h := newOrderHarness(t)
	id := h.open(t, false)
	h.add(t, id, "p1", "10", 1)

	_, err := h.svc.ConfirmPayment(context.Background(), id, models.PaymentConfirmation{PaymentIntentId: "pi_1"})
	requireCode(t, err, CodeInvalidArgument)

	_, err = h.svc.Submit(context.Background(), id, customer())
	require.NoError(t, err)
	_, err = h.svc.ConfirmPayment(context.Background(), id, models.PaymentConfirmation{PaymentIntentId: "pi_other"})
	requireCode(t, err, CodeInvalidArgument)
}

func TestSubmit_Failures(t *testing.T) {
	t.Run("invalid customer", func(t *testing.T) {
		h := newOrderHarness(t)
		id := h.open(t, false)
		h.add(t, id, "p1", "10", 1)
		c := customer()
		c.Email = "not-an-email"

		_, err := h.svc.Submit(context.Background(), id, c)
		requireCode(t, err, CodeInvalidArgument)
	})

	t.Run("empty cart", func(t *testing.T) {
		h := newOrderHarness(t)
		id := h.open(t, false)

		_, err := h.svc.Submit(context.Background(), id, customer())
		requireCode(t, err, CodeInvalidArgument)
	})

	t.Run("payment service down", func(t *testing.T) {
		h := newOrderHarness(t)
		h.payments.err = errors.New("dial tcp: refused")
		id := h.open(t, false)
		h.add(t, id, "p1", "10", 1)

		_, err := h.svc.Submit(context.Background(), id, customer())
		requireCode(t, err, CodeNetworkFailure)
	})

	t.Run("order rejected", func(t *testing.T) {
		h := newOrderHarness(t)
		h.orders.resp = models.OrderResponse{Success: false, Message: "Out of stock"}
		id := h.open(t, false)
		h.add(t, id, "p1", "10", 1)
		h.withCoupon(t, id, "FREE", "10")

		_, err := h.svc.Submit(context.Background(), id, customer())
		requireCode(t, err, CodeOrderRejected)
		assert.Equal(t, "Out of stock", err.Error())
		assert.Empty(t, h.ledger.entries)

		_, err = h.sessions.Get(context.Background(), id)
		assert.NoError(t, err)
	})

	t.Run("locked", func(t *testing.T) {
		h := newOrderHarness(t)
		id := h.open(t, false)
		h.add(t, id, "p1", "10", 1)
		ok, err := h.locker.Acquire(context.Background(), "submit:"+id, 0)
		require.NoError(t, err)
		require.True(t, ok)

		_, err = h.svc.Submit(context.Background(), id, customer())
		requireCode(t, err, CodeConflict)
	})

	t.Run("unknown session", func(t *testing.T) {
		h := newOrderHarness(t)

		_, err := h.svc.Submit(context.Background(), "nope", customer())
		requireCode(t, err, CodeNotFound)
	})
}

func TestBuildOrderPayload(t *testing.T) {
	override := d("7.5")
	items := []models.CartItem{
		{Id: "a", Title: "A", Sku: "SKU-A", UnitPrice: d("10"), Quantity: 2},
		{Id: "b", Title: "B", UnitPrice: d("9"), Quantity: 2, CustomPriceOverride: &override},
	}
	applied := []models.AppliedCoupon{{Id: "c1", Code: "BIG", DiscountAmount: d("100"), DiscountType: models.DiscountFixedAmount}}
	totals := pricing.DefaultCalculator().Compute(items, applied, d("4"))

	payload := BuildOrderPayload(customer(), items, applied, totals)

	require.Len(t, payload.Cart, 2)
	assert.True(t, d("20").Equal(payload.Cart[0].LineTotal))
	assert.False(t, payload.Cart[0].IsCustomPrice)
	assert.True(t, d("7.5").Equal(payload.Cart[1].Price))
	assert.True(t, payload.Cart[1].IsCustomPrice)
	// only the deductible part of the discount is reported
	assert.True(t, d("35").Equal(payload.Discount))
	assert.True(t, d("4").Equal(payload.TotalAmount))
	assert.Equal(t, "Ada Buyer", payload.Name)
}

func TestRecentOrders(t *testing.T) {
	h := newOrderHarness(t)
	id := h.open(t, false)
	h.add(t, id, "p1", "10", 1)
	h.withCoupon(t, id, "FREE", "10")
	_, err := h.svc.Submit(context.Background(), id, customer())
	require.NoError(t, err)

	entries, count, err := h.svc.RecentOrders(context.Background(), util.PaginationArgs{Limit: 10})

	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, "ord-1", entries[0].OrderId)
}
