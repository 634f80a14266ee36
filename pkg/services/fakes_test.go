package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"ordercore-api-io/api/internal/scheduler"
	"ordercore-api-io/api/pkg/coupons"
	"ordercore-api-io/api/pkg/models"
	"ordercore-api-io/api/pkg/pricing"
	"ordercore-api-io/api/pkg/util"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func accepted(code, amount string) coupons.ValidationOutcome {
	return coupons.ValidationOutcome{
		Success: true,
		Coupon: &models.AppliedCoupon{
			Id:             "id-" + code,
			Code:           code,
			DiscountAmount: d(amount),
			DiscountType:   models.DiscountFixedAmount,
		},
	}
}

type fakeCoupons struct {
	mu sync.Mutex

	active     []models.CouponCandidate
	activeErr  error
	listGate   chan struct{}
	validate   func(code string, cart coupons.CartState) coupons.ValidationOutcome
	revalidate func(cart coupons.CartState) ([]models.AppliedCoupon, error)

	listCalls       int
	validateCalls   int
	revalidateCalls int
}

func (f *fakeCoupons) Validate(ctx context.Context, code string, cart coupons.CartState) coupons.ValidationOutcome {
	f.mu.Lock()
	f.validateCalls++
	fn := f.validate
	f.mu.Unlock()
	if fn == nil {
		return accepted(code, "10")
	}
	return fn(code, cart)
}

func (f *fakeCoupons) Revalidate(ctx context.Context, cart coupons.CartState) ([]models.AppliedCoupon, error) {
	f.mu.Lock()
	f.revalidateCalls++
	fn := f.revalidate
	f.mu.Unlock()
	if fn == nil {
		return cart.Applied, nil
	}
	return fn(cart)
}

func (f *fakeCoupons) ListActive(ctx context.Context) ([]models.CouponCandidate, error) {
	f.mu.Lock()
	f.listCalls++
	gate := f.listGate
	active, err := f.active, f.activeErr
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return active, err
}

func (f *fakeCoupons) calls() (list, validate, revalidate int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls, f.validateCalls, f.revalidateCalls
}

type fakeSessionEvents struct {
	mu     sync.Mutex
	events []models.SessionEvent
}

func (f *fakeSessionEvents) PublishSessionEvent(ctx context.Context, event models.SessionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeSessionEvents) reasons() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Reason)
	}
	return out
}

type fakeOrders struct {
	mu       sync.Mutex
	payloads []models.OrderPayload
	resp     models.OrderResponse
	err      error
}

func (f *fakeOrders) CreateOrder(ctx context.Context, payload models.OrderPayload) (models.OrderResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
	return f.resp, f.err
}

type fakePayments struct {
	mu       sync.Mutex
	requests []models.PaymentIntentRequest
	resp     models.PaymentIntentResponse
	err      error
}

func (f *fakePayments) CreatePaymentIntent(ctx context.Context, req models.PaymentIntentRequest) (models.PaymentIntentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.resp, f.err
}

type fakeLedger struct {
	mu      sync.Mutex
	entries []models.LedgerEntry
}

func (f *fakeLedger) Record(ctx context.Context, entry models.LedgerEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeLedger) Recent(ctx context.Context, pagination util.PaginationArgs) ([]models.LedgerEntry, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries, int64(len(f.entries)), nil
}

type fakeOrderEvents struct {
	mu     sync.Mutex
	events []models.OrderEvent
}

func (f *fakeOrderEvents) PublishOrderCreated(ctx context.Context, event models.OrderEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (f *fakeLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held == nil {
		f.held = map[string]bool{}
	}
	if f.held[key] {
		return false, nil
	}
	f.held[key] = true
	return true, nil
}

func (f *fakeLocker) Release(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, key)
	return nil
}

var testDelays = ReconcilerConfig{
	RevalidateDelay: 10 * time.Millisecond,
	AutoApplyDelay:  20 * time.Millisecond,
	EnableDelay:     5 * time.Millisecond,
}

type harness struct {
	coupons    *fakeCoupons
	events     *fakeSessionEvents
	sched      *scheduler.Scheduler
	reconciler *Reconciler
	sessions   *SessionServiceImpl
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		coupons: &fakeCoupons{},
		events:  &fakeSessionEvents{},
		sched:   scheduler.New(),
	}
	h.reconciler = NewReconciler(h.coupons, h.sched, h.events, testDelays)
	h.sessions = NewSessionService(pricing.DefaultCalculator(), h.reconciler, h.events, time.Hour)
	t.Cleanup(func() {
		h.sessions.CloseAll()
		h.sched.Stop()
	})
	return h
}

func (h *harness) open(t *testing.T, autoApply bool) string {
	t.Helper()
	view, err := h.sessions.Open(context.Background(), models.OpenSessionRequest{AutoApply: autoApply})
	require.NoError(t, err)
	return view.Id
}

func (h *harness) add(t *testing.T, sessionID, id, price string, qty int) models.SessionView {
	t.Helper()
	view, err := h.sessions.AddItem(context.Background(), sessionID, models.CartItemRequest{
		Id:        id,
		Title:     "Item " + id,
		BasePrice: d(price),
		Quantity:  qty,
	})
	require.NoError(t, err)
	return view
}

func (h *harness) couponCodes(t *testing.T, sessionID string) []string {
	t.Helper()
	view, err := h.sessions.Get(context.Background(), sessionID)
	require.NoError(t, err)
	return models.CouponCodes(view.AppliedCoupons)
}

func requireCode(t *testing.T, err error, code ErrorCode) {
	t.Helper()
	require.Error(t, err)
	got, ok := CodeOf(err)
	require.Truef(t, ok, "expected a ServiceError, got %T: %v", err, err)
	require.Equalf(t, code, got, "unexpected code for %v", err)
}
