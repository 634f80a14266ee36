package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"ordercore-api-io/api/pkg/coupons"
	"ordercore-api-io/api/pkg/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
)

func activeCandidate(code string, amount, minimum int64) models.CouponCandidate {
	return models.CouponCandidate{
		Id:             "id-" + code,
		Code:           code,
		Status:         models.CouponStatusActive,
		DiscountAmount: decimal.NewFromInt(amount),
		MinimumAmount:  decimal.NewFromInt(minimum),
	}
}

func TestAutoApply_PicksBestCandidateAfterCartChange(t *testing.T) {
	h := newHarness(t)
	h.coupons.active = []models.CouponCandidate{activeCandidate("A", 20, 50), activeCandidate("B", 20, 10)}
	id := h.open(t, true)

	h.add(t, id, "p1", "100", 1)

	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"B"}, h.couponCodes(t, id))
	}, waitFor, tick)
	assert.Contains(t, h.events.reasons(), "auto-applied")
}

func TestAutoApply_NotScheduledWhenDisabled(t *testing.T) {
	h := newHarness(t)
	h.coupons.active = []models.CouponCandidate{activeCandidate("A", 20, 0)}
	id := h.open(t, false)

	h.add(t, id, "p1", "100", 1)
	time.Sleep(80 * time.Millisecond)

	list, _, _ := h.coupons.calls()
	assert.Equal(t, 0, list)
	assert.Empty(t, h.couponCodes(t, id))
}

func TestAutoApply_EnablingOnPopulatedCartApplies(t *testing.T) {
	h := newHarness(t)
	h.coupons.active = []models.CouponCandidate{activeCandidate("WELCOME", 15, 0)}
	id := h.open(t, false)
	h.add(t, id, "p1", "100", 1)

	_, err := h.sessions.SetAutoApply(context.Background(), id, true)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"WELCOME"}, h.couponCodes(t, id))
	}, waitFor, tick)
}

func TestAutoApply_SilentWhenRejected(t *testing.T) {
	h := newHarness(t)
	h.coupons.active = []models.CouponCandidate{activeCandidate("MIN1000", 50, 1000)}
	h.coupons.validate = func(code string, cart coupons.CartState) coupons.ValidationOutcome {
		return coupons.ValidationOutcome{Success: false, Message: "Minimum not met", Failure: coupons.FailureValidation}
	}
	id := h.open(t, true)

	h.add(t, id, "p1", "100", 1)

	require.Eventually(t, func() bool {
		_, validate, _ := h.coupons.calls()
		return validate == 1
	}, waitFor, tick)
	assert.Empty(t, h.couponCodes(t, id))
}

func TestAutoApply_OverlappingPassIsDropped(t *testing.T) {
	h := newHarness(t)
	gate := make(chan struct{})
	h.coupons.listGate = gate
	h.coupons.active = []models.CouponCandidate{activeCandidate("A", 5, 0)}
	id := h.open(t, false)
	h.add(t, id, "p1", "10", 1)
	s, err := h.sessions.lookup(id)
	require.NoError(t, err)
	s.mu.Lock()
	s.autoApply = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.reconciler.autoApply(s)
		close(done)
	}()
	require.Eventually(t, func() bool { return s.applying.Load() }, waitFor, tick)

	// second pass returns immediately instead of queueing
	h.reconciler.autoApply(s)
	close(gate)
	<-done

	list, validate, _ := h.coupons.calls()
	assert.Equal(t, 1, list)
	assert.Equal(t, 1, validate)
	assert.Equal(t, []string{"A"}, h.couponCodes(t, id))
}

func TestAutoApply_DoesNotDuplicateExistingCode(t *testing.T) {
	h := newHarness(t)
	h.coupons.active = []models.CouponCandidate{activeCandidate("SAVE", 5, 0)}
	id := h.open(t, false)
	h.add(t, id, "p1", "10", 1)
	s, err := h.sessions.lookup(id)
	require.NoError(t, err)

	// the code shows up in a different case while the pass is in flight
	h.coupons.validate = func(code string, cart coupons.CartState) coupons.ValidationOutcome {
		s.mu.Lock()
		s.coupons = append(s.coupons, models.AppliedCoupon{Code: "save", DiscountAmount: d("5")})
		s.mu.Unlock()
		return accepted("SAVE", "5")
	}
	s.mu.Lock()
	s.autoApply = true
	s.mu.Unlock()

	h.reconciler.autoApply(s)

	assert.Equal(t, []string{"save"}, h.couponCodes(t, id))
}

func TestRevalidate_FailureKeepsCoupons(t *testing.T) {
	h := newHarness(t)
	h.coupons.revalidate = func(cart coupons.CartState) ([]models.AppliedCoupon, error) {
		return nil, errors.New("connection refused")
	}
	id := h.open(t, false)
	h.add(t, id, "p1", "100", 2)
	_, err := h.sessions.ApplyCoupon(context.Background(), id, "SAVE10")
	require.NoError(t, err)

	_, err = h.sessions.UpdateQuantity(context.Background(), id, "p1", 3)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, _, revalidate := h.coupons.calls()
		return revalidate == 1
	}, waitFor, tick)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, []string{"SAVE10"}, h.couponCodes(t, id))
}

func TestRevalidate_ReplacesSetWholesale(t *testing.T) {
	h := newHarness(t)
	h.coupons.revalidate = func(cart coupons.CartState) ([]models.AppliedCoupon, error) {
		out := []models.AppliedCoupon{}
		for _, c := range cart.Applied {
			if c.Code == "KEEP" {
				c.DiscountAmount = d("12.50")
				out = append(out, c)
			}
		}
		return out, nil
	}
	id := h.open(t, false)
	h.add(t, id, "p1", "100", 2)
	_, err := h.sessions.ApplyCoupon(context.Background(), id, "KEEP")
	require.NoError(t, err)
	_, err = h.sessions.ApplyCoupon(context.Background(), id, "DROP")
	require.NoError(t, err)

	_, err = h.sessions.UpdateQuantity(context.Background(), id, "p1", 1)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"KEEP"}, h.couponCodes(t, id))
	}, waitFor, tick)
	view, err := h.sessions.Get(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, d("12.50").Equal(view.Totals.CouponDiscount))
	assert.Contains(t, h.events.reasons(), "revalidated")
}

func TestRevalidate_StaleResultIsDiscarded(t *testing.T) {
	h := newHarness(t)
	id := h.open(t, false)
	h.add(t, id, "p1", "100", 1)
	_, err := h.sessions.ApplyCoupon(context.Background(), id, "SAVE")
	require.NoError(t, err)
	s, err := h.sessions.lookup(id)
	require.NoError(t, err)

	h.coupons.revalidate = func(cart coupons.CartState) ([]models.AppliedCoupon, error) {
		// the cart moves on while the request is in flight
		s.mu.Lock()
		s.revision++
		s.mu.Unlock()
		return []models.AppliedCoupon{}, nil
	}

	h.reconciler.revalidate(s)

	assert.Equal(t, []string{"SAVE"}, h.couponCodes(t, id))
}

func TestMergeRevalidated(t *testing.T) {
	current := []models.AppliedCoupon{{Code: "A"}, {Code: "NEW"}}
	revalidated := []models.AppliedCoupon{{Code: "a", DiscountAmount: d("3")}, {Code: "REMOVED"}}

	merged := mergeRevalidated(current, revalidated, []string{"A", "REMOVED"})

	require.Len(t, merged, 2)
	assert.Equal(t, "a", merged[0].Code)
	assert.True(t, d("3").Equal(merged[0].DiscountAmount))
	assert.Equal(t, "NEW", merged[1].Code)
}

func TestEmptyCartClearsCouponsAndTasks(t *testing.T) {
	h := newHarness(t)
	id := h.open(t, true)
	h.add(t, id, "p1", "100", 1)
	_, err := h.sessions.ApplyCoupon(context.Background(), id, "SAVE")
	require.NoError(t, err)

	view, err := h.sessions.RemoveItem(context.Background(), id, "p1")

	require.NoError(t, err)
	assert.Empty(t, view.AppliedCoupons)
	assert.True(t, view.Totals.Total.IsZero())
	assert.Equal(t, 0, h.sched.PendingCount(id))
	assert.Contains(t, h.events.reasons(), "cart-emptied")
}

func TestApplyCode_DuplicateRejectedBeforeNetwork(t *testing.T) {
	h := newHarness(t)
	id := h.open(t, false)
	h.add(t, id, "p1", "100", 1)
	_, err := h.sessions.ApplyCoupon(context.Background(), id, "Save10")
	require.NoError(t, err)

	_, err = h.sessions.ApplyCoupon(context.Background(), id, " SAVE10 ")

	requireCode(t, err, CodeInvariantViolation)
	_, validate, _ := h.coupons.calls()
	assert.Equal(t, 1, validate)
	assert.Equal(t, []string{"Save10"}, h.couponCodes(t, id))
}

func TestApplyCode_SurfacesFailures(t *testing.T) {
	tests := []struct {
		name    string
		outcome coupons.ValidationOutcome
		code    ErrorCode
		message string
	}{
		{
			name:    "rejected with message",
			outcome: coupons.ValidationOutcome{Message: "Coupon expired", Failure: coupons.FailureValidation},
			code:    CodeValidationFailed,
			message: "Coupon expired",
		},
		{
			name:    "rejected without message",
			outcome: coupons.ValidationOutcome{Failure: coupons.FailureValidation},
			code:    CodeValidationFailed,
			message: ErrMsgCouponInvalid,
		},
		{
			name:    "network",
			outcome: coupons.ValidationOutcome{Message: "dial tcp: refused", Failure: coupons.FailureNetwork},
			code:    CodeNetworkFailure,
			message: ErrMsgCouponServiceDown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.coupons.validate = func(string, coupons.CartState) coupons.ValidationOutcome { return tt.outcome }
			id := h.open(t, false)
			h.add(t, id, "p1", "100", 1)

			_, err := h.sessions.ApplyCoupon(context.Background(), id, "X")

			requireCode(t, err, tt.code)
			assert.Equal(t, tt.message, err.Error())
			assert.Empty(t, h.couponCodes(t, id))
		})
	}
}

func TestApplyCode_EmptyCartAndBlankCode(t *testing.T) {
	h := newHarness(t)
	id := h.open(t, false)

	_, err := h.sessions.ApplyCoupon(context.Background(), id, "SAVE")
	requireCode(t, err, CodeValidationFailed)

	_, err = h.sessions.ApplyCoupon(context.Background(), id, "  ")
	requireCode(t, err, CodeInvalidArgument)

	_, validate, _ := h.coupons.calls()
	assert.Equal(t, 0, validate)
}

// blockValidate holds every Validate call until release is closed. entered
// receives once per call.
func blockValidate(h *harness) (entered chan struct{}, release chan struct{}) {
	entered = make(chan struct{}, 1)
	release = make(chan struct{})
	h.coupons.validate = func(code string, cart coupons.CartState) coupons.ValidationOutcome {
		entered <- struct{}{}
		<-release
		return accepted(code, "10")
	}
	return entered, release
}

func TestApplyCode_CartEmptiedWhileValidating(t *testing.T) {
	h := newHarness(t)
	id := h.open(t, false)
	h.add(t, id, "p1", "100", 1)
	entered, release := blockValidate(h)

	errc := make(chan error, 1)
	go func() {
		_, err := h.sessions.ApplyCoupon(context.Background(), id, "SAVE10")
		errc <- err
	}()

	<-entered
	_, err := h.sessions.ClearCart(context.Background(), id)
	require.NoError(t, err)
	close(release)

	requireCode(t, <-errc, CodeValidationFailed)
	view, err := h.sessions.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Empty(t, view.AppliedCoupons)
	assert.Equal(t, 0, h.sched.PendingCount(id))
}

func TestApplyCode_CartChangedWhileValidatingRevalidates(t *testing.T) {
	h := newHarness(t)
	id := h.open(t, false)
	h.add(t, id, "p1", "100", 1)
	entered, release := blockValidate(h)

	quantities := make(chan int, 1)
	h.coupons.revalidate = func(cart coupons.CartState) ([]models.AppliedCoupon, error) {
		quantities <- cart.Items[0].Quantity
		return cart.Applied, nil
	}

	errc := make(chan error, 1)
	go func() {
		_, err := h.sessions.ApplyCoupon(context.Background(), id, "SAVE10")
		errc <- err
	}()

	<-entered
	_, err := h.sessions.UpdateQuantity(context.Background(), id, "p1", 3)
	require.NoError(t, err)
	close(release)

	require.NoError(t, <-errc)
	select {
	case q := <-quantities:
		assert.Equal(t, 3, q)
	case <-time.After(waitFor):
		t.Fatal("coupon applied to an older cart was never revalidated")
	}
	assert.Equal(t, []string{"SAVE10"}, h.couponCodes(t, id))
}

func TestRemoveCoupon(t *testing.T) {
	h := newHarness(t)
	id := h.open(t, false)
	h.add(t, id, "p1", "100", 1)
	_, err := h.sessions.ApplyCoupon(context.Background(), id, "SAVE")
	require.NoError(t, err)

	view, err := h.sessions.RemoveCoupon(context.Background(), id, "save")
	require.NoError(t, err)
	assert.Empty(t, view.AppliedCoupons)

	_, err = h.sessions.RemoveCoupon(context.Background(), id, "save")
	requireCode(t, err, CodeNotFound)
}

func TestClose_CancelsPendingWork(t *testing.T) {
	h := newHarness(t)
	h.coupons.active = []models.CouponCandidate{activeCandidate("A", 5, 0)}
	id := h.open(t, true)
	h.add(t, id, "p1", "10", 1)

	require.NoError(t, h.sessions.Close(context.Background(), id))
	time.Sleep(60 * time.Millisecond)

	list, _, _ := h.coupons.calls()
	assert.Equal(t, 0, list)
	assert.Equal(t, 0, h.sched.PendingCount(id))
}

func TestNoDuplicateCodesUnderConcurrentApplies(t *testing.T) {
	h := newHarness(t)
	h.coupons.active = []models.CouponCandidate{activeCandidate("SAVE", 5, 0)}
	id := h.open(t, true)
	h.add(t, id, "p1", "10", 1)

	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		go func() {
			h.sessions.ApplyCoupon(context.Background(), id, "save")
			done <- struct{}{}
		}()
	}
	for i := 0; i < 5; i++ {
		<-done
	}
	time.Sleep(60 * time.Millisecond)

	codes := h.couponCodes(t, id)
	require.Len(t, codes, 1)
	assert.True(t, models.SameCode("save", codes[0]))
}
