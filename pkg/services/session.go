package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"ordercore-api-io/api/pkg/coupons"
	"ordercore-api-io/api/pkg/models"
	"ordercore-api-io/api/pkg/pricing"

	"github.com/shopspring/decimal"
)

// Session is one open order-creation flow: its cart, applied coupons and the
// background reconciliation state. All fields behind mu.
type Session struct {
	id string

	mu             sync.Mutex
	items          []models.CartItem
	coupons        []models.AppliedCoupon
	manualShipping decimal.Decimal
	autoApply      bool
	snapshot       []models.SnapshotEntry
	// revision increases on every structural cart change.
	revision uint64
	pending  *pendingPayment
	closed   bool

	createdAt  time.Time
	modifiedAt time.Time
	lastSeen   time.Time

	// applying guards the auto-apply pass against itself.
	applying atomic.Bool
	// submitting guards order submission against double clicks.
	submitting atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
}

type pendingPayment struct {
	payload  models.OrderPayload
	intentID string
}

func newSession(id string, autoApply bool, now time.Time) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:             id,
		items:          make([]models.CartItem, 0),
		coupons:        make([]models.AppliedCoupon, 0),
		manualShipping: decimal.Zero,
		autoApply:      autoApply,
		snapshot:       make([]models.SnapshotEntry, 0),
		createdAt:      now,
		modifiedAt:     now,
		lastSeen:       now,
		ctx:            ctx,
		cancel:         cancel,
	}
}

func (s *Session) itemIndex(itemID string) int {
	for i := range s.items {
		if s.items[i].Id == itemID {
			return i
		}
	}
	return -1
}

func (s *Session) cartStateLocked() coupons.CartState {
	return coupons.CartState{
		Items:          cloneItems(s.items),
		Applied:        cloneCoupons(s.coupons),
		ManualShipping: s.manualShipping,
	}
}

func (s *Session) viewLocked(calc pricing.Calculator) models.SessionView {
	return models.SessionView{
		Id:             s.id,
		Items:          cloneItems(s.items),
		AppliedCoupons: cloneCoupons(s.coupons),
		ManualShipping: s.manualShipping,
		AutoApply:      s.autoApply,
		Totals:         calc.Compute(s.items, s.coupons, s.manualShipping),
		PendingPayment: s.pending != nil,
		CreatedAt:      s.createdAt,
		ModifiedAt:     s.modifiedAt,
	}
}

// refreshSnapshotLocked recomputes the normalized snapshot and reports whether
// the cart changed structurally. An emptied cart also drops every coupon.
func (s *Session) refreshSnapshotLocked() (changed, couponsCleared bool) {
	next := pricing.Snapshot(s.items)
	if pricing.SnapshotsEqual(s.snapshot, next) {
		return false, false
	}
	s.snapshot = next
	s.revision++
	if len(s.items) == 0 && len(s.coupons) > 0 {
		s.coupons = make([]models.AppliedCoupon, 0)
		couponsCleared = true
	}
	return true, couponsCleared
}

func (s *Session) touchLocked(now time.Time) {
	s.modifiedAt = now
	s.lastSeen = now
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// markClosed flips the session to closed and reports whether it was open.
func (s *Session) markClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	s.cancel()
	return true
}

func cloneItems(items []models.CartItem) []models.CartItem {
	out := make([]models.CartItem, len(items))
	copy(out, items)
	return out
}

func cloneCoupons(list []models.AppliedCoupon) []models.AppliedCoupon {
	out := make([]models.AppliedCoupon, len(list))
	copy(out, list)
	return out
}
