package services

import (
	"context"
	"strings"
	"time"

	"ordercore-api-io/api/internal/metrics"
	"ordercore-api-io/api/internal/scheduler"
	"ordercore-api-io/api/pkg/coupons"
	"ordercore-api-io/api/pkg/models"

	"go.uber.org/zap"
)

const (
	taskRevalidate = "revalidate"
	taskAutoApply  = "auto-apply"
)

const (
	DefaultRevalidateDelay = 600 * time.Millisecond
	DefaultAutoApplyDelay  = 700 * time.Millisecond
	DefaultEnableDelay     = 100 * time.Millisecond
)

type ReconcilerConfig struct {
	RevalidateDelay time.Duration
	AutoApplyDelay  time.Duration
	EnableDelay     time.Duration
}

func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{
		RevalidateDelay: DefaultRevalidateDelay,
		AutoApplyDelay:  DefaultAutoApplyDelay,
		EnableDelay:     DefaultEnableDelay,
	}
}

// Reconciler keeps a session's applied coupons in line with its cart: it
// revalidates applied coupons after cart changes, auto-applies the best
// active coupon when the session asks for it, and handles explicit coupon
// entry.
type Reconciler struct {
	coupons   CouponValidator
	scheduler *scheduler.Scheduler
	events    SessionEventPublisher
	cfg       ReconcilerConfig
}

// NewReconciler builds a Reconciler. events may be nil.
func NewReconciler(validator CouponValidator, sched *scheduler.Scheduler, events SessionEventPublisher, cfg ReconcilerConfig) *Reconciler {
	return &Reconciler{
		coupons:   validator,
		scheduler: sched,
		events:    events,
		cfg:       cfg,
	}
}

// CartChanged reacts to a structural cart change. Revalidation is enqueued
// before auto-apply so the later pass sees refreshed discounts when it can.
func (r *Reconciler) CartChanged(s *Session) {
	s.mu.Lock()
	closed := s.closed
	empty := len(s.items) == 0
	hasCoupons := len(s.coupons) > 0
	autoApply := s.autoApply
	s.mu.Unlock()

	if closed {
		return
	}
	if empty {
		r.scheduler.CancelAll(s.id)
		return
	}
	if hasCoupons {
		r.scheduler.Schedule(s.id, taskRevalidate, r.cfg.RevalidateDelay, func() { r.revalidate(s) })
	}
	if autoApply {
		r.scheduler.Schedule(s.id, taskAutoApply, r.cfg.AutoApplyDelay, func() { r.autoApply(s) })
	}
}

// AutoApplyEnabled covers a cart that was filled before auto-apply was
// switched on: it schedules a pass on the short delay.
func (r *Reconciler) AutoApplyEnabled(s *Session) {
	s.mu.Lock()
	ready := !s.closed && s.autoApply && len(s.items) > 0 && len(s.coupons) == 0
	s.mu.Unlock()

	if ready {
		r.scheduler.Schedule(s.id, taskAutoApply, r.cfg.EnableDelay, func() { r.autoApply(s) })
	}
}

// AutoApplyDisabled drops a pending auto-apply pass.
func (r *Reconciler) AutoApplyDisabled(s *Session) {
	r.scheduler.Cancel(s.id, taskAutoApply)
}

func (r *Reconciler) revalidate(s *Session) {
	s.mu.Lock()
	if s.closed || len(s.items) == 0 || len(s.coupons) == 0 {
		s.mu.Unlock()
		return
	}
	cart := s.cartStateLocked()
	revision := s.revision
	s.mu.Unlock()

	applied, err := r.coupons.Revalidate(s.ctx, cart)
	if err != nil {
		// a failed revalidation never costs the customer a discount
		zap.L().Debug("coupon revalidation failed, keeping applied coupons",
			zap.String("session", s.id), zap.Error(err))
		metrics.RecordReconcilePass(taskRevalidate, "failed")
		return
	}

	submitted := models.CouponCodes(cart.Applied)

	s.mu.Lock()
	if s.closed || s.revision != revision {
		s.mu.Unlock()
		metrics.RecordReconcilePass(taskRevalidate, "stale")
		return
	}
	previous := s.coupons
	s.coupons = mergeRevalidated(s.coupons, applied, submitted)
	changed := !couponsEqual(previous, s.coupons)
	after := models.CouponCodes(s.coupons)
	s.mu.Unlock()

	metrics.RecordReconcilePass(taskRevalidate, "ok")
	if !changed {
		return
	}
	if dropped := missingCodes(models.CouponCodes(previous), after); len(dropped) > 0 {
		zap.L().Info("revalidation dropped coupons",
			zap.String("session", s.id), zap.Strings("coupons", dropped))
	}
	r.notify(s, after, "revalidated")
}

// mergeRevalidated replaces the coupons that were submitted for revalidation
// with the service's answer. Coupons applied while the request was in flight
// are kept; coupons removed meanwhile stay removed.
func mergeRevalidated(current, revalidated []models.AppliedCoupon, submitted []string) []models.AppliedCoupon {
	out := make([]models.AppliedCoupon, 0, len(revalidated))
	for _, c := range revalidated {
		if models.HasCoupon(current, c.Code) && !models.HasCoupon(out, c.Code) {
			out = append(out, c)
		}
	}
	for _, c := range current {
		if !containsCode(submitted, c.Code) && !models.HasCoupon(out, c.Code) {
			out = append(out, c)
		}
	}
	return out
}

func (r *Reconciler) autoApply(s *Session) {
	if !s.applying.CompareAndSwap(false, true) {
		metrics.RecordReconcilePass(taskAutoApply, "dropped")
		return
	}
	defer s.applying.Store(false)

	s.mu.Lock()
	if s.closed || !s.autoApply || len(s.items) == 0 {
		s.mu.Unlock()
		return
	}
	cart := s.cartStateLocked()
	revision := s.revision
	s.mu.Unlock()

	candidates, err := r.coupons.ListActive(s.ctx)
	if err != nil {
		zap.L().Debug("auto-apply could not list active coupons", zap.String("session", s.id), zap.Error(err))
		metrics.RecordReconcilePass(taskAutoApply, "failed")
		return
	}

	best := coupons.SelectBest(candidates, cart.Applied)
	if best == nil {
		metrics.RecordReconcilePass(taskAutoApply, "none")
		return
	}

	outcome := r.coupons.Validate(s.ctx, best.Code, cart)
	if !outcome.Success {
		zap.L().Debug("auto-apply candidate rejected",
			zap.String("session", s.id), zap.String("coupon", best.Code),
			zap.String("reason", outcome.Message), zap.Stringer("failure", outcome.Failure))
		metrics.RecordReconcilePass(taskAutoApply, "rejected")
		return
	}

	coupon := *outcome.Coupon
	if coupon.Id == "" {
		coupon.Id = best.Id
	}
	if coupon.Title == "" {
		coupon.Title = best.Title
	}

	s.mu.Lock()
	if s.closed || s.revision != revision || len(s.items) == 0 {
		s.mu.Unlock()
		metrics.RecordReconcilePass(taskAutoApply, "stale")
		return
	}
	if models.HasCoupon(s.coupons, coupon.Code) || models.HasCoupon(s.coupons, best.Code) {
		s.mu.Unlock()
		metrics.RecordReconcilePass(taskAutoApply, "duplicate")
		return
	}
	s.coupons = append(s.coupons, coupon)
	after := models.CouponCodes(s.coupons)
	s.mu.Unlock()

	zap.L().Info("auto-applied coupon", zap.String("session", s.id), zap.String("coupon", coupon.Code))
	metrics.RecordReconcilePass(taskAutoApply, "applied")
	r.notify(s, after, "auto-applied")
}

// ApplyCode validates a code the user typed and adds it. Every failure is
// returned so the caller can show it.
func (r *Reconciler) ApplyCode(ctx context.Context, s *Session, code string) (models.AppliedCoupon, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return models.AppliedCoupon{}, newError(CodeInvalidArgument, ErrMsgCouponCodeRequired)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.AppliedCoupon{}, newError(CodeNotFound, ErrMsgSessionClosed)
	}
	if models.HasCoupon(s.coupons, code) {
		s.mu.Unlock()
		return models.AppliedCoupon{}, newError(CodeInvariantViolation, ErrMsgCouponAlreadyApplied)
	}
	if len(s.items) == 0 {
		s.mu.Unlock()
		return models.AppliedCoupon{}, newError(CodeValidationFailed, ErrMsgCartEmpty)
	}
	cart := s.cartStateLocked()
	revision := s.revision
	s.mu.Unlock()

	outcome := r.coupons.Validate(ctx, code, cart)
	if !outcome.Success {
		if outcome.Failure == coupons.FailureNetwork {
			zap.L().Warn("coupon service unreachable", zap.String("session", s.id), zap.String("reason", outcome.Message))
			return models.AppliedCoupon{}, networkError(ErrMsgCouponServiceDown, nil)
		}
		message := outcome.Message
		if message == "" {
			message = ErrMsgCouponInvalid
		}
		return models.AppliedCoupon{}, newError(CodeValidationFailed, message)
	}

	coupon := *outcome.Coupon

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.AppliedCoupon{}, newError(CodeNotFound, ErrMsgSessionClosed)
	}
	if models.HasCoupon(s.coupons, coupon.Code) || models.HasCoupon(s.coupons, code) {
		s.mu.Unlock()
		return models.AppliedCoupon{}, newError(CodeInvariantViolation, ErrMsgCouponAlreadyApplied)
	}
	// the cart may have been emptied while the request was in flight
	if len(s.items) == 0 {
		s.mu.Unlock()
		return models.AppliedCoupon{}, newError(CodeValidationFailed, ErrMsgCartEmpty)
	}
	s.coupons = append(s.coupons, coupon)
	stale := s.revision != revision
	after := models.CouponCodes(s.coupons)
	s.mu.Unlock()

	if stale {
		// the discount was computed for an older cart
		r.scheduler.Schedule(s.id, taskRevalidate, r.cfg.RevalidateDelay, func() { r.revalidate(s) })
	}
	r.notify(s, after, "applied")
	return coupon, nil
}

// RemoveCode drops an applied coupon, ignoring case.
func (r *Reconciler) RemoveCode(s *Session, code string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return newError(CodeNotFound, ErrMsgSessionClosed)
	}
	idx := -1
	for i, c := range s.coupons {
		if models.SameCode(c.Code, code) {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return newError(CodeNotFound, ErrMsgCouponNotApplied)
	}
	s.coupons = append(s.coupons[:idx:idx], s.coupons[idx+1:]...)
	after := models.CouponCodes(s.coupons)
	s.mu.Unlock()

	r.notify(s, after, "removed")
	return nil
}

// Teardown cancels every pending task of the session.
func (r *Reconciler) Teardown(s *Session) {
	r.scheduler.CancelAll(s.id)
}

// CouponsCleared reports coupons dropped because the cart was emptied.
func (r *Reconciler) CouponsCleared(s *Session) {
	r.notify(s, []string{}, "cart-emptied")
}

func (r *Reconciler) notify(s *Session, codes []string, reason string) {
	if r.events == nil {
		return
	}
	event := models.SessionEvent{
		Type:      models.SessionCouponsChanged,
		SessionId: s.id,
		Coupons:   codes,
		Reason:    reason,
		Timestamp: time.Now().Unix(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.events.PublishSessionEvent(ctx, event); err != nil {
		zap.L().Warn("failed to publish session event", zap.String("session", s.id), zap.Error(err))
	}
}

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if models.SameCode(c, code) {
			return true
		}
	}
	return false
}

func couponsEqual(a, b []models.AppliedCoupon) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !models.SameCode(a[i].Code, b[i].Code) || !a[i].DiscountAmount.Equal(b[i].DiscountAmount) {
			return false
		}
	}
	return true
}

func missingCodes(before, after []string) []string {
	var out []string
	for _, c := range before {
		if !containsCode(after, c) {
			out = append(out, c)
		}
	}
	return out
}
