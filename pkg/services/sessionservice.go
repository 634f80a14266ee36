package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"ordercore-api-io/api/internal/common"
	"ordercore-api-io/api/internal/metrics"
	"ordercore-api-io/api/pkg/models"
	"ordercore-api-io/api/pkg/pricing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SessionServiceImpl implements the SessionService interface
type SessionServiceImpl struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	calc       pricing.Calculator
	reconciler *Reconciler
	events     SessionEventPublisher
	idleTTL    time.Duration
	now        func() time.Time
}

// NewSessionService creates a new instance of SessionService. events may be nil.
func NewSessionService(calc pricing.Calculator, reconciler *Reconciler, events SessionEventPublisher, idleTTL time.Duration) *SessionServiceImpl {
	return &SessionServiceImpl{
		sessions:   make(map[string]*Session),
		calc:       calc,
		reconciler: reconciler,
		events:     events,
		idleTTL:    idleTTL,
		now:        time.Now,
	}
}

func (ss *SessionServiceImpl) Open(ctx context.Context, req models.OpenSessionRequest) (models.SessionView, error) {
	s := newSession(uuid.NewString(), req.AutoApply, ss.now())

	ss.mu.Lock()
	ss.sessions[s.id] = s
	ss.mu.Unlock()

	metrics.SessionOpened()
	zap.L().Info("session opened", zap.String("session", s.id), zap.Bool("autoApply", req.AutoApply))

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked(ss.calc), nil
}

// lookup returns the open session for sessionID.
func (ss *SessionServiceImpl) lookup(sessionID string) (*Session, error) {
	ss.mu.RLock()
	s, ok := ss.sessions[sessionID]
	ss.mu.RUnlock()
	if !ok {
		return nil, newError(CodeNotFound, ErrMsgSessionNotFound)
	}
	return s, nil
}

func (ss *SessionServiceImpl) Get(ctx context.Context, sessionID string) (models.SessionView, error) {
	s, err := ss.lookup(sessionID)
	if err != nil {
		return models.SessionView{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = ss.now()
	return s.viewLocked(ss.calc), nil
}

func (ss *SessionServiceImpl) Totals(ctx context.Context, sessionID string) (models.Totals, error) {
	view, err := ss.Get(ctx, sessionID)
	if err != nil {
		return models.Totals{}, err
	}
	return view.Totals, nil
}

// Close abandons the session: pending tasks are cancelled and in-flight
// coupon requests are aborted.
func (ss *SessionServiceImpl) Close(ctx context.Context, sessionID string) error {
	if !ss.closeSession(sessionID, "abandoned") {
		return newError(CodeNotFound, ErrMsgSessionNotFound)
	}
	return nil
}

func (ss *SessionServiceImpl) closeSession(sessionID, reason string) bool {
	ss.mu.Lock()
	s, ok := ss.sessions[sessionID]
	if ok {
		delete(ss.sessions, sessionID)
	}
	ss.mu.Unlock()
	if !ok {
		return false
	}

	ss.reconciler.Teardown(s)
	if s.markClosed() {
		metrics.SessionClosed()
	}
	zap.L().Info("session closed", zap.String("session", sessionID), zap.String("reason", reason))

	if ss.events != nil {
		event := models.SessionEvent{Type: models.SessionClosed, SessionId: sessionID, Reason: reason, Timestamp: ss.now().Unix()}
		if err := ss.events.PublishSessionEvent(context.Background(), event); err != nil {
			zap.L().Warn("failed to publish session event", zap.String("session", sessionID), zap.Error(err))
		}
	}
	return true
}

// mutate applies change under the session lock, then fires the
// reconciliation trigger when the cart changed structurally.
func (ss *SessionServiceImpl) mutate(sessionID string, change func(s *Session) error) (models.SessionView, error) {
	s, err := ss.lookup(sessionID)
	if err != nil {
		return models.SessionView{}, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.SessionView{}, newError(CodeNotFound, ErrMsgSessionClosed)
	}
	if err := change(s); err != nil {
		s.mu.Unlock()
		return models.SessionView{}, err
	}
	s.touchLocked(ss.now())
	changed, cleared := s.refreshSnapshotLocked()
	view := s.viewLocked(ss.calc)
	s.mu.Unlock()

	if changed {
		ss.reconciler.CartChanged(s)
	}
	if cleared {
		ss.reconciler.CouponsCleared(s)
	}
	return view, nil
}

// AddItem adds a line to the cart. Adding an id that is already in the cart
// increases its quantity.
func (ss *SessionServiceImpl) AddItem(ctx context.Context, sessionID string, req models.CartItemRequest) (models.SessionView, error) {
	req.Id = strings.TrimSpace(req.Id)
	if err := common.Validate.Struct(&req); err != nil {
		return models.SessionView{}, newError(CodeInvalidArgument, err.Error())
	}

	return ss.mutate(sessionID, func(s *Session) error {
		if idx := s.itemIndex(req.Id); idx >= 0 {
			s.items[idx].Quantity += req.Quantity
			return nil
		}
		s.items = append(s.items, buildCartItem(req))
		return nil
	})
}

func buildCartItem(req models.CartItemRequest) models.CartItem {
	return models.CartItem{
		Id:                     req.Id,
		Title:                  req.Title,
		Sku:                    req.Sku,
		UnitPrice:              pricing.ConfiguredUnitPrice(req.BasePrice, req.SelectedOption, req.SelectedConfigurations),
		Quantity:               req.Quantity,
		CustomPriceOverride:    req.CustomPrice,
		SelectedOption:         req.SelectedOption,
		SelectedConfigurations: req.SelectedConfigurations,
		ProductConfigurations:  req.ProductConfigurations,
		ShippingUnitPrice:      req.ShippingUnitPrice,
		AvailableQuantity:      req.AvailableQuantity,
	}
}

func (ss *SessionServiceImpl) UpdateQuantity(ctx context.Context, sessionID, itemID string, quantity int) (models.SessionView, error) {
	if quantity < 1 {
		return models.SessionView{}, newError(CodeInvalidArgument, ErrMsgQuantityPositive)
	}
	return ss.mutate(sessionID, func(s *Session) error {
		idx := s.itemIndex(itemID)
		if idx < 0 {
			return newError(CodeNotFound, ErrMsgItemNotInCart)
		}
		s.items[idx].Quantity = quantity
		return nil
	})
}

// SetPriceOverride sets the custom unit price of a line; nil clears it.
func (ss *SessionServiceImpl) SetPriceOverride(ctx context.Context, sessionID, itemID string, price *decimal.Decimal) (models.SessionView, error) {
	if price != nil && price.IsNegative() {
		return models.SessionView{}, newError(CodeInvalidArgument, ErrMsgPriceNegative)
	}
	return ss.mutate(sessionID, func(s *Session) error {
		idx := s.itemIndex(itemID)
		if idx < 0 {
			return newError(CodeNotFound, ErrMsgItemNotInCart)
		}
		if price == nil {
			s.items[idx].CustomPriceOverride = nil
			return nil
		}
		p := price.Round(2)
		s.items[idx].CustomPriceOverride = &p
		return nil
	})
}

func (ss *SessionServiceImpl) RemoveItem(ctx context.Context, sessionID, itemID string) (models.SessionView, error) {
	return ss.mutate(sessionID, func(s *Session) error {
		idx := s.itemIndex(itemID)
		if idx < 0 {
			return newError(CodeNotFound, ErrMsgItemNotInCart)
		}
		s.items = append(s.items[:idx:idx], s.items[idx+1:]...)
		return nil
	})
}

func (ss *SessionServiceImpl) ClearCart(ctx context.Context, sessionID string) (models.SessionView, error) {
	return ss.mutate(sessionID, func(s *Session) error {
		s.items = make([]models.CartItem, 0)
		return nil
	})
}

// SetShipping stores the manually entered shipping amount. Shipping is not
// part of the cart snapshot, so it triggers no reconciliation.
func (ss *SessionServiceImpl) SetShipping(ctx context.Context, sessionID string, amount decimal.Decimal) (models.SessionView, error) {
	if amount.IsNegative() {
		return models.SessionView{}, newError(CodeInvalidArgument, ErrMsgShippingNegative)
	}
	return ss.mutate(sessionID, func(s *Session) error {
		s.manualShipping = amount.Round(2)
		return nil
	})
}

func (ss *SessionServiceImpl) SetAutoApply(ctx context.Context, sessionID string, enabled bool) (models.SessionView, error) {
	view, err := ss.mutate(sessionID, func(s *Session) error {
		s.autoApply = enabled
		return nil
	})
	if err != nil {
		return view, err
	}

	s, err := ss.lookup(sessionID)
	if err != nil {
		return view, nil
	}
	if enabled {
		ss.reconciler.AutoApplyEnabled(s)
	} else {
		ss.reconciler.AutoApplyDisabled(s)
	}
	return view, nil
}

func (ss *SessionServiceImpl) ApplyCoupon(ctx context.Context, sessionID, code string) (models.AppliedCoupon, error) {
	s, err := ss.lookup(sessionID)
	if err != nil {
		return models.AppliedCoupon{}, err
	}
	coupon, err := ss.reconciler.ApplyCode(ctx, s, code)
	if err != nil {
		return models.AppliedCoupon{}, err
	}
	ss.touch(s)
	return coupon, nil
}

func (ss *SessionServiceImpl) RemoveCoupon(ctx context.Context, sessionID, code string) (models.SessionView, error) {
	s, err := ss.lookup(sessionID)
	if err != nil {
		return models.SessionView{}, err
	}
	if err := ss.reconciler.RemoveCode(s, code); err != nil {
		return models.SessionView{}, err
	}
	ss.touch(s)
	return ss.Get(ctx, sessionID)
}

func (ss *SessionServiceImpl) touch(s *Session) {
	s.mu.Lock()
	s.touchLocked(ss.now())
	s.mu.Unlock()
}

// ReapIdle closes every session not seen since the idle TTL and returns how
// many were closed.
func (ss *SessionServiceImpl) ReapIdle() int {
	if ss.idleTTL <= 0 {
		return 0
	}
	cutoff := ss.now().Add(-ss.idleTTL)

	ss.mu.RLock()
	idle := make([]string, 0)
	for id, s := range ss.sessions {
		if s.idleSince().Before(cutoff) {
			idle = append(idle, id)
		}
	}
	ss.mu.RUnlock()

	closed := 0
	for _, id := range idle {
		if ss.closeSession(id, "idle") {
			closed++
		}
	}
	return closed
}

// StartReaper runs ReapIdle every interval until ctx is done.
func (ss *SessionServiceImpl) StartReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := ss.ReapIdle(); n > 0 {
					zap.L().Info("reaped idle sessions", zap.Int("count", n))
				}
			}
		}
	}()
}

// CloseAll tears every session down, used on shutdown.
func (ss *SessionServiceImpl) CloseAll() {
	ss.mu.RLock()
	ids := make([]string, 0, len(ss.sessions))
	for id := range ss.sessions {
		ids = append(ids, id)
	}
	ss.mu.RUnlock()

	for _, id := range ids {
		ss.closeSession(id, "shutdown")
	}
}
