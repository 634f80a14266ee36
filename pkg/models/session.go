package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Totals are derived from the cart and applied coupons on every read.
type Totals struct {
	Subtotal               decimal.Decimal `json:"subtotal"`
	CouponDiscount         decimal.Decimal `json:"couponDiscount"`
	SubtotalAfterDiscount  decimal.Decimal `json:"subtotalAfterDiscount"`
	IsFreeShippingEligible bool            `json:"isFreeShippingEligible"`
	ShippingCost           decimal.Decimal `json:"shippingCost"`
	Total                  decimal.Decimal `json:"total"`
}

type OpenSessionRequest struct {
	AutoApply bool `json:"autoApply"`
}

type SessionView struct {
	Id             string          `json:"id"`
	Items          []CartItem      `json:"items"`
	AppliedCoupons []AppliedCoupon `json:"appliedCoupons"`
	ManualShipping decimal.Decimal `json:"manualShipping"`
	AutoApply      bool            `json:"autoApply"`
	Totals         Totals          `json:"totals"`
	PendingPayment bool            `json:"pendingPayment"`
	CreatedAt      time.Time       `json:"createdAt"`
	ModifiedAt     time.Time       `json:"modifiedAt"`
}

type SessionEventType string

const (
	SessionCouponsChanged SessionEventType = "session.coupons.changed"
	SessionClosed         SessionEventType = "session.closed"
)

// SessionEvent tells dashboards that a session changed behind their back.
type SessionEvent struct {
	Type      SessionEventType `json:"type"`
	SessionId string           `json:"sessionId"`
	Coupons   []string         `json:"coupons,omitempty"`
	Reason    string           `json:"reason,omitempty"`
	Timestamp int64            `json:"timestamp"`
}
