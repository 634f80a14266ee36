package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage  DiscountType = "percentage"
	DiscountFixedAmount DiscountType = "fixed_amount"
)

type CouponStatus string

const CouponStatusActive CouponStatus = "active"

// AppliedCoupon is a coupon contributing a discount to the session's order.
// DiscountAmount is the amount the coupon service resolved for the current cart;
// DiscountPercentage is informational only.
type AppliedCoupon struct {
	Id                 string           `json:"id,omitempty"`
	Code               string           `json:"code"`
	Title              string           `json:"title,omitempty"`
	DiscountAmount     decimal.Decimal  `json:"discountAmount"`
	DiscountType       DiscountType     `json:"discountType"`
	DiscountPercentage *decimal.Decimal `json:"discountPercentage,omitempty"`
}

// CouponCandidate is an entry of the remote active-coupons listing.
type CouponCandidate struct {
	Id                 string          `json:"id"`
	Code               string          `json:"code"`
	Title              string          `json:"title,omitempty"`
	Status             CouponStatus    `json:"status"`
	DiscountAmount     decimal.Decimal `json:"discountAmount"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
	MinimumAmount      decimal.Decimal `json:"minimumAmount"`
	DiscountType       DiscountType    `json:"discountType"`
}

type ApplyCouponRequest struct {
	Code string `json:"code" validate:"required,couponcode"`
}

type AutoApplyRequest struct {
	Enabled bool `json:"enabled"`
}

// NormalizeCode case-folds a coupon code for comparisons.
func NormalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// SameCode reports whether two coupon codes are equal ignoring case.
func SameCode(a, b string) bool {
	return NormalizeCode(a) == NormalizeCode(b)
}

// HasCoupon reports whether coupons already contains code.
func HasCoupon(coupons []AppliedCoupon, code string) bool {
	for _, c := range coupons {
		if SameCode(c.Code, code) {
			return true
		}
	}
	return false
}

// CouponCodes returns the codes of coupons in order.
func CouponCodes(coupons []AppliedCoupon) []string {
	codes := make([]string, 0, len(coupons))
	for _, c := range coupons {
		codes = append(codes, c.Code)
	}
	return codes
}
