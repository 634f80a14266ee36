package coupons

import (
	"strings"

	"ordercore-api-io/api/pkg/models"
)

// SelectBest returns the most valuable active candidate whose code is not
// applied yet, or nil when none is left.
//
// Ranking: higher discountAmount, then lower minimumAmount, then higher
// discountPercentage. Full ties keep the candidate seen first.
func SelectBest(candidates []models.CouponCandidate, applied []models.AppliedCoupon) *models.CouponCandidate {
	var best *models.CouponCandidate
	for i := range candidates {
		c := candidates[i]
		if !eligible(c, applied) {
			continue
		}
		if best == nil || better(c, *best) {
			picked := c
			best = &picked
		}
	}
	return best
}

func eligible(c models.CouponCandidate, applied []models.AppliedCoupon) bool {
	if strings.TrimSpace(c.Code) == "" {
		return false
	}
	if c.Status != models.CouponStatusActive {
		return false
	}
	return !models.HasCoupon(applied, c.Code)
}

// better reports whether a strictly outranks b.
func better(a, b models.CouponCandidate) bool {
	if cmp := a.DiscountAmount.Cmp(b.DiscountAmount); cmp != 0 {
		return cmp > 0
	}
	if cmp := a.MinimumAmount.Cmp(b.MinimumAmount); cmp != 0 {
		return cmp < 0
	}
	return a.DiscountPercentage.GreaterThan(b.DiscountPercentage)
}
