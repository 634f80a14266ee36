// Package pricing derives order totals from a cart and its applied coupons.
// Everything here is pure: the same inputs always produce the same Totals.
package pricing

import (
	"ordercore-api-io/api/pkg/models"

	"github.com/shopspring/decimal"
)

// DefaultFreeShippingThreshold is the discounted subtotal a cart has to exceed
// (strictly) to ship for free.
var DefaultFreeShippingThreshold = decimal.NewFromInt(500)

var hundred = decimal.NewFromInt(100)

type Calculator struct {
	FreeShippingThreshold decimal.Decimal
}

func NewCalculator(threshold decimal.Decimal) Calculator {
	return Calculator{FreeShippingThreshold: nonNegative(threshold)}
}

func DefaultCalculator() Calculator {
	return NewCalculator(DefaultFreeShippingThreshold)
}

// Compute returns the totals for items and coupons. manualShipping is the
// shipping amount entered by hand; it competes with the per-item shipping sum.
func (c Calculator) Compute(items []models.CartItem, coupons []models.AppliedCoupon, manualShipping decimal.Decimal) models.Totals {
	if len(items) == 0 {
		return models.Totals{
			Subtotal:              decimal.Zero,
			CouponDiscount:        decimal.Zero,
			SubtotalAfterDiscount: decimal.Zero,
			ShippingCost:          decimal.Zero,
			Total:                 decimal.Zero,
		}
	}

	subtotal := Subtotal(items)
	discount := SumDiscounts(coupons)
	after := nonNegative(subtotal.Sub(discount))
	eligible := c.IsFreeShippingEligible(after)

	shipping := decimal.Zero
	if !eligible {
		shipping = decimal.Max(nonNegative(manualShipping), ItemsShipping(items))
	}

	return models.Totals{
		Subtotal:               round(subtotal),
		CouponDiscount:         round(discount),
		SubtotalAfterDiscount:  round(after),
		IsFreeShippingEligible: eligible,
		ShippingCost:           round(shipping),
		Total:                  round(nonNegative(after.Add(shipping))),
	}
}

// IsFreeShippingEligible reports whether the discounted subtotal is strictly
// above the threshold. Shipping is never part of the compared value.
func (c Calculator) IsFreeShippingEligible(subtotalAfterDiscount decimal.Decimal) bool {
	return subtotalAfterDiscount.GreaterThan(c.FreeShippingThreshold)
}

// ShippingFor returns the shipping cost charged for a cart whose discounted
// subtotal is subtotalAfterDiscount.
func (c Calculator) ShippingFor(items []models.CartItem, subtotalAfterDiscount, manualShipping decimal.Decimal) decimal.Decimal {
	if len(items) == 0 || c.IsFreeShippingEligible(subtotalAfterDiscount) {
		return decimal.Zero
	}
	return round(decimal.Max(nonNegative(manualShipping), ItemsShipping(items)))
}

// EffectiveUnitPrice is the custom override when one is set, else the
// configured unit price.
func EffectiveUnitPrice(item models.CartItem) decimal.Decimal {
	if item.CustomPriceOverride != nil {
		return nonNegative(*item.CustomPriceOverride)
	}
	return nonNegative(item.UnitPrice)
}

// LineTotal is the effective unit price times the quantity.
func LineTotal(item models.CartItem) decimal.Decimal {
	if item.Quantity <= 0 {
		return decimal.Zero
	}
	return EffectiveUnitPrice(item).Mul(decimal.NewFromInt(int64(item.Quantity)))
}

// Subtotal sums the line totals, unrounded.
func Subtotal(items []models.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(LineTotal(item))
	}
	return total
}

// SumDiscounts adds up the applied discounts, ignoring negative amounts.
func SumDiscounts(coupons []models.AppliedCoupon) decimal.Decimal {
	total := decimal.Zero
	for _, c := range coupons {
		total = total.Add(nonNegative(c.DiscountAmount))
	}
	return total
}

// ItemsShipping sums the per-unit shipping contributions of the cart.
func ItemsShipping(items []models.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		if item.ShippingUnitPrice == nil || item.Quantity <= 0 {
			continue
		}
		total = total.Add(nonNegative(*item.ShippingUnitPrice).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// ConfiguredUnitPrice adds the selected option and configuration prices to
// the product base price.
func ConfiguredUnitPrice(base decimal.Decimal, option *models.SelectedOption, configurations []models.SelectedConfiguration) decimal.Decimal {
	price := nonNegative(base)
	if option != nil {
		price = price.Add(nonNegative(option.Price))
	}
	for _, cfg := range configurations {
		price = price.Add(nonNegative(cfg.SelectedOption.Price))
	}
	return round(price)
}

// Snapshot normalizes the cart for structural change detection.
func Snapshot(items []models.CartItem) []models.SnapshotEntry {
	entries := make([]models.SnapshotEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, models.SnapshotEntry{
			Id:             item.Id,
			Quantity:       item.Quantity,
			EffectivePrice: EffectiveUnitPrice(item),
		})
	}
	return entries
}

func SnapshotsEqual(a, b []models.SnapshotEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Id != b[i].Id || a[i].Quantity != b[i].Quantity || !a[i].EffectivePrice.Equal(b[i].EffectivePrice) {
			return false
		}
	}
	return true
}

// ToMinorUnits converts an amount to integer cents, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return nonNegative(amount).Mul(hundred).Round(0).IntPart()
}

func round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
