package coupons

import (
	"bytes"
	"strconv"
	"strings"

	"ordercore-api-io/api/pkg/models"
	"ordercore-api-io/api/pkg/pricing"

	"github.com/shopspring/decimal"
)

// CartLine is a cart item as the coupon service expects it.
type CartLine struct {
	Id                     string                         `json:"_id"`
	Title                  string                         `json:"title"`
	Sku                    string                         `json:"sku"`
	Price                  decimal.Decimal                `json:"price"`
	FinalPriceDiscount     decimal.Decimal                `json:"finalPriceDiscount"`
	OrderQuantity          int                            `json:"orderQuantity"`
	SelectedOption         *models.SelectedOption         `json:"selectedOption,omitempty"`
	SelectedConfigurations []models.SelectedConfiguration `json:"selectedConfigurations,omitempty"`
	ProductConfigurations  []models.ProductConfiguration  `json:"productConfigurations,omitempty"`
}

type singleRequest struct {
	CouponCode   string          `json:"couponCode"`
	CartItems    []CartLine      `json:"cartItems"`
	CartTotal    decimal.Decimal `json:"cartTotal"`
	CartSubtotal decimal.Decimal `json:"cartSubtotal"`
	ShippingCost decimal.Decimal `json:"shippingCost"`
}

type multiRequest struct {
	CouponCodes           []string        `json:"couponCodes"`
	CartItems             []CartLine      `json:"cartItems"`
	CartTotal             decimal.Decimal `json:"cartTotal"`
	CartSubtotal          decimal.Decimal `json:"cartSubtotal"`
	ShippingCost          decimal.Decimal `json:"shippingCost"`
	ExcludeAppliedCoupons []string        `json:"excludeAppliedCoupons"`
}

// number reads a JSON number, a numeric string or null. Anything unreadable
// is zero.
type number decimal.Decimal

func (n *number) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		*n = number(decimal.Zero)
		return nil
	}
	s := string(raw)
	if raw[0] == '"' {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			*n = number(decimal.Zero)
			return nil
		}
		s = strings.TrimSpace(unquoted)
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		*n = number(decimal.Zero)
		return nil
	}
	*n = number(v)
	return nil
}

func (n number) Decimal() decimal.Decimal {
	return decimal.Decimal(n)
}

// couponPayload is the validated-coupon shape shared by every endpoint.
type couponPayload struct {
	CouponCode         string  `json:"couponCode"`
	Code               string  `json:"code"`
	Success            *bool   `json:"success"`
	Discount           number  `json:"discount"`
	DiscountAmount     number  `json:"discountAmount"`
	DiscountType       string  `json:"discountType"`
	DiscountPercentage *number `json:"discountPercentage"`
	Title              string  `json:"title"`
	CouponId           string  `json:"couponId"`
	Id                 string  `json:"_id"`
	Message            string  `json:"message"`
}

func (p couponPayload) code() string {
	if p.CouponCode != "" {
		return p.CouponCode
	}
	return p.Code
}

func (p couponPayload) id() string {
	if p.CouponId != "" {
		return p.CouponId
	}
	return p.Id
}

func (p couponPayload) discount() decimal.Decimal {
	if d := p.Discount.Decimal(); !d.IsZero() {
		return d
	}
	return p.DiscountAmount.Decimal()
}

type singleEnvelope struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    *couponPayload `json:"data"`
}

type multiEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    *struct {
		ValidationResults []couponPayload `json:"validationResults"`
		AppliedCoupons    []couponPayload `json:"appliedCoupons"`
	} `json:"data"`
}

type candidatePayload struct {
	Id                 string `json:"_id"`
	AltId              string `json:"id"`
	CouponCode         string `json:"couponCode"`
	Code               string `json:"code"`
	Title              string `json:"title"`
	Status             string `json:"status"`
	DiscountAmount     number `json:"discountAmount"`
	DiscountPercentage number `json:"discountPercentage"`
	MinimumAmount      number `json:"minimumAmount"`
	DiscountType       string `json:"discountType"`
}

type activeEnvelope struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Data    []candidatePayload `json:"data"`
}

func (c candidatePayload) candidate() models.CouponCandidate {
	id := c.Id
	if id == "" {
		id = c.AltId
	}
	code := c.CouponCode
	if code == "" {
		code = c.Code
	}
	return models.CouponCandidate{
		Id:                 id,
		Code:               strings.TrimSpace(code),
		Title:              c.Title,
		Status:             models.CouponStatus(c.Status),
		DiscountAmount:     c.DiscountAmount.Decimal(),
		DiscountPercentage: c.DiscountPercentage.Decimal(),
		MinimumAmount:      c.MinimumAmount.Decimal(),
		DiscountType:       parseDiscountType(c.DiscountType),
	}
}

func parseDiscountType(s string) models.DiscountType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(models.DiscountPercentage), "percent":
		return models.DiscountPercentage
	default:
		return models.DiscountFixedAmount
	}
}

// CartLines serializes items with their resolved unit prices.
// finalPriceDiscount is the line's effective unit price.
func CartLines(items []models.CartItem) []CartLine {
	lines := make([]CartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, CartLine{
			Id:                     item.Id,
			Title:                  item.Title,
			Sku:                    item.Sku,
			Price:                  item.UnitPrice,
			FinalPriceDiscount:     pricing.EffectiveUnitPrice(item),
			OrderQuantity:          item.Quantity,
			SelectedOption:         item.SelectedOption,
			SelectedConfigurations: item.SelectedConfigurations,
			ProductConfigurations:  item.ProductConfigurations,
		})
	}
	return lines
}
