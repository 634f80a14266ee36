package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Customer struct {
	Name           string `json:"name" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Contact        string `json:"contact" validate:"required"`
	Address        string `json:"address" validate:"required"`
	City           string `json:"city" validate:"required"`
	Country        string `json:"country" validate:"required"`
	ZipCode        string `json:"zipCode" validate:"required"`
	ShippingOption string `json:"shippingOption,omitempty"`
}

// OrderLine is a cart line with its resolved unit price.
type OrderLine struct {
	Id                     string                  `json:"_id"`
	Title                  string                  `json:"title"`
	Sku                    string                  `json:"sku"`
	Price                  decimal.Decimal         `json:"price"`
	OrderQuantity          int                     `json:"orderQuantity"`
	LineTotal              decimal.Decimal         `json:"lineTotal"`
	IsCustomPrice          bool                    `json:"isCustomPrice,omitempty"`
	SelectedOption         *SelectedOption         `json:"selectedOption,omitempty"`
	SelectedConfigurations []SelectedConfiguration `json:"selectedConfigurations,omitempty"`
}

type CouponSummary struct {
	Id           string          `json:"couponId,omitempty"`
	Code         string          `json:"couponCode"`
	Title        string          `json:"title,omitempty"`
	Discount     decimal.Decimal `json:"discount"`
	DiscountType DiscountType    `json:"discountType"`
}

type PaymentMethod string

const (
	PaymentMethodFree PaymentMethod = "free"
	PaymentMethodCard PaymentMethod = "card"
)

// OrderPayload is the body sent to the order service.
type OrderPayload struct {
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	Contact         string          `json:"contact"`
	Address         string          `json:"address"`
	City            string          `json:"city"`
	Country         string          `json:"country"`
	ZipCode         string          `json:"zipCode"`
	ShippingOption  string          `json:"shippingOption,omitempty"`
	Cart            []OrderLine     `json:"cart"`
	SubTotal        decimal.Decimal `json:"subTotal"`
	ShippingCost    decimal.Decimal `json:"shippingCost"`
	Discount        decimal.Decimal `json:"discount"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	AppliedCoupons  []CouponSummary `json:"appliedCoupons"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	IsFreeOrder     bool            `json:"isFreeOrder"`
	PaymentIntentId string          `json:"paymentIntentId,omitempty"`
}

type SubmitOrderRequest struct {
	Customer Customer `json:"customer" validate:"required"`
}

type SubmitStatus string

const (
	SubmitStatusCreated         SubmitStatus = "created"
	SubmitStatusPaymentRequired SubmitStatus = "payment_required"
)

type SubmitResult struct {
	Status       SubmitStatus  `json:"status"`
	OrderId      string        `json:"orderId,omitempty"`
	IsFreeOrder  bool          `json:"isFreeOrder"`
	ClientSecret string        `json:"clientSecret,omitempty"`
	Message      string        `json:"message,omitempty"`
	Order        *OrderPayload `json:"order"`
}

type OrderOutcome string

const (
	OrderOutcomeFree OrderOutcome = "free"
	OrderOutcomePaid OrderOutcome = "paid"
)

// LedgerEntry records an order this service created.
type LedgerEntry struct {
	Id              primitive.ObjectID   `bson:"_id" json:"_id"`
	SessionId       string               `bson:"session_id" json:"sessionId"`
	OrderId         string               `bson:"order_id,omitempty" json:"orderId,omitempty"`
	Outcome         OrderOutcome         `bson:"outcome" json:"outcome"`
	CustomerEmail   string               `bson:"customer_email" json:"customerEmail"`
	CouponCodes     []string             `bson:"coupon_codes" json:"couponCodes"`
	SubTotal        primitive.Decimal128 `bson:"sub_total" json:"subTotal"`
	Discount        primitive.Decimal128 `bson:"discount" json:"discount"`
	ShippingCost    primitive.Decimal128 `bson:"shipping_cost" json:"shippingCost"`
	TotalAmount     primitive.Decimal128 `bson:"total_amount" json:"totalAmount"`
	PaymentIntentId string               `bson:"payment_intent_id,omitempty" json:"paymentIntentId,omitempty"`
	Message         string               `bson:"message,omitempty" json:"message,omitempty"`
	CreatedAt       time.Time            `bson:"created_at" json:"createdAt"`
}

// NewLedgerEntry snapshots an order payload for the ledger.
func NewLedgerEntry(sessionID, orderID, message string, payload OrderPayload, now time.Time) LedgerEntry {
	outcome := OrderOutcomePaid
	if payload.IsFreeOrder {
		outcome = OrderOutcomeFree
	}
	codes := make([]string, 0, len(payload.AppliedCoupons))
	for _, c := range payload.AppliedCoupons {
		codes = append(codes, c.Code)
	}
	return LedgerEntry{
		Id:              primitive.NewObjectID(),
		SessionId:       sessionID,
		OrderId:         orderID,
		Outcome:         outcome,
		CustomerEmail:   payload.Email,
		CouponCodes:     codes,
		SubTotal:        toDecimal128(payload.SubTotal),
		Discount:        toDecimal128(payload.Discount),
		ShippingCost:    toDecimal128(payload.ShippingCost),
		TotalAmount:     toDecimal128(payload.TotalAmount),
		PaymentIntentId: payload.PaymentIntentId,
		Message:         message,
		CreatedAt:       now,
	}
}

func toDecimal128(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.StringFixed(2))
	if err != nil {
		return primitive.NewDecimal128(0, 0)
	}
	return v
}

// OrderEvent is published once an order has been created.
type OrderEvent struct {
	OrderId     string          `json:"order_id"`
	SessionId   string          `json:"session_id"`
	Type        string          `json:"type"`
	IsFreeOrder bool            `json:"is_free_order"`
	Total       decimal.Decimal `json:"total"`
	Occurred    time.Time       `json:"occurred"`
}
