// Package coupons talks to the remote coupon service and decides which active
// coupon is worth applying.
package coupons

import (
	"context"

	"ordercore-api-io/api/internal/metrics"
	"ordercore-api-io/api/pkg/clients"
	"ordercore-api-io/api/pkg/models"
	"ordercore-api-io/api/pkg/pricing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	validatePath         = "/coupon/validate"
	validateMultiplePath = "/coupon/validate-multiple"
	activePath           = "/coupon/active"
)

// CartState is what the coupon service needs to know about a session.
type CartState struct {
	Items          []models.CartItem
	Applied        []models.AppliedCoupon
	ManualShipping decimal.Decimal
}

type Client struct {
	transport *clients.Transport
	calc      pricing.Calculator
}

func NewClient(transport *clients.Transport, calc pricing.Calculator) *Client {
	return &Client{transport: transport, calc: calc}
}

// Validate checks code against the cart. With no coupon applied the
// single-coupon endpoint is used; otherwise the multi-coupon endpoint is asked
// about code alone, excluding the applied codes. Failures are reported in the
// outcome, never as an error.
func (c *Client) Validate(ctx context.Context, code string, cart CartState) ValidationOutcome {
	if len(cart.Applied) == 0 {
		return c.validateSingle(ctx, code, cart)
	}
	return c.validateMultiple(ctx, code, cart)
}

func (c *Client) validateSingle(ctx context.Context, code string, cart CartState) ValidationOutcome {
	subtotal := pricing.Subtotal(cart.Items).Round(2)
	shipping := c.calc.ShippingFor(cart.Items, subtotal, cart.ManualShipping)

	req := singleRequest{
		CouponCode:   code,
		CartItems:    CartLines(cart.Items),
		CartTotal:    subtotal.Add(shipping),
		CartSubtotal: subtotal,
		ShippingCost: shipping,
	}

	var env singleEnvelope
	if err := c.transport.PostJSON(ctx, validatePath, req, &env); err != nil {
		metrics.RecordCouponValidation("single", "network")
		return networkFailure(err)
	}
	outcome := fromSingleEnvelope(env, code)
	metrics.RecordCouponValidation("single", resultLabel(outcome))
	return outcome
}

func (c *Client) validateMultiple(ctx context.Context, code string, cart CartState) ValidationOutcome {
	subtotal := pricing.Subtotal(cart.Items)
	after := nonNegative(subtotal.Sub(pricing.SumDiscounts(cart.Applied))).Round(2)
	shipping := c.calc.ShippingFor(cart.Items, after, cart.ManualShipping)

	req := multiRequest{
		CouponCodes:           []string{code},
		CartItems:             CartLines(cart.Items),
		CartTotal:             after.Add(shipping),
		CartSubtotal:          after,
		ShippingCost:          shipping,
		ExcludeAppliedCoupons: models.CouponCodes(cart.Applied),
	}

	var env multiEnvelope
	if err := c.transport.PostJSON(ctx, validateMultiplePath, req, &env); err != nil {
		metrics.RecordCouponValidation("multiple", "network")
		return networkFailure(err)
	}
	outcome := fromMultiEnvelope(env, code)
	metrics.RecordCouponValidation("multiple", resultLabel(outcome))
	return outcome
}

// Revalidate re-submits every applied code against the current cart and
// returns the set the coupon service still accepts. An error means the set
// must be left as it is.
func (c *Client) Revalidate(ctx context.Context, cart CartState) ([]models.AppliedCoupon, error) {
	subtotal := pricing.Subtotal(cart.Items).Round(2)
	shipping := c.calc.ShippingFor(cart.Items, subtotal, cart.ManualShipping)

	req := multiRequest{
		CouponCodes:           models.CouponCodes(cart.Applied),
		CartItems:             CartLines(cart.Items),
		CartTotal:             subtotal.Add(shipping),
		CartSubtotal:          subtotal,
		ShippingCost:          shipping,
		ExcludeAppliedCoupons: []string{},
	}

	var env multiEnvelope
	if err := c.transport.PostJSON(ctx, validateMultiplePath, req, &env); err != nil {
		metrics.RecordCouponValidation("revalidate", "network")
		return nil, errors.Wrap(err, "revalidate coupons")
	}
	if !env.Success {
		metrics.RecordCouponValidation("revalidate", "rejected")
		return nil, errors.Errorf("revalidate coupons: %s", firstNonEmpty(env.Message, "unsuccessful response"))
	}
	metrics.RecordCouponValidation("revalidate", "ok")
	return revalidated(env), nil
}

// ListActive fetches the current active-coupon listing.
func (c *Client) ListActive(ctx context.Context) ([]models.CouponCandidate, error) {
	var env activeEnvelope
	if err := c.transport.GetJSON(ctx, activePath, &env); err != nil {
		return nil, errors.Wrap(err, "list active coupons")
	}
	if !env.Success {
		return nil, errors.Errorf("list active coupons: %s", firstNonEmpty(env.Message, "unsuccessful response"))
	}
	candidates := make([]models.CouponCandidate, 0, len(env.Data))
	for _, p := range env.Data {
		candidates = append(candidates, p.candidate())
	}
	return candidates, nil
}

func networkFailure(err error) ValidationOutcome {
	return ValidationOutcome{Success: false, Message: err.Error(), Failure: FailureNetwork}
}

func resultLabel(o ValidationOutcome) string {
	if o.Success {
		return "ok"
	}
	return "rejected"
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
