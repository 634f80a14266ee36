package coupons

import (
	"strings"

	"ordercore-api-io/api/pkg/models"
)

type FailureKind int

const (
	FailureNone FailureKind = iota
	// FailureValidation means the coupon service answered and rejected the code.
	FailureValidation
	// FailureNetwork means the coupon service could not be reached or answered garbage.
	FailureNetwork
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureValidation:
		return "validation"
	case FailureNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// ValidationOutcome is the result of validating one code. Exactly one of
// Coupon (Success) or Failure (not Success) is meaningful.
type ValidationOutcome struct {
	Success bool
	Coupon  *models.AppliedCoupon
	Message string
	Failure FailureKind
}

func rejected(message string) ValidationOutcome {
	return ValidationOutcome{Success: false, Message: message, Failure: FailureValidation}
}

func accepted(coupon models.AppliedCoupon, message string) ValidationOutcome {
	return ValidationOutcome{Success: true, Coupon: &coupon, Message: message}
}

func (p couponPayload) applied(fallbackCode string) models.AppliedCoupon {
	code := strings.TrimSpace(p.code())
	if code == "" {
		code = fallbackCode
	}
	coupon := models.AppliedCoupon{
		Id:             p.id(),
		Code:           code,
		Title:          p.Title,
		DiscountAmount: nonNegative(p.discount()),
		DiscountType:   parseDiscountType(p.DiscountType),
	}
	if p.DiscountPercentage != nil {
		pct := p.DiscountPercentage.Decimal()
		coupon.DiscountPercentage = &pct
	}
	return coupon
}

// fromSingleEnvelope reads the response of the single-coupon endpoint.
func fromSingleEnvelope(env singleEnvelope, code string) ValidationOutcome {
	if !env.Success {
		return rejected(firstNonEmpty(env.Message, messageOf(env.Data)))
	}
	if env.Data == nil {
		return rejected(env.Message)
	}
	if env.Data.Success != nil && !*env.Data.Success {
		return rejected(firstNonEmpty(env.Data.Message, env.Message))
	}
	return accepted(env.Data.applied(code), env.Message)
}

// fromValidationResults picks the result for code out of the multi-coupon
// validationResults list.
func fromValidationResults(results []couponPayload, code string) (ValidationOutcome, bool) {
	for _, r := range results {
		if !models.SameCode(r.code(), code) {
			continue
		}
		if r.Success != nil && !*r.Success {
			return rejected(r.Message), true
		}
		return accepted(r.applied(code), r.Message), true
	}
	return ValidationOutcome{}, false
}

// fromAppliedCoupons falls back to the appliedCoupons list when the
// multi-coupon response carries no result for code.
func fromAppliedCoupons(applied []couponPayload, code string) (ValidationOutcome, bool) {
	for _, a := range applied {
		if models.SameCode(a.code(), code) {
			return accepted(a.applied(code), ""), true
		}
	}
	return ValidationOutcome{}, false
}

func fromMultiEnvelope(env multiEnvelope, code string) ValidationOutcome {
	if !env.Success || env.Data == nil {
		return rejected(env.Message)
	}
	if outcome, ok := fromValidationResults(env.Data.ValidationResults, code); ok {
		if !outcome.Success && outcome.Message == "" {
			outcome.Message = env.Message
		}
		return outcome
	}
	if outcome, ok := fromAppliedCoupons(env.Data.AppliedCoupons, code); ok {
		return outcome
	}
	return rejected(firstNonEmpty(env.Message, "Coupon is not applicable to this order"))
}

// revalidated turns a multi-coupon response to a self-revalidation into the
// replacement Applied Coupon set. Only successful entries survive; entries are
// taken from validationResults when present, else from appliedCoupons.
func revalidated(env multiEnvelope) []models.AppliedCoupon {
	out := make([]models.AppliedCoupon, 0)
	if env.Data == nil {
		return out
	}
	source := env.Data.ValidationResults
	if len(source) == 0 {
		source = env.Data.AppliedCoupons
	}
	for _, r := range source {
		if r.Success != nil && !*r.Success {
			continue
		}
		coupon := r.applied("")
		if coupon.Code == "" || models.HasCoupon(out, coupon.Code) {
			continue
		}
		out = append(out, coupon)
	}
	return out
}

func messageOf(p *couponPayload) string {
	if p == nil {
		return ""
	}
	return p.Message
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
