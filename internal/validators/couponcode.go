package validators

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

const maxCouponCodeLength = 64

var couponCodePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// ValidateCouponCode checks that a coupon code is a single token of letters,
// digits, dashes and underscores. Surrounding whitespace is ignored.
func ValidateCouponCode(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return errors.New("coupon code is required")
	}
	if len(code) > maxCouponCodeLength {
		return errors.New("coupon code is too long")
	}
	if !couponCodePattern.MatchString(code) {
		return errors.New("coupon code may only contain letters, digits, dashes and underscores")
	}
	return nil
}

// CouponCode is the `couponcode` validator tag.
func CouponCode(fl validator.FieldLevel) bool {
	return ValidateCouponCode(fl.Field().String()) == nil
}
