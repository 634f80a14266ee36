package common

import (
	"reflect"
	"strings"
	"time"

	"ordercore-api-io/api/internal/validators"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var Validate = newValidator()

const (
	REQUEST_TIMEOUT_SECS = 30 * time.Second
	SUBMIT_LOCK_TTL      = 30 * time.Second
	SHUTDOWN_TIMEOUT     = 10 * time.Second
	REAPER_INTERVAL      = time.Minute
)

func newValidator() *validator.Validate {
	v := validator.New()
	// decimals validate as their float value so gte/gt/lte tags work
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	_ = v.RegisterValidation("couponcode", validators.CouponCode)
	return v
}

// IsEmptyString checks if a string is empty
func IsEmptyString(s string) bool {
	return strings.TrimSpace(s) == ""
}
