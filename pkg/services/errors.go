package services

import (
	"github.com/pkg/errors"
)

type ErrorCode int

const (
	CodeInvalidArgument ErrorCode = iota
	CodeNotFound
	CodeValidationFailed
	CodeNetworkFailure
	CodePaymentDeclined
	CodeInvariantViolation
	CodeOrderRejected
	CodeConflict
)

// Error message constants for the order-creation flow.
const (
	ErrMsgSessionNotFound      = "Session does not exist"
	ErrMsgSessionClosed        = "Session is closed"
	ErrMsgItemNotInCart        = "Item not in cart"
	ErrMsgQuantityPositive     = "Quantity must be at least 1"
	ErrMsgPriceNegative        = "Price cannot be negative"
	ErrMsgShippingNegative     = "Shipping cannot be negative"
	ErrMsgCartEmpty            = "Cart is empty"
	ErrMsgCouponCodeRequired   = "Coupon code is required"
	ErrMsgCouponAlreadyApplied = "Coupon already applied"
	ErrMsgCouponNotApplied     = "Coupon is not applied"
	ErrMsgCouponInvalid        = "Coupon is not valid for this order"
	ErrMsgCouponServiceDown    = "Coupon service is unavailable"
	ErrMsgOrderServiceDown     = "Order service is unavailable"
	ErrMsgPaymentServiceDown   = "Payment service is unavailable"
	ErrMsgOrderRejected        = "Order was not created"
	ErrMsgSubmitInProgress     = "Order submission already in progress"
	ErrMsgNoPendingPayment     = "No payment is pending for this session"
	ErrMsgPaymentIntentMissing = "Payment intent id does not match the pending payment"
)

func (c ErrorCode) String() string {
	switch c {
	case CodeInvalidArgument:
		return "INVALID_ARGUMENT"
	case CodeNotFound:
		return "NOT_FOUND"
	case CodeValidationFailed:
		return "VALIDATION_FAILED"
	case CodeNetworkFailure:
		return "NETWORK_FAILURE"
	case CodePaymentDeclined:
		return "PAYMENT_DECLINED"
	case CodeInvariantViolation:
		return "INVARIANT_VIOLATION"
	case CodeOrderRejected:
		return "ORDER_REJECTED"
	case CodeConflict:
		return "CONFLICT"
	default:
		return "UNKNOWN"
	}
}

// ServiceError is the error every service operation returns for an expected
// failure. Anything else is unexpected.
type ServiceError struct {
	Code    ErrorCode
	Message string
	// DeclineCode is set for CodePaymentDeclined.
	DeclineCode string
	cause       error
}

func (e *ServiceError) Error() string {
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.cause
}

func newError(code ErrorCode, message string) *ServiceError {
	return &ServiceError{Code: code, Message: message}
}

func networkError(message string, cause error) *ServiceError {
	return &ServiceError{Code: CodeNetworkFailure, Message: message, cause: cause}
}

// CodeOf returns the code of err, and false when err is not a ServiceError.
func CodeOf(err error) (ErrorCode, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return 0, false
}

var declineMessages = map[string]string{
	"card_declined":    "Your card was declined. Please use a different card.",
	"expired_card":     "Your card has expired. Please use a different card.",
	"incorrect_cvc":    "Your card's security code is incorrect.",
	"processing_error": "An error occurred while processing your card. Please try again.",
}

// DeclineMessage maps a payment provider decline code to the message shown
// to the user. Unknown codes fall back to the provider's own message.
func DeclineMessage(code, providerMessage string) string {
	if msg, ok := declineMessages[code]; ok {
		return msg
	}
	if providerMessage != "" {
		return providerMessage
	}
	return "Your payment could not be completed."
}

func paymentDeclined(code, providerMessage string) *ServiceError {
	return &ServiceError{
		Code:        CodePaymentDeclined,
		Message:     DeclineMessage(code, providerMessage),
		DeclineCode: code,
	}
}
