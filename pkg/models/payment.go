package models

// PaymentIntentRequest asks the payment service to start collecting Amount
// (integer minor units).
type PaymentIntentRequest struct {
	Amount    int64        `json:"amount"`
	Email     string       `json:"email"`
	Cart      []OrderLine  `json:"cart"`
	OrderData OrderPayload `json:"orderData"`
}

type PaymentIntentResponse struct {
	ClientSecret    string `json:"clientSecret,omitempty"`
	PaymentIntentId string `json:"paymentIntentId,omitempty"`
	IsFreeOrder     bool   `json:"isFreeOrder,omitempty"`
}

// PaymentConfirmation is what the dashboard reports back once the payment
// provider has finished with the card.
type PaymentConfirmation struct {
	PaymentIntentId string `json:"paymentIntentId" validate:"required"`
	DeclineCode     string `json:"declineCode,omitempty"`
	ErrorMessage    string `json:"errorMessage,omitempty"`
}

// Failed reports whether the provider rejected the payment.
func (p PaymentConfirmation) Failed() bool {
	return p.DeclineCode != "" || p.ErrorMessage != ""
}

type OrderResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	OrderId string `json:"orderId,omitempty"`
}
