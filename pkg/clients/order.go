package clients

import (
	"context"

	"ordercore-api-io/api/pkg/models"

	"github.com/pkg/errors"
)

const (
	createOrderPath   = "/order/add"
	paymentIntentPath = "/order/create-payment-intent"
)

type OrderClient struct {
	transport *Transport
}

func NewOrderClient(t *Transport) *OrderClient {
	return &OrderClient{transport: t}
}

type orderEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	OrderId string `json:"orderId"`
	Data    *struct {
		Id      string `json:"_id"`
		OrderId string `json:"orderId"`
	} `json:"data"`
}

// CreateOrder submits payload to the order service. A rejected order is not an
// error: the response carries Success=false and the service's message.
func (c *OrderClient) CreateOrder(ctx context.Context, payload models.OrderPayload) (models.OrderResponse, error) {
	var env orderEnvelope
	if err := c.transport.PostJSON(ctx, createOrderPath, payload, &env); err != nil {
		return models.OrderResponse{}, errors.Wrap(err, "create order")
	}

	resp := models.OrderResponse{Success: env.Success, Message: env.Message, OrderId: env.OrderId}
	if resp.OrderId == "" && env.Data != nil {
		resp.OrderId = env.Data.OrderId
		if resp.OrderId == "" {
			resp.OrderId = env.Data.Id
		}
	}
	return resp, nil
}

type PaymentClient struct {
	transport *Transport
}

func NewPaymentClient(t *Transport) *PaymentClient {
	return &PaymentClient{transport: t}
}

// CreatePaymentIntent answers with a client secret, or IsFreeOrder when the
// payment service decides nothing has to be collected.
func (c *PaymentClient) CreatePaymentIntent(ctx context.Context, req models.PaymentIntentRequest) (models.PaymentIntentResponse, error) {
	var resp models.PaymentIntentResponse
	if err := c.transport.PostJSON(ctx, paymentIntentPath, req, &resp); err != nil {
		return models.PaymentIntentResponse{}, errors.Wrap(err, "create payment intent")
	}
	if resp.ClientSecret == "" && !resp.IsFreeOrder {
		return models.PaymentIntentResponse{}, errors.New("payment intent response carries neither clientSecret nor isFreeOrder")
	}
	return resp, nil
}
