package controllers

import (
	"net/http"

	"ordercore-api-io/api/pkg/models"
	"ordercore-api-io/api/pkg/services"
	"ordercore-api-io/api/pkg/util"

	"github.com/gin-gonic/gin"
)

type OrderController struct {
	orderService services.OrderService
}

func InitOrderController(orderService services.OrderService) *OrderController {
	return &OrderController{orderService: orderService}
}

// SubmitOrder handles POST /v1/sessions/:sessionId/submit
func (oc *OrderController) SubmitOrder() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := WithTimeout(c)
		defer cancel()

		sessionID, ok := SessionParam(c)
		if !ok {
			return
		}

		var req models.SubmitOrderRequest
		if !BindJSONAndValidate(c, &req) {
			return
		}

		result, err := oc.orderService.Submit(ctx, sessionID, req.Customer)
		if err != nil {
			HandleServiceError(c, err)
			return
		}

		if result.Status == models.SubmitStatusPaymentRequired {
			util.HandleSuccess(c, http.StatusAccepted, "Payment required", result)
			return
		}
		util.HandleSuccess(c, http.StatusCreated, "Order created", result)
	}
}

// ConfirmPayment handles POST /v1/sessions/:sessionId/payment/confirm
func (oc *OrderController) ConfirmPayment() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := WithTimeout(c)
		defer cancel()

		sessionID, ok := SessionParam(c)
		if !ok {
			return
		}

		var req models.PaymentConfirmation
		if !BindJSONAndValidate(c, &req) {
			return
		}

		result, err := oc.orderService.ConfirmPayment(ctx, sessionID, req)
		if err != nil {
			HandleServiceError(c, err)
			return
		}

		util.HandleSuccess(c, http.StatusCreated, "Order created", result)
	}
}

// GetRecentOrders handles GET /v1/orders
func (oc *OrderController) GetRecentOrders() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := WithTimeout(c)
		defer cancel()

		paginationArgs := GetPaginationArgs(c)

		entries, count, err := oc.orderService.RecentOrders(ctx, paginationArgs)
		if err != nil {
			util.HandleError(c, http.StatusInternalServerError, err)
			return
		}

		HandlePaginationAndResponse(c, entries, count, paginationArgs, "success")
	}
}
