package controllers

import (
	"net/http"

	"ordercore-api-io/api/pkg/models"
	"ordercore-api-io/api/pkg/services"
	"ordercore-api-io/api/pkg/util"

	"github.com/gin-gonic/gin"
)

type SessionController struct {
	sessionService services.SessionService
}

// InitSessionController creates a new session controller with injected services
func InitSessionController(sessionService services.SessionService) *SessionController {
	return &SessionController{sessionService: sessionService}
}

// OpenSession handles POST /v1/sessions
func (sc *SessionController) OpenSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := WithTimeout(c)
		defer cancel()

		var req models.OpenSessionRequest
		if c.Request.ContentLength > 0 && !BindJSONAndValidate(c, &req) {
			return
		}

		view, err := sc.sessionService.Open(ctx, req)
		if err != nil {
			HandleServiceError(c, err)
			return
		}

		util.HandleSuccess(c, http.StatusCreated, "Session opened", view)
	}
}

// GetSession handles GET /v1/sessions/:sessionId
func (sc *SessionController) GetSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := WithTimeout(c)
		defer cancel()

		sessionID, ok := SessionParam(c)
		if !ok {
			return
		}

		view, err := sc.sessionService.Get(ctx, sessionID)
		if err != nil {
			HandleServiceError(c, err)
			return
		}

		util.HandleSuccess(c, http.StatusOK, "success", view)
	}
}

// GetTotals handles GET /v1/sessions/:sessionId/totals
func (sc *SessionController) GetTotals() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := WithTimeout(c)
		defer cancel()

		sessionID, ok := SessionParam(c)
		if !ok {
			return
		}

		totals, err := sc.sessionService.Totals(ctx, sessionID)
		if err != nil {
			HandleServiceError(c, err)
			return
		}

		util.HandleSuccess(c, http.StatusOK, "success", totals)
	}
}

// CloseSession handles DELETE /v1/sessions/:sessionId
func (sc *SessionController) CloseSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := WithTimeout(c)
		defer cancel()

		sessionID, ok := SessionParam(c)
		if !ok {
			return
		}

		if err := sc.sessionService.Close(ctx, sessionID); err != nil {
			HandleServiceError(c, err)
			return
		}

		util.HandleSuccess(c, http.StatusOK, "Session closed", gin.H{"id": sessionID})
	}
}

// AddItem handles POST /v1/sessions/:sessionId/items
func (sc *SessionController) AddItem() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := WithTimeout(c)
		defer cancel()

		sessionID, ok := SessionParam(c)
		if !ok {
			return
		}

		var req models.CartItemRequest
		if !BindJSONAndValidate(c, &req) {
			return
		}

		view, err := sc.sessionService.AddItem(ctx, sessionID, req)
		if err != nil {
			HandleServiceError(c, err)
			return
		}

		util.HandleSuccess(c, http.StatusOK, "Item added to cart", view)
	}
}

// UpdateQuantity handles PUT /v1/sessions/:sessionId/items/:itemId/quantity
func (sc *SessionController) UpdateQuantity() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := WithTimeout(c)
		defer cancel()

		sessionID, ok := SessionParam(c)
		if !ok {
			return
		}

		var req models.QuantityRequest
		if !BindJSONAndValidate(c, &req) {
			return
		}

		view, err := sc.sessionService.UpdateQuantity(ctx, sessionID, c.Param("itemId"), req.Quantity)
		if err != nil {
			HandleServiceError(c, err)
			return
		}

		util.HandleSuccess(c, http.StatusOK, "Quantity updated", view)
	}
}

// SetPriceOverride handles PUT /v1/sessions/:sessionId/items/:itemId/price
func (sc *SessionController) SetPriceOverride() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := WithTimeout(c)
		defer cancel()

		sessionID, ok := SessionParam(c)
		if !ok {
			return
		}

		var req models.PriceOverrideRequest
		if !BindJSONAndValidate(c, &req) {
			return
		}

		view, err := sc.sessionService.SetPriceOverride(ctx, sessionID, c.Param("itemId"), req.Price)
		if err != nil {
			HandleServiceError(c, err)
			return
		}

		util.HandleSuccess(c, http.StatusOK, "Price updated", view)
	}
}

// RemoveItem handles DELETE /v1/sessions/:sessionId/items/:itemId
func (sc *SessionController) RemoveItem() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := WithTimeout(c)
		defer cancel()

		sessionID, ok := SessionParam(c)
		if !ok {
			return
		}

		view, err := sc.sessionService.RemoveItem(ctx, sessionID, c.Param("itemId"))
		if err != nil {
			HandleServiceError(c, err)
			return
		}

		util.HandleSuccess(c, http.StatusOK, "Item removed from cart", view)
	}
}

// ClearCart handles DELETE /v1/sessions/:sessionId/items
func (sc *SessionController) ClearCart() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := WithTimeout(c)
		defer cancel()

		sessionID, ok := SessionParam(c)
		if !ok {
			return
		}

		view, err := sc.sessionService.ClearCart(ctx, sessionID)
		if err != nil {
			HandleServiceError(c, err)
			return
		}

		util.HandleSuccess(c, http.StatusOK, "Cart cleared", view)
	}
}

// SetShipping handles PUT /v1/sessions/:sessionId/shipping
func (sc *SessionController) SetShipping() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := WithTimeout(c)
		defer cancel()

		sessionID, ok := SessionParam(c)
		if !ok {
			return
		}

		var req models.ShippingRequest
		if !BindJSONAndValidate(c, &req) {
			return
		}

		view, err := sc.sessionService.SetShipping(ctx, sessionID, req.Amount)
		if err != nil {
			HandleServiceError(c, err)
			return
		}

		util.HandleSuccess(c, http.StatusOK, "Shipping updated", view)
	}
}
