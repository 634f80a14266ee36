package controllers

import (
	"net/http"

	"ordercore-api-io/api/pkg/models"
	"ordercore-api-io/api/pkg/services"
	"ordercore-api-io/api/pkg/util"

	"github.com/gin-gonic/gin"
)

type CouponController struct {
	sessionService services.SessionService
}

func InitCouponController(sessionService services.SessionService) *CouponController {
	return &CouponController{sessionService: sessionService}
}

// ApplyCoupon handles POST /v1/sessions/:sessionId/coupons
func (cc *CouponController) ApplyCoupon() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := WithTimeout(c)
		defer cancel()

		sessionID, ok := SessionParam(c)
		if !ok {
			return
		}

		var req models.ApplyCouponRequest
		if !BindJSONAndValidate(c, &req) {
			return
		}

		coupon, err := cc.sessionService.ApplyCoupon(ctx, sessionID, req.Code)
		if err != nil {
			HandleServiceError(c, err)
			return
		}

		totals, err := cc.sessionService.Totals(ctx, sessionID)
		if err != nil {
			HandleServiceError(c, err)
			return
		}

		util.HandleSuccess(c, http.StatusOK, "Coupon applied", gin.H{
			"coupon": coupon,
			"totals": totals,
		})
	}
}

// RemoveCoupon handles DELETE /v1/sessions/:sessionId/coupons/:code
func (cc *CouponController) RemoveCoupon() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := WithTimeout(c)
		defer cancel()

		sessionID, ok := SessionParam(c)
		if !ok {
			return
		}

		view, err := cc.sessionService.RemoveCoupon(ctx, sessionID, c.Param("code"))
		if err != nil {
			HandleServiceError(c, err)
			return
		}

		util.HandleSuccess(c, http.StatusOK, "Coupon removed", view)
	}
}

// SetAutoApply handles PUT /v1/sessions/:sessionId/auto-apply
func (cc *CouponController) SetAutoApply() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := WithTimeout(c)
		defer cancel()

		sessionID, ok := SessionParam(c)
		if !ok {
			return
		}

		var req models.AutoApplyRequest
		if !BindJSONAndValidate(c, &req) {
			return
		}

		view, err := cc.sessionService.SetAutoApply(ctx, sessionID, req.Enabled)
		if err != nil {
			HandleServiceError(c, err)
			return
		}

		util.HandleSuccess(c, http.StatusOK, "Auto-apply updated", view)
	}
}
