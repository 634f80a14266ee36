package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"ordercore-api-io/api/internal/common"
	"ordercore-api-io/api/pkg/services"
	"ordercore-api-io/api/pkg/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WithTimeout creates a context with the standard request timeout
func WithTimeout(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), common.REQUEST_TIMEOUT_SECS)
}

// BindJSONAndValidate binds JSON and handles validation errors
func BindJSONAndValidate(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		zap.L().Debug("JSON binding error", zap.String("path", c.FullPath()), zap.Error(err))
		util.HandleErrorCode(c, http.StatusBadRequest, services.CodeInvalidArgument.String(), err, nil)
		return false
	}

	if err := common.Validate.Struct(obj); err != nil {
		zap.L().Debug("validation error", zap.String("path", c.FullPath()), zap.Error(err))
		util.HandleErrorCode(c, http.StatusBadRequest, services.CodeInvalidArgument.String(), err, nil)
		return false
	}

	return true
}

// SessionParam returns the :sessionId path parameter.
func SessionParam(c *gin.Context) (string, bool) {
	id := c.Param("sessionId")
	if common.IsEmptyString(id) {
		util.HandleErrorCode(c, http.StatusBadRequest, services.CodeInvalidArgument.String(), errors.New("session id is required"), nil)
		return "", false
	}
	return id, true
}

// HandleServiceError answers with the HTTP status matching the error code.
// Errors that are not service errors are reported as internal failures.
func HandleServiceError(c *gin.Context, err error) {
	var se *services.ServiceError
	if !errors.As(err, &se) {
		util.LogError("unexpected service error", err, zap.String("path", c.FullPath()))
		util.HandleError(c, http.StatusInternalServerError, err)
		return
	}

	var data interface{}
	if se.DeclineCode != "" {
		data = gin.H{"declineCode": se.DeclineCode}
	}
	util.HandleErrorCode(c, StatusFor(se.Code), se.Code.String(), se, data)
}

func StatusFor(code services.ErrorCode) int {
	switch code {
	case services.CodeInvalidArgument:
		return http.StatusBadRequest
	case services.CodeNotFound:
		return http.StatusNotFound
	case services.CodeValidationFailed, services.CodeOrderRejected:
		return http.StatusUnprocessableEntity
	case services.CodeNetworkFailure:
		return http.StatusBadGateway
	case services.CodePaymentDeclined:
		return http.StatusPaymentRequired
	case services.CodeInvariantViolation, services.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func GetPaginationArgs(c *gin.Context) util.PaginationArgs {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	sort := c.DefaultQuery("sort", "created_at_desc")

	if limit <= 0 || limit > 100 {
		limit = 10
	}
	if skip < 0 {
		skip = 0
	}

	return util.PaginationArgs{
		Limit: limit,
		Skip:  skip,
		Sort:  sort,
	}
}

// HandlePaginationAndResponse is a utility for common pagination responses
func HandlePaginationAndResponse(c *gin.Context, data any, count int64, paginationArgs util.PaginationArgs, message string) {
	util.HandleSuccessMeta(c, http.StatusOK, message, data, gin.H{
		"pagination": util.Pagination{
			Limit: paginationArgs.Limit,
			Skip:  paginationArgs.Skip,
			Count: count,
		},
	})
}
