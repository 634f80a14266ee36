package util

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SuccessResponse struct {
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
	Message string      `json:"message"`
	Status  int         `json:"status"`
}

func HandleSuccess(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, SuccessResponse{
		Status:  statusCode,
		Message: message,
		Data:    data,
		Meta:    nil,
	})
}

func HandleSuccessMeta(c *gin.Context, statusCode int, message string, data, meta interface{}) {
	c.JSON(statusCode, SuccessResponse{
		Status:  statusCode,
		Message: message,
		Data:    data,
		Meta:    meta,
	})
}

type ErrorResponse struct {
	Error  string      `json:"error,omitempty"`
	Code   string      `json:"code,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Status int         `json:"status"`
}

func HandleError(c *gin.Context, statusCode int, err error) {
	HandleErrorCode(c, statusCode, "", err, nil)
}

// HandleErrorCode answers with a machine-readable code and optional data next
// to the message.
func HandleErrorCode(c *gin.Context, statusCode int, code string, err error, data interface{}) {
	zap.L().Debug("request failed",
		zap.String("path", c.FullPath()),
		zap.Int("status", statusCode),
		zap.String("code", code),
		zap.Error(err),
	)
	c.JSON(statusCode, ErrorResponse{
		Error:  err.Error(),
		Code:   code,
		Data:   data,
		Status: statusCode,
	})
}

type PaginationArgs struct {
	Sort  string
	Limit int
	Skip  int
}

type Pagination struct {
	Limit int   `json:"limit"`
	Skip  int   `json:"skip"`
	Count int64 `json:"count"`
}
