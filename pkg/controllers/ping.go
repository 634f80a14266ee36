package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func Ping(context *gin.Context) {
	now := time.Now().Local()
	context.JSON(http.StatusOK, gin.H{"message": "pong", "local_time": now})
}
