package middleware

import (
	"net/http"
	"time"

	"ordercore-api-io/api/pkg/util"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimiter limits each client IP to limit requests per second. The counter
// lives in redis when a client is given, in memory otherwise.
func RateLimiter(client *redis.Client, limit int) gin.HandlerFunc {
	if limit <= 0 {
		limit = 20
	}

	var store ratelimit.Store
	if client != nil {
		store = ratelimit.RedisStore(&ratelimit.RedisOptions{
			RedisClient: client,
			Rate:        time.Second,
			Limit:       uint(limit),
		})
	} else {
		store = ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
			Rate:  time.Second,
			Limit: uint(limit),
		})
	}

	return ratelimit.RateLimiter(store, &ratelimit.Options{
		ErrorHandler: func(c *gin.Context, info ratelimit.Info) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, util.ErrorResponse{
				Error:  "Too many requests. Try again in " + time.Until(info.ResetTime).String(),
				Code:   "RATE_LIMITED",
				Status: http.StatusTooManyRequests,
			})
		},
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})
}
