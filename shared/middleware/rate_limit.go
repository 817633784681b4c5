package middleware

import (
	"net/http"
	"time"

	"adventure-server/shared/models"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// PlayRateLimiter limits requests per signed-in user and per client IP for anonymous
// players. X-Session-Key is chosen by the client, so it never keys a counter.
// With a nil redisClient counters are kept in memory.
func PlayRateLimiter(redisClient *redis.Client, limit uint, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("RateLimiter")

	var store ratelimit.Store
	if redisClient != nil {
		store = ratelimit.RedisStore(&ratelimit.RedisOptions{
			RedisClient: redisClient,
			Rate:        window,
			Limit:       limit,
		})
	} else {
		store = ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
			Rate:  window,
			Limit: limit,
		})
	}

	return ratelimit.RateLimiter(store, &ratelimit.Options{
		ErrorHandler: func(c *gin.Context, info ratelimit.Info) {
			log.Warn("Rate limit exceeded",
				zap.String("key", rateLimitKey(c)),
				zap.Time("resetTime", info.ResetTime),
				zap.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Code:    models.CodeRateLimited,
				Message: "Too many requests. Try again in " + time.Until(info.ResetTime).Round(time.Second).String(),
			})
		},
		KeyFunc: rateLimitKey,
	})
}

func rateLimitKey(c *gin.Context) string {
	if identity := GetPrincipal(c).Identity; identity.IsAuthenticated() {
		return identity.Key()
	}
	return "ip:" + c.ClientIP()
}
