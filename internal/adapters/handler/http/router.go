package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/comitanigiacomo/kanso-streaks/internal/adapters/handler/http/middleware"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck reports whether a backing dependency answers.
type HealthCheck func(ctx context.Context) error

type RouterDependencies struct {
	AuthHandler    *AuthHandler
	HabitHandler   *HabitHandler
	EntryHandler   *EntryHandler
	StatsHandler   *StatsHandler
	Tokens         middleware.TokenValidator
	Redis          *redis.Client
	RateLimit      int
	RateWindow     time.Duration
	AllowedOrigins []string
	HealthChecks   map[string]HealthCheck
	StartTime      time.Time
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization"}
	cfg.ExposeHeaders = []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"}
	cfg.MaxAge = 12 * time.Hour
	return cfg
}

func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(cors.New(corsConfig(deps.AllowedOrigins)))

	router.GET("/health", healthHandler(deps.HealthChecks, deps.StartTime))

	var limiter []gin.HandlerFunc
	if deps.Redis != nil && deps.RateLimit > 0 {
		limiter = append(limiter, middleware.RateLimiterMiddleware(deps.Redis, deps.RateLimit, deps.RateWindow))
	}

	apiV1 := router.Group("/api/v1")

	public := apiV1.Group("", limiter...)
	deps.AuthHandler.RegisterRoutes(public)

	protected := apiV1.Group("")
	protected.Use(middleware.AuthMiddleware(deps.Tokens))
	protected.Use(limiter...)
	{
		deps.HabitHandler.RegisterRoutes(protected)
		deps.EntryHandler.RegisterRoutes(protected)
		deps.StatsHandler.RegisterRoutes(protected)
	}

	return router
}

func healthHandler(checks map[string]HealthCheck, started time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		status := http.StatusOK
		body := gin.H{"uptime": time.Since(started).String()}

		for name, check := range checks {
			if err := check(ctx); err != nil {
				body[name] = "unreachable"
				status = http.StatusServiceUnavailable
				continue
			}
			body[name] = "connected"
		}

		body["status"] = "ok"
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		c.JSON(status, body)
	}
}
