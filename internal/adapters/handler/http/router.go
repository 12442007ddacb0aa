package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/comitanigiacomo/kanso-reminders/docs"
	"github.com/comitanigiacomo/kanso-reminders/internal/adapters/handler/http/middleware"
	"github.com/comitanigiacomo/kanso-reminders/internal/core/services"
	"github.com/comitanigiacomo/kanso-reminders/internal/logger"
)

const (
	statusConnected   = "connected"
	statusUnreachable = "unreachable"
	statusDisabled    = "disabled"
)

type RouterDependencies struct {
	AuthHandler   *AuthHandler
	HabitHandler  *HabitHandler
	PublicHandler *PublicHandler
	TokenService  *services.TokenService
	DB            *sqlx.DB
	Redis         *redis.Client
	Log           zerolog.Logger
	StartTime     time.Time
	RateLimit     int
}

func NewRouter(deps RouterDependencies) *gin.Engine {
	RegisterValidators()

	router := gin.New()
	router.Use(gin.Recovery(), logger.GinMiddleware(deps.Log), middleware.MetricsMiddleware())

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, PATCH, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	router.GET("/health", healthHandler(deps))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	apiV1 := router.Group("/api/v1")
	if deps.Redis != nil && deps.RateLimit > 0 {
		apiV1.Use(middleware.RateLimiterMiddleware(deps.Redis, deps.RateLimit, time.Minute, deps.Log))
	}

	deps.AuthHandler.RegisterRoutes(apiV1)
	deps.PublicHandler.RegisterRoutes(apiV1)

	protected := apiV1.Group("")
	protected.Use(middleware.AuthMiddleware(deps.TokenService, deps.Log))
	{
		deps.HabitHandler.RegisterRoutes(protected)
	}

	return router
}

// healthHandler reports 503 when a configured backend does not answer.
// Backends that are not configured show up as disabled.
func healthHandler(deps RouterDependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		dbStatus := statusDisabled
		if deps.DB != nil {
			dbStatus = statusConnected
			if err := deps.DB.PingContext(ctx); err != nil {
				dbStatus = statusUnreachable
			}
		}

		redisStatus := statusDisabled
		if deps.Redis != nil {
			redisStatus = statusConnected
			if err := deps.Redis.Ping(ctx).Err(); err != nil {
				redisStatus = statusUnreachable
			}
		}

		statusCode := http.StatusOK
		if dbStatus == statusUnreachable || redisStatus == statusUnreachable {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, gin.H{
			"status":   "ok",
			"database": dbStatus,
			"redis":    redisStatus,
			"uptime":   time.Since(deps.StartTime).String(),
		})
	}
}
