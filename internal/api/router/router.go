package router

import (
	"context"
	"net/http"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/warbler/config"
	_ "github.com/d60-Lab/warbler/docs"
	"github.com/d60-Lab/warbler/internal/api/handler"
	"github.com/d60-Lab/warbler/internal/api/middleware"
	"github.com/d60-Lab/warbler/pkg/metrics"
	"github.com/d60-Lab/warbler/pkg/response"
)

// Options 路由依赖
type Options struct {
	Config   *config.Config
	Handler  *handler.Handler
	Sessions middleware.Identifier
	// Health is probed by /healthz; nil means always healthy.
	Health func(ctx context.Context) error
}

func Setup(opts Options) *gin.Engine {
	cfg := opts.Config
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Sentry.DSN != "" {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true, Timeout: 2 * time.Second}))
	}
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	r.Use(
		middleware.RequestID(),
		middleware.Logger(),
		metrics.Middleware(),
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})),
		middleware.Auth(opts.Sessions),
	)

	r.GET("/healthz", healthz(opts.Health))
	r.GET("/metrics", metrics.Handler())
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	h := opts.Handler
	limiter := middleware.NewIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, 0)
	onLimited := func(*gin.Context) {
		metrics.LoginFailure.WithLabelValues(metrics.ReasonRateLimited).Inc()
	}

	v1 := r.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/signup", h.Signup)
		auth.POST("/login", middleware.RateLimit(limiter, onLimited), h.Login)
		auth.POST("/logout", h.Logout)

		users := v1.Group("/users")
		users.GET("", h.ListUsers)
		users.PATCH("/profile", h.UpdateProfile)
		users.DELETE("/profile", h.DeleteUser)
		users.POST("/follow/:id", h.Follow)
		users.POST("/stop-following/:id", h.Unfollow)
		users.GET("/:id", h.GetUser)
		users.GET("/:id/following", h.ListFollowing)
		users.GET("/:id/followers", h.ListFollowers)
		users.GET("/:id/likes", h.LikedMessages)

		v1.GET("/timeline", h.Timeline)

		messages := v1.Group("/messages")
		messages.POST("", h.CreateMessage)
		messages.GET("/:id", h.GetMessage)
		messages.DELETE("/:id", h.DeleteMessage)
		messages.POST("/:id/like", h.ToggleLike)
	}

	r.NoRoute(func(c *gin.Context) { response.NotFound(c, "not found") })
	return r
}

func healthz(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
