package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"

	"github.com/ignatzorin/bharatalert-backend/internal/config"
	"github.com/ignatzorin/bharatalert-backend/internal/domain/valueobject"
	"github.com/ignatzorin/bharatalert-backend/internal/http/handlers"
	"github.com/ignatzorin/bharatalert-backend/internal/http/middleware"
)

// Handlers собирает все хэндлеры приложения. Seed, Media и WS необязательны.
type Handlers struct {
	Auth      *handlers.AuthHandler
	Reports   *handlers.ReportHandler
	Sightings *handlers.SightingHandler
	Users     *handlers.AdminUserHandler
	Media     *handlers.MediaHandler
	WS        *handlers.WSHandler
	Health    *handlers.HealthHandler
	Seed      *handlers.SeedHandler
}

func SetupRouter(
	cfg *config.Config,
	h Handlers,
	tokens middleware.AccessTokenParser,
	limitStore limiter.Store,
	metricsHandler http.Handler,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.GET("/metrics", gin.WrapH(metricsHandler))
	if cfg.MediaStoragePath != "" {
		r.StaticFS("/media", http.Dir(cfg.MediaStoragePath))
	}

	api := r.Group("/api")

	if h.Seed != nil && cfg.IsDevelopment() {
		api.POST("/seed", h.Seed.Seed)
	}

	authRequired := middleware.AuthMiddleware(tokens)
	authOptional := middleware.OptionalAuthMiddleware(tokens)
	submitLimit := middleware.RateLimitMiddleware(limitStore, "submit", cfg.RateLimitLimit, cfg.RateLimitPeriod)

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(limitStore, "auth", cfg.AuthRateLimit, cfg.RateLimitPeriod))
	{
		authGroup.POST("/signup", h.Auth.Signup)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.Refresh)
	}

	// Публичные маршруты
	public := api.Group("/")
	public.Use(authOptional)
	{
		public.GET("/reports", h.Reports.List(valueobject.ReportStatusActive))
		public.GET("/reports/:id", middleware.UUIDValidator("id"), h.Reports.Get)
		public.GET("/reports/:id/sightings", middleware.UUIDValidator("id"), h.Sightings.ListForReport)
		public.GET("/sightings/:id", middleware.UUIDValidator("id"), h.Sightings.Get)
	}
	if h.WS != nil {
		api.GET("/ws", h.WS.Handle)
	}

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(authRequired)
	{
		protected.GET("/me", h.Auth.Me)

		protected.POST("/reports", submitLimit, h.Reports.Submit)
		protected.GET("/reports/my", h.Reports.ListMine)
		protected.POST("/reports/:id/sightings", middleware.UUIDValidator("id"), submitLimit, h.Sightings.Submit)

		protected.GET("/sightings/my", h.Sightings.ListMine)
		protected.GET("/sightings/can-submit", h.Sightings.CanSubmit)

		if h.Media != nil {
			protected.POST("/media/photos", submitLimit, h.Media.UploadPhoto)
			protected.DELETE("/media/photos/*path", h.Media.DeletePhoto)
		}
	}

	// Модерация
	admin := api.Group("/admin")
	admin.Use(authRequired, middleware.RequireModerator())
	{
		admin.GET("/reports", h.Reports.List(valueobject.ReportStatusPending))
		admin.POST("/reports/:id/approve", middleware.UUIDValidator("id"), h.Reports.Approve)
		admin.POST("/reports/:id/reject", middleware.UUIDValidator("id"), h.Reports.Reject)
		admin.POST("/reports/:id/solve", middleware.UUIDValidator("id"), h.Reports.Solve)

		admin.GET("/sightings", h.Sightings.ListAdmin)
		admin.POST("/sightings/:id/approve", middleware.UUIDValidator("id"), h.Sightings.Approve)
		admin.POST("/sightings/:id/reject", middleware.UUIDValidator("id"), h.Sightings.Reject)

		admin.GET("/users", h.Users.List)
		admin.GET("/users/banned", h.Users.ListBanned)
		admin.POST("/users/:id/ban", middleware.UUIDValidator("id"), h.Users.Ban)
		admin.DELETE("/users/:id/ban", middleware.UUIDValidator("id"), h.Users.Unban)
	}

	return r
}
