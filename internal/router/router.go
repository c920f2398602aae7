package router // package router defines how HTTP routes are registered for the API

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/wardrobe-planner/internal/config"
	"github.com/iliyamo/wardrobe-planner/internal/handler"
	"github.com/iliyamo/wardrobe-planner/internal/logger"
	"github.com/iliyamo/wardrobe-planner/internal/middleware"
)

// Handlers groups the HTTP handlers the router mounts.
type Handlers struct {
	Health  *handler.HealthHandler
	Auth    *handler.AuthHandler
	Clothes *handler.ClothesHandler
	Plan    *handler.PlanHandler
}

// Options carries the middleware settings.  Redis may be nil: the limiter
// then runs in-process and caching is off.
type Options struct {
	Auth           middleware.Authenticator
	RateLimit      config.RateLimitConfig
	Cache          config.CacheConfig
	Redis          *redis.Client
	AllowedOrigins []string
	// StaticPrefix and StaticDir mount locally stored images.  Both empty
	// when images live in a bucket.
	StaticPrefix string
	StaticDir    string
}

// bodyLimit leaves room for multipart framing around a 10MB image.
const bodyLimit = "11M"

// RegisterRoutes installs the global middleware and every route.
func RegisterRoutes(e *echo.Echo, h Handlers, o Options) {
	e.HTTPErrorHandler = handler.ErrorHandler

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			logger.Info("request",
				"method", v.Method, "path", v.URIPath, "status", v.Status,
				"latency", v.Latency.String(), "request_id", v.RequestID)
			return nil
		},
	}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     o.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	e.Use(echomw.BodyLimit(bodyLimit))

	// Map the GET request at path "/healthz" to the Health handler.
	e.GET("/healthz", h.Health.Health)
	if o.StaticPrefix != "" && o.StaticDir != "" {
		e.Static(o.StaticPrefix, o.StaticDir)
	}

	registerUsers(e, h.Auth, o)
	registerClothes(e, h.Clothes, o)
	registerPlan(e, h.Plan, o)
}

// registerUsers mounts /users.  Credential endpoints get the strict
// per-IP bucket; the rest require an access token.
func registerUsers(e *echo.Echo, a *handler.AuthHandler, o Options) {
	g := e.Group("/users")

	strict := middleware.NewTokenBucket(o.RateLimit.ForAuth(), o.Redis)
	g.POST("/signup", a.Signup, strict)
	g.POST("/login", a.Login, strict)
	g.POST("/refresh-token", a.Refresh, strict)
	g.POST("/request-verification", a.RequestVerification, strict)
	g.POST("/verify-email", a.VerifyEmail, strict)
	g.POST("/forgot-password", a.ForgotPassword, strict)

	auth := g.Group("", middleware.JWTAuth(o.Auth), middleware.NewTokenBucket(o.RateLimit, o.Redis))
	auth.GET("/me", a.Me)
	auth.POST("/change-password", a.ChangePassword)
	auth.PUT("/nickname", a.ChangeNickname)
	auth.POST("/logout", a.Logout)
	auth.DELETE("", a.DeleteAccount)
}

// ownerGroup builds a group whose routes require an access token, are
// limited per user and have their reads cached per user.
func ownerGroup(e *echo.Echo, prefix string, o Options) *echo.Group {
	return e.Group(prefix,
		middleware.JWTAuth(o.Auth),
		middleware.NewTokenBucket(o.RateLimit, o.Redis),
		middleware.NewRedisCache(o.Cache, o.Redis),
	)
}

func registerClothes(e *echo.Echo, c *handler.ClothesHandler, o Options) {
	g := ownerGroup(e, "/clothes", o)
	g.GET("", c.List)
	g.POST("", c.Add)
	g.GET("/:id", c.Detail)
	g.PUT("/:id", c.Update)
	g.DELETE("/:id", c.Delete)
}

// registerPlan keeps the /plan/add, /plan/update, /plan/delete/:id and
// /plan/detail/:id paths existing clients call, plus plain REST aliases.
func registerPlan(e *echo.Echo, p *handler.PlanHandler, o Options) {
	g := ownerGroup(e, "/plan", o)
	g.GET("", p.List)
	g.POST("", p.Add)
	g.POST("/add", p.Add)
	g.PUT("/update", p.Update)
	g.DELETE("/delete/:id", p.Delete)
	g.GET("/detail/:id", p.Detail)
	g.GET("/:id", p.Detail)
	g.PUT("/:id", p.Update)
	g.DELETE("/:id", p.Delete)
}
