package server

import (
	"fintrack/internal/config"
	"fintrack/internal/middleware"
	"fintrack/internal/repository"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

func registerRoutes(
	e *echo.Echo,
	cfg config.Config,
	h Handlers,
	parser middleware.AccessTokenParser,
	users repository.UserRepository,
) {
	e.GET("/healthz", h.Health.Healthz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	requireUser := []echo.MiddlewareFunc{
		middleware.AuthJWT(parser),
		middleware.VerifiedUserGuard(users),
	}

	//公開（レート制限あり）
	authPublic := e.Group("/auth", authRateLimiter(cfg))
	h.Auth.RegisterPublicRoutes(authPublic)

	//ログイン必須
	authProtected := e.Group("/auth", requireUser...)
	me := e.Group("/me", requireUser...)
	h.Auth.RegisterProtectedRoutes(authProtected, me)

	//運用
	admin := e.Group("/admin", middleware.AdminKeyGuard(cfg.AdminAPIKey))
	h.Admin.RegisterRoutes(admin)
}

func rateLimit(perSecond float64) rate.Limit {
	if perSecond <= 0 {
		return rate.Inf
	}
	return rate.Limit(perSecond)
}
