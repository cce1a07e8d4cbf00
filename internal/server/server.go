package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"fintrack/internal/config"
	"fintrack/internal/handler"
	"fintrack/internal/middleware"
	"fintrack/internal/repository"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// Handlers はルートに載せるハンドラ一式
type Handlers struct {
	Auth   *handler.AuthHandler
	Admin  *handler.AdminHandler
	Health *handler.HealthHandler
}

type Server struct {
	e    *echo.Echo
	addr string
	log  *zap.Logger
}

func New(
	cfg config.Config,
	log *zap.Logger,
	h Handlers,
	parser middleware.AccessTokenParser,
	users repository.UserRepository,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.FEURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	e.Use(echomw.BodyLimit("1M"))

	registerRoutes(e, cfg, h, parser, users)

	return &Server{e: e, addr: cfg.Addr(), log: log}
}

// Start は Shutdown されるまでブロックする
func (s *Server) Start() error {
	s.log.Info("http server listening", zap.String("addr", s.addr))
	if err := s.e.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

// テストで httptest から叩くため
func (s *Server) Handler() http.Handler {
	return s.e
}

// /auth は IP ごとにトークンバケットで制限
func authRateLimiter(cfg config.Config) echo.MiddlewareFunc {
	store := echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:      rateLimit(cfg.AuthRateLimit),
		Burst:     cfg.AuthRateBurst,
		ExpiresIn: 3 * time.Minute,
	})

	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "Demasiadas solicitudes, intenta más tarde"})
		},
	})
}
