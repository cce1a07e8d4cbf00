package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

const HeaderAdminKey = "X-Admin-Key"

// 運用向けエンドポイント用。X-Admin-Key が設定値と一致するときだけ通す。
// apiKey が空なら常に拒否。
func AdminKeyGuard(apiKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			got := c.Request().Header.Get(HeaderAdminKey)
			if got == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			if apiKey == "" || subtle.ConstantTimeCompare([]byte(got), []byte(apiKey)) != 1 {
				return c.JSON(http.StatusForbidden, errorJSON("admin only"))
			}

			return next(c)
		}
	}
}
