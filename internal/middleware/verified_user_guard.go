package middleware

import (
	"net/http"

	"fintrack/internal/domain/model"
	"fintrack/internal/repository"

	"github.com/labstack/echo/v4"
)

// トークンのユーザーがまだ存在し、メール認証済みか確認。
func VerifiedUserGuard(userRepo repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			//AuthJWTが入れたuser_id を取得する
			userID, ok := UserIDFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//DBから最新のuserを取得する（削除済みなら401）
			user, err := userRepo.FindByID(c.Request().Context(), userID)
			if err != nil || user == nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("Usuario no encontrado"))
			}

			if !user.IsVerified {
				return c.JSON(http.StatusForbidden, errorJSON("Debes verificar tu email"))
			}

			c.Set(CtxUserKey, user)
			return next(c)
		}
	}
}

// VerifiedUserGuard が入れたユーザー
func UserFrom(c echo.Context) (*model.User, bool) {
	u, ok := c.Get(CtxUserKey).(*model.User)
	return u, ok && u != nil
}
