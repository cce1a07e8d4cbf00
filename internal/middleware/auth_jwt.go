package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	CtxUserIDKey = "user_id" // string(uuid)
	CtxUserKey   = "user"    // *model.User（VerifiedUserGuard が入れる）
)

// アクセストークンを検証してユーザーIDを返す
type AccessTokenParser interface {
	Parse(raw string) (string, error)
}

// bearerAuth用のJWT検証ミドルウェア。
func AuthJWT(parser AccessTokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			//Authorizationヘッダを取得
			authz := c.Request().Header.Get("Authorization")
			if authz == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("Token no proporcionado"))
			}

			//Bearer形式か確認してtokenを抜く
			parts := strings.SplitN(authz, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return c.JSON(http.StatusUnauthorized, errorJSON("Token no proporcionado"))
			}
			rawToken := strings.TrimSpace(parts[1])
			if rawToken == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("Token no proporcionado"))
			}

			//署名・アルゴリズム・期限の検証
			userID, err := parser.Parse(rawToken)
			if err != nil || userID == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("Token inválido o expirado"))
			}

			c.Set(CtxUserIDKey, userID)
			return next(c)
		}
	}
}

// AuthJWT が入れたユーザーID
func UserIDFrom(c echo.Context) (string, bool) {
	id, ok := c.Get(CtxUserIDKey).(string)
	return id, ok && id != ""
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}
