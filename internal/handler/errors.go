package handler

import (
	"errors"
	"net/http"

	"fintrack/internal/middleware"
	"fintrack/internal/usecase"

	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeError(c echo.Context, status int, msg string) error {
	return c.JSON(status, errorResponse{Error: msg})
}

// usecaseのエラーをHTTPに変換する。HTTPError以外は500。
// dev のときだけ500の中身を返す。
func writeUsecaseError(c echo.Context, err error, dev bool) error {
	var he *usecase.HTTPError
	if errors.As(err, &he) {
		return writeError(c, he.Status, he.Message)
	}

	//ログはRequestLoggerに任せる
	c.Set(middleware.CtxErrorKey, err)

	res := errorResponse{Error: "internal error"}
	if dev {
		res.Detail = err.Error()
	}
	return c.JSON(http.StatusInternalServerError, res)
}
