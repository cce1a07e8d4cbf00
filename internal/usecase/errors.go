package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	//400 入力不正
	ErrValidation = errors.New("validation error")
	//401 認証失敗
	ErrUnauthorized = errors.New("unauthorized")
	//403 権限（未認証メールなど）
	ErrForbidden = errors.New("forbidden")
	//404
	ErrNotFound = errors.New("not found")
	//409 競合
	ErrConflict = errors.New("conflict")
	//500
	ErrInternal = errors.New("internal error")
)

// HTTPErrorはユーザー向けメッセージとステータスを持つ。
// errors.Is で上の種別と比較できる。
type HTTPError struct {
	Status  int
	Message string
	Kind    error
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.Kind
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
		Kind:    kindForStatus(status),
	}
}

func NewValidationError(message string) error {
	return NewHTTPError(http.StatusBadRequest, message)
}

// 400（入力形式ではなく状態の不正）
func NewBadRequestError(message string) error {
	return NewHTTPError(http.StatusBadRequest, message)
}

func NewUnauthorizedError(message string) error {
	return NewHTTPError(http.StatusUnauthorized, message)
}

func NewForbiddenError(message string) error {
	return NewHTTPError(http.StatusForbidden, message)
}

func NewNotFoundError(message string) error {
	return NewHTTPError(http.StatusNotFound, message)
}

func NewConflictError(message string) error {
	return NewHTTPError(http.StatusConflict, message)
}

// StatusOf は err のHTTPステータス。HTTPError でなければ500。
func StatusOf(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Status
	}
	return http.StatusInternalServerError
}

func kindForStatus(status int) error {
	switch status {
	case http.StatusBadRequest:
		return ErrValidation
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	default:
		return ErrInternal
	}
}
