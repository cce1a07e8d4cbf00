package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strconv"
	"time"

	"fintrack/internal/device"
	"fintrack/internal/domain/model"
	"fintrack/internal/middleware"
	auth "fintrack/internal/usecase/auth_usecase"

	"github.com/labstack/echo/v4"
)

const (
	refreshCookieName = middleware.CookieRefreshToken
	csrfCookieName    = middleware.CookieCSRFToken
)

type RegisterUsecase interface {
	Execute(ctx context.Context, in auth.RegisterUserInput) (auth.RegisterUserOutput, error)
}

type VerifyEmailUsecase interface {
	Execute(ctx context.Context, in auth.VerifyEmailInput) (auth.AuthResult, error)
}

type ResendCodeUsecase interface {
	ResendCode(ctx context.Context, email string) error
}

type LoginUsecase interface {
	Execute(ctx context.Context, in auth.LoginInput) (auth.AuthResult, error)
}

type RefreshUsecase interface {
	Execute(ctx context.Context, in auth.RefreshInput) (auth.AuthResult, error)
}

type LogoutUsecase interface {
	Execute(ctx context.Context, refreshToken string) error
}

type LogoutAllUsecase interface {
	Execute(ctx context.Context, userID string) (int64, error)
}

type GetMeUsecase interface {
	Execute(ctx context.Context, userID string) (model.User, error)
}

type SessionsUsecase interface {
	Execute(ctx context.Context, userID string) ([]auth.SessionDTO, error)
}

type SecurityEventsUsecase interface {
	Execute(ctx context.Context, userID string, limit int, offset int) ([]model.AuditLog, error)
}

// AuthUsecases は AuthHandler が使う usecase 一式
type AuthUsecases struct {
	Register       RegisterUsecase
	VerifyEmail    VerifyEmailUsecase
	Resend         ResendCodeUsecase
	Login          LoginUsecase
	Refresh        RefreshUsecase
	Logout         LogoutUsecase
	LogoutAll      LogoutAllUsecase
	Me             GetMeUsecase
	Sessions       SessionsUsecase
	SecurityEvents SecurityEventsUsecase
}

type AuthHandler struct {
	uc           AuthUsecases
	cookieSecure bool
	dev          bool
}

// DIコンストラクタ
func NewAuthHandler(uc AuthUsecases, cookieSecure bool, dev bool) *AuthHandler {
	return &AuthHandler{uc: uc, cookieSecure: cookieSecure, dev: dev}
}

// 認証不要のルート
func (h *AuthHandler) RegisterPublicRoutes(g *echo.Group) {
	g.POST("/register", h.Register)
	g.POST("/verify-email", h.VerifyEmail)
	g.POST("/resend-verification", h.ResendVerification)
	g.POST("/login", h.Login)
	g.POST("/refresh", h.Refresh, middleware.CSRFDoubleSubmit())
	g.POST("/logout", h.Logout, middleware.CSRFDoubleSubmit())
}

// AuthJWT + VerifiedUserGuard の後ろに置くルート
func (h *AuthHandler) RegisterProtectedRoutes(authGroup *echo.Group, meGroup *echo.Group) {
	authGroup.POST("/logout-all", h.LogoutAll)
	authGroup.GET("/me", h.Me)
	authGroup.GET("/sessions", h.Sessions)
	meGroup.GET("/security-events", h.SecurityEvents)
}

// /auth/register のリクエストボディ。
type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Surname  string `json:"surname"`
}

type verifyEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type resendRequest struct {
	Email string `json:"email"`
}

// /auth/login のリクエストボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// refresh/logout はCookieかbodyのどちらか
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// RegisterはPOST /auth/registerのハンドラ
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "JSON inválido")
	}

	out, err := h.uc.Register.Execute(c.Request().Context(), auth.RegisterUserInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Surname:  req.Surname,
	})
	if err != nil {
		return writeUsecaseError(c, err, h.dev)
	}

	return c.JSON(http.StatusCreated, out)
}

func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req verifyEmailRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "JSON inválido")
	}

	out, err := h.uc.VerifyEmail.Execute(c.Request().Context(), auth.VerifyEmailInput{
		Email:  req.Email,
		Code:   req.Code,
		Client: clientInfo(c),
	})
	if err != nil {
		return writeUsecaseError(c, err, h.dev)
	}

	h.setRefreshCookie(c, out.RefreshToken, out.RefreshTokenExpiresAt)
	return c.JSON(http.StatusOK, out)
}

func (h *AuthHandler) ResendVerification(c echo.Context) error {
	var req resendRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "JSON inválido")
	}
	if req.Email == "" {
		return writeError(c, http.StatusBadRequest, "El campo email es obligatorio")
	}

	if err := h.uc.Resend.ResendCode(c.Request().Context(), req.Email); err != nil {
		return writeUsecaseError(c, err, h.dev)
	}

	return c.JSON(http.StatusOK, messageResponse{Message: "Código reenviado"})
}

// LoginはPOST /auth/login のハンドラ。
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "JSON inválido")
	}

	out, err := h.uc.Login.Execute(c.Request().Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Client:   clientInfo(c),
	})
	if err != nil {
		return writeUsecaseError(c, err, h.dev)
	}

	// refresh cookie
	h.setRefreshCookie(c, out.RefreshToken, out.RefreshTokenExpiresAt)
	return c.JSON(http.StatusOK, out)
}

func (h *AuthHandler) Refresh(c echo.Context) error {
	token, err := h.presentedRefreshToken(c)
	if err != nil {
		return writeError(c, http.StatusBadRequest, "JSON inválido")
	}

	out, err := h.uc.Refresh.Execute(c.Request().Context(), auth.RefreshInput{
		RefreshToken: token,
		Client:       clientInfo(c),
	})
	if err != nil {
		//無効なトークンはCookieも消す
		h.clearRefreshCookie(c)
		return writeUsecaseError(c, err, h.dev)
	}

	h.setRefreshCookie(c, out.RefreshToken, out.RefreshTokenExpiresAt)
	return c.JSON(http.StatusOK, out)
}

// ログアウトは冪等（トークンが無効でも200）
func (h *AuthHandler) Logout(c echo.Context) error {
	token, err := h.presentedRefreshToken(c)
	if err != nil {
		return writeError(c, http.StatusBadRequest, "JSON inválido")
	}

	if err := h.uc.Logout.Execute(c.Request().Context(), token); err != nil {
		return writeUsecaseError(c, err, h.dev)
	}

	h.clearRefreshCookie(c)
	return c.JSON(http.StatusOK, messageResponse{Message: "Sesión cerrada"})
}

func (h *AuthHandler) LogoutAll(c echo.Context) error {
	userID, ok := middleware.UserIDFrom(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized")
	}

	n, err := h.uc.LogoutAll.Execute(c.Request().Context(), userID)
	if err != nil {
		return writeUsecaseError(c, err, h.dev)
	}

	h.clearRefreshCookie(c)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Se cerraron todas las sesiones",
		"revoked": n,
	})
}

func (h *AuthHandler) Me(c echo.Context) error {
	userID, ok := middleware.UserIDFrom(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized")
	}

	user, err := h.uc.Me.Execute(c.Request().Context(), userID)
	if err != nil {
		return writeUsecaseError(c, err, h.dev)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) Sessions(c echo.Context) error {
	userID, ok := middleware.UserIDFrom(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized")
	}

	list, err := h.uc.Sessions.Execute(c.Request().Context(), userID)
	if err != nil {
		return writeUsecaseError(c, err, h.dev)
	}
	return c.JSON(http.StatusOK, list)
}

// GET /me/security-events?limit=&offset=
func (h *AuthHandler) SecurityEvents(c echo.Context) error {
	userID, ok := middleware.UserIDFrom(c)
	if !ok {
		return writeError(c, http.StatusUnauthorized, "unauthorized")
	}

	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		return writeError(c, http.StatusBadRequest, "limit inválido")
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return writeError(c, http.StatusBadRequest, "offset inválido")
	}

	events, err := h.uc.SecurityEvents.Execute(c.Request().Context(), userID, limit, offset)
	if err != nil {
		return writeUsecaseError(c, err, h.dev)
	}
	return c.JSON(http.StatusOK, events)
}

// Cookieを優先し、なければbody
func (h *AuthHandler) presentedRefreshToken(c echo.Context) (string, error) {
	if ck, err := c.Cookie(refreshCookieName); err == nil && ck.Value != "" {
		return ck.Value, nil
	}

	if c.Request().ContentLength == 0 {
		return "", nil
	}
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return "", err
	}
	return req.RefreshToken, nil
}

// refreshtoken をCookieにセット。csrf_token も一緒に作り直す。
func (h *AuthHandler) setRefreshCookie(c echo.Context, token string, exp time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/auth",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  exp,
	})

	csrf, err := newCSRFToken()
	if err != nil {
		//csrf が作れなくても refresh は発行済み。次の refresh はbody経由になる
		return
	}
	//JSから読むのでHttpOnlyにしない
	c.SetCookie(&http.Cookie{
		Name:     csrfCookieName,
		Value:    csrf,
		Path:     "/",
		HttpOnly: false,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  exp,
	})
}

func (h *AuthHandler) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/auth",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	c.SetCookie(&http.Cookie{
		Name:     csrfCookieName,
		Value:    "",
		Path:     "/",
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func newCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func clientInfo(c echo.Context) auth.ClientInfo {
	return auth.ClientInfo{
		DeviceInfo: device.Describe(c.Request().UserAgent()),
		IP:         c.RealIP(),
	}
}

func queryInt(c echo.Context, key string, def int) (int, error) {
	v := c.QueryParam(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}
