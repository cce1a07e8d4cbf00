package auth

import (
	"context"
	"strings"
	"time"

	"fintrack/internal/domain/model"
)

// ログイン・認証・リフレッシュ共通の出力
type AuthResult struct {
	User                  model.User `json:"user"`
	AccessToken           string     `json:"access_token"`
	AccessTokenExpiresAt  time.Time  `json:"access_token_expires_at"`
	RefreshToken          string     `json:"refresh_token"`
	RefreshTokenExpiresAt time.Time  `json:"refresh_token_expires_at"`
}

// 端末情報（handlerがUser-AgentとIPから作る）
type ClientInfo struct {
	DeviceInfo string
	IP         string
}

// アクセストークンとリフレッシュトークンの組を作る
type sessionIssuer struct {
	issuer AccessTokenIssuer
	ledger *RefreshTokenLedger
	clock  Clock
}

// 新しいファミリーでセッションを開始する
func (s *sessionIssuer) start(ctx context.Context, user *model.User, client ClientInfo) (AuthResult, error) {
	refresh, err := s.ledger.Issue(ctx, user.ID, client.DeviceInfo, client.IP)
	if err != nil {
		return AuthResult{}, err
	}
	return s.result(user, refresh)
}

func (s *sessionIssuer) result(user *model.User, refresh *model.RefreshToken) (AuthResult, error) {
	access, accessExp, err := s.issuer.Issue(user.ID, s.clock.Now())
	if err != nil {
		return AuthResult{}, err
	}

	//出力（password_hashは返さない）
	return AuthResult{
		User:                  user.Safe(),
		AccessToken:           access,
		AccessTokenExpiresAt:  accessExp,
		RefreshToken:          refresh.Token,
		RefreshTokenExpiresAt: refresh.ExpiresAt,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
