package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"fintrack/internal/domain/model"
	"fintrack/internal/metrics"
	"fintrack/internal/repository"
	"fintrack/internal/usecase"

	"go.uber.org/zap"
)

const (
	msgRefreshInvalid = "Refresh token inválido"
	msgRefreshExpired = "Refresh token expirado"
	msgRefreshReused  = "Refresh token revocado. Por seguridad se cerraron todas las sesiones"
)

// 発行済みリフレッシュトークンの台帳。
// Active -> Rotated(revoked, replaced_by) -> 猶予 or ファミリー失効、Active -> Expired(revoked)
type RefreshTokenLedger struct {
	tokens repository.RefreshTokenRepository
	audits repository.AuditLogRepository
	txm    repository.TransactionManager
	idGen  IDGenerator
	clock  Clock
	log    *zap.Logger

	ttl time.Duration
	// ローテーション直後に旧トークンが再送されたときの猶予
	grace time.Duration
}

func NewRefreshTokenLedger(
	tokens repository.RefreshTokenRepository,
	audits repository.AuditLogRepository,
	txm repository.TransactionManager,
	idGen IDGenerator,
	clock Clock,
	log *zap.Logger,
	ttl time.Duration,
	grace time.Duration,
) *RefreshTokenLedger {
	return &RefreshTokenLedger{
		tokens: tokens,
		audits: audits,
		txm:    txm,
		idGen:  idGen,
		clock:  clock,
		log:    log,
		ttl:    ttl,
		grace:  grace,
	}
}

// Issue は新しいファミリー（ログイン・認証直後）のトークンを作る
func (l *RefreshTokenLedger) Issue(ctx context.Context, userID string, deviceInfo string, ip string) (*model.RefreshToken, error) {
	rt, err := l.newToken(userID, l.idGen.NewID(), deviceInfo, ip)
	if err != nil {
		return nil, err
	}
	if err := l.tokens.Create(ctx, rt); err != nil {
		return nil, err
	}
	return rt, nil
}

// Validate はトークン文字列を状態機械にかける。
// 猶予経路では提示されたトークンではなく後継のレコードを返す。
func (l *RefreshTokenLedger) Validate(ctx context.Context, token string) (*model.RefreshToken, error) {
	rt, err := l.tokens.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return nil, usecase.NewUnauthorizedError(msgRefreshInvalid)
		}
		return nil, err
	}

	now := l.clock.Now()

	//期限切れは失効させてから拒否
	if rt.IsExpired(now) {
		if err := l.revoke(ctx, rt.ID, nil); err != nil {
			return nil, err
		}
		return nil, usecase.NewUnauthorizedError(msgRefreshExpired)
	}

	if !rt.IsRevoked {
		return rt, nil
	}

	//猶予経路：後継が有効で、ローテーションから間もない
	if rt.ReplacedBy != nil {
		next, err := l.tokens.FindByToken(ctx, *rt.ReplacedBy)
		if err != nil && !errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return nil, err
		}
		if next != nil && next.IsUsable(now) && now.Sub(next.CreatedAt) <= l.grace {
			return next, nil
		}
	}

	//再利用（盗用）とみなしてファミリーごと失効
	if err := l.RevokeFamily(ctx, rt); err != nil {
		return nil, err
	}
	return nil, usecase.NewUnauthorizedError(msgRefreshReused)
}

// Rotate は current を失効させ、同じファミリーの後継を作る。
// 同時に同じトークンがローテーションされた場合は、負けた側は勝った側の後継を受け取る。
func (l *RefreshTokenLedger) Rotate(ctx context.Context, current *model.RefreshToken, deviceInfo string, ip string) (*model.RefreshToken, error) {
	next, err := l.newToken(current.UserID, current.FamilyID, deviceInfo, ip)
	if err != nil {
		return nil, err
	}

	err = l.txm.WithinTx(ctx, func(r repository.TxRepos) error {
		if err := r.RefreshTokens().Create(ctx, next); err != nil {
			return err
		}
		//is_revoked=false の条件付き更新。0件なら後継の作成ごとロールバック
		return r.RefreshTokens().Revoke(ctx, current.ID, &next.Token)
	})
	if errors.Is(err, repository.ErrRefreshTokenAlreadyRevoked) {
		l.log.Info("refresh token rotated concurrently",
			zap.String("user_id", current.UserID),
			zap.String("family_id", current.FamilyID),
		)
		//競合に負けた側は猶予期間に関係なく勝った側の後継を受け取る
		shared, err := l.successorOf(ctx, current.Token)
		if err != nil {
			return nil, err
		}
		if shared != nil {
			return shared, nil
		}
		return l.Validate(ctx, current.Token)
	}
	if err != nil {
		return nil, err
	}
	return next, nil
}

// Revoke は単体の失効（ログアウト）。すでに失効済みでもエラーにしない。
func (l *RefreshTokenLedger) Revoke(ctx context.Context, rt *model.RefreshToken, replacedBy *string) error {
	return l.revoke(ctx, rt.ID, replacedBy)
}

// RevokeFamily は rt 自身と、rt 以降に発行された同ユーザーの有効トークン・同ファミリーのトークンを失効させる
func (l *RefreshTokenLedger) RevokeFamily(ctx context.Context, rt *model.RefreshToken) error {
	if err := l.revoke(ctx, rt.ID, nil); err != nil {
		return err
	}

	n, err := l.tokens.RevokeFamily(ctx, rt.UserID, rt.FamilyID, rt.CreatedAt)
	if err != nil {
		return err
	}

	metrics.RefreshReuseDetectedTotal.Inc()
	l.log.Warn("refresh token reuse detected",
		zap.String("user_id", rt.UserID),
		zap.String("family_id", rt.FamilyID),
		zap.Int64("revoked", n),
	)

	detail, _ := json.Marshal(map[string]interface{}{
		"token_id": rt.ID,
		"revoked":  n,
	})
	recordAudit(ctx, l.audits, l.log, model.AuditLog{
		UserID:       rt.UserID,
		Action:       model.AuditActionTokenReuseDetected,
		ResourceType: model.AuditResourceSession,
		ResourceID:   rt.FamilyID,
		IPAddress:    rt.IPAddress,
		DetailJSON:   string(detail),
		CreatedAt:    l.clock.Now(),
	})
	return nil
}

func (l *RefreshTokenLedger) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	return l.tokens.RevokeAllByUserID(ctx, userID)
}

func (l *RefreshTokenLedger) ActiveForUser(ctx context.Context, userID string) ([]model.RefreshToken, error) {
	return l.tokens.ListActiveByUserID(ctx, userID, l.clock.Now())
}

// CleanExpiredTokens は期限切れの行を物理削除する（リクエスト経路では呼ばない）
func (l *RefreshTokenLedger) CleanExpiredTokens(ctx context.Context) (int64, error) {
	n, err := l.tokens.DeleteExpired(ctx, l.clock.Now())
	if err != nil {
		return 0, err
	}
	metrics.CleanupDeletedTotal.WithLabelValues("refresh_token").Add(float64(n))
	return n, nil
}

// successorOf は token の後継がまだ使えるならそれを返す。無ければ nil。
func (l *RefreshTokenLedger) successorOf(ctx context.Context, token string) (*model.RefreshToken, error) {
	rt, err := l.tokens.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if rt.ReplacedBy == nil {
		return nil, nil
	}

	next, err := l.tokens.FindByToken(ctx, *rt.ReplacedBy)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !next.IsUsable(l.clock.Now()) {
		return nil, nil
	}
	return next, nil
}

func (l *RefreshTokenLedger) revoke(ctx context.Context, tokenID string, replacedBy *string) error {
	err := l.tokens.Revoke(ctx, tokenID, replacedBy)
	if err != nil && !errors.Is(err, repository.ErrRefreshTokenAlreadyRevoked) {
		return err
	}
	return nil
}

func (l *RefreshTokenLedger) newToken(userID string, familyID string, deviceInfo string, ip string) (*model.RefreshToken, error) {
	plain, err := generateRefreshToken()
	if err != nil {
		return nil, err
	}

	now := l.clock.Now()
	return &model.RefreshToken{
		ID:         l.idGen.NewID(),
		Token:      plain,
		UserID:     userID,
		FamilyID:   familyID,
		DeviceInfo: deviceInfo,
		IPAddress:  ip,
		ExpiresAt:  now.Add(l.ttl),
		IsRevoked:  false,
		ReplacedBy: nil,
		CreatedAt:  now,
	}, nil
}
