package repository

import (
	"context"
	"errors"
	"time"

	"fintrack/internal/domain/model"
	repo "fintrack/internal/repository"

	"gorm.io/gorm"
)

type refreshTokenGormRepository struct {
	db *gorm.DB //DB接続（GORM）
}

// GORM実装
func NewRefreshTokenRepository(db *gorm.DB) repo.RefreshTokenRepository {
	return &refreshTokenGormRepository{db: db}
}

// リフレッシュトークンを保存。
func (r *refreshTokenGormRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	//タイムアウトやキャンセルをDB処理に伝える
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		return err
	}
	return nil
}

// token文字列で1件検索します。
func (r *refreshTokenGormRepository) FindByToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	var rt model.RefreshToken

	err := r.db.WithContext(ctx).
		Where("token = ?", token).
		First(&rt).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrRefreshTokenNotFound
		}
		return nil, err
	}

	return &rt, nil
}

// is_revokedを立てる。まだ有効な行だけが対象。
func (r *refreshTokenGormRepository) Revoke(ctx context.Context, tokenID string, replacedBy *string) error {
	updates := map[string]interface{}{"is_revoked": true}
	if replacedBy != nil {
		updates["replaced_by"] = *replacedBy
	}

	result := r.db.WithContext(ctx).
		Model(&model.RefreshToken{}).
		Where("id = ? AND is_revoked = ?", tokenID, false).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}

	// 更新件数が0なら「すでに失効済み/存在しない」
	if result.RowsAffected == 0 {
		return repo.ErrRefreshTokenAlreadyRevoked
	}

	return nil
}

// ファミリーまたは cutoff 以降に発行されたトークンを一括失効。
func (r *refreshTokenGormRepository) RevokeFamily(ctx context.Context, userID string, familyID string, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.RefreshToken{}).
		Where("user_id = ? AND is_revoked = ?", userID, false).
		Where("(created_at >= ? OR family_id = ?)", cutoff, familyID).
		Update("is_revoked", true)

	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// 指定ユーザーの有効なトークンを全て失効（削除はしない）
func (r *refreshTokenGormRepository) RevokeAllByUserID(ctx context.Context, userID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.RefreshToken{}).
		Where("user_id = ? AND is_revoked = ?", userID, false).
		Update("is_revoked", true)

	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *refreshTokenGormRepository) ListActiveByUserID(ctx context.Context, userID string, now time.Time) ([]model.RefreshToken, error) {
	var tokens []model.RefreshToken

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_revoked = ? AND expires_at > ?", userID, false, now).
		Order("created_at DESC").
		Find(&tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

// 期限切れの行を物理削除。削除経路はここだけ。
func (r *refreshTokenGormRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&model.RefreshToken{})

	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
