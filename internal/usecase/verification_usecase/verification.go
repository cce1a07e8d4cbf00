package verification

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"fintrack/internal/domain/model"
	"fintrack/internal/metrics"
	"fintrack/internal/repository"
	"fintrack/internal/usecase"

	"go.uber.org/zap"
)

const (
	codeMin = 100000
	codeMax = 999999

	// 間違い・使用済み・期限切れを区別しない
	msgInvalidCode     = "Código inválido o expirado"
	msgUserNotFound    = "Usuario no encontrado"
	msgAlreadyVerified = "El email ya está verificado"
)

// 認証コードのメール送信（外部）
type EmailSender interface {
	SendVerificationEmail(ctx context.Context, email string, code string) error
}

type IDGenerator interface {
	NewID() string
}

type Clock interface {
	Now() time.Time
}

// Service はメール認証コードを発行・検証する
type Service struct {
	users  repository.UserRepository
	codes  repository.VerificationCodeRepository
	txm    repository.TransactionManager
	mailer EmailSender
	idGen  IDGenerator
	clock  Clock
	log    *zap.Logger
	ttl    time.Duration
}

func NewService(
	users repository.UserRepository,
	codes repository.VerificationCodeRepository,
	txm repository.TransactionManager,
	mailer EmailSender,
	idGen IDGenerator,
	clock Clock,
	log *zap.Logger,
	ttl time.Duration,
) *Service {
	return &Service{
		users:  users,
		codes:  codes,
		txm:    txm,
		mailer: mailer,
		idGen:  idGen,
		clock:  clock,
		log:    log,
		ttl:    ttl,
	}
}

// CreateVerification は既存の未使用コードを無効にしてから新しいコードを発行し、メールで送る。
// 送信に失敗したらエラーを返す。
func (s *Service) CreateVerification(ctx context.Context, user *model.User) error {
	code, err := generateCode()
	if err != nil {
		return err
	}

	now := s.clock.Now()
	vc := &model.VerificationCode{
		ID:        s.idGen.NewID(),
		UserID:    user.ID,
		Code:      code,
		ExpiresAt: now.Add(s.ttl),
		IsUsed:    false,
		CreatedAt: now,
	}

	err = s.txm.WithinTx(ctx, func(r repository.TxRepos) error {
		if _, err := r.VerificationCodes().SupersedeActive(ctx, user.ID, now); err != nil {
			return err
		}
		return r.VerificationCodes().Create(ctx, vc)
	})
	if err != nil {
		return fmt.Errorf("create verification code: %w", err)
	}

	if err := s.mailer.SendVerificationEmail(ctx, user.Email, code); err != nil {
		s.log.Error("send verification email", zap.String("user_id", user.ID), zap.Error(err))
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}

// ValidateCode はコードを消費し、同じトランザクションでユーザーを認証済みにする
func (s *Service) ValidateCode(ctx context.Context, userID string, code string) (bool, error) {
	code = strings.TrimSpace(code)
	if len(code) != 6 {
		return false, usecase.NewBadRequestError(msgInvalidCode)
	}

	now := s.clock.Now()
	err := s.txm.WithinTx(ctx, func(r repository.TxRepos) error {
		if err := r.VerificationCodes().ConsumeMatching(ctx, userID, code, now); err != nil {
			return err
		}
		return r.Users().MarkVerified(ctx, userID)
	})
	if err != nil {
		if errors.Is(err, repository.ErrVerificationCodeNotFound) {
			return false, usecase.NewBadRequestError(msgInvalidCode)
		}
		if errors.Is(err, repository.ErrUserNotFound) {
			return false, usecase.NewNotFoundError(msgUserNotFound)
		}
		return false, err
	}
	return true, nil
}

// ResendCode は未認証ユーザーにコードを再送する
func (s *Service) ResendCode(ctx context.Context, email string) (err error) {
	defer func() { metrics.AuthEvent("resend_verification", err) }()

	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return usecase.NewNotFoundError(msgUserNotFound)
		}
		return err
	}
	if user.IsVerified {
		return usecase.NewBadRequestError(msgAlreadyVerified)
	}
	return s.CreateVerification(ctx, user)
}

// CleanExpiredCodes は期限切れコードを削除して件数を返す
func (s *Service) CleanExpiredCodes(ctx context.Context) (int64, error) {
	n, err := s.codes.DeleteExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}
	metrics.CleanupDeletedTotal.WithLabelValues("verification_code").Add(float64(n))
	return n, nil
}

// [100000, 999999] から一様に選ぶ（剰余の偏りなし）
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}
