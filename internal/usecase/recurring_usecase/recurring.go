package recurring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/domain/model"
	"fintrack/internal/metrics"
	"fintrack/internal/repository"
	"fintrack/internal/usecase"

	"go.uber.org/zap"
)

const (
	autoPrefix         = "[Auto]"
	defaultDescription = "Transacción recurrente"

	msgRecurringNotFound = "Transacción recurrente no encontrada"
)

var ErrAccountInactive = errors.New("account is inactive")

type IDGenerator interface {
	NewID() string
}

type Clock interface {
	Now() time.Time
}

// 1回のバッチ処理の集計
type ProcessSummary struct {
	Total    int `json:"total"`
	Executed int `json:"executed"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Scheduler は定期取引を期日判定して取引台帳に起票する。
// キューは持たず、毎回 last_executed_at から再計算する。
type Scheduler struct {
	recurrings repository.RecurringRepository
	accounts   repository.AccountRepository
	audits     repository.AuditLogRepository
	txm        repository.TransactionManager
	idGen      IDGenerator
	clock      Clock
	log        *zap.Logger
}

func NewScheduler(
	recurrings repository.RecurringRepository,
	accounts repository.AccountRepository,
	audits repository.AuditLogRepository,
	txm repository.TransactionManager,
	idGen IDGenerator,
	clock Clock,
	log *zap.Logger,
) *Scheduler {
	return &Scheduler{
		recurrings: recurrings,
		accounts:   accounts,
		audits:     audits,
		txm:        txm,
		idGen:      idGen,
		clock:      clock,
		log:        log,
	}
}

// ProcessAllRecurrings は有効な定期取引を全て評価する。
// 1件の失敗はログに残して数えるだけで、残りの処理は続ける。
func (s *Scheduler) ProcessAllRecurrings(ctx context.Context) (ProcessSummary, error) {
	var sum ProcessSummary

	items, err := s.recurrings.ListActive(ctx)
	if err != nil {
		return sum, fmt.Errorf("list active recurrings: %w", err)
	}
	sum.Total = len(items)

	for i := range items {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		r := items[i]
		created, err := s.ProcessRecurring(ctx, &r)
		switch {
		case err != nil:
			sum.Failed++
			metrics.RecurringRunsTotal.WithLabelValues(metrics.ResultFailure).Inc()
			s.log.Error("process recurring",
				zap.String("recurring_id", r.ID),
				zap.String("user_id", r.UserID),
				zap.Error(err),
			)
		case created:
			sum.Executed++
			metrics.RecurringRunsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
		default:
			sum.Skipped++
			metrics.RecurringRunsTotal.WithLabelValues(metrics.ResultSkipped).Inc()
		}
	}

	s.log.Info("recurring pass finished",
		zap.Int("total", sum.Total),
		zap.Int("executed", sum.Executed),
		zap.Int("skipped", sum.Skipped),
		zap.Int("failed", sum.Failed),
	)
	return sum, nil
}

// ProcessRecurringById は管理者の手動実行用。取引を作ったかどうかを返す。
func (s *Scheduler) ProcessRecurringById(ctx context.Context, recurringID string) (bool, error) {
	r, err := s.recurrings.FindByID(ctx, recurringID)
	if err != nil {
		if errors.Is(err, repository.ErrRecurringNotFound) {
			return false, usecase.NewNotFoundError(msgRecurringNotFound)
		}
		return false, err
	}
	if !r.IsActive {
		return false, nil
	}
	return s.ProcessRecurring(ctx, r)
}

// ProcessRecurring は1件を評価し、期日なら取引を作って last_executed_at を同じトランザクションで更新する
func (s *Scheduler) ProcessRecurring(ctx context.Context, r *model.Recurring) (bool, error) {
	now := s.clock.Now()

	//開始前
	if now.Before(r.StartDate) {
		return false, nil
	}

	//終了日を過ぎたら無効化して終わり
	if r.EndDate != nil && now.After(*r.EndDate) {
		if err := s.recurrings.Deactivate(ctx, r.ID); err != nil {
			return false, fmt.Errorf("deactivate recurring: %w", err)
		}
		r.IsActive = false
		return false, nil
	}

	if !ShouldExecute(r, now) {
		return false, nil
	}

	tx := &model.Transaction{
		ID:          s.idGen.NewID(),
		UserID:      r.UserID,
		AccountID:   r.AccountID,
		Type:        r.Type,
		Amount:      r.Amount,
		CategoryID:  r.CategoryID,
		Description: autoDescription(r.Description),
		Date:        now,
		RecurringID: &r.ID,
	}

	err := s.txm.WithinTx(ctx, func(repos repository.TxRepos) error {
		account, err := repos.Accounts().FindByID(ctx, r.AccountID)
		if err != nil {
			return err
		}
		if account.UserID != r.UserID {
			return repository.ErrAccountNotFound
		}
		if !account.IsActive {
			return ErrAccountInactive
		}

		if err := repos.Transactions().Create(ctx, tx); err != nil {
			return err
		}
		if err := repos.Accounts().ApplyBalanceDelta(ctx, r.AccountID, r.Type.SignedAmount(r.Amount)); err != nil {
			return err
		}
		//読み取り時の last_executed_at が変わっていたら別の実行が先行している
		return repos.Recurrings().MarkExecuted(ctx, r.ID, now, r.LastExecutedAt)
	})
	if errors.Is(err, repository.ErrConcurrentUpdate) {
		s.log.Info("recurring executed concurrently", zap.String("recurring_id", r.ID))
		return false, nil
	}
	if err != nil {
		return false, err
	}

	r.LastExecutedAt = &now
	s.audit(ctx, r, tx)
	return true, nil
}

func (s *Scheduler) audit(ctx context.Context, r *model.Recurring, tx *model.Transaction) {
	if s.audits == nil {
		return
	}
	detail, _ := json.Marshal(map[string]interface{}{
		"transaction_id": tx.ID,
		"account_id":     tx.AccountID,
		"amount":         tx.Amount,
		"type":           tx.Type,
	})
	err := s.audits.Create(ctx, model.AuditLog{
		UserID:       r.UserID,
		Action:       model.AuditActionRecurringExecuted,
		ResourceType: model.AuditResourceRecurring,
		ResourceID:   r.ID,
		DetailJSON:   string(detail),
		CreatedAt:    tx.Date,
	})
	if err != nil {
		s.log.Error("write audit log", zap.String("recurring_id", r.ID), zap.Error(err))
	}
}

func autoDescription(desc *string) string {
	if desc == nil || strings.TrimSpace(*desc) == "" {
		return autoPrefix + " " + defaultDescription
	}
	return autoPrefix + " " + strings.TrimSpace(*desc)
}
