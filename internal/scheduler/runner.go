package scheduler

import (
	"context"
	"errors"
	"time"

	"fintrack/internal/infra/lock"
	"fintrack/internal/metrics"
	recurring "fintrack/internal/usecase/recurring_usecase"

	"go.uber.org/zap"
)

const (
	recurringLockKey = "fintrack:scheduler:recurring"
	cleanupLockKey   = "fintrack:scheduler:cleanup"
)

type RecurringProcessor interface {
	ProcessAllRecurrings(ctx context.Context) (recurring.ProcessSummary, error)
}

type TokenCleaner interface {
	CleanExpiredTokens(ctx context.Context) (int64, error)
}

type CodeCleaner interface {
	CleanExpiredCodes(ctx context.Context) (int64, error)
}

// 複数レプリカで同じ処理を同時に走らせないためのリース
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}

// 掃除1回分の削除件数
type CleanupResult struct {
	RefreshTokens     int64 `json:"refresh_tokens"`
	VerificationCodes int64 `json:"verification_codes"`
}

// Runner は定期取引の評価と期限切れの掃除を一定間隔で呼び出す。
// 取りこぼした回は次の回の期日判定で追いつく。
type Runner struct {
	recurrings RecurringProcessor
	tokens     TokenCleaner
	codes      CodeCleaner
	locker     Locker // nil ならリースなし
	log        *zap.Logger

	interval        time.Duration
	cleanupInterval time.Duration
}

func NewRunner(
	recurrings RecurringProcessor,
	tokens TokenCleaner,
	codes CodeCleaner,
	locker Locker,
	log *zap.Logger,
	interval time.Duration,
	cleanupInterval time.Duration,
) *Runner {
	return &Runner{
		recurrings:      recurrings,
		tokens:          tokens,
		codes:           codes,
		locker:          locker,
		log:             log,
		interval:        interval,
		cleanupInterval: cleanupInterval,
	}
}

// Run は ctx がキャンセルされるまでブロックする。起動直後に1回ずつ実行する。
func (r *Runner) Run(ctx context.Context) error {
	r.runRecurring(ctx)
	r.runCleanup(ctx)

	recurringTicker := time.NewTicker(r.interval)
	defer recurringTicker.Stop()
	cleanupTicker := time.NewTicker(r.cleanupInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-recurringTicker.C:
			r.runRecurring(ctx)
		case <-cleanupTicker.C:
			r.runCleanup(ctx)
		}
	}
}

// RunRecurringPass は1回分の評価（リース付き）
func (r *Runner) RunRecurringPass(ctx context.Context) (recurring.ProcessSummary, error) {
	var sum recurring.ProcessSummary
	err := r.withLease(ctx, recurringLockKey, r.interval, func(ctx context.Context) error {
		start := time.Now()
		var err error
		sum, err = r.recurrings.ProcessAllRecurrings(ctx)
		metrics.SchedulerPassDuration.Observe(time.Since(start).Seconds())
		return err
	})
	return sum, err
}

// RunCleanup は期限切れのリフレッシュトークンと認証コードを削除する
func (r *Runner) RunCleanup(ctx context.Context) (CleanupResult, error) {
	var res CleanupResult
	err := r.withLease(ctx, cleanupLockKey, r.cleanupInterval, func(ctx context.Context) error {
		var err error
		if res.RefreshTokens, err = r.tokens.CleanExpiredTokens(ctx); err != nil {
			return err
		}
		res.VerificationCodes, err = r.codes.CleanExpiredCodes(ctx)
		return err
	})
	return res, err
}

func (r *Runner) runRecurring(ctx context.Context) {
	if _, err := r.RunRecurringPass(ctx); err != nil && !isSkippable(err) {
		r.log.Error("recurring pass", zap.Error(err))
	}
}

func (r *Runner) runCleanup(ctx context.Context) {
	res, err := r.RunCleanup(ctx)
	if err != nil {
		if !isSkippable(err) {
			r.log.Error("cleanup pass", zap.Error(err))
		}
		return
	}
	r.log.Info("cleanup pass finished",
		zap.Int64("refresh_tokens", res.RefreshTokens),
		zap.Int64("verification_codes", res.VerificationCodes),
	)
}

func (r *Runner) withLease(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if r.locker == nil {
		return fn(ctx)
	}

	release, err := r.locker.Acquire(ctx, key, ttl)
	if err != nil {
		return err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			r.log.Warn("release scheduler lease", zap.String("key", key), zap.Error(err))
		}
	}()
	return fn(ctx)
}

// 他レプリカが実行中・停止中は異常ではない
func isSkippable(err error) bool {
	return errors.Is(err, lock.ErrNotAcquired) || errors.Is(err, context.Canceled)
}
