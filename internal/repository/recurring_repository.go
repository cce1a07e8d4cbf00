package repository

import (
	"context"
	"errors"
	"time"

	"fintrack/internal/domain/model"
)

var ErrRecurringNotFound = errors.New("recurring not found")

// last_executed_at が読み取り時から変わっていた
var ErrConcurrentUpdate = errors.New("concurrent update")

type RecurringRepository interface {
	FindByID(ctx context.Context, recurringID string) (*model.Recurring, error)
	ListActive(ctx context.Context) ([]model.Recurring, error)
	// prev は読み取り時の last_executed_at。一致しなければ ErrConcurrentUpdate
	MarkExecuted(ctx context.Context, recurringID string, executedAt time.Time, prev *time.Time) error
	Deactivate(ctx context.Context, recurringID string) error
}
