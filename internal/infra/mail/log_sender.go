package mail

import (
	"context"

	"go.uber.org/zap"
)

// LogSender は送信せずログに出す（開発用）
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) SendVerificationEmail(ctx context.Context, email string, code string) error {
	s.log.Info("verification email (not sent)",
		zap.String("email", email),
		zap.String("code", code),
	)
	return nil
}
