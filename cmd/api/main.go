package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fintrack/internal/config"
	"fintrack/internal/handler"
	"fintrack/internal/infra/db"
	"fintrack/internal/infra/lock"
	"fintrack/internal/infra/mail"
	infraRepo "fintrack/internal/infra/repository"
	"fintrack/internal/logger"
	"fintrack/internal/scheduler"
	"fintrack/internal/server"
	auth "fintrack/internal/usecase/auth_usecase"
	recurring "fintrack/internal/usecase/recurring_usecase"
	verification "fintrack/internal/usecase/verification_usecase"
	"fintrack/internal/validator"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type uuidGenerator struct{}

func (g *uuidGenerator) NewID() string {
	return uuid.NewString()
}

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now().UTC()
}

func main() {
	//.envは無くてもよい
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.LogLevel, cfg.GoEnv)
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//DB接続とマイグレーション
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := db.ApplyMigrations(sqlDB); err != nil {
		return err
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	tokenRepo := infraRepo.NewRefreshTokenRepository(gormDB)
	codeRepo := infraRepo.NewVerificationCodeRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	accountRepo := infraRepo.NewAccountGormRepository(gormDB)
	recurringRepo := infraRepo.NewRecurringGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	//usecaseに渡す部品
	idGen := &uuidGenerator{}
	clock := &realClock{}

	hasher := auth.NewBcryptPasswordHasher(cfg.BcryptCost)
	verifier := auth.NewBcryptPasswordVerifier()
	//存在しないemailでも同じ時間だけbcryptを回す
	timingHash, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return err
	}

	issuer := auth.NewJWTIssuer(cfg.JWTSecret, cfg.AccessTokenTTL)
	authValidator := validator.NewAuthValidator(
		validator.NewEmailPolicy(cfg.AllowedEmailDomains, cfg.BlockedEmailDomains),
	)

	var mailer verification.EmailSender = mail.NewLogSender(log)
	if cfg.SMTPHost != "" {
		mailer = mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	}

	//Usecase生成
	codes := verification.NewService(userRepo, codeRepo, txm, mailer, idGen, clock, log, cfg.VerificationCodeTTL)
	ledger := auth.NewRefreshTokenLedger(tokenRepo, auditRepo, txm, idGen, clock, log, cfg.RefreshTokenTTL, cfg.RefreshGracePeriod)
	recurrings := recurring.NewScheduler(recurringRepo, accountRepo, auditRepo, txm, idGen, clock, log)

	authUC := handler.AuthUsecases{
		Register:       auth.NewRegisterUserUsecase(userRepo, codes, authValidator, hasher, idGen, clock),
		VerifyEmail:    auth.NewVerifyEmailUsecase(userRepo, auditRepo, codes, authValidator, issuer, ledger, clock, log),
		Resend:         codes,
		Login:          auth.NewLoginUsecase(userRepo, auditRepo, authValidator, verifier, issuer, ledger, clock, log, timingHash),
		Refresh:        auth.NewRefreshUsecase(userRepo, issuer, ledger, clock),
		Logout:         auth.NewLogoutUsecase(tokenRepo, ledger, auditRepo, clock, log),
		LogoutAll:      auth.NewLogoutAllUsecase(ledger, auditRepo, clock, log),
		Me:             auth.NewGetMeUsecase(userRepo),
		Sessions:       auth.NewActiveSessionsUsecase(ledger),
		SecurityEvents: auth.NewSecurityEventsUsecase(auditRepo),
	}

	//複数レプリカのときだけredisのリースを使う
	var locker scheduler.Locker
	if cfg.RedisURL != "" {
		rdb, err := lock.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb)
	}
	runner := scheduler.NewRunner(recurrings, ledger, codes, locker, log, cfg.SchedulerInterval, cfg.CleanupInterval)

	//Handler生成
	srv := server.New(cfg, log, server.Handlers{
		Auth:   handler.NewAuthHandler(authUC, cfg.CookieSecure, cfg.IsDev()),
		Admin:  handler.NewAdminHandler(runner, recurrings, cfg.IsDev()),
		Health: handler.NewHealthHandler(sqlDB),
	}, issuer, userRepo)

	if cfg.SchedulerEnabled {
		go func() {
			_ = runner.Run(ctx)
		}()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
