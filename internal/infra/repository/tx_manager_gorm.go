package repository

import (
	"context"

	repo "fintrack/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	users             repo.UserRepository
	refreshTokens     repo.RefreshTokenRepository
	verificationCodes repo.VerificationCodeRepository
	accounts          repo.AccountRepository
	transactions      repo.TransactionRepository
	recurrings        repo.RecurringRepository
}

func (r *txReposGorm) Users() repo.UserRepository                         { return r.users }
func (r *txReposGorm) RefreshTokens() repo.RefreshTokenRepository         { return r.refreshTokens }
func (r *txReposGorm) VerificationCodes() repo.VerificationCodeRepository { return r.verificationCodes }
func (r *txReposGorm) Accounts() repo.AccountRepository                   { return r.accounts }
func (r *txReposGorm) Transactions() repo.TransactionRepository           { return r.transactions }
func (r *txReposGorm) Recurrings() repo.RecurringRepository               { return r.recurrings }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			users:             NewUserGormRepository(tx),
			refreshTokens:     NewRefreshTokenRepository(tx),
			verificationCodes: NewVerificationCodeRepository(tx),
			accounts:          NewAccountGormRepository(tx),
			transactions:      NewTransactionGormRepository(tx),
			recurrings:        NewRecurringGormRepository(tx),
		}
		return fn(r)
	})
}
