package recurring

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"fintrack/internal/domain/model"
	"fintrack/internal/repository"
	"fintrack/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =====================
// インメモリ
// =====================

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

type seqIDs struct{ n int }

func (g *seqIDs) NewID() string {
	g.n++
	return "tx-" + strconv.Itoa(g.n)
}

type ledger struct {
	mu         sync.Mutex
	recurrings map[string]model.Recurring
	accounts   map[string]model.Account
	txs        []model.Transaction

	//この recurring の MarkExecuted を失敗させる
	failMark map[string]error
	listErr  error
}

func newLedger() *ledger {
	return &ledger{
		recurrings: map[string]model.Recurring{},
		accounts:   map[string]model.Account{},
		failMark:   map[string]error{},
	}
}

type recurringRepo struct{ l *ledger }

func (r recurringRepo) FindByID(ctx context.Context, id string) (*model.Recurring, error) {
	rec, ok := r.l.recurrings[id]
	if !ok {
		return nil, repository.ErrRecurringNotFound
	}
	return &rec, nil
}

func (r recurringRepo) ListActive(ctx context.Context) ([]model.Recurring, error) {
	if r.l.listErr != nil {
		return nil, r.l.listErr
	}
	var out []model.Recurring
	for _, id := range sortedKeys(r.l.recurrings) {
		if rec := r.l.recurrings[id]; rec.IsActive {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r recurringRepo) MarkExecuted(ctx context.Context, id string, at time.Time, prev *time.Time) error {
	if err := r.l.failMark[id]; err != nil {
		return err
	}
	rec := r.l.recurrings[id]
	switch {
	case prev == nil && rec.LastExecutedAt != nil,
		prev != nil && (rec.LastExecutedAt == nil || !rec.LastExecutedAt.Equal(*prev)):
		return repository.ErrConcurrentUpdate
	}
	rec.LastExecutedAt = &at
	r.l.recurrings[id] = rec
	return nil
}

func (r recurringRepo) Deactivate(ctx context.Context, id string) error {
	rec := r.l.recurrings[id]
	rec.IsActive = false
	r.l.recurrings[id] = rec
	return nil
}

type accountRepo struct{ l *ledger }

func (r accountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	a, ok := r.l.accounts[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	return &a, nil
}

func (r accountRepo) ApplyBalanceDelta(ctx context.Context, id string, delta int64) error {
	a := r.l.accounts[id]
	a.CurrentBalance += delta
	r.l.accounts[id] = a
	return nil
}

type transactionRepo struct{ l *ledger }

func (r transactionRepo) Create(ctx context.Context, tx *model.Transaction) error {
	r.l.txs = append(r.l.txs, *tx)
	return nil
}

// エラーなら全体を巻き戻す
func (l *ledger) WithinTx(ctx context.Context, fn func(r repository.TxRepos) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	recs := make(map[string]model.Recurring, len(l.recurrings))
	for k, v := range l.recurrings {
		recs[k] = v
	}
	accs := make(map[string]model.Account, len(l.accounts))
	for k, v := range l.accounts {
		accs[k] = v
	}
	txs := append([]model.Transaction(nil), l.txs...)

	if err := fn(l); err != nil {
		l.recurrings, l.accounts, l.txs = recs, accs, txs
		return err
	}
	return nil
}

func (l *ledger) Users() repository.UserRepository                         { return nil }
func (l *ledger) RefreshTokens() repository.RefreshTokenRepository         { return nil }
func (l *ledger) VerificationCodes() repository.VerificationCodeRepository { return nil }
func (l *ledger) Accounts() repository.AccountRepository                   { return accountRepo{l} }
func (l *ledger) Transactions() repository.TransactionRepository           { return transactionRepo{l} }
func (l *ledger) Recurrings() repository.RecurringRepository               { return recurringRepo{l} }

type memAudits struct{ entries []model.AuditLog }

func (r *memAudits) Create(ctx context.Context, log model.AuditLog) error {
	r.entries = append(r.entries, log)
	return nil
}

func (r *memAudits) List(ctx context.Context, f repository.AuditLogFilter) ([]model.AuditLog, error) {
	return r.entries, nil
}

func sortedKeys(m map[string]model.Recurring) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// =====================
// helper
// =====================

type fixture struct {
	clock  *fixedClock
	l      *ledger
	audits *memAudits
	s      *Scheduler
}

func newFixture(now time.Time) *fixture {
	f := &fixture{clock: &fixedClock{now: now}, l: newLedger(), audits: &memAudits{}}
	f.s = NewScheduler(recurringRepo{f.l}, accountRepo{f.l}, f.audits, f.l, &seqIDs{}, f.clock, zap.NewNop())
	f.l.accounts["acc-1"] = model.Account{ID: "acc-1", UserID: "u-1", Type: model.AccountTypeDebit, CurrentBalance: 100000, IsActive: true}
	return f
}

func (f *fixture) addRecurring(id string, mod func(r *model.Recurring)) {
	desc := "Netflix"
	r := model.Recurring{
		ID:          id,
		UserID:      "u-1",
		AccountID:   "acc-1",
		Type:        model.TransactionTypeExpense,
		Amount:      1500,
		Description: &desc,
		Frequency:   model.FrequencyMonthly,
		Interval:    1,
		StartDate:   day(2024, 1, 1),
		IsActive:    true,
	}
	if mod != nil {
		mod(&r)
	}
	f.l.recurrings[id] = r
}

// =====================
// ProcessRecurring
// =====================

func TestProcessRecurring_MonthlyScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(day(2024, 1, 15).Add(10 * time.Hour))
	f.addRecurring("r-1", nil)

	r, err := f.s.recurrings.FindByID(ctx, "r-1")
	require.NoError(t, err)

	created, err := f.s.ProcessRecurring(ctx, r)
	require.NoError(t, err)
	assert.True(t, created)

	require.Len(t, f.l.txs, 1)
	tx := f.l.txs[0]
	assert.Equal(t, "[Auto] Netflix", tx.Description)
	assert.Equal(t, int64(1500), tx.Amount)
	assert.Equal(t, f.clock.now, tx.Date)
	require.NotNil(t, tx.RecurringID)
	assert.Equal(t, "r-1", *tx.RecurringID)

	//支出なので残高は減る
	assert.Equal(t, int64(100000-1500), f.l.accounts["acc-1"].CurrentBalance)

	stored := f.l.recurrings["r-1"]
	require.NotNil(t, stored.LastExecutedAt)
	assert.Equal(t, f.clock.now, *stored.LastExecutedAt)
	require.Len(t, f.audits.entries, 1)
	assert.Equal(t, model.AuditActionRecurringExecuted, f.audits.entries[0].Action)

	//同じ日にもう一度
	f.clock.now = f.clock.now.Add(5 * time.Hour)
	again, err := f.s.ProcessRecurringById(ctx, "r-1")
	require.NoError(t, err)
	assert.False(t, again)
	assert.Len(t, f.l.txs, 1)
}

func TestProcessRecurring_IncomeIncreasesBalance(t *testing.T) {
	f := newFixture(day(2024, 1, 1))
	f.addRecurring("r-1", func(r *model.Recurring) {
		r.Type = model.TransactionTypeIncome
		r.Amount = 250000
		r.Description = nil
	})

	created, err := f.s.ProcessRecurringById(context.Background(), "r-1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(350000), f.l.accounts["acc-1"].CurrentBalance)
	assert.Equal(t, "[Auto] Transacción recurrente", f.l.txs[0].Description)
}

func TestProcessRecurring_PastEndDateDeactivates(t *testing.T) {
	f := newFixture(day(2024, 3, 2))
	f.addRecurring("r-1", func(r *model.Recurring) {
		end := day(2024, 3, 1)
		r.EndDate = &end
	})

	created, err := f.s.ProcessRecurringById(context.Background(), "r-1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.False(t, f.l.recurrings["r-1"].IsActive)
	assert.Empty(t, f.l.txs)
}

func TestProcessRecurring_BeforeStartDoesNothing(t *testing.T) {
	f := newFixture(day(2023, 12, 31))
	f.addRecurring("r-1", nil)

	created, err := f.s.ProcessRecurringById(context.Background(), "r-1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Empty(t, f.l.txs)
}

func TestProcessRecurring_ConcurrentExecutionCreatesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(day(2024, 1, 15))
	f.addRecurring("r-1", nil)

	//古い読み取り結果を持ったまま、別の実行が先に終わる
	stale, err := f.s.recurrings.FindByID(ctx, "r-1")
	require.NoError(t, err)
	_, err = f.s.ProcessRecurringById(ctx, "r-1")
	require.NoError(t, err)

	created, err := f.s.ProcessRecurring(ctx, stale)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, f.l.txs, 1)
	assert.Equal(t, int64(100000-1500), f.l.accounts["acc-1"].CurrentBalance)
}

func TestProcessRecurring_AccountProblemsRollBack(t *testing.T) {
	cases := []struct {
		name    string
		account model.Account
		wantErr error
	}{
		{"inactive account", model.Account{ID: "acc-1", UserID: "u-1", IsActive: false}, ErrAccountInactive},
		{"foreign account", model.Account{ID: "acc-1", UserID: "u-2", IsActive: true}, repository.ErrAccountNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(day(2024, 1, 15))
			f.l.accounts["acc-1"] = tc.account
			f.addRecurring("r-1", nil)

			created, err := f.s.ProcessRecurringById(context.Background(), "r-1")
			assert.ErrorIs(t, err, tc.wantErr)
			assert.False(t, created)
			assert.Empty(t, f.l.txs)
			assert.Nil(t, f.l.recurrings["r-1"].LastExecutedAt)
		})
	}
}

func TestProcessRecurringById_NotFoundAndInactive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(day(2024, 1, 15))
	f.addRecurring("r-off", func(r *model.Recurring) { r.IsActive = false })

	_, err := f.s.ProcessRecurringById(ctx, "missing")
	assert.True(t, errors.Is(err, usecase.ErrNotFound))

	created, err := f.s.ProcessRecurringById(ctx, "r-off")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Empty(t, f.l.txs)
}

// =====================
// ProcessAllRecurrings
// =====================

func TestProcessAllRecurrings_IsolatesFailures(t *testing.T) {
	f := newFixture(day(2024, 1, 15))
	f.addRecurring("r-1", nil)
	f.addRecurring("r-2", nil)
	f.addRecurring("r-3", func(r *model.Recurring) { r.StartDate = day(2024, 2, 1) })
	f.addRecurring("r-4", func(r *model.Recurring) { r.IsActive = false })
	f.l.failMark["r-1"] = errors.New("db timeout")

	sum, err := f.s.ProcessAllRecurrings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ProcessSummary{Total: 3, Executed: 1, Skipped: 1, Failed: 1}, sum)

	//r-1 は巻き戻り、r-2 だけ起票
	require.Len(t, f.l.txs, 1)
	assert.Equal(t, "r-2", *f.l.txs[0].RecurringID)
	assert.Nil(t, f.l.recurrings["r-1"].LastExecutedAt)
}

func TestProcessAllRecurrings_SecondPassSameDayIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(day(2024, 1, 15))
	f.addRecurring("r-1", nil)
	f.addRecurring("r-2", func(r *model.Recurring) { r.Frequency = model.FrequencyDaily })

	first, err := f.s.ProcessAllRecurrings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Executed)

	second, err := f.s.ProcessAllRecurrings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Executed)
	assert.Len(t, f.l.txs, 2)
}

func TestProcessAllRecurrings_ListError(t *testing.T) {
	f := newFixture(day(2024, 1, 15))
	f.l.listErr = errors.New("db down")

	_, err := f.s.ProcessAllRecurrings(context.Background())
	assert.ErrorContains(t, err, "db down")
}
