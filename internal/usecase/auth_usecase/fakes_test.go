package auth

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"fintrack/internal/domain/model"
	"fintrack/internal/repository"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func nopLogger() *zap.Logger { return zap.NewNop() }

// =====================
// 時計・ID
// =====================

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type seqIDGen struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDGen) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%03d", g.n)
}

// =====================
// パスワード（bcryptは遅いので平文比較）
// =====================

type plainHasher struct{}

func (plainHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }

type MockPasswordVerifier struct {
	mock.Mock
}

func (m *MockPasswordVerifier) Verify(plain string, hashed string) bool {
	args := m.Called(plain, hashed)
	return args.Bool(0)
}

type plainVerifier struct{}

func (plainVerifier) Verify(plain string, hashed string) bool { return hashed == "hashed:"+plain }

// =====================
// Validator / CodeIssuer
// =====================

type allowAllValidator struct{}

func (allowAllValidator) ValidateRegister(ctx context.Context, in RegisterUserInput) error { return nil }
func (allowAllValidator) ValidateLogin(ctx context.Context, email string, password string) error {
	return nil
}
func (allowAllValidator) ValidateVerifyEmail(ctx context.Context, email string, code string) error {
	return nil
}

type MockCodeIssuer struct {
	mock.Mock
}

func (m *MockCodeIssuer) CreateVerification(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockCodeIssuer) ValidateCode(ctx context.Context, userID string, code string) (bool, error) {
	args := m.Called(ctx, userID, code)
	return args.Bool(0), args.Error(1)
}

// =====================
// インメモリのリポジトリ
// =====================

type memUsers struct {
	mu    sync.Mutex
	byID  map[string]model.User
	email map[string]string

	createErr error
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]model.User{}, email: map[string]string{}}
}

func (r *memUsers) put(u model.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[u.ID] = u
	r.email[u.Email] = u.ID
}

func (r *memUsers) Create(ctx context.Context, user *model.User) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.email[user.Email]; ok {
		return repository.ErrEmailAlreadyExists
	}
	r.byID[user.ID] = *user
	r.email[user.Email] = user.ID
	return nil
}

func (r *memUsers) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func (r *memUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.email[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	u := r.byID[id]
	return &u, nil
}

func (r *memUsers) MarkVerified(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.IsVerified = true
	r.byID[id] = u
	return nil
}

type memTokens struct {
	mu   sync.Mutex
	byID map[string]model.RefreshToken
}

func newMemTokens() *memTokens {
	return &memTokens{byID: map[string]model.RefreshToken{}}
}

func (r *memTokens) snapshot() map[string]model.RefreshToken {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]model.RefreshToken, len(r.byID))
	for k, v := range r.byID {
		out[k] = v
	}
	return out
}

func (r *memTokens) restore(s map[string]model.RefreshToken) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = s
}

func (r *memTokens) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

func (r *memTokens) Create(ctx context.Context, token *model.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.byID {
		if t.Token == token.Token {
			return fmt.Errorf("duplicate token")
		}
	}
	r.byID[token.ID] = *token
	return nil
}

func (r *memTokens) FindByToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.byID {
		if t.Token == token {
			cp := t
			return &cp, nil
		}
	}
	return nil, repository.ErrRefreshTokenNotFound
}

func (r *memTokens) Revoke(ctx context.Context, id string, replacedBy *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok || t.IsRevoked {
		return repository.ErrRefreshTokenAlreadyRevoked
	}
	t.IsRevoked = true
	if replacedBy != nil {
		v := *replacedBy
		t.ReplacedBy = &v
	}
	r.byID[id] = t
	return nil
}

func (r *memTokens) RevokeFamily(ctx context.Context, userID string, familyID string, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, t := range r.byID {
		if t.UserID != userID || t.IsRevoked {
			continue
		}
		if !t.CreatedAt.Before(cutoff) || t.FamilyID == familyID {
			t.IsRevoked = true
			r.byID[id] = t
			n++
		}
	}
	return n, nil
}

func (r *memTokens) RevokeAllByUserID(ctx context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, t := range r.byID {
		if t.UserID == userID && !t.IsRevoked {
			t.IsRevoked = true
			r.byID[id] = t
			n++
		}
	}
	return n, nil
}

func (r *memTokens) ListActiveByUserID(ctx context.Context, userID string, now time.Time) ([]model.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.RefreshToken
	for _, t := range r.byID {
		if t.UserID == userID && t.IsUsable(now) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memTokens) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, t := range r.byID {
		if t.ExpiresAt.Before(now) {
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}

type memAudits struct {
	mu      sync.Mutex
	entries []model.AuditLog
}

func (r *memAudits) Create(ctx context.Context, log model.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	log.ID = int64(len(r.entries) + 1)
	r.entries = append(r.entries, log)
	return nil
}

func (r *memAudits) List(ctx context.Context, f repository.AuditLogFilter) ([]model.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.AuditLog
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if e.UserID != f.UserID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *memAudits) actions() []model.AuditAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.AuditAction, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

// fn がエラーを返したらトークンとユーザーを元に戻す
type memTx struct {
	mu     sync.Mutex
	users  *memUsers
	tokens *memTokens
}

func (m *memTx) Users() repository.UserRepository                         { return m.users }
func (m *memTx) RefreshTokens() repository.RefreshTokenRepository         { return m.tokens }
func (m *memTx) VerificationCodes() repository.VerificationCodeRepository { return nil }
func (m *memTx) Accounts() repository.AccountRepository                   { return nil }
func (m *memTx) Transactions() repository.TransactionRepository           { return nil }
func (m *memTx) Recurrings() repository.RecurringRepository               { return nil }

func (m *memTx) WithinTx(ctx context.Context, fn func(r repository.TxRepos) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.tokens.snapshot()
	if err := fn(m); err != nil {
		m.tokens.restore(snap)
		return err
	}
	return nil
}

// =====================
// まとめて組み立て
// =====================

const (
	testTTL   = 7 * 24 * time.Hour
	testGrace = 10 * time.Second
)

type authFixture struct {
	clock  *fakeClock
	ids    *seqIDGen
	users  *memUsers
	tokens *memTokens
	audits *memAudits
	txm    *memTx
	issuer *JWTIssuer
	ledger *RefreshTokenLedger
	codes  *MockCodeIssuer
}

func newAuthFixture() *authFixture {
	return newAuthFixtureWithGrace(testGrace)
}

func newAuthFixtureWithGrace(grace time.Duration) *authFixture {
	f := &authFixture{
		clock:  newFakeClock(),
		ids:    &seqIDGen{},
		users:  newMemUsers(),
		tokens: newMemTokens(),
		audits: &memAudits{},
		issuer: NewJWTIssuer("test-secret", 15*time.Minute),
		codes:  new(MockCodeIssuer),
	}
	f.txm = &memTx{users: f.users, tokens: f.tokens}
	f.ledger = NewRefreshTokenLedger(f.tokens, f.audits, f.txm, f.ids, f.clock, nopLogger(), testTTL, grace)
	return f
}

func (f *authFixture) login() *LoginUsecase {
	return NewLoginUsecase(f.users, f.audits, allowAllValidator{}, plainVerifier{}, f.issuer, f.ledger, f.clock, nopLogger(), "hashed:timing")
}

func (f *authFixture) refresh() *RefreshUsecase {
	return NewRefreshUsecase(f.users, f.issuer, f.ledger, f.clock)
}

func (f *authFixture) register() *RegisterUserUsecase {
	return NewRegisterUserUsecase(f.users, f.codes, allowAllValidator{}, plainHasher{}, f.ids, f.clock)
}

func (f *authFixture) verifyEmail() *VerifyEmailUsecase {
	return NewVerifyEmailUsecase(f.users, f.audits, f.codes, allowAllValidator{}, f.issuer, f.ledger, f.clock, nopLogger())
}

func (f *authFixture) logout() *LogoutUsecase {
	return NewLogoutUsecase(f.tokens, f.ledger, f.audits, f.clock, nopLogger())
}

func (f *authFixture) sessions() *ActiveSessionsUsecase {
	return NewActiveSessionsUsecase(f.ledger)
}

func (f *authFixture) seedUser(email string, verified bool) model.User {
	u := model.User{
		ID:           f.ids.NewID(),
		Email:        email,
		PasswordHash: "hashed:password123",
		Name:         "Ana",
		Surname:      "Pérez",
		IsVerified:   verified,
		CreatedAt:    f.clock.Now(),
		UpdatedAt:    f.clock.Now(),
	}
	f.users.put(u)
	return u
}
