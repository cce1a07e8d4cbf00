package auth

import (
	"context"
	"errors"
	"testing"

	"fintrack/internal/domain/model"
	"fintrack/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLogin_Success(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	user := f.seedUser("ana@gmail.com", true)

	out, err := f.login().Execute(ctx, LoginInput{
		Email:    "  ANA@gmail.com ",
		Password: "password123",
		Client:   ClientInfo{DeviceInfo: "Chrome on Windows 10", IP: "10.0.0.9"},
	})
	require.NoError(t, err)

	assert.Equal(t, user.ID, out.User.ID)
	assert.Empty(t, out.User.PasswordHash)
	assert.NotEmpty(t, out.AccessToken)

	sub, err := f.issuer.Parse(out.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, sub)

	rt, err := f.tokens.FindByToken(ctx, out.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "Chrome on Windows 10", rt.DeviceInfo)
	assert.Equal(t, "10.0.0.9", rt.IPAddress)
	assert.NotEmpty(t, rt.FamilyID)
	assert.Contains(t, f.audits.actions(), model.AuditActionLogin)
}

// 存在しないemailと誤パスワードは同じエラー
func TestLogin_UniformFailure(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	f.seedUser("ana@gmail.com", true)

	verifier := new(MockPasswordVerifier)
	verifier.On("Verify", "password123", "hashed:timing").Return(false).Once()
	verifier.On("Verify", "wrong-pass", "hashed:password123").Return(false).Once()

	uc := NewLoginUsecase(f.users, f.audits, allowAllValidator{}, verifier, f.issuer, f.ledger, f.clock, nopLogger(), "hashed:timing")

	_, errUnknown := uc.Execute(ctx, LoginInput{Email: "nobody@gmail.com", Password: "password123"})
	_, errWrong := uc.Execute(ctx, LoginInput{Email: "ana@gmail.com", Password: "wrong-pass"})

	assertUnauthorized(t, errUnknown, msgInvalidCredentials)
	assertUnauthorized(t, errWrong, msgInvalidCredentials)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())

	//ユーザーが居なくても照合は走る
	verifier.AssertExpectations(t)
	assert.Equal(t, 0, f.tokens.count())
}

func TestLogin_UnverifiedIsForbidden(t *testing.T) {
	f := newAuthFixture()
	f.seedUser("ana@gmail.com", false)

	_, err := f.login().Execute(context.Background(), LoginInput{Email: "ana@gmail.com", Password: "password123"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, usecase.ErrForbidden))
	assert.Equal(t, 0, f.tokens.count())
}

func TestLogin_ValidationErrorStopsEarly(t *testing.T) {
	f := newAuthFixture()
	v := new(mockValidator)
	v.On("ValidateLogin", mock.Anything, "bad", "").Return(usecase.NewValidationError("Email inválido")).Once()

	uc := NewLoginUsecase(f.users, f.audits, v, plainVerifier{}, f.issuer, f.ledger, f.clock, nopLogger(), "hashed:timing")
	_, err := uc.Execute(context.Background(), LoginInput{Email: "bad"})
	assert.True(t, errors.Is(err, usecase.ErrValidation))
	v.AssertExpectations(t)
}

type mockValidator struct {
	mock.Mock
}

func (m *mockValidator) ValidateRegister(ctx context.Context, in RegisterUserInput) error {
	return m.Called(ctx, in).Error(0)
}

func (m *mockValidator) ValidateLogin(ctx context.Context, email string, password string) error {
	return m.Called(ctx, email, password).Error(0)
}

func (m *mockValidator) ValidateVerifyEmail(ctx context.Context, email string, code string) error {
	return m.Called(ctx, email, code).Error(0)
}
