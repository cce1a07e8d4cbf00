package validator

import (
	"context"
	"fmt"

	"fintrack/internal/usecase"
	auth "fintrack/internal/usecase/auth_usecase"

	"github.com/go-playground/validator/v10"
)

// bcrypt が受け付ける最大長（バイト）
const maxPasswordBytes = 72

// サインアップ入力のルール（max は文字数）
type registerRules struct {
	Email    string `validate:"required,email,max=255"`
	Password string `validate:"required,min=8,max=72"`
	Name     string `validate:"required,max=100"`
	Surname  string `validate:"required,max=100"`
}

type loginRules struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type verifyRules struct {
	Email string `validate:"required,email"`
	Code  string `validate:"required,len=6,numeric"`
}

type authValidator struct {
	validate *validator.Validate
	policy   *EmailPolicy
}

// Usecaseは interface を依存注入
func NewAuthValidator(policy *EmailPolicy) auth.AuthValidator {
	return &authValidator{
		validate: validator.New(),
		policy:   policy,
	}
}

// サインアップの入力を検証
func (v *authValidator) ValidateRegister(ctx context.Context, in auth.RegisterUserInput) error {
	if err := v.check(registerRules{
		Email:    in.Email,
		Password: in.Password,
		Name:     in.Name,
		Surname:  in.Surname,
	}); err != nil {
		return err
	}
	//マルチバイト文字だと文字数が72以下でもバイト数で超える
	if len(in.Password) > maxPasswordBytes {
		return usecase.NewValidationError(fmt.Sprintf("El campo contraseña debe tener como máximo %d bytes", maxPasswordBytes))
	}

	domain := domainOf(in.Email)
	if v.policy.IsBlocked(domain) {
		return usecase.NewValidationError("No se permiten emails temporales")
	}
	if !v.policy.IsAllowed(domain) {
		return usecase.NewValidationError("Proveedor de email no permitido")
	}
	return nil
}

// ログインの入力を検証
func (v *authValidator) ValidateLogin(ctx context.Context, email string, password string) error {
	return v.check(loginRules{Email: email, Password: password})
}

func (v *authValidator) ValidateVerifyEmail(ctx context.Context, email string, code string) error {
	return v.check(verifyRules{Email: email, Code: code})
}

// 最初の違反フィールドを具体的に返す
func (v *authValidator) check(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return usecase.NewValidationError("validation error")
	}

	fe := verrs[0]
	field := fieldLabel(fe.Field())
	switch fe.Tag() {
	case "required":
		return usecase.NewValidationError(fmt.Sprintf("El campo %s es obligatorio", field))
	case "email":
		return usecase.NewValidationError("El email no tiene un formato válido")
	case "min":
		return usecase.NewValidationError(fmt.Sprintf("El campo %s debe tener al menos %s caracteres", field, fe.Param()))
	case "max":
		return usecase.NewValidationError(fmt.Sprintf("El campo %s debe tener como máximo %s caracteres", field, fe.Param()))
	case "len", "numeric":
		return usecase.NewValidationError(fmt.Sprintf("El campo %s debe tener 6 dígitos", field))
	default:
		return usecase.NewValidationError(fmt.Sprintf("El campo %s no es válido", field))
	}
}

func fieldLabel(name string) string {
	switch name {
	case "Email":
		return "email"
	case "Password":
		return "contraseña"
	case "Name":
		return "nombre"
	case "Surname":
		return "apellido"
	case "Code":
		return "código"
	default:
		return name
	}
}
