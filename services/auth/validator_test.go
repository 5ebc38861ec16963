package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tech-arch1tect/authrelay/testutils"
)

func TestService_ValidateRegistration(t *testing.T) {
	cfg := testutils.GetTestConfig()
	service := NewService(&cfg.Auth, nil)

	tests := []struct {
		name        string
		input       RegistrationInput
		wantValid   bool
		errorFields []string
	}{
		{
			name:      "valid input",
			input:     RegistrationInput{Username: "alice", Email: "alice@example.com", Password: testutils.TestPasswords.Valid},
			wantValid: true,
		},
		{
			name:        "all fields missing",
			input:       RegistrationInput{},
			errorFields: []string{"username", "email", "password"},
		},
		{
			name:        "username too short",
			input:       RegistrationInput{Username: "al", Email: "alice@example.com", Password: testutils.TestPasswords.Valid},
			errorFields: []string{"username"},
		},
		{
			name:        "username too long",
			input:       RegistrationInput{Username: strings.Repeat("a", 51), Email: "alice@example.com", Password: testutils.TestPasswords.Valid},
			errorFields: []string{"username"},
		},
		{
			name:        "username with spaces",
			input:       RegistrationInput{Username: "alice smith", Email: "alice@example.com", Password: testutils.TestPasswords.Valid},
			errorFields: []string{"username"},
		},
		{
			name:        "malformed email",
			input:       RegistrationInput{Username: "alice", Email: testutils.TestUsers.InvalidEmail.Email, Password: testutils.TestPasswords.Valid},
			errorFields: []string{"email"},
		},
		{
			name:        "display name email",
			input:       RegistrationInput{Username: "alice", Email: "Alice <alice@example.com>", Password: testutils.TestPasswords.Valid},
			errorFields: []string{"email"},
		},
		{
			name:        "weak password",
			input:       RegistrationInput{Username: "alice", Email: "alice@example.com", Password: testutils.TestPasswords.NoNumber},
			errorFields: []string{"password"},
		},
		{
			name:        "password over bcrypt limit",
			input:       RegistrationInput{Username: "alice", Email: "alice@example.com", Password: "Aa1" + strings.Repeat("x", 80)},
			errorFields: []string{"password"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := service.ValidateRegistration(tt.input)

			assert.Equal(t, tt.wantValid, result.Valid)
			if tt.wantValid {
				assert.Empty(t, result.FieldErrors)
				return
			}
			assert.Len(t, result.FieldErrors, len(tt.errorFields))
			for _, field := range tt.errorFields {
				assert.Contains(t, result.FieldErrors, field)
			}
			assert.NotEmpty(t, result.Message())
		})
	}
}

func TestService_ValidateLogin(t *testing.T) {
	cfg := testutils.GetTestConfig()
	service := NewService(&cfg.Auth, nil)

	t.Run("valid input", func(t *testing.T) {
		result := service.ValidateLogin(LoginInput{Email: "alice@example.com", Password: "anything"})
		assert.True(t, result.Valid)
	})

	t.Run("password policy not applied on login", func(t *testing.T) {
		result := service.ValidateLogin(LoginInput{Email: "alice@example.com", Password: "short"})
		assert.True(t, result.Valid)
	})

	t.Run("missing fields", func(t *testing.T) {
		result := service.ValidateLogin(LoginInput{})
		assert.False(t, result.Valid)
		assert.Equal(t, "email is required", result.FieldErrors["email"])
		assert.Equal(t, "password is required", result.FieldErrors["password"])
	})

	t.Run("malformed email", func(t *testing.T) {
		result := service.ValidateLogin(LoginInput{Email: "not-an-email", Password: "anything"})
		assert.False(t, result.Valid)
		assert.Contains(t, result.FieldErrors, "email")
	})
}

func TestResult_Message(t *testing.T) {
	result := Result{FieldErrors: map[string]string{
		"password": "password is required",
		"email":    "email is required",
	}}
	assert.Equal(t, "email is required", result.Message())

	assert.Empty(t, Result{Valid: true}.Message())
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "alice@example.com", NormalizeEmail("  Alice@Example.COM "))
}
