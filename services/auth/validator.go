package auth

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxPasswordBytes = 72

// Result carries the outcome of input validation. FieldErrors maps a request
// field name to a single human-readable message.
type Result struct {
	Valid       bool
	FieldErrors map[string]string
}

// Message returns the first field error in a stable field order.
func (r Result) Message() string {
	for _, field := range []string{"username", "email", "password", "refreshToken"} {
		if msg, ok := r.FieldErrors[field]; ok {
			return msg
		}
	}
	for _, msg := range r.FieldErrors {
		return msg
	}
	return ""
}

type RegistrationInput struct {
	Username string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

type Validator interface {
	ValidateRegistration(input RegistrationInput) Result
	ValidateLogin(input LoginInput) Result
}

// NormalizeEmail lower-cases and trims an address before lookup or storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) ValidateRegistration(input RegistrationInput) Result {
	errs := map[string]string{}

	if msg := s.validateUsername(strings.TrimSpace(input.Username)); msg != "" {
		errs["username"] = msg
	}
	if msg := validateEmail(input.Email); msg != "" {
		errs["email"] = msg
	}
	if input.Password == "" {
		errs["password"] = "password is required"
	} else if len(input.Password) > maxPasswordBytes {
		errs["password"] = fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes)
	} else if err := s.ValidatePassword(input.Password); err != nil {
		errs["password"] = err.Error()
	}

	return result(errs)
}

func (s *Service) ValidateLogin(input LoginInput) Result {
	errs := map[string]string{}

	if msg := validateEmail(input.Email); msg != "" {
		errs["email"] = msg
	}
	if input.Password == "" {
		errs["password"] = "password is required"
	} else if len(input.Password) > maxPasswordBytes {
		errs["password"] = fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes)
	}

	return result(errs)
}

func (s *Service) validateUsername(username string) string {
	if username == "" {
		return "username is required"
	}

	length := utf8.RuneCountInString(username)
	if length < s.config.UsernameMinLength {
		return fmt.Sprintf("username must be at least %d characters", s.config.UsernameMinLength)
	}
	if s.config.UsernameMaxLength > 0 && length > s.config.UsernameMaxLength {
		return fmt.Sprintf("username must be at most %d characters", s.config.UsernameMaxLength)
	}

	for _, r := range username {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-' && r != '.' {
			return "username may only contain letters, numbers, '.', '_' and '-'"
		}
	}

	return ""
}

func validateEmail(email string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		return "email is required"
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(addr.Address[strings.LastIndex(addr.Address, "@")+1:], ".") {
		return "email must be a valid email address"
	}

	return ""
}

func result(errs map[string]string) Result {
	if len(errs) == 0 {
		return Result{Valid: true}
	}
	return Result{Valid: false, FieldErrors: errs}
}
