package auth

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/tech-arch1tect/authrelay/config"
	"github.com/tech-arch1tect/authrelay/services/logging"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrPasswordHashingFailed = errors.New("failed to hash password")
	ErrInvalidCredentials    = errors.New("invalid credentials")
)

type Service struct {
	config *config.AuthConfig
	logger *logging.Service
}

func NewService(cfg *config.AuthConfig, logger *logging.Service) *Service {
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		config: cfg,
		logger: logger,
	}
}

func NewServiceWithDefaults() *Service {
	return NewService(&config.AuthConfig{
		MinLength:         8,
		RequireUpper:      true,
		RequireLower:      true,
		RequireNumber:     true,
		RequireSpecial:    false,
		BcryptCost:        bcrypt.DefaultCost,
		UsernameMinLength: 3,
		UsernameMaxLength: 50,
	}, nil)
}

func (s *Service) ValidatePassword(password string) error {
	if len(password) < s.config.MinLength {
		s.logger.Debug("password validation failed: insufficient length",
			zap.Int("length", len(password)),
			zap.Int("min_required", s.config.MinLength))
		return fmt.Errorf("password must be at least %d characters", s.config.MinLength)
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	var missing []string

	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	if s.config.RequireUpper && !hasUpper {
		missing = append(missing, "one uppercase letter")
	}
	if s.config.RequireLower && !hasLower {
		missing = append(missing, "one lowercase letter")
	}
	if s.config.RequireNumber && !hasNumber {
		missing = append(missing, "one number")
	}
	if s.config.RequireSpecial && !hasSpecial {
		missing = append(missing, "one special character")
	}

	if len(missing) > 0 {
		s.logger.Debug("password validation failed: missing requirements",
			zap.Strings("missing_requirements", missing))
		return fmt.Errorf("password must contain at least %s", strings.Join(missing, ", "))
	}

	return nil
}

// HashPassword enforces the password policy before hashing.
func (s *Service) HashPassword(password string) (string, error) {
	if err := s.ValidatePassword(password); err != nil {
		return "", err
	}

	// bcrypt rejects anything longer than 72 bytes
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		s.logger.Error("password hashing failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrPasswordHashingFailed, err)
	}

	return string(hash), nil
}

func (s *Service) VerifyPassword(hashedPassword, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)); err != nil {
		s.logger.Debug("password verification failed", zap.Error(err))
		return ErrInvalidCredentials
	}
	return nil
}

func (s *Service) MustHashPassword(password string) string {
	hash, err := s.HashPassword(password)
	if err != nil {
		panic(err)
	}
	return hash
}
