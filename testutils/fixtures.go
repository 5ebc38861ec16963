package testutils

import (
	"time"

	"github.com/tech-arch1tect/authrelay/config"
	"golang.org/x/crypto/bcrypt"
)

const TestJWTSecret = "k3y-f0r-unit-runs-0nly-9f8e7d6c5b4a"

func GetTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:    "authrelay-test",
			Version: "test",
		},
		Server: config.ServerConfig{
			Port:            "0",
			Host:            "127.0.0.1",
			AllowOrigins:    []string{"*"},
			BodyLimit:       "1M",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Log: config.LogConfig{
			Level:  "error",
			Format: "json",
			Output: "stdout",
		},
		Auth: config.AuthConfig{
			MinLength:         8,
			RequireUpper:      true,
			RequireLower:      true,
			RequireNumber:     true,
			RequireSpecial:    false,
			BcryptCost:        bcrypt.MinCost,
			UsernameMinLength: 3,
			UsernameMaxLength: 50,
			OperationTimeout:  5 * time.Second,
		},
		JWT: config.JWTConfig{
			SecretKey:    TestJWTSecret,
			Algorithm:    "HS256",
			AccessExpiry: 15 * time.Minute,
			Issuer:       "authrelay-test",
		},
		RefreshToken: config.RefreshTokenConfig{
			TokenLength:     32,
			Expiry:          7 * 24 * time.Hour,
			CleanupInterval: time.Hour,
			IssueAttempts:   3,
		},
		RateLimit: config.RateLimitConfig{
			Enabled:              true,
			Store:                "memory",
			Strategy:             config.StrategyFixedWindow,
			KeyPrefix:            "rl:",
			StoreTimeout:         250 * time.Millisecond,
			Window:               time.Minute,
			Max:                  100,
			FailureMode:          config.FailOpen,
			Points:               10,
			PointsCost:           1,
			PointsDuration:       time.Second,
			SensitiveWindow:      time.Minute,
			SensitiveMax:         50,
			SensitiveFailureMode: config.FailClosed,
		},
		Gateway: config.GatewayConfig{
			IdentityURL:    "http://127.0.0.1:3001",
			ProxyTimeout:   5 * time.Second,
			IdentityPrefix: "/api/auth",
		},
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			DSN:    ":memory:",
		},
	}
}

var TestPasswords = struct {
	Valid       string
	TooShort    string
	NoUpper     string
	NoLower     string
	NoNumber    string
	WithSpecial string
}{
	Valid:       "Password123",
	TooShort:    "Pass1",
	NoUpper:     "password123",
	NoLower:     "PASSWORD123",
	NoNumber:    "Password",
	WithSpecial: "Password123!",
}

type TestUser struct {
	Username string
	Email    string
	Password string
}

var TestUsers = struct {
	ValidUser    TestUser
	SecondUser   TestUser
	InvalidEmail TestUser
}{
	ValidUser: TestUser{
		Username: "testuser",
		Email:    "test@example.com",
		Password: "Password123",
	},
	SecondUser: TestUser{
		Username: "otheruser",
		Email:    "other@example.com",
		Password: "Password456",
	},
	InvalidEmail: TestUser{
		Username: "testuser2",
		Email:    "invalid-email",
		Password: "Password123",
	},
}
