package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App          AppConfig          `envPrefix:"APP_"`
	Server       ServerConfig       `envPrefix:"SERVER_"`
	Log          LogConfig          `envPrefix:"LOG_"`
	Database     DatabaseConfig     `envPrefix:"DATABASE_"`
	Redis        RedisConfig        `envPrefix:"REDIS_"`
	Auth         AuthConfig         `envPrefix:"AUTH_"`
	JWT          JWTConfig          `envPrefix:"JWT_"`
	RefreshToken RefreshTokenConfig `envPrefix:"REFRESH_TOKEN_"`
	RateLimit    RateLimitConfig    `envPrefix:"RATE_LIMIT_"`
	Gateway      GatewayConfig      `envPrefix:"GATEWAY_"`
}

type AppConfig struct {
	Name    string `env:"NAME" envDefault:"authrelay"`
	Version string `env:"VERSION" envDefault:"dev"`
}

type ServerConfig struct {
	Port            string        `env:"PORT" envDefault:"3001"`
	Host            string        `env:"HOST" envDefault:"0.0.0.0"`
	TrustedProxies  []string      `env:"TRUSTED_PROXIES" envSeparator:","`
	AllowOrigins    []string      `env:"ALLOW_ORIGINS" envSeparator:"," envDefault:"*"`
	BodyLimit       string        `env:"BODY_LIMIT" envDefault:"1M"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
	Output string `env:"OUTPUT" envDefault:"stdout"`
}

type DatabaseConfig struct {
	Driver       string        `env:"DRIVER" envDefault:"sqlite"`
	DSN          string        `env:"DSN" envDefault:"identity.db"`
	AutoMigrate  bool          `env:"AUTO_MIGRATE" envDefault:"true"`
	MaxOpenConns int           `env:"MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns int           `env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLife  time.Duration `env:"CONN_MAX_LIFE" envDefault:"30m"`
}

type RedisConfig struct {
	URL          string        `env:"URL" envDefault:"redis://localhost:6379/0"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"2s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"500ms"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"500ms"`
	PoolSize     int           `env:"POOL_SIZE" envDefault:"20"`
}

type AuthConfig struct {
	MinLength         int           `env:"MIN_LENGTH" envDefault:"8"`
	RequireUpper      bool          `env:"REQUIRE_UPPER" envDefault:"true"`
	RequireLower      bool          `env:"REQUIRE_LOWER" envDefault:"true"`
	RequireNumber     bool          `env:"REQUIRE_NUMBER" envDefault:"true"`
	RequireSpecial    bool          `env:"REQUIRE_SPECIAL" envDefault:"false"`
	BcryptCost        int           `env:"BCRYPT_COST" envDefault:"10"`
	UsernameMinLength int           `env:"USERNAME_MIN_LENGTH" envDefault:"3"`
	UsernameMaxLength int           `env:"USERNAME_MAX_LENGTH" envDefault:"50"`
	OperationTimeout  time.Duration `env:"OPERATION_TIMEOUT" envDefault:"5s"`
}

type JWTConfig struct {
	SecretKey    string        `env:"SECRET_KEY"`
	AccessExpiry time.Duration `env:"ACCESS_EXPIRY" envDefault:"15m"`
	Issuer       string        `env:"ISSUER" envDefault:"authrelay"`
	Algorithm    string        `env:"ALGORITHM" envDefault:"HS256"`
}

type RefreshTokenConfig struct {
	TokenLength     int           `env:"TOKEN_LENGTH" envDefault:"32"`
	Expiry          time.Duration `env:"EXPIRY" envDefault:"168h"`
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1h"`
	IssueAttempts   int           `env:"ISSUE_ATTEMPTS" envDefault:"3"`
}

type RateLimitStrategy string

const (
	StrategyFixedWindow RateLimitStrategy = "fixed_window"
	StrategyPoints      RateLimitStrategy = "points"
)

type FailureMode string

const (
	FailOpen   FailureMode = "open"
	FailClosed FailureMode = "closed"
)

type RateLimitConfig struct {
	Enabled      bool              `env:"ENABLED" envDefault:"true"`
	Store        string            `env:"STORE" envDefault:"redis"`
	Strategy     RateLimitStrategy `env:"STRATEGY" envDefault:"fixed_window"`
	KeyPrefix    string            `env:"KEY_PREFIX" envDefault:"rl:"`
	StoreTimeout time.Duration     `env:"STORE_TIMEOUT" envDefault:"250ms"`

	Window      time.Duration `env:"WINDOW" envDefault:"15m"`
	Max         int64         `env:"MAX" envDefault:"100"`
	FailureMode FailureMode   `env:"FAILURE_MODE" envDefault:"open"`

	Points         int64         `env:"POINTS" envDefault:"10"`
	PointsCost     int64         `env:"POINTS_COST" envDefault:"1"`
	PointsDuration time.Duration `env:"POINTS_DURATION" envDefault:"1s"`

	SensitiveWindow      time.Duration `env:"SENSITIVE_WINDOW" envDefault:"15m"`
	SensitiveMax         int64         `env:"SENSITIVE_MAX" envDefault:"50"`
	SensitiveFailureMode FailureMode   `env:"SENSITIVE_FAILURE_MODE" envDefault:"closed"`
}

type GatewayConfig struct {
	IdentityURL    string        `env:"IDENTITY_URL" envDefault:"http://localhost:3001"`
	ProxyTimeout   time.Duration `env:"PROXY_TIMEOUT" envDefault:"10s"`
	IdentityPrefix string        `env:"IDENTITY_PREFIX" envDefault:"/api/auth"`
}

func LoadConfig(cfg any) error {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	if err := env.Parse(cfg); err != nil {
		return err
	}

	if c, ok := cfg.(*Config); ok {
		return c.Validate()
	}

	return nil
}

func (c *Config) Validate() error {
	if err := validateJWTConfig(&c.JWT); err != nil {
		return err
	}
	if err := validateRefreshTokenConfig(&c.RefreshToken); err != nil {
		return err
	}
	return validateRateLimitConfig(&c.RateLimit)
}

var weakSecretPatterns = []string{"password", "secret", "test", "example", "default", "change"}

func validateJWTConfig(cfg *JWTConfig) error {
	if len(cfg.SecretKey) < 32 {
		return fmt.Errorf("JWT secret key must be at least 32 characters long")
	}

	lower := strings.ToLower(cfg.SecretKey)
	for _, pattern := range weakSecretPatterns {
		if strings.Contains(lower, pattern) {
			return fmt.Errorf("JWT secret key contains weak patterns (%q)", pattern)
		}
	}

	if cfg.Algorithm != "" && cfg.Algorithm != "HS256" {
		return fmt.Errorf("JWT algorithm %q is not supported (supported: HS256)", cfg.Algorithm)
	}

	return nil
}

func validateRefreshTokenConfig(cfg *RefreshTokenConfig) error {
	if cfg.TokenLength < 16 {
		return fmt.Errorf("refresh token length must be at least 16 bytes")
	}
	if cfg.TokenLength > 128 {
		return fmt.Errorf("refresh token length cannot exceed 128 bytes")
	}
	if cfg.Expiry <= 0 {
		return fmt.Errorf("refresh token expiry must be positive")
	}
	if cfg.IssueAttempts < 1 {
		return fmt.Errorf("refresh token issue attempts must be at least 1")
	}
	return nil
}

func validateRateLimitConfig(cfg *RateLimitConfig) error {
	if !cfg.Enabled {
		return nil
	}

	switch cfg.Store {
	case "redis", "memory":
	default:
		return fmt.Errorf("rate limit store must be: redis or memory")
	}

	switch cfg.Strategy {
	case StrategyFixedWindow:
		if cfg.Max <= 0 || cfg.Window <= 0 {
			return fmt.Errorf("rate limit max and window must be positive")
		}
	case StrategyPoints:
		if cfg.Points <= 0 || cfg.PointsCost <= 0 || cfg.PointsDuration <= 0 {
			return fmt.Errorf("rate limit points, cost and duration must be positive")
		}
		if cfg.PointsCost > cfg.Points {
			return fmt.Errorf("rate limit points cost cannot exceed the points budget")
		}
	default:
		return fmt.Errorf("rate limit strategy must be: fixed_window or points")
	}

	if cfg.SensitiveMax <= 0 || cfg.SensitiveWindow <= 0 {
		return fmt.Errorf("sensitive rate limit max and window must be positive")
	}
	if cfg.Strategy == StrategyFixedWindow && cfg.SensitiveMax > cfg.Max {
		return fmt.Errorf("sensitive rate limit max cannot exceed the global max")
	}

	for _, mode := range []FailureMode{cfg.FailureMode, cfg.SensitiveFailureMode} {
		if mode != FailOpen && mode != FailClosed {
			return fmt.Errorf("rate limit failure mode must be: open or closed")
		}
	}

	return nil
}
