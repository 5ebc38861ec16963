package refreshtoken

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/tech-arch1tect/authrelay/config"
	"github.com/tech-arch1tect/authrelay/services/logging"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrRefreshTokenNotFound  = errors.New("refresh token not found")
	ErrTokenGenerationFailed = errors.New("failed to generate secure token")
	ErrTokenCollision        = errors.New("refresh token collided on every attempt")
)

type Service struct {
	db     *gorm.DB
	config *config.RefreshTokenConfig
	logger *logging.Service
	now    func() time.Time
	random func([]byte) (int, error)
}

func NewService(db *gorm.DB, cfg *config.RefreshTokenConfig, logger *logging.Service) *Service {
	logger.Info("initializing refresh token service",
		zap.Duration("token_expiry", cfg.Expiry),
		zap.Int("token_length", cfg.TokenLength),
		zap.Duration("cleanup_interval", cfg.CleanupInterval))

	return &Service{
		db:     db,
		config: cfg,
		logger: logger,
		now:    time.Now,
		random: rand.Read,
	}
}

// Generate creates and persists a new refresh token for userID. A digest
// collision on the unique index is retried with fresh randomness.
func (s *Service) Generate(ctx context.Context, userID string, client ClientInfo) (*IssuedToken, error) {
	attempts := s.config.IssueAttempts
	if attempts < 1 {
		attempts = 1
	}

	deviceInfo := DescribeDevice(client.UserAgent)

	for attempt := 1; attempt <= attempts; attempt++ {
		token, err := s.generateSecureToken()
		if err != nil {
			s.logger.Error("failed to generate secure refresh token", zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrTokenGenerationFailed, err)
		}

		now := s.now()
		record := RefreshToken{
			UserID:     userID,
			TokenHash:  HashToken(token),
			ExpiresAt:  now.Add(s.config.Expiry),
			CreatedAt:  now,
			LastUsed:   now,
			IPAddress:  client.IPAddress,
			DeviceInfo: deviceInfo,
		}

		err = s.db.WithContext(ctx).Create(&record).Error
		if err == nil {
			s.logger.Debug("refresh token generated",
				zap.String("user_id", userID),
				zap.String("token_id", record.ID),
				zap.Time("expires_at", record.ExpiresAt))

			return &IssuedToken{
				Token:     token,
				TokenID:   record.ID,
				Hash:      record.TokenHash,
				ExpiresAt: record.ExpiresAt,
			}, nil
		}

		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			s.logger.Error("failed to store refresh token", zap.Error(err))
			return nil, fmt.Errorf("failed to store refresh token: %w", err)
		}

		s.logger.Warn("refresh token collision, retrying",
			zap.String("user_id", userID),
			zap.Int("attempt", attempt))
	}

	return nil, ErrTokenCollision
}

// Find looks a token up by its digest. Expiry is not checked here.
func (s *Service) Find(ctx context.Context, tokenString string) (*RefreshToken, error) {
	var record RefreshToken
	err := s.db.WithContext(ctx).
		Where("token_hash = ?", HashToken(tokenString)).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRefreshTokenNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &record, nil
}

// Consume deletes the record with the given id. Exactly one caller can
// consume a record; every other caller gets ErrRefreshTokenNotFound.
func (s *Service) Consume(ctx context.Context, tokenID string) error {
	result := s.db.WithContext(ctx).Where("id = ?", tokenID).Delete(&RefreshToken{})
	if result.Error != nil {
		return fmt.Errorf("failed to consume refresh token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRefreshTokenNotFound
	}
	return nil
}

// Revoke deletes the record matching the plaintext token and reports
// whether one existed.
func (s *Service) Revoke(ctx context.Context, tokenString string) (bool, error) {
	result := s.db.WithContext(ctx).
		Where("token_hash = ?", HashToken(tokenString)).
		Delete(&RefreshToken{})
	if result.Error != nil {
		s.logger.Error("failed to revoke refresh token", zap.Error(result.Error))
		return false, fmt.Errorf("failed to revoke refresh token: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *Service) RevokeByID(ctx context.Context, tokenID string) error {
	result := s.db.WithContext(ctx).Where("id = ?", tokenID).Delete(&RefreshToken{})
	if result.Error != nil {
		s.logger.Error("failed to revoke refresh token by ID",
			zap.Error(result.Error),
			zap.String("token_id", tokenID))
		return fmt.Errorf("failed to revoke refresh token by ID: %w", result.Error)
	}
	return nil
}

func (s *Service) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	result := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&RefreshToken{})
	if result.Error != nil {
		s.logger.Error("failed to revoke all user refresh tokens",
			zap.Error(result.Error),
			zap.String("user_id", userID))
		return 0, fmt.Errorf("failed to revoke all user refresh tokens: %w", result.Error)
	}

	s.logger.Info("all user refresh tokens revoked",
		zap.String("user_id", userID),
		zap.Int64("count", result.RowsAffected))
	return result.RowsAffected, nil
}

func (s *Service) CleanupExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).Where("expires_at <= ?", s.now()).Delete(&RefreshToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to cleanup expired tokens: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		s.logger.Info("cleaned up expired refresh tokens", zap.Int64("count", result.RowsAffected))
	}
	return result.RowsAffected, nil
}

func (s *Service) generateSecureToken() (string, error) {
	tokenBytes := make([]byte, s.config.TokenLength)
	if _, err := s.random(tokenBytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(tokenBytes), nil
}

// HashToken returns the hex sha256 digest stored in place of the token.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
