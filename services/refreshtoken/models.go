package refreshtoken

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RefreshToken is the persisted half of a refresh token. Only the sha256
// digest of the opaque token is stored.
type RefreshToken struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	UserID     string    `json:"user_id" gorm:"size:36;not null;index"`
	TokenHash  string    `json:"-" gorm:"uniqueIndex;size:64;not null"`
	ExpiresAt  time.Time `json:"expires_at" gorm:"not null;index"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsed   time.Time `json:"last_used"`
	IPAddress  string    `json:"ip_address" gorm:"size:45"`
	DeviceInfo string    `json:"device_info" gorm:"size:255"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (t *RefreshToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// ClientInfo describes the caller a token is issued to.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// IssuedToken is returned once, at creation. Token is the plaintext value.
type IssuedToken struct {
	Token     string
	TokenID   string
	Hash      string
	ExpiresAt time.Time
}
