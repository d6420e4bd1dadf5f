package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"gorm.io/gorm"
)

const apiKeyPrefix = "cz_"

// APIKey authenticates SDK tracking requests for one owner. Keys are
// resolved per request; inactive keys never authenticate.
type APIKey struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	OwnerID    string         `gorm:"type:char(36);index" json:"owner_id"`
	Key        string         `gorm:"type:varchar(100);uniqueIndex" json:"key"`
	Name       string         `gorm:"type:varchar(100)" json:"name"`
	IsActive   bool           `gorm:"default:true" json:"is_active"`
	LastUsedAt *time.Time     `json:"last_used_at"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// GenerateAPIKey creates a new random key with the public prefix.
func GenerateAPIKey() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return apiKeyPrefix + hex.EncodeToString(b), nil
}

// MaskedKey returns the truncated key form shown in listings.
func (k *APIKey) MaskedKey() string {
	if len(k.Key) <= 16 {
		return k.Key
	}
	return k.Key[:12] + "..." + k.Key[len(k.Key)-4:]
}
