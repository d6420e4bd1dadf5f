package repository

import (
	"strings"
	"time"

	"github.com/churnaizer/churnaizer/app/models"
	"gorm.io/gorm"
)

// apiKeyRepository implements the APIKeyRepository interface
type apiKeyRepository struct {
	db *gorm.DB
}

// NewAPIKeyRepository creates a new API key repository instance
func NewAPIKeyRepository(db *gorm.DB) APIKeyRepository {
	return &apiKeyRepository{db: db}
}

// Create stores a freshly generated key
func (r *apiKeyRepository) Create(key *models.APIKey) error {
	return r.db.Create(key).Error
}

// GetActiveByKey resolves a raw key to its record, rejecting inactive keys
func (r *apiKeyRepository) GetActiveByKey(key string) (*models.APIKey, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var apiKey models.APIKey
	err := r.db.Where("`key` = ? AND is_active = ?", trimmed, true).First(&apiKey).Error
	if err != nil {
		return nil, err
	}
	return &apiKey, nil
}

// ListByOwner returns all keys belonging to one owner
func (r *apiKeyRepository) ListByOwner(ownerID string) ([]models.APIKey, error) {
	var keys []models.APIKey
	err := r.db.Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&keys).Error
	return keys, err
}

// Deactivate disables a key; the row is kept for the audit trail
func (r *apiKeyRepository) Deactivate(ownerID string, id uint) error {
	result := r.db.Model(&models.APIKey{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Updates(map[string]any{"is_active": false})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Touch refreshes the last-used timestamp best-effort
func (r *apiKeyRepository) Touch(id uint) error {
	now := time.Now()
	return r.db.Model(&models.APIKey{}).
		Where("id = ?", id).
		Updates(map[string]any{"last_used_at": now}).Error
}
