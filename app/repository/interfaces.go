package repository

import (
	"github.com/churnaizer/churnaizer/app/models"
)

// UserRepository defines the interface for owner-account database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByUUID(uuid string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	UpdateLastLogin(id uint) error
}

// APIKeyRepository defines the interface for SDK key database operations
type APIKeyRepository interface {
	Create(key *models.APIKey) error
	GetActiveByKey(key string) (*models.APIKey, error)
	ListByOwner(ownerID string) ([]models.APIKey, error)
	Deactivate(ownerID string, id uint) error
	Touch(id uint) error
}

// UserDataRepository defines the interface for tracked-user rows. Upsert
// conflicts on the (owner_id, user_id) composite key; overwriteDeleted
// controls whether the soft-delete flag is part of the overwrite set
// (the CSV path forces it back to false, the tracking path leaves it
// untouched).
type UserDataRepository interface {
	Upsert(row *models.UserData, overwriteDeleted bool) error
	GetByOwnerAndUser(ownerID, userID string) (*models.UserData, error)
	ListByOwner(ownerID string, offset, limit int) ([]models.UserData, error)
	CountByOwner(ownerID string) (int64, error)
	CountByRiskLevel(ownerID string) (map[string]int64, error)
	AverageChurnScore(ownerID string) (float64, error)
}

// AuditRepository defines the interface for ingestion audit records
type AuditRepository interface {
	RecordCSVUpload(upload *models.CSVUpload) error
	RecordSDKHealth(entry *models.SDKHealthLog) error
}
