package repository

import (
	"github.com/churnaizer/churnaizer/app/models"
	"gorm.io/gorm"
)

// auditRepository implements the AuditRepository interface
type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new audit repository instance
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

// RecordCSVUpload stores one batch ingestion event
func (r *auditRepository) RecordCSVUpload(upload *models.CSVUpload) error {
	return r.db.Create(upload).Error
}

// RecordSDKHealth stores one ingestion heartbeat
func (r *auditRepository) RecordSDKHealth(entry *models.SDKHealthLog) error {
	return r.db.Create(entry).Error
}
