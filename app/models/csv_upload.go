package models

import "time"

const (
	CSVUploadStatusCompleted = "completed"
	CSVUploadStatusFailed    = "failed"
)

// CSVUpload records one batch ingestion event for the owner's upload
// history. Written best-effort after the batch completes.
type CSVUpload struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	OwnerID       string    `gorm:"type:char(36);index" json:"owner_id"`
	Filename      string    `gorm:"type:varchar(255)" json:"filename"`
	RowsProcessed int       `json:"rows_processed"`
	RowsFailed    int       `json:"rows_failed"`
	Status        string    `gorm:"type:varchar(20)" json:"status"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}
