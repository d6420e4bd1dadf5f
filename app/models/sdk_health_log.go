package models

import "time"

const (
	HealthStatusSuccess = "success"
	HealthStatusError   = "error"
)

// SDKHealthLog is the per-record ingestion heartbeat written alongside
// tracking upserts. Inserts are best-effort: a failed heartbeat never
// fails the record that produced it.
type SDKHealthLog struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	OwnerID       string    `gorm:"type:char(36);index" json:"owner_id"`
	APIKeyID      *uint     `json:"api_key_id"`
	PingTimestamp time.Time `json:"ping_timestamp"`
	Status        string    `gorm:"type:varchar(20)" json:"status"`
	ErrorMessage  string    `gorm:"type:text" json:"error_message"`
	RequestData   string    `gorm:"type:text" json:"request_data"`
	UserAgent     string    `gorm:"type:varchar(255)" json:"user_agent"`
	Source        string    `gorm:"type:varchar(20);default:'sdk'" json:"source"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}
