package models

import (
	"time"
)

const (
	SourceCSV = "csv"
	SourceSDK = "sdk"
)

// UserData is one tracked end-customer's latest scored state. The row
// is keyed by (owner_id, user_id) and overwritten in place on every
// new signal for that pair; no history is kept. Rows are never deleted
// by the ingestion pipeline, only soft-flagged elsewhere.
type UserData struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	OwnerID            string     `gorm:"type:char(36);uniqueIndex:idx_owner_user;not null" json:"owner_id"`
	UserID             string     `gorm:"type:varchar(200);uniqueIndex:idx_owner_user;not null" json:"user_id"`
	Email              string     `gorm:"type:varchar(255)" json:"email"`
	Name               string     `gorm:"type:varchar(255)" json:"name"`
	Plan               string     `gorm:"type:varchar(20);default:'Free'" json:"plan"`
	Usage              float64    `json:"usage"`
	LastLogin          *time.Time `json:"last_login"`
	ChurnScore         float64    `json:"churn_score"`
	ChurnReason        string     `gorm:"type:text" json:"churn_reason"`
	RiskLevel          string     `gorm:"type:varchar(10)" json:"risk_level"`
	UserStage          string     `gorm:"type:varchar(30)" json:"user_stage"`
	UnderstandingScore int        `json:"understanding_score"`
	DaysUntilMature    int        `json:"days_until_mature"`
	ActionRecommended  string     `gorm:"type:text" json:"action_recommended"`
	Source             string     `gorm:"type:varchar(20);default:'csv'" json:"source"`
	IsDeleted          bool       `gorm:"default:false" json:"is_deleted"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (UserData) TableName() string {
	return "user_data"
}
