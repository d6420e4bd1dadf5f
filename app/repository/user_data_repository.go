package repository

import (
	"github.com/churnaizer/churnaizer/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// userDataRepository implements the UserDataRepository interface
type userDataRepository struct {
	db *gorm.DB
}

// NewUserDataRepository creates a new tracked-user repository instance
func NewUserDataRepository(db *gorm.DB) UserDataRepository {
	return &userDataRepository{db: db}
}

// upsertColumns is the overwrite set applied when a second signal
// arrives for the same (owner_id, user_id) pair. Last write wins.
var upsertColumns = []string{
	"plan",
	"usage",
	"last_login",
	"churn_score",
	"churn_reason",
	"risk_level",
	"user_stage",
	"understanding_score",
	"days_until_mature",
	"action_recommended",
	"source",
	"updated_at",
}

// Upsert inserts or overwrites the row for (owner_id, user_id). With
// overwriteDeleted the soft-delete flag is forced back to the row's
// value (the CSV path sets false, un-deleting previously removed rows
// as a documented side effect); without it an existing flag survives.
func (r *userDataRepository) Upsert(row *models.UserData, overwriteDeleted bool) error {
	columns := upsertColumns
	if overwriteDeleted {
		// Customer identity only arrives on the CSV path, which is
		// also the only path allowed to resurrect soft-deleted rows.
		columns = append(append([]string{}, upsertColumns...), "email", "name", "is_deleted")
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(row).Error
}

// GetByOwnerAndUser fetches one tracked user's latest state
func (r *userDataRepository) GetByOwnerAndUser(ownerID, userID string) (*models.UserData, error) {
	var row models.UserData
	err := r.db.Where("owner_id = ? AND user_id = ?", ownerID, userID).First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ListByOwner returns a page of non-deleted tracked users, most
// recently updated first
func (r *userDataRepository) ListByOwner(ownerID string, offset, limit int) ([]models.UserData, error) {
	var rows []models.UserData
	err := r.db.Where("owner_id = ? AND is_deleted = ?", ownerID, false).
		Order("updated_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// CountByOwner counts non-deleted tracked users for one owner
func (r *userDataRepository) CountByOwner(ownerID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.UserData{}).
		Where("owner_id = ? AND is_deleted = ?", ownerID, false).
		Count(&count).Error
	return count, err
}

// CountByRiskLevel buckets the owner's tracked users by risk tier
func (r *userDataRepository) CountByRiskLevel(ownerID string) (map[string]int64, error) {
	type bucket struct {
		RiskLevel string
		Total     int64
	}
	var buckets []bucket
	err := r.db.Model(&models.UserData{}).
		Select("risk_level, COUNT(*) AS total").
		Where("owner_id = ? AND is_deleted = ?", ownerID, false).
		Group("risk_level").
		Scan(&buckets).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(buckets))
	for _, b := range buckets {
		counts[b.RiskLevel] = b.Total
	}
	return counts, nil
}

// AverageChurnScore averages churn_score across non-deleted rows
func (r *userDataRepository) AverageChurnScore(ownerID string) (float64, error) {
	var avg *float64
	err := r.db.Model(&models.UserData{}).
		Select("AVG(churn_score)").
		Where("owner_id = ? AND is_deleted = ?", ownerID, false).
		Scan(&avg).Error
	if err != nil || avg == nil {
		return 0, err
	}
	return *avg, nil
}
