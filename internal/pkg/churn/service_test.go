package churn

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churnaizer/churnaizer/app/models"
)

type fakeUserDataRepo struct {
	mu   sync.Mutex
	rows map[string]*models.UserData // keyed by owner|user

	failNext bool
}

func newFakeUserDataRepo() *fakeUserDataRepo {
	return &fakeUserDataRepo{rows: map[string]*models.UserData{}}
}

func (r *fakeUserDataRepo) key(ownerID, userID string) string { return ownerID + "|" + userID }

func (r *fakeUserDataRepo) Upsert(row *models.UserData, overwriteDeleted bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext {
		r.failNext = false
		return assert.AnError
	}
	k := r.key(row.OwnerID, row.UserID)
	if existing, ok := r.rows[k]; ok && !overwriteDeleted {
		row.IsDeleted = existing.IsDeleted
	}
	copied := *row
	r.rows[k] = &copied
	return nil
}

func (r *fakeUserDataRepo) GetByOwnerAndUser(ownerID, userID string) (*models.UserData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[r.key(ownerID, userID)]
	if !ok {
		return nil, assert.AnError
	}
	return row, nil
}

func (r *fakeUserDataRepo) ListByOwner(ownerID string, offset, limit int) ([]models.UserData, error) {
	return nil, nil
}

func (r *fakeUserDataRepo) CountByOwner(ownerID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.rows)), nil
}

func (r *fakeUserDataRepo) CountByRiskLevel(ownerID string) (map[string]int64, error) {
	return map[string]int64{}, nil
}

func (r *fakeUserDataRepo) AverageChurnScore(ownerID string) (float64, error) { return 0, nil }

type fakeAuditRepo struct {
	mu      sync.Mutex
	uploads []models.CSVUpload
	health  []models.SDKHealthLog
}

func (r *fakeAuditRepo) RecordCSVUpload(upload *models.CSVUpload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uploads = append(r.uploads, *upload)
	return nil
}

func (r *fakeAuditRepo) RecordSDKHealth(entry *models.SDKHealthLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.health = append(r.health, *entry)
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	owners []string
}

func (n *fakeNotifier) TriggerPlaybooks(ownerID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.owners = append(n.owners, ownerID)
}

const testOwner = "owner-uuid-1"

func newTestService(users *fakeUserDataRepo, audit *fakeAuditRepo, predictor *Predictor, notifier Notifier) *Service {
	return NewService(users, audit, predictor, notifier)
}

func TestProcessTrackingBatchMixedRecords(t *testing.T) {
	users := newFakeUserDataRepo()
	audit := &fakeAuditRepo{}
	notifier := &fakeNotifier{}
	svc := newTestService(users, audit, nil, notifier)

	good1 := validTrackingRecord()
	bad := validTrackingRecord()
	delete(bad, "user_id")
	good2 := validTrackingRecord()
	good2["user_id"] = "u_456"

	outcome := svc.ProcessTrackingBatch(context.Background(), testOwner, nil, "sdk/1.0", []any{good1, bad, good2})

	assert.Equal(t, 2, outcome.Processed)
	assert.Equal(t, 1, outcome.Failed)
	require.Len(t, outcome.Results, 3)

	// Result order follows the input order regardless of worker scheduling.
	assert.Equal(t, "ok", outcome.Results[0].Status)
	assert.Equal(t, "u_123", outcome.Results[0].UserID)
	assert.Equal(t, "error", outcome.Results[1].Status)
	assert.Contains(t, outcome.Results[1].Error, "user_id")
	assert.Equal(t, "ok", outcome.Results[2].Status)
	assert.Equal(t, "u_456", outcome.Results[2].UserID)

	// One playbook trigger for the batch, not per record.
	assert.Equal(t, []string{testOwner}, notifier.owners)

	// Health heartbeats for every record, including the failed one.
	assert.Len(t, audit.health, 3)

	row, err := users.GetByOwnerAndUser(testOwner, "u_123")
	require.NoError(t, err)
	assert.Equal(t, models.SourceSDK, row.Source)
	assert.Equal(t, "Pro", row.Plan)
}

func TestProcessTrackingBatchAllInvalidSkipsNotifier(t *testing.T) {
	notifier := &fakeNotifier{}
	svc := newTestService(newFakeUserDataRepo(), &fakeAuditRepo{}, nil, notifier)

	outcome := svc.ProcessTrackingBatch(context.Background(), testOwner, nil, "", []any{"not a map"})

	assert.Equal(t, 0, outcome.Processed)
	assert.Equal(t, 1, outcome.Failed)
	assert.Empty(t, notifier.owners)
}

func TestProcessTrackingRecordHeuristicScoring(t *testing.T) {
	users := newFakeUserDataRepo()
	svc := newTestService(users, &fakeAuditRepo{}, nil, nil)

	record := validTrackingRecord() // healthy, 20 days since signup
	outcome := svc.ProcessTrackingBatch(context.Background(), testOwner, nil, "", []any{record})

	require.Equal(t, 1, outcome.Processed)
	result := outcome.Results[0]
	require.NotNil(t, result.ScoredResult)
	assert.Equal(t, 0.5, result.ChurnProbability)
	assert.Equal(t, RiskMedium, result.RiskLevel)
	assert.Equal(t, StageHighRiskMature, result.LifecycleStage)
	assert.Equal(t, trackingFallbackReason, result.ChurnReason)
}

func TestProcessTrackingRecordPredictorOverride(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"churn_score": 0.1, "churn_reason": "model says fine"})
	}))
	defer srv.Close()

	users := newFakeUserDataRepo()
	svc := newTestService(users, &fakeAuditRepo{}, newTestPredictor(srv.URL), nil)

	outcome := svc.ProcessTrackingBatch(context.Background(), testOwner, nil, "", []any{validTrackingRecord()})

	require.Equal(t, 1, outcome.Processed)
	result := outcome.Results[0]
	assert.Equal(t, 0.1, result.ChurnProbability)
	assert.Equal(t, RiskLow, result.RiskLevel)
	assert.Equal(t, StageMatureSafe, result.LifecycleStage)
	assert.Equal(t, "model says fine", result.ChurnReason)
}

func TestProcessTrackingRecordPredictorFailureFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := newTestService(newFakeUserDataRepo(), &fakeAuditRepo{}, newTestPredictor(srv.URL), nil)

	outcome := svc.ProcessTrackingBatch(context.Background(), testOwner, nil, "", []any{validTrackingRecord()})

	require.Equal(t, 1, outcome.Processed)
	assert.Equal(t, 0.5, outcome.Results[0].ChurnProbability)
	assert.Equal(t, trackingFallbackReason, outcome.Results[0].ChurnReason)
}

func TestProcessTrackingRecordNewUserReasonOverride(t *testing.T) {
	svc := newTestService(newFakeUserDataRepo(), &fakeAuditRepo{}, nil, nil)

	record := validTrackingRecord()
	record["days_since_signup"] = float64(2)
	outcome := svc.ProcessTrackingBatch(context.Background(), testOwner, nil, "", []any{record})

	result := outcome.Results[0]
	assert.Equal(t, StageNewUser, result.LifecycleStage)
	assert.Equal(t, newUserReason, result.ChurnReason)
	assert.Equal(t, 5, result.DaysUntilMature)
}

func TestProcessTrackingRecordMatureOverride(t *testing.T) {
	svc := newTestService(newFakeUserDataRepo(), &fakeAuditRepo{}, nil, nil)

	// Free plan, no revenue (+0.15) and high tickets (+0.2) on the 0.5
	// base give 0.85 without the predictor.
	record := validTrackingRecord()
	record["subscription_plan"] = "Free"
	record["monthly_revenue"] = float64(0)
	record["support_tickets_opened"] = float64(3)

	outcome := svc.ProcessTrackingBatch(context.Background(), testOwner, nil, "", []any{record})

	require.Equal(t, 1, outcome.Processed)
	result := outcome.Results[0]
	assert.InDelta(t, 0.85, result.ChurnProbability, 1e-9)
	assert.Equal(t, RiskHigh, result.RiskLevel)
	assert.Equal(t, StageHighRiskMature, result.LifecycleStage)
}

func TestProcessTrackingRecordSaveFailure(t *testing.T) {
	users := newFakeUserDataRepo()
	users.failNext = true
	svc := newTestService(users, &fakeAuditRepo{}, nil, nil)

	outcome := svc.ProcessTrackingBatch(context.Background(), testOwner, nil, "", []any{validTrackingRecord()})

	assert.Equal(t, 1, outcome.Failed)
	assert.Equal(t, "Failed to save tracking data", outcome.Results[0].Error)
}

func validCSVRow(email string) map[string]any {
	return map[string]any{
		"customer_email":              email,
		"customer_name":               "Jane",
		"plan":                        "Pro",
		"monthly_revenue":             "$49",
		"number_of_logins_last30days": "12",
		"email_opens_last30days":      "9",
		"support_tickets_opened":      "1",
		"billing_status":              "active",
	}
}

func TestProcessCSVBatch(t *testing.T) {
	users := newFakeUserDataRepo()
	audit := &fakeAuditRepo{}
	svc := newTestService(users, audit, nil, nil)

	rows := []map[string]any{
		validCSVRow("a@example.com"),
		{"customer_email": "b@example.com"}, // missing name
		validCSVRow("c@example.com"),
	}

	outcome := svc.ProcessCSVBatch(context.Background(), testOwner, rows, "import.csv")

	assert.Equal(t, 3, outcome.RowsProcessed)
	assert.Equal(t, 2, outcome.RowsSuccess)
	assert.Equal(t, 1, outcome.RowsFailed)
	assert.Equal(t, "2 rows processed successfully, 1 failed", outcome.Message)

	require.Len(t, outcome.ErrorDetails, 1)
	assert.Equal(t, 2, outcome.ErrorDetails[0].Row)
	assert.Equal(t, "b@example.com", outcome.ErrorDetails[0].UserID)

	require.Len(t, audit.uploads, 1)
	assert.Equal(t, "import.csv", audit.uploads[0].Filename)
	assert.Equal(t, 2, audit.uploads[0].RowsProcessed)
	assert.Equal(t, 1, audit.uploads[0].RowsFailed)

	row, err := users.GetByOwnerAndUser(testOwner, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.SourceCSV, row.Source)
	assert.Equal(t, "a@example.com", row.Email)
	assert.Equal(t, "Jane", row.Name)
	assert.Equal(t, string(StageAnalyzed), row.UserStage)
	assert.False(t, row.IsDeleted)
}

func TestProcessCSVBatchResurrectsDeletedRow(t *testing.T) {
	users := newFakeUserDataRepo()
	users.rows[users.key(testOwner, "a@example.com")] = &models.UserData{
		OwnerID:   testOwner,
		UserID:    "a@example.com",
		IsDeleted: true,
	}
	svc := newTestService(users, &fakeAuditRepo{}, nil, nil)

	outcome := svc.ProcessCSVBatch(context.Background(), testOwner, []map[string]any{validCSVRow("a@example.com")}, "")
	require.Equal(t, 1, outcome.RowsSuccess)

	row, err := users.GetByOwnerAndUser(testOwner, "a@example.com")
	require.NoError(t, err)
	assert.False(t, row.IsDeleted)
}

func TestProcessCSVBatchIdempotentUpsert(t *testing.T) {
	users := newFakeUserDataRepo()
	svc := newTestService(users, &fakeAuditRepo{}, nil, nil)

	rows := []map[string]any{validCSVRow("a@example.com")}
	svc.ProcessCSVBatch(context.Background(), testOwner, rows, "")
	svc.ProcessCSVBatch(context.Background(), testOwner, rows, "")

	total, err := users.CountByOwner(testOwner)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestProcessCSVRowPredictorOverride(t *testing.T) {
	understanding := 91
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"churn_score":         0.88,
			"churn_reason":        "model reason",
			"understanding_score": understanding,
			"insight":             "model insight",
		})
	}))
	defer srv.Close()

	users := newFakeUserDataRepo()
	svc := newTestService(users, &fakeAuditRepo{}, newTestPredictor(srv.URL), nil)

	outcome := svc.ProcessCSVBatch(context.Background(), testOwner, []map[string]any{validCSVRow("a@example.com")}, "")
	require.Equal(t, 1, outcome.RowsSuccess)

	row, err := users.GetByOwnerAndUser(testOwner, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0.88, row.ChurnScore)
	assert.Equal(t, "high", row.RiskLevel)
	assert.Equal(t, "model reason", row.ChurnReason)
	assert.Equal(t, understanding, row.UnderstandingScore)
	assert.Equal(t, "model insight", row.ActionRecommended)
}
