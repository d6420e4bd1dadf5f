package churn

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/churnaizer/churnaizer/app/models"
	"github.com/churnaizer/churnaizer/app/repository"
)

// defaultRecordWorkers bounds concurrent record processing inside one
// batch. Records are independent; only the result order is stable.
const defaultRecordWorkers = 4

// Notifier fires the downstream playbook processing after a batch with
// at least one success. At-most-once, failure-tolerant: the outcome is
// only logged, never awaited for correctness.
type Notifier interface {
	TriggerPlaybooks(ownerID string)
}

// ScoredResult is the scored output for one signal.
type ScoredResult struct {
	ChurnProbability   float64        `json:"churn_probability"`
	RiskLevel          RiskLevel      `json:"risk_level"`
	LifecycleStage     LifecycleStage `json:"lifecycle_stage"`
	UnderstandingScore int            `json:"understanding_score"`
	ChurnReason        string         `json:"churn_reason"`
	ActionRecommended  string         `json:"action_recommended"`
	DaysUntilMature    int            `json:"days_until_mature"`
}

// RecordResult is one element of a tracking batch response.
type RecordResult struct {
	Status string `json:"status"`
	UserID string `json:"user_id"`
	Error  string `json:"error,omitempty"`
	*ScoredResult
}

// TrackOutcome aggregates a tracking batch.
type TrackOutcome struct {
	Processed int
	Failed    int
	Results   []RecordResult
}

// CSVRowError identifies one failed row of a CSV batch.
type CSVRowError struct {
	Row    int    `json:"row"`
	UserID string `json:"user_id"`
	Error  string `json:"error"`
}

// CSVOutcome aggregates a CSV batch.
type CSVOutcome struct {
	RowsProcessed int           `json:"rows_processed"`
	RowsSuccess   int           `json:"rows_success"`
	RowsFailed    int           `json:"rows_failed"`
	ErrorDetails  []CSVRowError `json:"error_details"`
	Message       string        `json:"message"`
}

// Service is the ingestion pipeline: it normalizes raw records, scores
// them (external model first, local heuristic as fallback) and
// materializes the result as an idempotent upsert per (owner, user).
// The owner identity is always an explicit parameter, never ambient
// state, so records can be processed in parallel.
type Service struct {
	users    repository.UserDataRepository
	audit    repository.AuditRepository
	notifier Notifier

	predictor *Predictor
	tracking  ScoringStrategy
	csv       ScoringStrategy

	workers int
}

// NewService creates a pipeline service with injected collaborators.
// predictor and notifier may be nil.
func NewService(users repository.UserDataRepository, audit repository.AuditRepository, predictor *Predictor, notifier Notifier) *Service {
	return &Service{
		users:     users,
		audit:     audit,
		notifier:  notifier,
		predictor: predictor,
		tracking:  NewTrackingHeuristic(),
		csv:       NewCsvHeuristic(),
		workers:   defaultRecordWorkers,
	}
}

// NewServiceFromFactory wires the service from the global repository
// factory and the environment-configured predictor.
func NewServiceFromFactory(notifier Notifier) *Service {
	factory := repository.GetGlobalFactory()
	return NewService(
		factory.GetUserDataRepository(),
		factory.GetAuditRepository(),
		NewPredictorFromEnv(),
		notifier,
	)
}

// ProcessTrackingBatch runs the pipeline over a batch of raw tracking
// records. Records fail individually; siblings always proceed.
func (s *Service) ProcessTrackingBatch(ctx context.Context, ownerID string, apiKeyID *uint, userAgent string, records []any) TrackOutcome {
	results := make([]RecordResult, len(records))

	s.runRecords(len(records), func(i int) {
		record, ok := records[i].(map[string]any)
		if !ok {
			results[i] = RecordResult{Status: "error", UserID: "unknown", Error: "invalid record format"}
			return
		}
		results[i] = s.processTrackingRecord(ctx, ownerID, apiKeyID, userAgent, record)
	})

	outcome := TrackOutcome{Results: results}
	for _, r := range results {
		if r.Status == "ok" {
			outcome.Processed++
		} else {
			outcome.Failed++
		}
	}

	if outcome.Processed > 0 && s.notifier != nil {
		s.notifier.TriggerPlaybooks(ownerID)
	}
	return outcome
}

func (s *Service) processTrackingRecord(ctx context.Context, ownerID string, apiKeyID *uint, userAgent string, record map[string]any) RecordResult {
	sig, err := TrackingSignalFromMap(record)
	if err != nil {
		userID := getString(record, "user_id")
		if userID == "" {
			userID = "unknown"
		}
		s.logHealth(ownerID, apiKeyID, userAgent, models.HealthStatusError, err.Error(), map[string]any{"user_id": userID})
		return RecordResult{Status: "error", UserID: userID, Error: err.Error()}
	}

	scored := s.scoreTracking(ctx, sig)

	lastLogin := time.Now().AddDate(0, 0, -sig.LastLoginDaysAgo)
	row := &models.UserData{
		OwnerID:            ownerID,
		UserID:             sig.UserID,
		Plan:               string(sig.Plan),
		Usage:              sig.MonthlyRevenue,
		LastLogin:          &lastLogin,
		ChurnScore:         scored.ChurnProbability,
		ChurnReason:        scored.ChurnReason,
		RiskLevel:          string(scored.RiskLevel),
		UserStage:          string(scored.LifecycleStage),
		UnderstandingScore: scored.UnderstandingScore,
		DaysUntilMature:    scored.DaysUntilMature,
		ActionRecommended:  scored.ActionRecommended,
		Source:             models.SourceSDK,
	}
	// Tracking upserts do not touch the soft-delete flag.
	if err := s.users.Upsert(row, false); err != nil {
		log.Errorf("[Churn] failed to save tracking data for %s: %v", sig.UserID, err)
		s.logHealth(ownerID, apiKeyID, userAgent, models.HealthStatusError, "Failed to save tracking data", map[string]any{"user_id": sig.UserID})
		return RecordResult{Status: "error", UserID: sig.UserID, Error: "Failed to save tracking data"}
	}

	s.logHealth(ownerID, apiKeyID, userAgent, models.HealthStatusSuccess, "", map[string]any{
		"user_id": sig.UserID,
		"plan":    string(sig.Plan),
		"revenue": sig.MonthlyRevenue,
	})

	return RecordResult{Status: "ok", UserID: sig.UserID, ScoredResult: scored}
}

// scoreTracking scores one tracking signal: external model when
// configured, local heuristic otherwise or on any model failure, then
// the two-pass lifecycle derivation on top.
func (s *Service) scoreTracking(ctx context.Context, sig *UserSignal) *ScoredResult {
	score, reason := s.tracking.Score(sig)
	if s.predictor != nil {
		prediction, err := s.predictor.Predict(ctx, TrackingFeatures(sig))
		if err != nil {
			log.Warnf("[Churn] prediction unavailable for %s, using fallback: %v", sig.UserID, err)
		} else {
			score = ClampProbability(prediction.ChurnScore)
			reason = prediction.ChurnReason
			if reason == "" {
				reason = defaultModelReason
			}
		}
	}

	assessment := AssessLifecycle(sig.DaysSinceSignup, score)
	if assessment.Reason != "" {
		reason = assessment.Reason
	}

	return &ScoredResult{
		ChurnProbability:   score,
		RiskLevel:          RiskLevelFor(score),
		LifecycleStage:     assessment.Stage,
		UnderstandingScore: assessment.UnderstandingScore,
		ChurnReason:        reason,
		ActionRecommended:  assessment.ActionRecommended,
		DaysUntilMature:    assessment.DaysUntilMature,
	}
}

// ProcessCSVBatch runs the pipeline over uploaded CSV rows with the
// same per-record isolation as the tracking path.
func (s *Service) ProcessCSVBatch(ctx context.Context, ownerID string, rows []map[string]any, filename string) CSVOutcome {
	userIDs := make([]string, len(rows))
	errs := make([]error, len(rows))

	s.runRecords(len(rows), func(i int) {
		userIDs[i], errs[i] = s.processCSVRow(ctx, ownerID, rows[i])
	})

	outcome := CSVOutcome{
		RowsProcessed: len(rows),
		ErrorDetails:  []CSVRowError{},
	}
	for i := range rows {
		if errs[i] != nil {
			outcome.RowsFailed++
			userID := userIDs[i]
			if userID == "" {
				userID = "unknown"
			}
			outcome.ErrorDetails = append(outcome.ErrorDetails, CSVRowError{
				Row:    i + 1,
				UserID: userID,
				Error:  errs[i].Error(),
			})
			continue
		}
		outcome.RowsSuccess++
	}

	outcome.Message = fmt.Sprintf("%d rows processed successfully", outcome.RowsSuccess)
	if outcome.RowsFailed > 0 {
		outcome.Message += fmt.Sprintf(", %d failed", outcome.RowsFailed)
	}

	if s.audit != nil {
		upload := &models.CSVUpload{
			OwnerID:       ownerID,
			Filename:      filename,
			RowsProcessed: outcome.RowsSuccess,
			RowsFailed:    outcome.RowsFailed,
			Status:        models.CSVUploadStatusCompleted,
		}
		if err := s.audit.RecordCSVUpload(upload); err != nil {
			log.Warnf("[Churn] failed to record csv upload audit: %v", err)
		}
	}

	return outcome
}

func (s *Service) processCSVRow(ctx context.Context, ownerID string, row map[string]any) (string, error) {
	sig, err := CSVSignalFromRow(row)
	if err != nil {
		return getString(row, "customer_email"), err
	}

	scored := s.scoreCSV(ctx, sig)

	dataRow := &models.UserData{
		OwnerID:            ownerID,
		UserID:             sig.UserID,
		Email:              sig.UserID,
		Name:               sig.CustomerName,
		Plan:               string(sig.Plan),
		Usage:              float64(sig.LoginsLast30),
		LastLogin:          sig.LastActiveAt,
		ChurnScore:         scored.ChurnProbability,
		ChurnReason:        scored.ChurnReason,
		RiskLevel:          string(scored.RiskLevel),
		UserStage:          string(scored.LifecycleStage),
		UnderstandingScore: scored.UnderstandingScore,
		DaysUntilMature:    scored.DaysUntilMature,
		ActionRecommended:  scored.ActionRecommended,
		Source:             models.SourceCSV,
		IsDeleted:          false,
	}
	// The CSV path force-clears is_deleted on every upsert, so new
	// data for a soft-deleted user resurrects the row.
	if err := s.users.Upsert(dataRow, true); err != nil {
		return sig.UserID, fmt.Errorf("database error: %v", err)
	}
	return sig.UserID, nil
}

// scoreCSV scores one CSV signal. The lifecycle derivation is skipped
// on this path; rows always land in the flat "analyzed" stage.
func (s *Service) scoreCSV(ctx context.Context, sig *UserSignal) *ScoredResult {
	score, _ := s.csv.Score(sig)
	reason := GenerateChurnReason(sig)
	action := GenerateRecommendedAction(sig)
	understanding := CSVUnderstandingScore(sig)

	if s.predictor != nil {
		prediction, err := s.predictor.Predict(ctx, CSVFeatures(sig))
		if err != nil {
			log.Warnf("[Churn] prediction unavailable for %s, using calculated score: %v", sig.UserID, err)
		} else {
			score = ClampProbability(prediction.ChurnScore)
			if prediction.ChurnReason != "" {
				reason = prediction.ChurnReason
			}
			if prediction.UnderstandingScore != nil {
				understanding = *prediction.UnderstandingScore
			}
			if prediction.Insight != "" {
				action = prediction.Insight
			}
		}
	}

	return &ScoredResult{
		ChurnProbability:   score,
		RiskLevel:          RiskLevelFor(score),
		LifecycleStage:     StageAnalyzed,
		UnderstandingScore: understanding,
		ChurnReason:        reason,
		ActionRecommended:  action,
		DaysUntilMature:    0,
	}
}

// logHealth writes an ingestion heartbeat. Best-effort: failures are
// logged and dropped.
func (s *Service) logHealth(ownerID string, apiKeyID *uint, userAgent, status, errMsg string, requestData map[string]any) {
	if s.audit == nil {
		return
	}
	payload, err := json.Marshal(requestData)
	if err != nil {
		payload = []byte("{}")
	}
	entry := &models.SDKHealthLog{
		OwnerID:       ownerID,
		APIKeyID:      apiKeyID,
		PingTimestamp: time.Now(),
		Status:        status,
		ErrorMessage:  errMsg,
		RequestData:   string(payload),
		UserAgent:     userAgent,
		Source:        models.SourceSDK,
	}
	if err := s.audit.RecordSDKHealth(entry); err != nil {
		log.Warnf("[Churn] failed to record sdk health log: %v", err)
	}
}

// runRecords executes fn for each record index with bounded
// parallelism. Each record's own stages stay strictly sequential.
func (s *Service) runRecords(count int, fn func(i int)) {
	workers := s.workers
	if workers <= 0 {
		workers = defaultRecordWorkers
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := 0; i < count; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(i)
		}(i)
	}
	wg.Wait()
}
