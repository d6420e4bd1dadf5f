package churn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/churnaizer/churnaizer/internal/pkg/env"
)

// Prediction is the external churn model's response.
type Prediction struct {
	ChurnScore         float64 `json:"churn_score"`
	ChurnReason        string  `json:"churn_reason"`
	UnderstandingScore *int    `json:"understanding_score"`
	Insight            string  `json:"insight"`
}

const defaultModelReason = "AI model prediction based on user behavior patterns"

// Predictor calls the external churn prediction endpoint with bearer
// token auth. A nil or unconfigured Predictor means every record is
// scored by the local strategy instead; callers must treat any error
// from Predict as "unavailable", never as fatal for the record.
type Predictor struct {
	URL    string
	APIKey string

	HTTPClient *http.Client
}

// NewPredictorFromEnv builds a Predictor from CHURN_API_URL and
// CHURN_API_KEY. Returns nil when either is unset.
func NewPredictorFromEnv() *Predictor {
	url := strings.TrimSpace(env.GetEnv("CHURN_API_URL", ""))
	key := strings.TrimSpace(env.GetEnv("CHURN_API_KEY", ""))
	if url == "" || key == "" {
		return nil
	}
	return &Predictor{
		URL:    url,
		APIKey: key,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Predict posts a one-hot-encoded feature payload and decodes the
// model response. Timeouts, non-2xx statuses and malformed bodies all
// surface as errors for the caller to mask with the fallback strategy.
func (p *Predictor) Predict(ctx context.Context, features map[string]any) (*Prediction, error) {
	body, err := json.Marshal(features)
	if err != nil {
		return nil, fmt.Errorf("encode prediction payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build prediction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)
	req.Header.Set("X-API-Key", p.APIKey)

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prediction request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("prediction endpoint returned status %d", resp.StatusCode)
	}

	var prediction Prediction
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return nil, fmt.Errorf("decode prediction response: %w", err)
	}
	return &prediction, nil
}

// TrackingFeatures encodes a tracking-path signal for the model. The
// categorical one-hot flags compare against the raw SDK strings, not
// the normalized plan.
func TrackingFeatures(sig *UserSignal) map[string]any {
	return map[string]any{
		"days_since_signup":           sig.DaysSinceSignup,
		"monthly_revenue":             sig.MonthlyRevenue,
		"subscription_plan_Pro":       oneHot(sig.RawPlan == "Pro"),
		"subscription_plan_FreeTrial": oneHot(sig.RawPlan == "Free Trial"),
		"number_of_logins_last30days": sig.LoginsLast30,
		"active_features_used":        sig.ActiveFeaturesUsed,
		"support_tickets_opened":      sig.SupportTickets,
		"last_payment_status_Success": oneHot(sig.PaymentStatus == "Success"),
		"email_opens_last30days":      sig.EmailOpensLast30,
		"last_login_days_ago":         sig.LastLoginDaysAgo,
		"billing_issue_count":         sig.BillingIssueCount,
	}
}

// CSV rows lack several model features; these stand-ins match the
// batch importer's historical defaults.
const (
	csvDefaultDaysSinceSignup  = 30
	csvDefaultLastLoginDaysAgo = 3
)

// CSVFeatures encodes a CSV-path signal for the model, proxying
// active_features_used with the login count and flagging plans from
// the normalized enum.
func CSVFeatures(sig *UserSignal) map[string]any {
	return map[string]any{
		"days_since_signup":           csvDefaultDaysSinceSignup,
		"monthly_revenue":             sig.MonthlyRevenue,
		"subscription_plan_Pro":       oneHot(sig.Plan == PlanPro),
		"subscription_plan_FreeTrial": oneHot(sig.Plan == PlanFree),
		"number_of_logins_last30days": sig.LoginsLast30,
		"active_features_used":        sig.LoginsLast30,
		"support_tickets_opened":      sig.SupportTickets,
		"last_payment_status_Success": oneHot(strings.Contains(strings.ToLower(sig.PaymentStatus), "success")),
		"email_opens_last30days":      sig.EmailOpensLast30,
		"last_login_days_ago":         csvDefaultLastLoginDaysAgo,
		"billing_issue_count":         0,
	}
}

func oneHot(b bool) int {
	if b {
		return 1
	}
	return 0
}
