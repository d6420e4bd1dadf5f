package churn

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPredictor(url string) *Predictor {
	return &Predictor{URL: url, APIKey: "test-key", HTTPClient: http.DefaultClient}
}

func TestPredictSuccess(t *testing.T) {
	var gotAuth, gotKey string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("X-API-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{
			"churn_score":         0.83,
			"churn_reason":        "model reason",
			"understanding_score": 72,
		})
	}))
	defer srv.Close()

	prediction, err := newTestPredictor(srv.URL).Predict(context.Background(), map[string]any{"days_since_signup": 20})
	require.NoError(t, err)
	assert.Equal(t, 0.83, prediction.ChurnScore)
	assert.Equal(t, "model reason", prediction.ChurnReason)
	require.NotNil(t, prediction.UnderstandingScore)
	assert.Equal(t, 72, *prediction.UnderstandingScore)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, float64(20), gotBody["days_since_signup"])
}

func TestPredictNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestPredictor(srv.URL).Predict(context.Background(), map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestPredictMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, err := newTestPredictor(srv.URL).Predict(context.Background(), map[string]any{})
	require.Error(t, err)
}

func TestNewPredictorFromEnvUnset(t *testing.T) {
	t.Setenv("CHURN_API_URL", "")
	t.Setenv("CHURN_API_KEY", "")
	assert.Nil(t, NewPredictorFromEnv())

	t.Setenv("CHURN_API_URL", "https://model.example.com/predict")
	assert.Nil(t, NewPredictorFromEnv(), "key still missing")

	t.Setenv("CHURN_API_KEY", "k")
	p := NewPredictorFromEnv()
	require.NotNil(t, p)
	assert.Equal(t, "https://model.example.com/predict", p.URL)
}

func TestTrackingFeaturesOneHot(t *testing.T) {
	sig := &UserSignal{
		DaysSinceSignup:    20,
		MonthlyRevenue:     49,
		RawPlan:            "Free Trial",
		Plan:               PlanFree,
		LoginsLast30:       12,
		ActiveFeaturesUsed: 5,
		PaymentStatus:      "Success",
	}

	features := TrackingFeatures(sig)
	assert.Equal(t, 0, features["subscription_plan_Pro"])
	assert.Equal(t, 1, features["subscription_plan_FreeTrial"])
	assert.Equal(t, 1, features["last_payment_status_Success"])

	// One-hot flags compare raw SDK strings, case-sensitively.
	sig.PaymentStatus = "success"
	features = TrackingFeatures(sig)
	assert.Equal(t, 0, features["last_payment_status_Success"])
}

func TestCSVFeaturesDefaults(t *testing.T) {
	sig := &UserSignal{
		Plan:             PlanPro,
		MonthlyRevenue:   120,
		LoginsLast30:     7,
		PaymentStatus:    "Payment Successful",
		EmailOpensLast30: 4,
	}

	features := CSVFeatures(sig)
	assert.Equal(t, csvDefaultDaysSinceSignup, features["days_since_signup"])
	assert.Equal(t, csvDefaultLastLoginDaysAgo, features["last_login_days_ago"])
	assert.Equal(t, 1, features["subscription_plan_Pro"])
	assert.Equal(t, 0, features["subscription_plan_FreeTrial"])
	// login count proxies feature usage on this path
	assert.Equal(t, 7, features["active_features_used"])
	assert.Equal(t, 1, features["last_payment_status_Success"])
	assert.Equal(t, 0, features["billing_issue_count"])
}
