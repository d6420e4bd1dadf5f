package churn

import (
	"strings"
	"testing"
)

func TestParseNumeric(t *testing.T) {
	tests := []struct {
		in   any
		want float64
	}{
		{in: nil, want: 0},
		{in: 42, want: 42},
		{in: int64(7), want: 7},
		{in: 3.5, want: 3.5},
		{in: "12", want: 12},
		{in: "$1,234.56", want: 1234.56},
		{in: " 99 ", want: 99},
		{in: "n/a", want: 0},
		{in: "", want: 0},
		{in: true, want: 0},
	}

	for _, tt := range tests {
		if got := ParseNumeric(tt.in); got != tt.want {
			t.Fatalf("ParseNumeric(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseCount(t *testing.T) {
	if got := ParseCount("7.9"); got != 7 {
		t.Fatalf("ParseCount(7.9) = %d, want 7", got)
	}
	if got := ParseCount(-3); got != 0 {
		t.Fatalf("ParseCount(-3) = %d, want 0", got)
	}
}

func TestNormalizePlan(t *testing.T) {
	tests := []struct {
		in   string
		want Plan
	}{
		{in: "Pro", want: PlanPro},
		{in: "premium plus", want: PlanPro},
		{in: "Business Pro Tier", want: PlanPro},
		{in: "Enterprise", want: PlanEnterprise},
		{in: "small business", want: PlanEnterprise},
		{in: "Free", want: PlanFree},
		{in: "", want: PlanFree},
		{in: "starter", want: PlanFree},
	}

	for _, tt := range tests {
		if got := NormalizePlan(tt.in); got != tt.want {
			t.Fatalf("NormalizePlan(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeTrackingPlan(t *testing.T) {
	if got := NormalizeTrackingPlan("Free Trial"); got != PlanFree {
		t.Fatalf("NormalizeTrackingPlan(Free Trial) = %q, want Free", got)
	}
	// "trial" alone still goes through substring matching
	if got := NormalizeTrackingPlan("Pro Trial"); got != PlanPro {
		t.Fatalf("NormalizeTrackingPlan(Pro Trial) = %q, want Pro", got)
	}
}

func validTrackingRecord() map[string]any {
	return map[string]any{
		"user_id":                     "u_123",
		"days_since_signup":           float64(20),
		"monthly_revenue":             "$49.00",
		"subscription_plan":           "Pro",
		"number_of_logins_last30days": float64(12),
		"active_features_used":        float64(5),
		"support_tickets_opened":      float64(1),
		"last_payment_status":         "Success",
		"email_opens_last30days":      float64(9),
		"last_login_days_ago":         float64(2),
		"billing_issue_count":         float64(0),
	}
}

func TestTrackingSignalFromMap(t *testing.T) {
	sig, err := TrackingSignalFromMap(validTrackingRecord())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig.UserID != "u_123" {
		t.Fatalf("UserID = %q", sig.UserID)
	}
	if sig.MonthlyRevenue != 49 {
		t.Fatalf("MonthlyRevenue = %v, want 49", sig.MonthlyRevenue)
	}
	if sig.Plan != PlanPro {
		t.Fatalf("Plan = %q, want Pro", sig.Plan)
	}
	if sig.DaysSinceSignup != 20 {
		t.Fatalf("DaysSinceSignup = %d, want 20", sig.DaysSinceSignup)
	}
}

func TestTrackingSignalFromMapMissingFields(t *testing.T) {
	record := validTrackingRecord()
	delete(record, "monthly_revenue")
	record["billing_issue_count"] = nil

	_, err := TrackingSignalFromMap(record)
	if err == nil {
		t.Fatal("expected error for missing fields")
	}
	for _, field := range []string{"monthly_revenue", "billing_issue_count"} {
		if !strings.Contains(err.Error(), field) {
			t.Fatalf("error %q does not name %s", err, field)
		}
	}
}

func TestTrackingSignalFromMapBlankUserID(t *testing.T) {
	record := validTrackingRecord()
	record["user_id"] = "   "

	_, err := TrackingSignalFromMap(record)
	if err == nil || !strings.Contains(err.Error(), "user_id") {
		t.Fatalf("expected user_id error, got %v", err)
	}
}

func TestCSVSignalFromRow(t *testing.T) {
	sig, err := CSVSignalFromRow(map[string]any{
		"customer_email":              "jane@example.com",
		"customer_name":               "Jane",
		"plan":                        "enterprise",
		"monthly_revenue":             "$120",
		"number_of_logins_last30days": "4",
		"billing_status":              "active",
		"last_active_date":            "2026-08-01",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig.UserID != "jane@example.com" {
		t.Fatalf("UserID = %q, want email", sig.UserID)
	}
	if sig.Plan != PlanEnterprise {
		t.Fatalf("Plan = %q, want Enterprise", sig.Plan)
	}
	if sig.LastActiveAt == nil {
		t.Fatal("expected last_active_date to parse")
	}
}

func TestCSVSignalFromRowMissingIdentity(t *testing.T) {
	_, err := CSVSignalFromRow(map[string]any{"customer_email": "jane@example.com"})
	if err == nil {
		t.Fatal("expected error for missing customer_name")
	}
	_, err = CSVSignalFromRow(map[string]any{"customer_name": "Jane"})
	if err == nil {
		t.Fatal("expected error for missing customer_email")
	}
}

func TestParseDateLayouts(t *testing.T) {
	for _, value := range []string{"2026-08-01", "2026-08-01 10:30:00", "08/01/2026", "2026-08-01T10:30:00Z"} {
		if parseDate(value) == nil {
			t.Fatalf("parseDate(%q) = nil", value)
		}
	}
	if parseDate("not-a-date") != nil {
		t.Fatal("expected nil for garbage date")
	}
}
