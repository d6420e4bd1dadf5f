package churn

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Plan is the normalized subscription plan stored with every tracked user.
type Plan string

const (
	PlanFree       Plan = "Free"
	PlanPro        Plan = "Pro"
	PlanEnterprise Plan = "Enterprise"
)

// UserSignal is the canonical per-record input of the scoring pipeline.
// It is ephemeral: built from one raw request row, scored once, then
// materialized into a user_data row.
type UserSignal struct {
	UserID             string
	CustomerName       string
	DaysSinceSignup    int
	MonthlyRevenue     float64
	RawPlan            string
	Plan               Plan
	LoginsLast30       int
	ActiveFeaturesUsed int
	SupportTickets     int
	PaymentStatus      string
	EmailOpensLast30   int
	LastLoginDaysAgo   int
	BillingIssueCount  int
	LastActiveAt       *time.Time
}

// trackingRequiredFields must all be present (and non-null) on the
// real-time tracking path. A missing field fails the one record, not
// the batch.
var trackingRequiredFields = []string{
	"user_id",
	"days_since_signup",
	"monthly_revenue",
	"subscription_plan",
	"number_of_logins_last30days",
	"active_features_used",
	"support_tickets_opened",
	"last_payment_status",
	"email_opens_last30days",
	"last_login_days_ago",
	"billing_issue_count",
}

// ParseNumeric coerces a loosely typed value into a float64. Currency
// symbols, commas and whitespace are stripped before parsing. Values
// that still do not parse become 0 rather than an error; ingestion is
// deliberately lenient about numeric garbage.
func ParseNumeric(value any) float64 {
	switch v := value.(type) {
	case nil:
		return 0
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		cleaned := strings.Map(func(r rune) rune {
			switch r {
			case '$', ',', ' ', '\t':
				return -1
			}
			return r
		}, v)
		parsed, err := strconv.ParseFloat(strings.TrimSpace(cleaned), 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

// ParseCount is ParseNumeric truncated to a non-negative integer count.
func ParseCount(value any) int {
	n := int(ParseNumeric(value))
	if n < 0 {
		return 0
	}
	return n
}

// NormalizePlan maps free-text plan names onto the plan enum using
// case-insensitive substring matching. The "pro" check runs first, so
// "Business Pro Tier" normalizes to Pro, not Enterprise.
func NormalizePlan(plan string) Plan {
	normalized := strings.ToLower(strings.TrimSpace(plan))
	if strings.Contains(normalized, "pro") || strings.Contains(normalized, "premium") {
		return PlanPro
	}
	if strings.Contains(normalized, "enterprise") || strings.Contains(normalized, "business") {
		return PlanEnterprise
	}
	return PlanFree
}

// NormalizeTrackingPlan is the tracking-path variant of NormalizePlan:
// it additionally recognizes the SDK's literal "Free Trial" plan name.
func NormalizeTrackingPlan(plan string) Plan {
	if strings.TrimSpace(plan) == "Free Trial" {
		return PlanFree
	}
	return NormalizePlan(plan)
}

// TrackingSignalFromMap validates and coerces one raw tracking record.
// All eleven SDK fields are required; the returned error names every
// missing field so the caller can report it per record.
func TrackingSignalFromMap(record map[string]any) (*UserSignal, error) {
	var missing []string
	for _, field := range trackingRequiredFields {
		value, ok := record[field]
		if !ok || value == nil {
			missing = append(missing, field)
			continue
		}
		if field == "user_id" && strings.TrimSpace(getString(record, field)) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	rawPlan := getString(record, "subscription_plan")
	sig := &UserSignal{
		UserID:             strings.TrimSpace(getString(record, "user_id")),
		DaysSinceSignup:    ParseCount(record["days_since_signup"]),
		MonthlyRevenue:     ParseNumeric(record["monthly_revenue"]),
		RawPlan:            rawPlan,
		Plan:               NormalizeTrackingPlan(rawPlan),
		LoginsLast30:       ParseCount(record["number_of_logins_last30days"]),
		ActiveFeaturesUsed: ParseCount(record["active_features_used"]),
		SupportTickets:     ParseCount(record["support_tickets_opened"]),
		PaymentStatus:      strings.TrimSpace(getString(record, "last_payment_status")),
		EmailOpensLast30:   ParseCount(record["email_opens_last30days"]),
		LastLoginDaysAgo:   ParseCount(record["last_login_days_ago"]),
		BillingIssueCount:  ParseCount(record["billing_issue_count"]),
	}
	return sig, nil
}

// CSVSignalFromRow validates and coerces one uploaded CSV row. Only
// customer_email and customer_name are mandatory; every other column
// falls back to its zero value.
func CSVSignalFromRow(row map[string]any) (*UserSignal, error) {
	email := strings.TrimSpace(getString(row, "customer_email"))
	name := strings.TrimSpace(getString(row, "customer_name"))
	if email == "" || name == "" {
		return nil, fmt.Errorf("missing customer_email or customer_name")
	}

	rawPlan := getString(row, "plan")
	sig := &UserSignal{
		UserID:           email,
		CustomerName:     name,
		MonthlyRevenue:   ParseNumeric(row["monthly_revenue"]),
		RawPlan:          rawPlan,
		Plan:             NormalizePlan(rawPlan),
		LoginsLast30:     ParseCount(row["number_of_logins_last30days"]),
		SupportTickets:   ParseCount(row["support_tickets_opened"]),
		EmailOpensLast30: ParseCount(row["email_opens_last30days"]),
		PaymentStatus:    strings.TrimSpace(getString(row, "billing_status")),
	}
	if t := parseDate(getString(row, "last_active_date")); t != nil {
		sig.LastActiveAt = t
	}
	return sig, nil
}

func getString(m map[string]any, key string) string {
	value, ok := m[key]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01/02/2006",
}

func parseDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}
