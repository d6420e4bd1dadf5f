package churn

import "strings"

// CSV-path insight generation. Reason and action texts are assembled
// as semicolon-joined clauses in a fixed precedence order: login
// activity, email engagement, support tickets, free-plan conversion,
// billing issues. The clause order is part of the display contract.

const (
	healthyReason = "User showing healthy engagement patterns"
	healthyAction = "Continue standard engagement strategy"
)

// GenerateChurnReason builds the human-readable churn reason for a
// CSV-ingested user.
func GenerateChurnReason(sig *UserSignal) string {
	var reasons []string
	billing := strings.ToLower(sig.PaymentStatus)

	if sig.LoginsLast30 < 3 {
		reasons = append(reasons, "Very low login activity (under 3 times)")
	} else if sig.LoginsLast30 < 8 {
		reasons = append(reasons, "Below average engagement")
	}
	if sig.EmailOpensLast30 < 2 {
		reasons = append(reasons, "Poor email engagement")
	}
	if sig.SupportTickets > 3 {
		reasons = append(reasons, "High support ticket volume indicates frustration")
	}
	if sig.Plan == PlanFree && sig.MonthlyRevenue == 0 {
		reasons = append(reasons, "Free plan user with no revenue conversion")
	}
	if strings.Contains(billing, "inactive") || strings.Contains(billing, "failed") {
		reasons = append(reasons, "Billing/payment issues detected")
	}

	if len(reasons) == 0 {
		return healthyReason
	}
	return strings.Join(reasons, "; ")
}

// GenerateRecommendedAction builds the recommended retention action
// for a CSV-ingested user, mirroring the reason clause order.
func GenerateRecommendedAction(sig *UserSignal) string {
	var actions []string

	if sig.LoginsLast30 < 3 {
		actions = append(actions, "Send re-engagement email campaign")
	}
	if sig.EmailOpensLast30 < 2 {
		actions = append(actions, "Improve email subject lines and content")
	}
	if sig.SupportTickets > 3 {
		actions = append(actions, "Prioritize customer success outreach")
	}
	if sig.Plan == PlanFree && sig.MonthlyRevenue == 0 {
		actions = append(actions, "Offer upgrade incentives and onboarding")
	}
	if strings.Contains(strings.ToLower(sig.PaymentStatus), "inactive") {
		actions = append(actions, "Resolve billing issues immediately")
	}

	if len(actions) == 0 {
		return healthyAction
	}
	return strings.Join(actions, "; ")
}

// CSVUnderstandingScore estimates prediction confidence for a
// CSV-ingested user: base 85, deductions per concerning behavior,
// clamped to [30, 100].
func CSVUnderstandingScore(sig *UserSignal) int {
	score := 85

	if sig.LoginsLast30 < 3 {
		score -= 20
	} else if sig.LoginsLast30 < 8 {
		score -= 10
	}
	if sig.EmailOpensLast30 < 2 {
		score -= 15
	}
	if sig.SupportTickets > 3 {
		score -= 10
	}
	if sig.Plan == PlanFree && sig.MonthlyRevenue == 0 {
		score -= 5
	}
	if strings.Contains(strings.ToLower(sig.PaymentStatus), "inactive") {
		score -= 15
	}

	if score > 100 {
		score = 100
	}
	if score < 30 {
		score = 30
	}
	return score
}
