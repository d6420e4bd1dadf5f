package churn

import (
	"math"
	"testing"
)

func TestRiskLevelFor(t *testing.T) {
	tests := []struct {
		probability float64
		want        RiskLevel
	}{
		{probability: 0.95, want: RiskHigh},
		{probability: 0.7, want: RiskHigh},
		{probability: 0.69999, want: RiskMedium},
		{probability: 0.4, want: RiskMedium},
		{probability: 0.39999, want: RiskLow},
		{probability: 0, want: RiskLow},
	}

	for _, tt := range tests {
		if got := RiskLevelFor(tt.probability); got != tt.want {
			t.Fatalf("RiskLevelFor(%v) = %q, want %q", tt.probability, got, tt.want)
		}
	}
}

func TestClampProbability(t *testing.T) {
	if got := ClampProbability(-0.2); got != 0 {
		t.Fatalf("ClampProbability(-0.2) = %v", got)
	}
	if got := ClampProbability(1.7); got != 1 {
		t.Fatalf("ClampProbability(1.7) = %v", got)
	}
	if got := ClampProbability(0.42); got != 0.42 {
		t.Fatalf("ClampProbability(0.42) = %v", got)
	}
}

func healthySignal() *UserSignal {
	return &UserSignal{
		UserID:           "u_1",
		Plan:             PlanPro,
		MonthlyRevenue:   49,
		LoginsLast30:     12,
		EmailOpensLast30: 9,
		SupportTickets:   1,
		PaymentStatus:    "Success",
	}
}

func TestTrackingHeuristicBase(t *testing.T) {
	score, reason := NewTrackingHeuristic().Score(healthySignal())
	if math.Abs(score-0.5) > 1e-9 {
		t.Fatalf("score = %v, want 0.5", score)
	}
	if reason != trackingFallbackReason {
		t.Fatalf("reason = %q", reason)
	}
}

func TestTrackingHeuristicWeights(t *testing.T) {
	sig := healthySignal()
	sig.LoginsLast30 = 4
	score, _ := NewTrackingHeuristic().Score(sig)
	if math.Abs(score-0.8) > 1e-9 {
		t.Fatalf("score = %v, want 0.8", score)
	}

	sig = healthySignal()
	sig.SupportTickets = 3
	score, _ = NewTrackingHeuristic().Score(sig)
	if math.Abs(score-0.7) > 1e-9 {
		t.Fatalf("score = %v, want 0.7", score)
	}
}

func TestTrackingHeuristicCap(t *testing.T) {
	sig := &UserSignal{
		Plan:             PlanFree,
		MonthlyRevenue:   0,
		LoginsLast30:     0,
		EmailOpensLast30: 0,
		SupportTickets:   5,
		PaymentStatus:    "inactive",
	}
	score, _ := NewTrackingHeuristic().Score(sig)
	if score != maxChurnScore {
		t.Fatalf("score = %v, want cap %v", score, maxChurnScore)
	}
}

func TestCsvHeuristicBase(t *testing.T) {
	score, reason := NewCsvHeuristic().Score(healthySignal())
	if math.Abs(score-0.2) > 1e-9 {
		t.Fatalf("score = %v, want 0.2", score)
	}
	if reason != healthyReason {
		t.Fatalf("reason = %q, want healthy reason", reason)
	}
}

func TestCsvHeuristicAccumulation(t *testing.T) {
	sig := &UserSignal{
		Plan:             PlanFree,
		MonthlyRevenue:   0,
		LoginsLast30:     2,  // +0.3
		EmailOpensLast30: 1,  // +0.2
		SupportTickets:   4,  // +0.2
		PaymentStatus:    "", // no billing weight
	}
	// 0.2 + 0.3 + 0.2 + 0.2 + 0.15 (free, no revenue) = 1.05 -> cap
	score, _ := NewCsvHeuristic().Score(sig)
	if score != maxChurnScore {
		t.Fatalf("score = %v, want cap %v", score, maxChurnScore)
	}
}

func TestExtractRiskSignalsBoundaries(t *testing.T) {
	sig := healthySignal()
	sig.LoginsLast30 = 5
	sig.EmailOpensLast30 = 3
	sig.SupportTickets = 2

	signals := extractRiskSignals(sig)
	if signals.LowLogins || signals.LowEmailOpens || signals.HighTickets {
		t.Fatalf("boundary values must not trip signals: %+v", signals)
	}

	sig.LoginsLast30 = 4
	sig.EmailOpensLast30 = 2
	sig.SupportTickets = 3
	signals = extractRiskSignals(sig)
	if !signals.LowLogins || !signals.LowEmailOpens || !signals.HighTickets {
		t.Fatalf("expected all signals tripped: %+v", signals)
	}
}

func TestInactiveBillingSubstring(t *testing.T) {
	sig := healthySignal()
	sig.PaymentStatus = "Subscription Inactive"
	if !extractRiskSignals(sig).InactiveBilling {
		t.Fatal("expected inactive billing signal from substring")
	}
}
