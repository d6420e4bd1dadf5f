package churn

import "strings"

// RiskLevel buckets a churn probability for display and alerting.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Thresholds are inclusive at the lower edge on both ingestion paths.
const (
	highRiskThreshold   = 0.7
	mediumRiskThreshold = 0.4
)

// maxChurnScore caps every locally computed score.
const maxChurnScore = 0.95

// RiskLevelFor derives the risk tier from a churn probability. The
// same thresholds apply regardless of which strategy produced the
// score.
func RiskLevelFor(probability float64) RiskLevel {
	switch {
	case probability >= highRiskThreshold:
		return RiskHigh
	case probability >= mediumRiskThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}

// ClampProbability bounds a probability into [0, 1]. External model
// responses are not trusted to stay in range.
func ClampProbability(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// riskSignals is the qualitative signal set shared by both heuristics.
// Each strategy prices these signals with its own weight table.
type riskSignals struct {
	LowLogins       bool
	LowEmailOpens   bool
	HighTickets     bool
	FreeNoRevenue   bool
	InactiveBilling bool
}

func extractRiskSignals(sig *UserSignal) riskSignals {
	return riskSignals{
		LowLogins:       sig.LoginsLast30 < 5,
		LowEmailOpens:   sig.EmailOpensLast30 < 3,
		HighTickets:     sig.SupportTickets > 2,
		FreeNoRevenue:   sig.Plan == PlanFree && sig.MonthlyRevenue == 0,
		InactiveBilling: strings.Contains(strings.ToLower(sig.PaymentStatus), "inactive"),
	}
}

// weightTable holds one path's scoring constants. The two ingestion
// paths carry deliberately separate tables; do not unify them, that
// would silently change scoring for one of the two entry points.
type weightTable struct {
	Base            float64
	LowLogins       float64
	LowEmailOpens   float64
	HighTickets     float64
	FreeNoRevenue   float64
	InactiveBilling float64
}

func (w weightTable) score(sig *UserSignal) float64 {
	signals := extractRiskSignals(sig)
	score := w.Base
	if signals.LowLogins {
		score += w.LowLogins
	}
	if signals.LowEmailOpens {
		score += w.LowEmailOpens
	}
	if signals.HighTickets {
		score += w.HighTickets
	}
	if signals.FreeNoRevenue {
		score += w.FreeNoRevenue
	}
	if signals.InactiveBilling {
		score += w.InactiveBilling
	}
	if score > maxChurnScore {
		score = maxChurnScore
	}
	return score
}

// ScoringStrategy produces a churn probability and a default reason
// for one signal. It is the local fallback used whenever the external
// prediction service is unconfigured or unavailable.
type ScoringStrategy interface {
	Name() string
	Score(sig *UserSignal) (float64, string)
}

const trackingFallbackReason = "Fallback prediction - external API unavailable"

// TrackingHeuristic is the real-time tracking path's fallback policy.
type TrackingHeuristic struct {
	weights weightTable
}

func NewTrackingHeuristic() *TrackingHeuristic {
	return &TrackingHeuristic{weights: weightTable{
		Base:            0.5,
		LowLogins:       0.3,
		LowEmailOpens:   0.2,
		HighTickets:     0.2,
		FreeNoRevenue:   0.15,
		InactiveBilling: 0.25,
	}}
}

func (h *TrackingHeuristic) Name() string { return "tracking_heuristic" }

func (h *TrackingHeuristic) Score(sig *UserSignal) (float64, string) {
	return h.weights.score(sig), trackingFallbackReason
}

// CsvHeuristic is the CSV batch path's fallback policy. Its reason is
// the assembled insight text, not a canned fallback message.
type CsvHeuristic struct {
	weights weightTable
}

func NewCsvHeuristic() *CsvHeuristic {
	return &CsvHeuristic{weights: weightTable{
		Base:            0.2,
		LowLogins:       0.3,
		LowEmailOpens:   0.2,
		HighTickets:     0.2,
		FreeNoRevenue:   0.15,
		InactiveBilling: 0.25,
	}}
}

func (h *CsvHeuristic) Name() string { return "csv_heuristic" }

func (h *CsvHeuristic) Score(sig *UserSignal) (float64, string) {
	return h.weights.score(sig), GenerateChurnReason(sig)
}
