package churn

import "math"

// LifecycleStage buckets how much behavioral history backs a
// prediction for one tracked user.
type LifecycleStage string

const (
	StageNewUser          LifecycleStage = "new_user"
	StageGrowingUser      LifecycleStage = "growing_user"
	StageMatureUser       LifecycleStage = "mature_user"
	StageMatureSafe       LifecycleStage = "mature_safe"
	StageHighRiskMature   LifecycleStage = "high_risk_mature"
	StageMediumRiskMature LifecycleStage = "medium_risk_mature"

	// StageAnalyzed is the flat stage reported by the CSV batch path,
	// which does not run lifecycle derivation.
	StageAnalyzed LifecycleStage = "analyzed"
)

const (
	newUserMaxDays = 7
	matureMinDays  = 15
)

const (
	newUserReason     = "Too early to predict churn accurately – Need at least 7 days of behavior data."
	newUserAction     = "Keep tracking. Reliable insights coming soon."
	growingUserReason = "Prediction getting stronger. More behavior signals are now available."
	growingUserAction = "Monitor usage daily. Prediction is moderately accurate."

	matureSafeAction   = "Low risk of churn. Consider upsell or referral opportunities."
	matureHighAction   = "Send win-back email or offer discount. Consider urgent retention action."
	matureMediumAction = "Monitor closely. Consider engagement campaigns."
)

// LifecycleAssessment is the outcome of the tracking path's
// lifecycle derivation.
type LifecycleAssessment struct {
	Stage              LifecycleStage
	UnderstandingScore int
	DaysUntilMature    int
	ActionRecommended  string

	// Reason overrides the computed churn reason for users with too
	// little history. Empty means keep the score-derived reason.
	Reason string
}

// AssessLifecycle derives the lifecycle stage, understanding score and
// recommended action for a tracking-path record.
//
// Mature users (>=15 days) go through two passes: the first assigns
// mature_user and the understanding score, the second unconditionally
// re-derives the stage and action from the churn probability. Both
// passes must run, in this order.
func AssessLifecycle(daysSinceSignup int, churnProbability float64) LifecycleAssessment {
	var a LifecycleAssessment

	switch {
	case daysSinceSignup < newUserMaxDays:
		a.Stage = StageNewUser
		a.UnderstandingScore = minInt(40, daysSinceSignup*5+10)
		a.DaysUntilMature = newUserMaxDays - daysSinceSignup
		a.Reason = newUserReason
		a.ActionRecommended = newUserAction
	case daysSinceSignup < matureMinDays:
		a.Stage = StageGrowingUser
		a.UnderstandingScore = int(math.Round(40 + float64(daysSinceSignup-newUserMaxDays)*2.5))
		a.Reason = growingUserReason
		a.ActionRecommended = growingUserAction
	default:
		a.Stage = StageMatureUser
		a.UnderstandingScore = int(math.Round(math.Min(100, 70+float64(daysSinceSignup-matureMinDays)*0.5)))
	}

	// Second pass: mature stages are re-derived from the probability.
	if daysSinceSignup >= matureMinDays {
		switch {
		case churnProbability < 0.3:
			a.Stage = StageMatureSafe
			a.ActionRecommended = matureSafeAction
		case churnProbability >= 0.5:
			a.Stage = StageHighRiskMature
			a.ActionRecommended = matureHighAction
		default:
			a.Stage = StageMediumRiskMature
			a.ActionRecommended = matureMediumAction
		}
	}

	return a
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
