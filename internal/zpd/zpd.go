// Package zpd picks item difficulty inside the learner's Zone of
// Proximal Development: hard enough to stay challenging, easy enough to
// stay motivating. The target success probability is adjusted from
// session signals and then mapped to an item difficulty through the IRT
// logistic relation between ability and item parameter.
package zpd

import "math"

// Difficulty output bounds.
const (
	MinDifficulty = 0.1
	MaxDifficulty = 0.95
)

const (
	baseTargetP          = 0.65
	proveItTargetP       = 0.50 // overconfidence override
	boredStreakTargetP   = 0.55 // long streak, keep it interesting
	frustrationTargetP   = 0.75 // consecutive misses, ease off
	tooEasyTargetP       = 0.50 // rushing through answers
	overconfidenceGapPP  = 25   // percentage points of confidence over accuracy
	overconfidenceMinN   = 3    // confidence records needed before the override kicks in
	boredStreakThreshold = 5
	frustrationThreshold = 2
	fastRollingAvgMs     = 2000
)

// Signals carries the per-session engagement inputs. All fields refer to
// the concept being scheduled except Streak and RollingAvgMs, which are
// session-wide.
type Signals struct {
	Streak          int     // current session-wide correct streak
	WrongStreak     int     // consecutive wrong answers on this concept
	RollingAvgMs    float64 // exponential moving average of answer time; 0 means no data
	ConfidenceCount int     // confidence records logged for this concept
	AvgConfidence   float64 // mean self-reported confidence, 0-100
	Accuracy        float64 // measured accuracy on this concept, percent 0-100
}

// SelectDifficulty maps a mastery estimate and session signals to an item
// difficulty in [0.1, 0.95]. Pure function, deterministic given inputs.
func SelectDifficulty(pLearned float64, sig Signals) float64 {
	targetP := baseTargetP

	switch {
	case sig.ConfidenceCount >= overconfidenceMinN && sig.AvgConfidence-sig.Accuracy > overconfidenceGapPP:
		// Learner says they know it, the record disagrees: prove it.
		targetP = proveItTargetP
	case sig.Streak >= boredStreakThreshold:
		targetP = math.Min(targetP, boredStreakTargetP)
	case sig.WrongStreak >= frustrationThreshold:
		targetP = frustrationTargetP
	}

	if sig.RollingAvgMs > 0 && sig.RollingAvgMs < fastRollingAvgMs {
		targetP = math.Min(targetP, tooEasyTargetP)
	}

	// IRT: ability theta = logit(pLearned); the item parameter b that
	// yields the target success probability is theta - logit(targetP).
	theta := logit(clampProb(pLearned))
	b := theta - logit(targetP)
	return clampDifficulty(sigmoid(0.5 * b))
}

func logit(p float64) float64 {
	return math.Log(p / (1 - p))
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func clampProb(p float64) float64 {
	return math.Min(math.Max(p, 0.01), 0.99)
}

func clampDifficulty(d float64) float64 {
	return math.Min(math.Max(d, MinDifficulty), MaxDifficulty)
}
