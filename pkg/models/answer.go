package models

// AnswerSubmission is what the caller sends for every answered card.
// Confidence is a self-reported 0-100 rating; values outside the range
// are clamped, not rejected. ConceptHint overrides the session's current
// concept when the caller knows exactly which card was answered.
type AnswerSubmission struct {
	Answer        string `json:"answer"`
	TimeMs        int    `json:"time_ms"`
	CorrectAnswer string `json:"correct_answer"`
	Confidence    *int   `json:"confidence,omitempty"`
	ConceptHint   string `json:"concept_hint,omitempty"`
}

// CalibrationNudge is a one-off advisory emitted when a learner's
// self-reported confidence runs well ahead of their measured accuracy.
type CalibrationNudge struct {
	Concept       string  `json:"concept"`
	AvgConfidence float64 `json:"avg_confidence"`
	Accuracy      float64 `json:"accuracy"`
	Message       string  `json:"message"`
}

// FeedAnalytics is the lightweight engagement snapshot returned with
// every processed answer.
type FeedAnalytics struct {
	TotalXP        int     `json:"total_xp"`
	Streak         int     `json:"streak"`
	BestStreak     int     `json:"best_streak"`
	Accuracy       float64 `json:"accuracy"` // percent, 0-100
	RollingAvgMs   float64 `json:"rolling_avg_ms"`
	FastAnswers    int     `json:"fast_answers"`
	SlowAnswers    int     `json:"slow_answers"`
	TotalAnswers   int     `json:"total_answers"`
	CorrectAnswers int     `json:"correct_answers"`
}

// AnswerResult is returned by the orchestrator for every processed answer.
type AnswerResult struct {
	IsCorrect        bool              `json:"is_correct"`
	XPEarned         int               `json:"xp_earned"`
	Streak           int               `json:"streak"`
	Difficulty       float64           `json:"difficulty"`
	NextConcept      string            `json:"next_concept"`
	NextCards        []Card            `json:"next_cards"`
	Analytics        FeedAnalytics     `json:"analytics"`
	CalibrationNudge *CalibrationNudge `json:"calibration_nudge,omitempty"`
}

// Per-concept proficiency buckets used by session analytics.
const (
	BucketMastered  = "mastered"   // accuracy >= 80%, at least 3 attempts
	BucketStrong    = "strong"     // accuracy >= 60%
	BucketNeedsWork = "needs_work" // everything below
)

// ConceptReport is the per-concept breakdown in SessionAnalytics.
type ConceptReport struct {
	Concept  string  `json:"concept"`
	Attempts int     `json:"attempts"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"` // percent, 0-100
	Bucket   string  `json:"bucket"`
}

// SessionAnalytics is the full end-of-session breakdown.
type SessionAnalytics struct {
	SessionID string          `json:"session_id"`
	LearnerID string          `json:"learner_id"`
	Topic     string          `json:"topic"`
	Concepts  []ConceptReport `json:"concepts"`
	Feed      FeedAnalytics   `json:"feed"`
}
