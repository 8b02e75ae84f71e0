package models

import "time"

// MasteryState tracks a learner's knowledge of a single concept using
// Bayesian Knowledge Tracing, plus the Thompson-Sampling reward counters
// used for concept selection. One row per (learner, concept); created
// lazily on the first observed answer and never deleted.
//
// All probabilities are kept inside the open interval (0, 1) so Bayesian
// updates never degenerate. Different sessions of the same learner may
// update the same row concurrently; there is no merge strategy, last
// write wins.
type MasteryState struct {
	ID              int64     `json:"id" db:"id"`
	LearnerID       string    `json:"learner_id" db:"learner_id"`
	Concept         string    `json:"concept" db:"concept"`
	PLearned        float64   `json:"p_learned" db:"p_learned"` // P(concept is learned), clamped to [0.01, 0.99]
	PGuess          float64   `json:"p_guess" db:"p_guess"`     // P(correct | not learned)
	PSlip           float64   `json:"p_slip" db:"p_slip"`       // P(incorrect | learned)
	PTransit        float64   `json:"p_transit" db:"p_transit"` // P(learning on one attempt)
	TSAlpha         float64   `json:"ts_alpha" db:"ts_alpha"`   // bandit reward successes
	TSBeta          float64   `json:"ts_beta" db:"ts_beta"`     // bandit reward failures
	TotalAttempts   int       `json:"total_attempts" db:"total_attempts"`
	CorrectAttempts int       `json:"correct_attempts" db:"correct_attempts"`
	LastSeenAt      time.Time `json:"last_seen_at" db:"last_seen_at"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}
