package models

import "time"

// Card types served by the feed.
const (
	CardFlashcard      = "flashcard"
	CardMultipleChoice = "multiple_choice"
	CardFillBlank      = "fill_blank"
)

// Card represents a single piece of content served to a learner.
type Card struct {
	ID          string    `json:"id" db:"id"`
	Topic       string    `json:"topic" db:"topic"`
	Concept     string    `json:"concept" db:"concept"`
	Type        string    `json:"type" db:"card_type"`
	Prompt      string    `json:"prompt" db:"prompt"`
	Options     []string  `json:"options,omitempty" db:"-"`
	Answer      string    `json:"answer" db:"answer"`
	Explanation string    `json:"explanation,omitempty" db:"explanation"`
	Difficulty  float64   `json:"difficulty" db:"difficulty"` // 0.1-0.95 scale
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// CardRequest is the contract of the content boundary: a request for cards
// matching a topic, a concept set and a difficulty band. Providers must
// tolerate returning an empty result.
type CardRequest struct {
	Topic         string             `json:"topic"`
	Concepts      []string           `json:"concepts"`
	MinDifficulty float64            `json:"min_difficulty"`
	MaxDifficulty float64            `json:"max_difficulty"`
	ExcludeIDs    []string           `json:"exclude_ids,omitempty"`
	Count         int                `json:"count"`
	TypeWeights   map[string]float64 `json:"type_weights,omitempty"`
}
