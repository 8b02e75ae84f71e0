package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AEYohn/Quizly-sub000/pkg/models"
)

// MasteryRepository handles database operations for mastery states
type MasteryRepository struct{}

// NewMasteryRepository creates a new repository instance
func NewMasteryRepository() *MasteryRepository {
	return &MasteryRepository{}
}

// Get returns the mastery state for a learner and concept, or nil when
// the learner has never seen the concept.
func (r *MasteryRepository) Get(ctx context.Context, learnerID, concept string) (*models.MasteryState, error) {
	var st models.MasteryState
	err := DB.GetContext(ctx, &st,
		"SELECT * FROM mastery_states WHERE learner_id = $1 AND concept = $2",
		learnerID, concept)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mastery state: %v", err)
	}
	return &st, nil
}

// Put inserts or updates a mastery state. Last write wins.
func (r *MasteryRepository) Put(ctx context.Context, st *models.MasteryState) error {
	query := `
		INSERT INTO mastery_states
			(learner_id, concept, p_learned, p_guess, p_slip, p_transit,
			 ts_alpha, ts_beta, total_attempts, correct_attempts, last_seen_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, CURRENT_TIMESTAMP)
		ON CONFLICT (learner_id, concept) DO UPDATE SET
			p_learned = excluded.p_learned,
			p_guess = excluded.p_guess,
			p_slip = excluded.p_slip,
			p_transit = excluded.p_transit,
			ts_alpha = excluded.ts_alpha,
			ts_beta = excluded.ts_beta,
			total_attempts = excluded.total_attempts,
			correct_attempts = excluded.correct_attempts,
			last_seen_at = excluded.last_seen_at,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := DB.ExecContext(ctx, query,
		st.LearnerID, st.Concept, st.PLearned, st.PGuess, st.PSlip, st.PTransit,
		st.TSAlpha, st.TSBeta, st.TotalAttempts, st.CorrectAttempts, st.LastSeenAt)
	if err != nil {
		return fmt.Errorf("failed to upsert mastery state: %v", err)
	}
	return nil
}

// AllForLearner returns every mastery state the learner has, keyed by
// concept.
func (r *MasteryRepository) AllForLearner(ctx context.Context, learnerID string) (map[string]*models.MasteryState, error) {
	var states []models.MasteryState
	err := DB.SelectContext(ctx, &states,
		"SELECT * FROM mastery_states WHERE learner_id = $1", learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get mastery states: %v", err)
	}
	out := make(map[string]*models.MasteryState, len(states))
	for i := range states {
		out[states[i].Concept] = &states[i]
	}
	return out, nil
}
