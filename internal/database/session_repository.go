package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// SessionRepository stores serialized feed session state
type SessionRepository struct{}

// NewSessionRepository creates a new repository instance
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{}
}

// Load returns the stored session blob, or nil for an unknown session.
func (r *SessionRepository) Load(ctx context.Context, sessionID string) ([]byte, error) {
	var blob []byte
	err := DB.GetContext(ctx, &blob,
		"SELECT state FROM feed_sessions WHERE session_id = $1", sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %v", err)
	}
	return blob, nil
}

// Save inserts or replaces the session blob. The learner id is lifted
// out of the blob so sessions can be listed per learner.
func (r *SessionRepository) Save(ctx context.Context, sessionID string, blob []byte) error {
	var owner struct {
		LearnerID string `json:"learner_id"`
	}
	// Best effort; a blob without a learner id still gets stored.
	_ = json.Unmarshal(blob, &owner)

	query := `
		INSERT INTO feed_sessions (session_id, learner_id, state, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (session_id) DO UPDATE SET
			state = excluded.state,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := DB.ExecContext(ctx, query, sessionID, owner.LearnerID, blob); err != nil {
		return fmt.Errorf("failed to save session: %v", err)
	}
	return nil
}

// ForLearner returns the learner's session ids, newest first.
func (r *SessionRepository) ForLearner(ctx context.Context, learnerID string) ([]string, error) {
	var ids []string
	err := DB.SelectContext(ctx, &ids,
		"SELECT session_id FROM feed_sessions WHERE learner_id = $1 ORDER BY updated_at DESC",
		learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %v", err)
	}
	return ids, nil
}
