package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/AEYohn/Quizly-sub000/pkg/models"
)

// LearnerRepository handles database operations for learners
type LearnerRepository struct{}

// NewLearnerRepository creates a new repository instance
func NewLearnerRepository() *LearnerRepository {
	return &LearnerRepository{}
}

// GetByTelegramID returns a learner, or nil when never seen.
func (r *LearnerRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.Learner, error) {
	var learner models.Learner
	err := DB.GetContext(ctx, &learner,
		"SELECT * FROM learners WHERE telegram_id = $1", telegramID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get learner: %v", err)
	}
	return &learner, nil
}

// Upsert inserts or updates a learner record.
func (r *LearnerRepository) Upsert(ctx context.Context, learner *models.Learner) error {
	query := `
		INSERT INTO learners (telegram_id, username, first_name, reminder_enabled, reminder_hour, updated_at)
		VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP)
		ON CONFLICT (telegram_id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			reminder_enabled = excluded.reminder_enabled,
			reminder_hour = excluded.reminder_hour,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := DB.ExecContext(ctx, query,
		learner.ID, learner.Username, learner.FirstName,
		learner.ReminderEnabled, learner.ReminderHour)
	if err != nil {
		return fmt.Errorf("failed to upsert learner: %v", err)
	}
	return nil
}

// WithRemindersAt returns learners who opted into reminders for the
// given hour of day.
func (r *LearnerRepository) WithRemindersAt(ctx context.Context, hour int) ([]models.Learner, error) {
	var learners []models.Learner
	err := DB.SelectContext(ctx, &learners,
		"SELECT * FROM learners WHERE reminder_enabled = true AND reminder_hour = $1", hour)
	if err != nil {
		return nil, fmt.Errorf("failed to get learners for reminders: %v", err)
	}
	return learners, nil
}
