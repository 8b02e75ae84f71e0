package models

import "time"

// Learner represents a Telegram user studying through the bot.
type Learner struct {
	ID              int64     `json:"id" db:"telegram_id"` // Telegram user ID
	Username        string    `json:"username" db:"username"`
	FirstName       string    `json:"first_name" db:"first_name"`
	ReminderEnabled bool      `json:"reminder_enabled" db:"reminder_enabled"`
	ReminderHour    int       `json:"reminder_hour" db:"reminder_hour"` // hour of day, 0-23
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}
