package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/AEYohn/Quizly-sub000/pkg/models"
)

// optionSeparator joins multiple-choice options into one TEXT column.
const optionSeparator = "||"

// CardRepository handles database operations for cards
type CardRepository struct{}

// NewCardRepository creates a new repository instance
func NewCardRepository() *CardRepository {
	return &CardRepository{}
}

// cardRow adds the raw options column to the model for scanning.
type cardRow struct {
	models.Card
	RawOptions sql.NullString `db:"options"`
}

func (row cardRow) toCard() models.Card {
	card := row.Card
	if row.RawOptions.Valid && row.RawOptions.String != "" {
		card.Options = strings.Split(row.RawOptions.String, optionSeparator)
	}
	return card
}

// SelectByBand returns up to req.Count random cards matching the
// request's concepts and difficulty band, excluding already-served ids.
func (r *CardRepository) SelectByBand(ctx context.Context, req models.CardRequest) ([]models.Card, error) {
	if len(req.Concepts) == 0 {
		return nil, nil
	}
	count := req.Count
	if count <= 0 {
		count = 1
	}

	query := `SELECT * FROM cards WHERE concept IN (?) AND difficulty BETWEEN ? AND ?`
	args := []interface{}{req.Concepts, req.MinDifficulty, req.MaxDifficulty}
	if len(req.ExcludeIDs) > 0 {
		query += ` AND id NOT IN (?)`
		args = append(args, req.ExcludeIDs)
	}
	query += ` ORDER BY RANDOM() LIMIT ?`
	args = append(args, count)

	query, expanded, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to build card query: %v", err)
	}

	var rows []cardRow
	if err := DB.SelectContext(ctx, &rows, DB.Rebind(query), expanded...); err != nil {
		return nil, fmt.Errorf("failed to select cards: %v", err)
	}

	cards := make([]models.Card, 0, len(rows))
	for _, row := range rows {
		cards = append(cards, row.toCard())
	}
	return cards, nil
}

// AnswersForConcept returns distinct answers on a concept, used as
// multiple-choice distractors.
func (r *CardRepository) AnswersForConcept(ctx context.Context, topic, concept string, limit int) ([]string, error) {
	var answers []string
	err := DB.SelectContext(ctx, &answers,
		`SELECT DISTINCT answer FROM cards WHERE topic = $1 AND concept = $2 LIMIT $3`,
		topic, concept, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get answers: %v", err)
	}
	return answers, nil
}

// Create inserts a new card
func (r *CardRepository) Create(ctx context.Context, card *models.Card) error {
	query := `
		INSERT INTO cards (id, topic, concept, card_type, prompt, options, answer, explanation, difficulty)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := DB.ExecContext(ctx, query,
		card.ID, card.Topic, card.Concept, card.Type, card.Prompt,
		strings.Join(card.Options, optionSeparator),
		card.Answer, card.Explanation, card.Difficulty)
	if err != nil {
		return fmt.Errorf("failed to create card: %v", err)
	}
	return nil
}

// CountByTopic returns how many cards exist per concept on a topic.
func (r *CardRepository) CountByTopic(ctx context.Context, topic string) (map[string]int, error) {
	rows, err := DB.QueryxContext(ctx,
		`SELECT concept, COUNT(*) AS n FROM cards WHERE topic = $1 GROUP BY concept`, topic)
	if err != nil {
		return nil, fmt.Errorf("failed to count cards: %v", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var concept string
		var n int
		if err := rows.Scan(&concept, &n); err != nil {
			return nil, fmt.Errorf("failed to count cards: %v", err)
		}
		out[concept] = n
	}
	return out, rows.Err()
}
