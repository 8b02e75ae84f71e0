package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AEYohn/Quizly-sub000/pkg/models"
)

func TestFormatCard(t *testing.T) {
	card := &models.Card{Concept: "recursion", Type: models.CardMultipleChoice, Prompt: "Pick the base case."}
	got := formatCard(card)

	assert.Contains(t, got, "[recursion]")
	assert.Contains(t, got, "pick one")
	assert.Contains(t, got, "Pick the base case.")
}

func TestFormatResultCorrectWithStreak(t *testing.T) {
	card := &models.Card{Answer: "base case", Explanation: "Recursion needs a stop."}
	res := &models.AnswerResult{IsCorrect: true, XPEarned: 23, Streak: 3}

	got := formatResult(card, res)
	assert.Contains(t, got, "+23 XP")
	assert.Contains(t, got, "streak 3")
	assert.Contains(t, got, "Recursion needs a stop.")
}

func TestFormatResultWrongShowsAnswerAndNudge(t *testing.T) {
	card := &models.Card{Answer: "base case"}
	res := &models.AnswerResult{
		IsCorrect:        false,
		CalibrationNudge: &models.CalibrationNudge{Message: "Your confidence is running ahead of your accuracy."},
	}

	got := formatResult(card, res)
	assert.Contains(t, got, "base case")
	assert.Contains(t, got, "running ahead")
	assert.NotContains(t, got, "XP")
}

func TestCurrentCard(t *testing.T) {
	var nilSession *chatSession
	assert.Nil(t, nilSession.currentCard())

	s := &chatSession{cards: []models.Card{{ID: "a"}, {ID: "b"}}}
	assert.Equal(t, "a", s.currentCard().ID)

	s.current = 2
	assert.Nil(t, s.currentCard())
}

func TestLearnerKey(t *testing.T) {
	assert.Equal(t, "12345", learnerKey(12345))
}
