package excel

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AEYohn/Quizly-sub000/internal/database"
	"github.com/AEYohn/Quizly-sub000/pkg/models"
)

func cardRows() [][]string {
	return [][]string{
		{"topic", "concept", "type", "prompt", "options", "answer", "explanation", "difficulty"},
		{"algorithms", "recursion", "flashcard", "What stops recursion?", "", "base case", "", "0.4"},
		{"algorithms", "recursion", "multiple_choice", "Recursive calls live on the...", "stack|heap|queue|register", "stack", "Each call pushes a frame.", "0.5"},
		{"algorithms", "recursion", "", "Default type?", "", "flashcard", "", ""},
	}
}

func TestParseCards(t *testing.T) {
	cards, result := ParseCards(cardRows(), 2)

	require.Len(t, cards, 3)
	assert.Equal(t, 3, result.TotalProcessed)
	assert.Empty(t, result.Errors)

	assert.Equal(t, "base case", cards[0].Answer)
	assert.InDelta(t, 0.4, cards[0].Difficulty, 1e-9)
	assert.NotEmpty(t, cards[0].ID)

	assert.Equal(t, models.CardMultipleChoice, cards[1].Type)
	assert.Equal(t, []string{"stack", "heap", "queue", "register"}, cards[1].Options)

	// missing type defaults to flashcard, missing difficulty to 0.5
	assert.Equal(t, models.CardFlashcard, cards[2].Type)
	assert.InDelta(t, 0.5, cards[2].Difficulty, 1e-9)
}

func TestParseCardsCollectsRowErrors(t *testing.T) {
	rows := [][]string{
		{"algorithms", "recursion", "flashcard", "ok?", "", "yes", "", "0.3"},
		{"algorithms", "", "flashcard", "no concept", "", "x", "", "0.3"},
		{"algorithms", "recursion", "essay", "bad type", "", "x", "", "0.3"},
		{"algorithms", "recursion", "flashcard", "bad difficulty", "", "x", "", "hard"},
	}
	cards, result := ParseCards(rows, 1)

	assert.Len(t, cards, 1)
	assert.Equal(t, 4, result.TotalProcessed)
	assert.Equal(t, 3, result.Skipped)
	assert.Len(t, result.Errors, 3)
}

func TestParseCardsClampsDifficulty(t *testing.T) {
	rows := [][]string{
		{"t", "c", "", "p1", "", "a", "", "0.01"},
		{"t", "c", "", "p2", "", "a", "", "2.0"},
	}
	cards, _ := ParseCards(rows, 1)

	require.Len(t, cards, 2)
	assert.InDelta(t, 0.1, cards[0].Difficulty, 1e-9)
	assert.InDelta(t, 0.95, cards[1].Difficulty, 1e-9)
}

func TestParseTopology(t *testing.T) {
	rows := [][]string{
		{"unit", "topic", "concept", "prerequisites"},
		{"cs", "algorithms", "iteration", ""},
		{"cs", "algorithms", "recursion", "iteration"},
		{"cs", "algorithms", "dynamic-programming", "recursion, iteration"},
		{"cs", "data-structures", "arrays", ""},
	}
	topics, concepts, result := ParseTopology(rows, 2)

	assert.Equal(t, 4, result.TotalProcessed)
	assert.Empty(t, result.Errors)

	require.Len(t, topics, 2)
	assert.Equal(t, []string{"iteration", "recursion", "dynamic-programming"}, topics[0].Concepts)
	assert.Equal(t, "cs", topics[0].Unit)

	require.Len(t, concepts, 4)
	assert.Equal(t, []string{"recursion", "iteration"}, concepts[2].Prerequisites)
}

func TestImportCardsFromCSV(t *testing.T) {
	db, err := sqlx.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	require.NoError(t, database.ConnectWithDB(db))
	t.Cleanup(func() { db.Close(); database.DB = nil })

	path := filepath.Join(t.TempDir(), "cards.csv")
	csv := "topic,concept,type,prompt,options,answer,explanation,difficulty\n" +
		"algorithms,recursion,flashcard,What stops recursion?,,base case,,0.4\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0644))

	cfg := DefaultImportConfig()
	cfg.FilePath = path
	result, err := ImportCards(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)

	cards, err := database.NewCardRepository().SelectByBand(context.Background(), models.CardRequest{
		Concepts: []string{"recursion"}, MinDifficulty: 0, MaxDifficulty: 1, Count: 10,
	})
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "base case", cards[0].Answer)
}
