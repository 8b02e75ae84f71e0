package database

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AEYohn/Quizly-sub000/internal/knowledge"
	"github.com/AEYohn/Quizly-sub000/pkg/models"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	db, err := sqlx.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	require.NoError(t, ConnectWithDB(db))
	t.Cleanup(func() {
		db.Close()
		DB = nil
	})
}

func TestMasteryRoundTrip(t *testing.T) {
	setupTestDB(t)
	repo := NewMasteryRepository()
	ctx := context.Background()

	got, err := repo.Get(ctx, "learner-1", "recursion")
	require.NoError(t, err)
	assert.Nil(t, got, "unknown concept yields nil, not an error")

	st := &models.MasteryState{
		LearnerID: "learner-1", Concept: "recursion",
		PLearned: 0.42, PGuess: 0.2, PSlip: 0.1, PTransit: 0.15,
		TSAlpha: 3, TSBeta: 1, TotalAttempts: 4, CorrectAttempts: 3,
		LastSeenAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Put(ctx, st))

	got, err = repo.Get(ctx, "learner-1", "recursion")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, 0.42, got.PLearned, 1e-9)
	assert.Equal(t, 4, got.TotalAttempts)

	// second Put updates in place
	st.PLearned = 0.55
	require.NoError(t, repo.Put(ctx, st))
	got, err = repo.Get(ctx, "learner-1", "recursion")
	require.NoError(t, err)
	assert.InDelta(t, 0.55, got.PLearned, 1e-9)

	all, err := repo.AllForLearner(ctx, "learner-1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Contains(t, all, "recursion")
}

func TestSessionRoundTrip(t *testing.T) {
	setupTestDB(t)
	repo := NewSessionRepository()
	ctx := context.Background()

	blob, err := repo.Load(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, blob)

	payload := []byte(`{"learner_id": "learner-1", "streak": 3}`)
	require.NoError(t, repo.Save(ctx, "sess-1", payload))

	got, err := repo.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	// overwrite
	payload2 := []byte(`{"learner_id": "learner-1", "streak": 4}`)
	require.NoError(t, repo.Save(ctx, "sess-1", payload2))
	got, err = repo.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, payload2, got)

	ids, err := repo.ForLearner(ctx, "learner-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"sess-1"}, ids)
}

func TestCardSelection(t *testing.T) {
	setupTestDB(t)
	repo := NewCardRepository()
	ctx := context.Background()

	cards := []models.Card{
		{ID: "c1", Topic: "algorithms", Concept: "recursion", Type: models.CardFlashcard, Prompt: "p1", Answer: "a1", Difficulty: 0.3},
		{ID: "c2", Topic: "algorithms", Concept: "recursion", Type: models.CardMultipleChoice, Prompt: "p2", Answer: "a2", Options: []string{"a2", "x", "y", "z"}, Difficulty: 0.5},
		{ID: "c3", Topic: "algorithms", Concept: "recursion", Type: models.CardFlashcard, Prompt: "p3", Answer: "a3", Difficulty: 0.9},
		{ID: "c4", Topic: "algorithms", Concept: "iteration", Type: models.CardFlashcard, Prompt: "p4", Answer: "a4", Difficulty: 0.5},
	}
	for i := range cards {
		require.NoError(t, repo.Create(ctx, &cards[i]))
	}

	got, err := repo.SelectByBand(ctx, models.CardRequest{
		Concepts:      []string{"recursion"},
		MinDifficulty: 0.2,
		MaxDifficulty: 0.6,
		Count:         10,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, c := range got {
		assert.Equal(t, "recursion", c.Concept)
		if c.ID == "c2" {
			assert.Equal(t, []string{"a2", "x", "y", "z"}, c.Options)
		}
	}

	got, err = repo.SelectByBand(ctx, models.CardRequest{
		Concepts:      []string{"recursion"},
		MinDifficulty: 0,
		MaxDifficulty: 1,
		ExcludeIDs:    []string{"c1", "c2"},
		Count:         10,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c3", got[0].ID)

	answers, err := repo.AnswersForConcept(ctx, "algorithms", "recursion", 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a1", "a2", "a3"}, answers)

	counts, err := repo.CountByTopic(ctx, "algorithms")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"recursion": 3, "iteration": 1}, counts)
}

func TestTopologyRoundTrip(t *testing.T) {
	setupTestDB(t)
	repo := NewTopologyRepository()
	ctx := context.Background()

	topics := []knowledge.Topic{{Name: "algorithms", Unit: "cs", Concepts: []string{"iteration", "recursion"}}}
	concepts := []knowledge.Concept{
		{Name: "iteration", Topic: "algorithms"},
		{Name: "recursion", Topic: "algorithms", Prerequisites: []string{"iteration"}},
	}
	require.NoError(t, repo.Replace(ctx, topics, concepts))

	g, err := repo.LoadGraph(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"iteration", "recursion"}, g.ConceptsForTopic("algorithms"))
	assert.Equal(t, []string{"iteration"}, g.Prerequisites("recursion"))

	// replace drops the previous topology entirely
	require.NoError(t, repo.Replace(ctx, topics[:1], concepts[:1]))
	g, err = repo.LoadGraph(ctx)
	require.NoError(t, err)
	assert.False(t, g.Known("recursion"))
}

func TestLearnerRoundTrip(t *testing.T) {
	setupTestDB(t)
	repo := NewLearnerRepository()
	ctx := context.Background()

	got, err := repo.GetByTelegramID(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, got)

	learner := &models.Learner{ID: 42, Username: "ada", FirstName: "Ada", ReminderEnabled: true, ReminderHour: 18}
	require.NoError(t, repo.Upsert(ctx, learner))

	got, err = repo.GetByTelegramID(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ada", got.Username)

	due, err := repo.WithRemindersAt(ctx, 18)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, int64(42), due[0].ID)

	due, err = repo.WithRemindersAt(ctx, 9)
	require.NoError(t, err)
	assert.Empty(t, due)
}
