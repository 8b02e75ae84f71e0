package scheduler

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AEYohn/Quizly-sub000/internal/database"
	"github.com/AEYohn/Quizly-sub000/pkg/models"
)

type captureNotifier struct {
	learnerID int64
	concepts  []string
	calls     int
}

func (c *captureNotifier) SendReminder(learnerID int64, weakConcepts []string) error {
	c.calls++
	c.learnerID = learnerID
	c.concepts = weakConcepts
	return nil
}

func TestRunManualCheckPicksWeakestConcepts(t *testing.T) {
	db, err := sqlx.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	require.NoError(t, database.ConnectWithDB(db))
	t.Cleanup(func() { db.Close(); database.DB = nil })

	repo := database.NewMasteryRepository()
	ctx := context.Background()
	seed := []struct {
		concept  string
		pLearned float64
		attempts int
	}{
		{"recursion", 0.2, 5},
		{"iteration", 0.8, 5},
		{"dynamic-programming", 0.4, 5},
		{"graphs", 0.1, 5},
		{"never-tried", 0.05, 0},
	}
	for _, s := range seed {
		require.NoError(t, repo.Put(ctx, &models.MasteryState{
			LearnerID: "42", Concept: s.concept, PLearned: s.pLearned,
			PGuess: 0.2, PSlip: 0.1, PTransit: 0.15, TSAlpha: 1, TSBeta: 1,
			TotalAttempts: s.attempts,
		}))
	}

	notifier := &captureNotifier{}
	s := New(notifier)

	require.NoError(t, s.RunManualCheck(42))

	assert.Equal(t, 1, notifier.calls)
	assert.Equal(t, int64(42), notifier.learnerID)
	// weakest first, capped at three, unattempted concepts skipped
	assert.Equal(t, []string{"graphs", "recursion", "dynamic-programming"}, notifier.concepts)
}
