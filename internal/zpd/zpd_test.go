package zpd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Difficulty must land in [0.1, 0.95] for any mastery and any signal mix.
func TestSelectDifficultyRange(t *testing.T) {
	masteries := []float64{-1, 0, 0.01, 0.1, 0.5, 0.9, 0.99, 1, 2}
	signals := []Signals{
		{},
		{Streak: 10},
		{WrongStreak: 5},
		{RollingAvgMs: 500},
		{RollingAvgMs: 60000},
		{ConfidenceCount: 5, AvgConfidence: 95, Accuracy: 20},
		{Streak: 7, WrongStreak: 3, RollingAvgMs: 100, ConfidenceCount: 9, AvgConfidence: 100, Accuracy: 0},
	}
	for _, pL := range masteries {
		for _, sig := range signals {
			d := SelectDifficulty(pL, sig)
			require.GreaterOrEqual(t, d, MinDifficulty, "pL=%v sig=%+v", pL, sig)
			require.LessOrEqual(t, d, MaxDifficulty, "pL=%v sig=%+v", pL, sig)
		}
	}
}

func TestHigherMasteryMeansHarderItems(t *testing.T) {
	low := SelectDifficulty(0.2, Signals{})
	mid := SelectDifficulty(0.5, Signals{})
	high := SelectDifficulty(0.9, Signals{})

	assert.Less(t, low, mid)
	assert.Less(t, mid, high)
}

func TestOverconfidenceOverrideRaisesDifficulty(t *testing.T) {
	base := SelectDifficulty(0.5, Signals{})
	proveIt := SelectDifficulty(0.5, Signals{
		ConfidenceCount: 3,
		AvgConfidence:   90,
		Accuracy:        50,
	})

	// targetP drops 0.65 -> 0.50, so the item gets harder.
	assert.Greater(t, proveIt, base)
}

func TestOverconfidenceNeedsEnoughRecords(t *testing.T) {
	base := SelectDifficulty(0.5, Signals{})
	few := SelectDifficulty(0.5, Signals{
		ConfidenceCount: 2,
		AvgConfidence:   90,
		Accuracy:        50,
	})
	assert.Equal(t, base, few)
}

func TestLongStreakRaisesDifficulty(t *testing.T) {
	base := SelectDifficulty(0.5, Signals{Streak: 4})
	bored := SelectDifficulty(0.5, Signals{Streak: 5})
	assert.Greater(t, bored, base)
}

func TestWrongStreakLowersDifficulty(t *testing.T) {
	base := SelectDifficulty(0.5, Signals{})
	frustrated := SelectDifficulty(0.5, Signals{WrongStreak: 2})

	// targetP rises 0.65 -> 0.75: serve something easier.
	assert.Less(t, frustrated, base)
}

func TestOverconfidenceBeatsFrustration(t *testing.T) {
	sig := Signals{
		WrongStreak:     3,
		ConfidenceCount: 4,
		AvgConfidence:   95,
		Accuracy:        30,
	}
	got := SelectDifficulty(0.5, sig)
	proveIt := SelectDifficulty(0.5, Signals{ConfidenceCount: 4, AvgConfidence: 95, Accuracy: 30})
	assert.Equal(t, proveIt, got)
}

func TestFastAnswersRaiseDifficulty(t *testing.T) {
	base := SelectDifficulty(0.5, Signals{RollingAvgMs: 5000})
	rushing := SelectDifficulty(0.5, Signals{RollingAvgMs: 1500})
	assert.Greater(t, rushing, base)
}

func TestZeroRollingAvgMeansNoData(t *testing.T) {
	// A session with no timing data must not trip the "too easy" rule.
	assert.Equal(t, SelectDifficulty(0.5, Signals{}), SelectDifficulty(0.5, Signals{RollingAvgMs: 0}))
}

func TestDeterministic(t *testing.T) {
	sig := Signals{Streak: 3, RollingAvgMs: 4000, ConfidenceCount: 1, AvgConfidence: 70, Accuracy: 60}
	assert.Equal(t, SelectDifficulty(0.42, sig), SelectDifficulty(0.42, sig))
}
