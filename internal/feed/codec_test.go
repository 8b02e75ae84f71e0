package feed

import (
	"encoding/json"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	s := newTestState()
	rng := rand.New(rand.NewSource(2))

	conf := 70
	s.ApplyAnswer("iteration", true, 1800, &conf, rng)
	s.ApplyAnswer("iteration", false, 9000, nil, rng)
	s.AdvanceConcept()

	blob, err := s.Marshal()
	require.NoError(t, err)

	got, err := Unmarshal(blob)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestRoundTripIsIdempotent(t *testing.T) {
	s := newTestState()
	blob1, err := s.Marshal()
	require.NoError(t, err)

	got, err := Unmarshal(blob1)
	require.NoError(t, err)
	blob2, err := got.Marshal()
	require.NoError(t, err)

	assert.JSONEq(t, string(blob1), string(blob2))
}

func TestUnknownFieldsIgnored(t *testing.T) {
	s := newTestState()
	blob, err := s.Marshal()
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(blob, &m))
	m["experimental_field"] = "whatever"
	m["another_unknown"] = map[string]any{"deep": true}
	extended, err := json.Marshal(m)
	require.NoError(t, err)

	got, err := Unmarshal(extended)
	require.NoError(t, err)
	assert.Equal(t, s.SessionID, got.SessionID)
	assert.Equal(t, s.Concepts, got.Concepts)
}

func TestV1BlobMigrates(t *testing.T) {
	// A blob written before the schema grew confidence records and
	// engagement counters, using the original short field names.
	old := `{
		"schema_version": 1,
		"session_id": "legacy-1",
		"learner_id": "l-9",
		"topic": "algorithms",
		"concepts": ["iteration", "recursion"],
		"concept_index": 1,
		"difficulty": 0.62,
		"streak": 3,
		"best_streak": 5,
		"total_xp": 240,
		"concept_stats": {"iteration": {"attempts": 4, "correct": 3, "wrong_streak": 0}},
		"queue": [{"concept": "iteration", "cooldown": 1, "difficulty": 0.4}],
		"served_content_ids": ["a", "b"],
		"previous_prompts": ["p1"]
	}`

	st, err := Unmarshal([]byte(old))
	require.NoError(t, err)

	assert.Equal(t, SchemaVersion, st.SchemaVersion)
	assert.Equal(t, "legacy-1", st.SessionID)
	assert.Equal(t, 0.62, st.CurrentDifficulty)
	assert.Equal(t, 3, st.Streak)
	require.Len(t, st.ReintroQueue, 1)
	assert.Equal(t, "iteration", st.ReintroQueue[0].Concept)
	assert.Empty(t, st.ConfidenceRecords, "field absent in v1 defaults to empty")
	assert.Zero(t, st.FastAnswers)
	assert.Equal(t, "recursion", st.CurrentConcept())
}

func TestVersionlessBlobTreatedAsV1(t *testing.T) {
	st, err := Unmarshal([]byte(`{"session_id": "bare", "concepts": ["x"], "difficulty": 0.4}`))
	require.NoError(t, err)
	assert.Equal(t, "bare", st.SessionID)
	assert.Equal(t, 0.4, st.CurrentDifficulty)
}

func TestMissingFieldsTakeDefaults(t *testing.T) {
	st, err := Unmarshal([]byte(`{"schema_version": 2, "session_id": "sparse"}`))
	require.NoError(t, err)

	assert.NotNil(t, st.ConceptStats)
	assert.Equal(t, 0.5, st.CurrentDifficulty, "zero difficulty defaults to mid-band")
	assert.Empty(t, st.ReintroQueue)
}

func TestFutureVersionReadBestEffort(t *testing.T) {
	st, err := Unmarshal([]byte(`{"schema_version": 99, "session_id": "from-the-future", "concepts": ["x"], "brand_new_field": 7}`))
	require.NoError(t, err)
	assert.Equal(t, "from-the-future", st.SessionID)
}

func TestMalformedBlob(t *testing.T) {
	_, err := Unmarshal([]byte(`{not json`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestMarshalAppliesCaps(t *testing.T) {
	s := newTestState()
	for i := 0; i < MaxReintroductions+30; i++ {
		s.ReintroQueue = append(s.ReintroQueue, Reintroduction{Concept: "x", Cooldown: 1})
	}

	blob, err := s.Marshal()
	require.NoError(t, err)

	got, err := Unmarshal(blob)
	require.NoError(t, err)
	assert.Len(t, got.ReintroQueue, MaxReintroductions)
}
