package feed

import (
	"encoding/json"
	"errors"
	"fmt"
)

// SchemaVersion is the current session-state schema. The session store
// never interprets it; only this package does, through the migration
// table below.
const SchemaVersion = 2

// ErrMalformed is returned when a session blob cannot be parsed even
// with tolerant defaults.
var ErrMalformed = errors.New("feed: malformed session state")

// Marshal serializes the state. All bounded lists are capped first, so a
// stored blob never grows past its documented caps no matter how the
// in-memory state was mutated.
func (s *State) Marshal() ([]byte, error) {
	s.applyCaps()
	s.SchemaVersion = SchemaVersion
	return json.Marshal(s)
}

// Unmarshal parses a stored session blob. Deserialization is forward
// compatible: unknown fields are ignored, missing fields take defaults,
// and blobs written by older schema versions are migrated up. Blobs from
// newer versions than this build knows are read best-effort with the
// same tolerant rules.
func Unmarshal(data []byte) (*State, error) {
	var probe struct {
		SchemaVersion int `json:"schema_version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch probe.SchemaVersion {
	case 0, 1:
		return unmarshalV1(data)
	default:
		var st State
		if err := json.Unmarshal(data, &st); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		st.normalize()
		return &st, nil
	}
}

// stateV1 is the original session schema: the difficulty and queue
// fields had shorter names, and neither the confidence log nor the
// engagement counters existed yet.
type stateV1 struct {
	SessionID        string                  `json:"session_id"`
	LearnerID        string                  `json:"learner_id"`
	Topic            string                  `json:"topic"`
	Concepts         []string                `json:"concepts"`
	ConceptIndex     int                     `json:"concept_index"`
	Difficulty       float64                 `json:"difficulty"`
	Streak           int                     `json:"streak"`
	BestStreak       int                     `json:"best_streak"`
	TotalXP          int                     `json:"total_xp"`
	ConceptStats     map[string]*ConceptStat `json:"concept_stats"`
	Queue            []Reintroduction        `json:"queue"`
	ServedContentIDs []string                `json:"served_content_ids"`
	PreviousPrompts  []string                `json:"previous_prompts"`
}

func unmarshalV1(data []byte) (*State, error) {
	var old stateV1
	if err := json.Unmarshal(data, &old); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	st := &State{
		SessionID:         old.SessionID,
		LearnerID:         old.LearnerID,
		Topic:             old.Topic,
		Concepts:          old.Concepts,
		ConceptIndex:      old.ConceptIndex,
		CurrentDifficulty: old.Difficulty,
		Streak:            old.Streak,
		BestStreak:        old.BestStreak,
		TotalXP:           old.TotalXP,
		ConceptStats:      old.ConceptStats,
		ReintroQueue:      old.Queue,
		ServedContentIDs:  old.ServedContentIDs,
		PreviousPrompts:   old.PreviousPrompts,
	}
	st.normalize()
	return st, nil
}

// normalize fills defaults for whatever a tolerant decode left empty.
func (s *State) normalize() {
	s.SchemaVersion = SchemaVersion
	if s.ConceptStats == nil {
		s.ConceptStats = make(map[string]*ConceptStat)
	}
	if s.CurrentDifficulty <= 0 {
		s.CurrentDifficulty = 0.5
	}
	if s.CurrentDifficulty > 0.95 {
		s.CurrentDifficulty = 0.95
	}
	if len(s.Concepts) > 0 && s.ConceptIndex >= len(s.Concepts) {
		s.ConceptIndex = s.ConceptIndex % len(s.Concepts)
	}
	s.applyCaps()
}

func (s *State) applyCaps() {
	if len(s.ReintroQueue) > MaxReintroductions {
		s.ReintroQueue = s.ReintroQueue[len(s.ReintroQueue)-MaxReintroductions:]
	}
	if len(s.ConfidenceRecords) > MaxConfidenceRecords {
		s.ConfidenceRecords = s.ConfidenceRecords[len(s.ConfidenceRecords)-MaxConfidenceRecords:]
	}
	if len(s.ServedContentIDs) > MaxServedContentIDs {
		s.ServedContentIDs = s.ServedContentIDs[len(s.ServedContentIDs)-MaxServedContentIDs:]
	}
	if len(s.PreviousPrompts) > MaxPreviousPrompts {
		s.PreviousPrompts = s.PreviousPrompts[len(s.PreviousPrompts)-MaxPreviousPrompts:]
	}
}
