// Package feed holds the per-session state machine of the scroll feed:
// streaks and XP, the reintroduction queue, per-concept counters, the
// confidence log and engagement tracking. A State is owned by exactly
// one session; callers serialize access, the package does no locking.
package feed

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/AEYohn/Quizly-sub000/pkg/models"
)

// List caps. Every list field is bounded on serialization (and trimmed on
// mutation) so state size stays constant regardless of session length;
// the most recent entries are the ones retained.
const (
	MaxReintroductions   = 20
	MaxConfidenceRecords = 200
	MaxServedContentIDs  = 200
	MaxPreviousPrompts   = 50
)

// Streak and XP mechanics.
const (
	xpBase          = 10
	xpStep          = 0.5
	xpMaxMultiplier = 3.0
	reintroMinCool  = 2
	reintroCoolSpan = 3 // cooldown drawn from {2, 3, 4}
	reintroDropStep = 0.15
	reintroMinDiff  = 0.2
)

// Engagement thresholds.
const (
	fastAnswerMs = 2000
	slowAnswerMs = 15000
	emaKeep      = 0.8
	emaNew       = 0.2
)

// Concept rotation limits.
const (
	maxCardsPerConcept = 3
	maxWrongPerConcept = 2
)

// Calibration nudge rule.
const (
	nudgeMinConfidence = 60
	nudgeMinRecords    = 3
	nudgeGapPP         = 25
)

// ConceptStat counts answers on one concept within this session.
type ConceptStat struct {
	Attempts    int `json:"attempts"`
	Correct     int `json:"correct"`
	WrongStreak int `json:"wrong_streak"`
}

// Reintroduction is a queued spaced-repetition correction: the concept
// comes back after Cooldown more cards, at a lowered difficulty.
type Reintroduction struct {
	Concept    string  `json:"concept"`
	Cooldown   int     `json:"cooldown"`
	Difficulty float64 `json:"difficulty"`
}

// ConfidenceRecord logs one self-reported confidence rating.
type ConfidenceRecord struct {
	Concept    string    `json:"concept"`
	Confidence int       `json:"confidence"` // 0-100
	IsCorrect  bool      `json:"is_correct"`
	Timestamp  time.Time `json:"timestamp"`
}

// State is the scroll feed's session state. It references concepts and
// mastery only by name so it serializes independently of the mastery
// store.
type State struct {
	SchemaVersion     int                     `json:"schema_version"`
	SessionID         string                  `json:"session_id"`
	LearnerID         string                  `json:"learner_id"`
	Topic             string                  `json:"topic"`
	Concepts          []string                `json:"concepts"`
	ConceptIndex      int                     `json:"concept_index"`
	CardsOnConcept    int                     `json:"cards_on_concept"`
	CurrentDifficulty float64                 `json:"current_difficulty"`
	Streak            int                     `json:"streak"`
	BestStreak        int                     `json:"best_streak"`
	TotalXP           int                     `json:"total_xp"`
	ConceptStats      map[string]*ConceptStat `json:"concept_stats"`
	ReintroQueue      []Reintroduction        `json:"reintroduction_queue"`
	ConfidenceRecords []ConfidenceRecord      `json:"confidence_records"`
	ServedContentIDs  []string                `json:"served_content_ids"`
	PreviousPrompts   []string                `json:"previous_prompts"`
	RollingAvgMs      float64                 `json:"rolling_avg_ms"`
	FastAnswers       int                     `json:"fast_answers"`
	SlowAnswers       int                     `json:"slow_answers"`
	TotalAnswers      int                     `json:"total_answers"`
	CorrectAnswers    int                     `json:"correct_answers"`
	CreatedAt         time.Time               `json:"created_at"`
	UpdatedAt         time.Time               `json:"updated_at"`
}

// NewState creates session state at feed start.
func NewState(sessionID, learnerID, topic string, concepts []string, difficulty float64) *State {
	now := time.Now().UTC()
	return &State{
		SchemaVersion:     SchemaVersion,
		SessionID:         sessionID,
		LearnerID:         learnerID,
		Topic:             topic,
		Concepts:          concepts,
		CurrentDifficulty: difficulty,
		ConceptStats:      make(map[string]*ConceptStat),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// CurrentConcept returns the concept at the rotation cursor, or "" for a
// session with no concepts.
func (s *State) CurrentConcept() string {
	if len(s.Concepts) == 0 {
		return ""
	}
	return s.Concepts[s.ConceptIndex%len(s.Concepts)]
}

// Outcome summarizes one processed answer's effect on the session.
type Outcome struct {
	XP           int
	Streak       int
	Reintroduced *Reintroduction
	Nudge        *models.CalibrationNudge
}

// ApplyAnswer mutates the state for one graded answer: per-concept
// counters, engagement tracking, cooldown ticking, streak/XP or the
// reintroduction push, the confidence log and the calibration check.
// The rng drives the reintroduction cooldown draw.
func (s *State) ApplyAnswer(concept string, correct bool, timeMs int, confidence *int, rng *rand.Rand) Outcome {
	stats := s.stats(concept)
	stats.Attempts++
	if correct {
		stats.Correct++
		stats.WrongStreak = 0
	} else {
		stats.WrongStreak++
	}

	s.TotalAnswers++
	if correct {
		s.CorrectAnswers++
	}

	s.observeTiming(timeMs)

	// Every processed answer ages the whole queue, regardless of which
	// concept was answered. A reintroduction pushed by this very answer
	// is not aged by it.
	s.tickCooldowns()

	var out Outcome
	if correct {
		s.Streak++
		if s.Streak > s.BestStreak {
			s.BestStreak = s.Streak
		}
		mult := math.Min(xpMaxMultiplier, 1.0+float64(s.Streak-1)*xpStep)
		out.XP = int(math.Round(xpBase * mult * (1 + s.CurrentDifficulty)))
		s.TotalXP += out.XP
	} else {
		s.Streak = 0
		entry := Reintroduction{
			Concept:    concept,
			Cooldown:   reintroMinCool + rng.Intn(reintroCoolSpan),
			Difficulty: math.Max(reintroMinDiff, s.CurrentDifficulty-reintroDropStep),
		}
		s.ReintroQueue = append(s.ReintroQueue, entry)
		if len(s.ReintroQueue) > MaxReintroductions {
			s.ReintroQueue = s.ReintroQueue[len(s.ReintroQueue)-MaxReintroductions:]
		}
		out.Reintroduced = &entry
	}
	out.Streak = s.Streak

	if confidence != nil {
		conf := clampConfidence(*confidence)
		s.ConfidenceRecords = append(s.ConfidenceRecords, ConfidenceRecord{
			Concept:    concept,
			Confidence: conf,
			IsCorrect:  correct,
			Timestamp:  time.Now().UTC(),
		})
		if len(s.ConfidenceRecords) > MaxConfidenceRecords {
			s.ConfidenceRecords = s.ConfidenceRecords[len(s.ConfidenceRecords)-MaxConfidenceRecords:]
		}
		out.Nudge = s.calibrationNudge(concept, conf, correct)
	}

	if concept == s.CurrentConcept() {
		s.CardsOnConcept++
	}
	s.UpdatedAt = time.Now().UTC()
	return out
}

// ShouldRotate reports whether the rotation rule fires: three
// consecutive cards on the current concept, or two consecutive wrong
// answers on it.
func (s *State) ShouldRotate() bool {
	if s.CardsOnConcept >= maxCardsPerConcept {
		return true
	}
	if st, ok := s.ConceptStats[s.CurrentConcept()]; ok && st.WrongStreak >= maxWrongPerConcept {
		return true
	}
	return false
}

// AdvanceConcept moves the rotation cursor to the next concept.
func (s *State) AdvanceConcept() {
	if len(s.Concepts) == 0 {
		return
	}
	s.ConceptIndex = (s.ConceptIndex + 1) % len(s.Concepts)
	s.CardsOnConcept = 0
}

// PopReadyReintroduction removes and returns the first queued entry
// whose cooldown has elapsed and whose concept the valid set still
// accepts. Spaced-repetition corrections outrank every other selection.
func (s *State) PopReadyReintroduction(valid map[string]bool) (Reintroduction, bool) {
	for i, entry := range s.ReintroQueue {
		if entry.Cooldown <= 0 && (valid == nil || valid[entry.Concept]) {
			s.ReintroQueue = append(s.ReintroQueue[:i], s.ReintroQueue[i+1:]...)
			return entry, true
		}
	}
	return Reintroduction{}, false
}

// MarkServed records served cards so they are not repeated and their
// prompts can be excluded from future generation requests.
func (s *State) MarkServed(cards []models.Card) {
	for _, c := range cards {
		s.ServedContentIDs = append(s.ServedContentIDs, c.ID)
		s.PreviousPrompts = append(s.PreviousPrompts, c.Prompt)
	}
	if len(s.ServedContentIDs) > MaxServedContentIDs {
		s.ServedContentIDs = s.ServedContentIDs[len(s.ServedContentIDs)-MaxServedContentIDs:]
	}
	if len(s.PreviousPrompts) > MaxPreviousPrompts {
		s.PreviousPrompts = s.PreviousPrompts[len(s.PreviousPrompts)-MaxPreviousPrompts:]
	}
}

// Signals assembles the ZPD inputs for a concept from session state.
func (s *State) Signals(concept string) (streak, wrongStreak int, rollingAvgMs float64, confCount int, avgConfidence, accuracy float64) {
	streak = s.Streak
	rollingAvgMs = s.RollingAvgMs
	if st, ok := s.ConceptStats[concept]; ok {
		wrongStreak = st.WrongStreak
		if st.Attempts > 0 {
			accuracy = 100 * float64(st.Correct) / float64(st.Attempts)
		}
	}
	confCount, avgConfidence = s.confidenceSummary(concept)
	return
}

// Analytics returns the session-wide engagement snapshot.
func (s *State) Analytics() models.FeedAnalytics {
	acc := 0.0
	if s.TotalAnswers > 0 {
		acc = 100 * float64(s.CorrectAnswers) / float64(s.TotalAnswers)
	}
	return models.FeedAnalytics{
		TotalXP:        s.TotalXP,
		Streak:         s.Streak,
		BestStreak:     s.BestStreak,
		Accuracy:       acc,
		RollingAvgMs:   s.RollingAvgMs,
		FastAnswers:    s.FastAnswers,
		SlowAnswers:    s.SlowAnswers,
		TotalAnswers:   s.TotalAnswers,
		CorrectAnswers: s.CorrectAnswers,
	}
}

func (s *State) stats(concept string) *ConceptStat {
	if s.ConceptStats == nil {
		s.ConceptStats = make(map[string]*ConceptStat)
	}
	st, ok := s.ConceptStats[concept]
	if !ok {
		st = &ConceptStat{}
		s.ConceptStats[concept] = st
	}
	return st
}

func (s *State) observeTiming(timeMs int) {
	s.RollingAvgMs = s.RollingAvgMs*emaKeep + float64(timeMs)*emaNew
	if timeMs < fastAnswerMs {
		s.FastAnswers++
	} else if timeMs > slowAnswerMs {
		s.SlowAnswers++
	}
}

func (s *State) tickCooldowns() {
	for i := range s.ReintroQueue {
		s.ReintroQueue[i].Cooldown--
	}
}

// calibrationNudge fires on a wrong, high-confidence answer when the
// concept's logged confidence runs at least 25 points ahead of measured
// accuracy. Advisory only; nothing is stored.
func (s *State) calibrationNudge(concept string, confidence int, correct bool) *models.CalibrationNudge {
	if correct || confidence < nudgeMinConfidence {
		return nil
	}
	count, avgConf := s.confidenceSummary(concept)
	if count < nudgeMinRecords {
		return nil
	}
	var accuracy float64
	if st, ok := s.ConceptStats[concept]; ok && st.Attempts > 0 {
		accuracy = 100 * float64(st.Correct) / float64(st.Attempts)
	}
	if avgConf-accuracy < nudgeGapPP {
		return nil
	}
	return &models.CalibrationNudge{
		Concept:       concept,
		AvgConfidence: avgConf,
		Accuracy:      accuracy,
		Message: fmt.Sprintf(
			"You rate your %s knowledge around %.0f%%, but you're answering %.0f%% correctly. Let's slow down and rebuild it.",
			concept, avgConf, accuracy),
	}
}

func (s *State) confidenceSummary(concept string) (count int, avg float64) {
	sum := 0
	for _, r := range s.ConfidenceRecords {
		if r.Concept == concept {
			count++
			sum += r.Confidence
		}
	}
	if count > 0 {
		avg = float64(sum) / float64(count)
	}
	return
}

func clampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
