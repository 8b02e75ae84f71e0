// Package engine is the orchestrator: it grades answers, runs the
// mastery update, reward feedback and difficulty selection, mutates the
// session state and asks the content boundary for the next cards. It
// owns the update ordering; the stores it talks to are injected.
package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AEYohn/Quizly-sub000/internal/bandit"
	"github.com/AEYohn/Quizly-sub000/internal/bkt"
	"github.com/AEYohn/Quizly-sub000/internal/feed"
	"github.com/AEYohn/Quizly-sub000/internal/knowledge"
	"github.com/AEYohn/Quizly-sub000/internal/zpd"
	"github.com/AEYohn/Quizly-sub000/pkg/models"
)

const defaultCardsPerBatch = 3

// Difficulty band half-width for card requests. A request for difficulty
// d asks for cards in [d-bandHalfWidth, d+bandHalfWidth] before falling
// back to wider selections.
const bandHalfWidth = 0.15

// Starting difficulty bounds for a fresh session.
const (
	minStartDifficulty = 0.3
	maxStartDifficulty = 0.7
)

// MasteryStore persists per-learner, per-concept mastery estimates.
// Get returns (nil, nil) for a concept the learner has never seen.
// Writes are last-write-wins.
type MasteryStore interface {
	Get(ctx context.Context, learnerID, concept string) (*models.MasteryState, error)
	Put(ctx context.Context, st *models.MasteryState) error
	AllForLearner(ctx context.Context, learnerID string) (map[string]*models.MasteryState, error)
}

// SessionStore persists serialized session state keyed by session id.
// Load returns (nil, nil) for an unknown session.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) ([]byte, error)
	Save(ctx context.Context, sessionID string, blob []byte) error
}

// ContentProvider is the content boundary. It must tolerate returning an
// empty slice; the engine owns the fallback ladder.
type ContentProvider interface {
	SelectCards(ctx context.Context, req models.CardRequest) ([]models.Card, error)
}

// Config tunes the engine. The zero value is usable.
type Config struct {
	// Seed feeds the bandit and cooldown randomness. Zero means seed
	// from the clock; set it in tests for reproducible runs.
	Seed int64
	// CardsPerBatch is how many cards each response carries. Zero means 3.
	CardsPerBatch int
}

// Engine wires the estimator, the difficulty selector, the concept
// bandit and the session state machine behind one API. Safe for
// sequential use per session; callers serialize concurrent answers for
// the same session id.
type Engine struct {
	cfg       Config
	bkt       *bkt.Engine
	selector  *bandit.Selector
	graph     *knowledge.Graph
	masteries MasteryStore
	sessions  SessionStore
	content   ContentProvider
	rng       *rand.Rand
}

// New builds an Engine. graph may be nil when no topology is loaded; the
// topic itself then serves as the only concept.
func New(cfg Config, graph *knowledge.Graph, masteries MasteryStore, sessions SessionStore, content ContentProvider) *Engine {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	if graph == nil {
		graph = knowledge.NewGraph(nil, nil)
	}
	return &Engine{
		cfg:       cfg,
		bkt:       bkt.New(),
		selector:  bandit.NewWithRand(rng),
		graph:     graph,
		masteries: masteries,
		sessions:  sessions,
		content:   content,
		rng:       rng,
	}
}

// FeedPreferences are optional session overrides.
type FeedPreferences struct {
	// StartDifficulty overrides the mastery-derived starting difficulty.
	StartDifficulty *float64
	// Concepts replaces the topology-derived concept list for the topic.
	Concepts []string
}

// FeedStart is the response to StartFeed.
type FeedStart struct {
	SessionID  string        `json:"session_id"`
	Topic      string        `json:"topic"`
	Concepts   []string      `json:"concepts"`
	Concept    string        `json:"concept"`
	Difficulty float64       `json:"difficulty"`
	Cards      []models.Card `json:"cards"`
}

// StartFeed opens a session on a topic: resolves the concept list,
// derives a starting difficulty from whatever mastery history the
// learner already has, picks the opening concept and serves the first
// batch of cards.
func (e *Engine) StartFeed(ctx context.Context, learnerID, topic string, prefs *FeedPreferences) (*FeedStart, error) {
	concepts := e.graph.ConceptsForTopic(topic)
	if prefs != nil && len(prefs.Concepts) > 0 {
		concepts = append([]string(nil), prefs.Concepts...)
	}
	if len(concepts) == 0 {
		// No topology for this topic; treat the topic as one concept.
		concepts = []string{topic}
	}

	masteryMap, err := e.masteries.AllForLearner(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("mastery store: %w", err)
	}

	difficulty := startDifficulty(concepts, masteryMap)
	if prefs != nil && prefs.StartDifficulty != nil {
		difficulty = clamp(*prefs.StartDifficulty, zpd.MinDifficulty, zpd.MaxDifficulty)
	}

	st := feed.NewState(uuid.NewString(), learnerID, topic, concepts, difficulty)

	concept := e.pickConcept(st, masteryMap)
	st.ConceptIndex = indexOf(st.Concepts, concept)

	cards, err := e.requestCards(ctx, st, concept, difficulty)
	if err != nil {
		return nil, err
	}
	st.MarkServed(cards)

	if err := e.saveState(ctx, st); err != nil {
		return nil, err
	}

	return &FeedStart{
		SessionID:  st.SessionID,
		Topic:      topic,
		Concepts:   st.Concepts,
		Concept:    concept,
		Difficulty: difficulty,
		Cards:      cards,
	}, nil
}

// ProcessAnswer runs the full pipeline for one answered card: grade,
// mastery update, bandit reward, difficulty selection, session mutation,
// rotation, next-concept choice and the next card batch. State and
// mastery are persisted before the content request, so a content outage
// never loses a graded answer.
func (e *Engine) ProcessAnswer(ctx context.Context, sessionID string, sub models.AnswerSubmission) (*models.AnswerResult, error) {
	st, err := e.loadState(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	concept := st.CurrentConcept()
	if sub.ConceptHint != "" {
		concept = sub.ConceptHint
	}

	isCorrect := grade(sub.Answer, sub.CorrectAnswer)

	mastery, err := e.masteries.Get(ctx, st.LearnerID, concept)
	if err != nil {
		return nil, fmt.Errorf("mastery store: %w", err)
	}
	if mastery == nil {
		mastery = e.bkt.NewState(st.LearnerID, concept)
	}
	prior := mastery.PLearned
	e.bkt.Update(mastery, isCorrect, sub.TimeMs)
	bandit.UpdateReward(mastery, mastery.PLearned-prior)
	if err := e.masteries.Put(ctx, mastery); err != nil {
		return nil, fmt.Errorf("mastery store: %w", err)
	}

	// Difficulty for the next card is chosen from the updated mastery and
	// the session signals as they stood before this answer mutated them.
	nextDifficulty := e.nextDifficulty(st, concept, mastery.PLearned)

	outcome := st.ApplyAnswer(concept, isCorrect, sub.TimeMs, sub.Confidence, e.rng)
	st.CurrentDifficulty = nextDifficulty

	if st.ShouldRotate() {
		st.AdvanceConcept()
	}

	nextConcept, difficulty, err := e.selectNext(ctx, st)
	if err != nil {
		return nil, err
	}
	st.CurrentDifficulty = difficulty

	if err := e.saveState(ctx, st); err != nil {
		return nil, err
	}

	cards, err := e.requestCards(ctx, st, nextConcept, difficulty)
	if err != nil {
		return nil, err
	}
	st.MarkServed(cards)
	if err := e.saveState(ctx, st); err != nil {
		return nil, err
	}

	return &models.AnswerResult{
		IsCorrect:        isCorrect,
		XPEarned:         outcome.XP,
		Streak:           outcome.Streak,
		Difficulty:       difficulty,
		NextConcept:      nextConcept,
		NextCards:        cards,
		Analytics:        st.Analytics(),
		CalibrationNudge: outcome.Nudge,
	}, nil
}

// GetNextCards serves another batch without an answer, for learners who
// scroll past a card. It runs concept selection the same way
// ProcessAnswer does, reintroduction queue first.
func (e *Engine) GetNextCards(ctx context.Context, sessionID string) ([]models.Card, error) {
	st, err := e.loadState(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	concept, difficulty, err := e.selectNext(ctx, st)
	if err != nil {
		return nil, err
	}
	st.CurrentDifficulty = difficulty

	cards, err := e.requestCards(ctx, st, concept, difficulty)
	if err != nil {
		return nil, err
	}
	st.MarkServed(cards)
	if err := e.saveState(ctx, st); err != nil {
		return nil, err
	}
	return cards, nil
}

// SessionAnalytics reports the end-of-session breakdown: per-concept
// accuracy with proficiency buckets plus the running feed totals.
func (e *Engine) SessionAnalytics(ctx context.Context, sessionID string) (*models.SessionAnalytics, error) {
	st, err := e.loadState(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	reports := make([]models.ConceptReport, 0, len(st.Concepts))
	for _, c := range st.Concepts {
		stat, ok := st.ConceptStats[c]
		if !ok || stat.Attempts == 0 {
			reports = append(reports, models.ConceptReport{Concept: c, Bucket: models.BucketNeedsWork})
			continue
		}
		acc := float64(stat.Correct) / float64(stat.Attempts) * 100
		reports = append(reports, models.ConceptReport{
			Concept:  c,
			Attempts: stat.Attempts,
			Correct:  stat.Correct,
			Accuracy: acc,
			Bucket:   bucketFor(acc, stat.Attempts),
		})
	}

	return &models.SessionAnalytics{
		SessionID: st.SessionID,
		LearnerID: st.LearnerID,
		Topic:     st.Topic,
		Concepts:  reports,
		Feed:      st.Analytics(),
	}, nil
}

// AllMasteries returns the learner's complete mastery map.
func (e *Engine) AllMasteries(ctx context.Context, learnerID string) (map[string]*models.MasteryState, error) {
	return e.masteries.AllForLearner(ctx, learnerID)
}

// SeedMastery records a self-assessment before the first card, so the
// opening difficulty is not flying blind.
func (e *Engine) SeedMastery(ctx context.Context, learnerID, concept string, selfRating int, diagnosticCorrect *bool) error {
	mastery, err := e.masteries.Get(ctx, learnerID, concept)
	if err != nil {
		return fmt.Errorf("mastery store: %w", err)
	}
	if mastery == nil {
		mastery = e.bkt.NewState(learnerID, concept)
	}
	e.bkt.SeedFromAssessment(mastery, selfRating, diagnosticCorrect)
	if err := e.masteries.Put(ctx, mastery); err != nil {
		return fmt.Errorf("mastery store: %w", err)
	}
	return nil
}

// selectNext picks the concept and difficulty for the next batch. A ripe
// reintroduction wins and carries its own stored difficulty; otherwise
// the bandit picks among the session's concepts, restricted to those the
// prerequisite graph marks ready.
func (e *Engine) selectNext(ctx context.Context, st *feed.State) (string, float64, error) {
	valid := make(map[string]bool, len(st.Concepts))
	for _, c := range st.Concepts {
		valid[c] = true
	}
	if entry, ok := st.PopReadyReintroduction(valid); ok {
		return entry.Concept, entry.Difficulty, nil
	}

	masteryMap, err := e.masteries.AllForLearner(ctx, st.LearnerID)
	if err != nil {
		return "", 0, fmt.Errorf("mastery store: %w", err)
	}

	pLearned := make(map[string]float64, len(masteryMap))
	for c, m := range masteryMap {
		pLearned[c] = m.PLearned
	}
	ready := e.graph.ReadyConcepts(st.Concepts, pLearned)

	cands := make([]bandit.Candidate, 0, len(st.Concepts))
	for _, c := range st.Concepts {
		cand := bandit.Candidate{Concept: c, PLearned: 0.1, TSAlpha: 1, TSBeta: 1}
		if m, ok := masteryMap[c]; ok {
			cand.PLearned = m.PLearned
			cand.TSAlpha = m.TSAlpha
			cand.TSBeta = m.TSBeta
		}
		if stat, ok := st.ConceptStats[c]; ok {
			cand.Attempts = stat.Attempts
		}
		cands = append(cands, cand)
	}

	picked, ok := e.selector.Pick(cands, ready)
	if !ok {
		return st.CurrentConcept(), st.CurrentDifficulty, nil
	}
	if idx := indexOf(st.Concepts, picked.Concept); idx != st.ConceptIndex {
		st.ConceptIndex = idx
		st.CardsOnConcept = 0
	}
	return picked.Concept, st.CurrentDifficulty, nil
}

// pickConcept chooses the opening concept for a fresh session.
func (e *Engine) pickConcept(st *feed.State, masteryMap map[string]*models.MasteryState) string {
	pLearned := make(map[string]float64, len(masteryMap))
	for c, m := range masteryMap {
		pLearned[c] = m.PLearned
	}
	ready := e.graph.ReadyConcepts(st.Concepts, pLearned)

	cands := make([]bandit.Candidate, 0, len(st.Concepts))
	for _, c := range st.Concepts {
		cand := bandit.Candidate{Concept: c, PLearned: 0.1, TSAlpha: 1, TSBeta: 1}
		if m, ok := masteryMap[c]; ok {
			cand.PLearned = m.PLearned
			cand.TSAlpha = m.TSAlpha
			cand.TSBeta = m.TSBeta
		}
		cands = append(cands, cand)
	}
	if picked, ok := e.selector.Pick(cands, ready); ok {
		return picked.Concept
	}
	return st.Concepts[0]
}

// requestCards walks the fallback ladder: the requested difficulty band
// on the target concept, then the full difficulty range, then any of the
// session's concepts. Served cards are always excluded.
func (e *Engine) requestCards(ctx context.Context, st *feed.State, concept string, difficulty float64) ([]models.Card, error) {
	count := e.cfg.CardsPerBatch
	if count <= 0 {
		count = defaultCardsPerBatch
	}

	req := models.CardRequest{
		Topic:         st.Topic,
		Concepts:      []string{concept},
		MinDifficulty: math.Max(zpd.MinDifficulty, difficulty-bandHalfWidth),
		MaxDifficulty: math.Min(zpd.MaxDifficulty, difficulty+bandHalfWidth),
		ExcludeIDs:    st.ServedContentIDs,
		Count:         count,
	}
	cards, err := e.content.SelectCards(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("content: %w", err)
	}
	if len(cards) > 0 {
		return cards, nil
	}

	req.MinDifficulty = 0
	req.MaxDifficulty = 1
	cards, err = e.content.SelectCards(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("content: %w", err)
	}
	if len(cards) > 0 {
		return cards, nil
	}

	req.Concepts = st.Concepts
	cards, err = e.content.SelectCards(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("content: %w", err)
	}
	if len(cards) > 0 {
		return cards, nil
	}

	return nil, ErrContentUnavailable
}

func (e *Engine) nextDifficulty(st *feed.State, concept string, pLearned float64) float64 {
	streak, wrongStreak, avgMs, confCount, avgConf, acc := st.Signals(concept)
	return zpd.SelectDifficulty(pLearned, zpd.Signals{
		Streak:          streak,
		WrongStreak:     wrongStreak,
		RollingAvgMs:    avgMs,
		ConfidenceCount: confCount,
		AvgConfidence:   avgConf,
		Accuracy:        acc,
	})
}

func (e *Engine) loadState(ctx context.Context, sessionID string) (*feed.State, error) {
	blob, err := e.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}
	if blob == nil {
		return nil, ErrSessionNotFound
	}
	st, err := feed.Unmarshal(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionNotFound, ErrMalformedState)
	}
	return st, nil
}

func (e *Engine) saveState(ctx context.Context, st *feed.State) error {
	blob, err := st.Marshal()
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := e.sessions.Save(ctx, st.SessionID, blob); err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	return nil
}

// grade compares the submitted answer to the expected one, ignoring
// case and surrounding whitespace.
func grade(answer, correct string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(correct))
}

// startDifficulty derives the opening difficulty from average prior
// mastery over the session's concepts, clamped to the moderate band so
// returning experts still warm up and novices are not buried.
func startDifficulty(concepts []string, masteryMap map[string]*models.MasteryState) float64 {
	var sum float64
	var n int
	for _, c := range concepts {
		if m, ok := masteryMap[c]; ok {
			sum += m.PLearned * 100
			n++
		}
	}
	if n == 0 {
		return minStartDifficulty
	}
	avg := sum / float64(n)
	return clamp(avg/150, minStartDifficulty, maxStartDifficulty)
}

func bucketFor(accuracy float64, attempts int) string {
	switch {
	case accuracy >= 80 && attempts >= 3:
		return models.BucketMastered
	case accuracy >= 60:
		return models.BucketStrong
	default:
		return models.BucketNeedsWork
	}
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return 0
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
