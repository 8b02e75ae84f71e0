// Package bkt implements Bayesian Knowledge Tracing: a four-parameter
// model (prior, guess, slip, transit) estimating the probability that a
// learner has mastered a concept from a sequence of right/wrong answers.
package bkt

import (
	"time"

	"github.com/AEYohn/Quizly-sub000/pkg/models"
)

// Probability bounds. Estimates are clamped into the open interval so a
// run of identical observations can never pin the posterior to 0 or 1.
const (
	MinPLearned = 0.01
	MaxPLearned = 0.99
)

// Response-time heuristics: a correct answer faster than FastAnswerMs is
// suspected guessing and nudges pGuess up; a wrong answer slower than
// SlowAnswerMs is suspected genuine effort and nudges pSlip down.
const (
	FastAnswerMs = 1500
	SlowAnswerMs = 10000

	guessNudge = 0.005
	maxPGuess  = 0.4
	slipNudge  = 0.005
	minPSlip   = 0.02
)

// Params holds the initial BKT parameters applied to a concept the
// learner has never been observed on.
type Params struct {
	InitPLearned float64
	InitPGuess   float64
	InitPSlip    float64
	InitPTransit float64
}

// DefaultParams returns the standard cold-start parameters.
func DefaultParams() Params {
	return Params{
		InitPLearned: 0.10,
		InitPGuess:   0.20,
		InitPSlip:    0.10,
		InitPTransit: 0.15,
	}
}

// Engine updates MasteryState rows. It holds no per-learner state itself;
// the state it operates on is handed in and handed back.
type Engine struct {
	params Params
}

// New creates an Engine with default parameters.
func New() *Engine {
	return &Engine{params: DefaultParams()}
}

// NewWithParams creates an Engine with custom cold-start parameters.
func NewWithParams(p Params) *Engine {
	return &Engine{params: p}
}

// NewState creates the lazily-initialized mastery state for a
// (learner, concept) pair that has never been observed.
func (e *Engine) NewState(learnerID, concept string) *models.MasteryState {
	return &models.MasteryState{
		LearnerID: learnerID,
		Concept:   concept,
		PLearned:  clampProb(e.params.InitPLearned),
		PGuess:    e.params.InitPGuess,
		PSlip:     e.params.InitPSlip,
		PTransit:  e.params.InitPTransit,
		TSAlpha:   1,
		TSBeta:    1,
	}
}

// Update applies one observed answer to the state. It computes the
// posterior P(learned | observation), applies the learning transition,
// runs the response-time heuristics and bumps the attempt counters.
// The only failure mode is clamping; Update never returns an error.
func (e *Engine) Update(st *models.MasteryState, isCorrect bool, responseTimeMs int) {
	pL := st.PLearned
	var posterior float64
	if isCorrect {
		num := pL * (1 - st.PSlip)
		den := num + (1-pL)*st.PGuess
		posterior = safeDiv(num, den, pL)
	} else {
		num := pL * st.PSlip
		den := num + (1-pL)*(1-st.PGuess)
		posterior = safeDiv(num, den, pL)
	}

	st.PLearned = clampProb(posterior + (1-posterior)*st.PTransit)

	if isCorrect && responseTimeMs > 0 && responseTimeMs < FastAnswerMs {
		st.PGuess = min(st.PGuess+guessNudge, maxPGuess)
	}
	if !isCorrect && responseTimeMs > SlowAnswerMs {
		st.PSlip = max(st.PSlip-slipNudge, minPSlip)
	}

	st.TotalAttempts++
	if isCorrect {
		st.CorrectAttempts++
	}
	st.LastSeenAt = time.Now().UTC()
}

// seedTable maps a 1-5 self-rating to an initial pLearned.
var seedTable = map[int]float64{
	1: 0.05,
	2: 0.20,
	3: 0.40,
	4: 0.60,
	5: 0.80,
}

// SeedFromAssessment initializes pLearned from a learner's self-rating,
// optionally adjusted by a single diagnostic question: +0.10 when the
// diagnostic was answered correctly, -0.15 when it was missed (an
// overconfidence penalty). Used only at concept introduction.
func (e *Engine) SeedFromAssessment(st *models.MasteryState, selfRating int, diagnosticCorrect *bool) {
	if selfRating < 1 {
		selfRating = 1
	}
	if selfRating > 5 {
		selfRating = 5
	}
	p := seedTable[selfRating]
	if diagnosticCorrect != nil {
		if *diagnosticCorrect {
			p += 0.10
		} else {
			p -= 0.15
		}
	}
	st.PLearned = clampProb(p)
}

// EstimateConfidence returns the Bernoulli variance pL*(1-pL) of the
// mastery estimate, a proxy for estimator uncertainty. Lower means the
// estimator is more certain.
func EstimateConfidence(st *models.MasteryState) float64 {
	return st.PLearned * (1 - st.PLearned)
}

// safeDiv guards against a degenerate zero denominator, which can only
// happen with parameters outside their documented ranges.
func safeDiv(num, den, fallback float64) float64 {
	if den <= 0 {
		return fallback
	}
	return num / den
}

func clampProb(p float64) float64 {
	if p < MinPLearned {
		return MinPLearned
	}
	if p > MaxPLearned {
		return MaxPLearned
	}
	return p
}
