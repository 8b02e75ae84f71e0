// Package bandit chooses which concept to serve next using Thompson
// Sampling over Beta-distributed "learning potential" posteriors, biased
// toward the productive-struggle zone and away from concepts the session
// has just drilled.
package bandit

import (
	"math"
	"math/rand"

	"github.com/AEYohn/Quizly-sub000/pkg/models"
)

const (
	// Reward feedback: a mastery gain above this counts as a success for
	// the arm that produced it. The gain is the change in the BKT
	// estimate across one update, not raw correctness.
	rewardGainThreshold = 0.01

	// ZPD bonus: concepts whose mastery sits in the open interval
	// (zpdLow, zpdHigh) are in the productive-struggle zone and keep the
	// full sampled score; everything else is halved.
	zpdLow       = 0.3
	zpdHigh      = 0.7
	zpdBonusIn   = 1.0
	zpdBonusOut  = 0.5
	recencyScale = 0.3
)

// Candidate is one selectable concept together with the mastery-derived
// inputs the selector scores it on.
type Candidate struct {
	Concept  string
	PLearned float64
	TSAlpha  float64
	TSBeta   float64
	Attempts int // attempts on this concept within the current session
}

// Selector picks concepts. The random source is injected and seedable so
// bandit behavior is reproducible in tests.
type Selector struct {
	rng *rand.Rand
}

// New creates a Selector seeded with the given value.
func New(seed int64) *Selector {
	return &Selector{rng: rand.New(rand.NewSource(seed))}
}

// NewWithRand creates a Selector using the caller's random source.
func NewWithRand(rng *rand.Rand) *Selector {
	return &Selector{rng: rng}
}

// Pick returns the candidate with the highest composite Thompson score.
// When ready is non-empty, candidates are restricted to the ready set; if
// that restriction empties the pool the full candidate set is used (the
// learner must always get something). Returns false only for an empty
// candidate list.
func (s *Selector) Pick(candidates []Candidate, ready map[string]bool) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}

	pool := candidates
	if len(ready) > 0 {
		filtered := make([]Candidate, 0, len(candidates))
		for _, c := range candidates {
			if ready[c.Concept] {
				filtered = append(filtered, c)
			}
		}
		if len(filtered) > 0 {
			pool = filtered
		}
	}

	best := pool[0]
	bestScore := math.Inf(-1)
	for _, c := range pool {
		score := s.score(c)
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	return best, true
}

// score samples the concept's learning-potential posterior and applies
// the ZPD bonus and the recency penalty.
func (s *Selector) score(c Candidate) float64 {
	sample := s.betaSample(math.Max(c.TSAlpha, 0.01), math.Max(c.TSBeta, 0.01))

	bonus := zpdBonusOut
	if c.PLearned > zpdLow && c.PLearned < zpdHigh {
		bonus = zpdBonusIn
	}

	recency := 1 - recencyScale/float64(1+c.Attempts)

	return sample * bonus * recency
}

// UpdateReward feeds the bandit loop: a meaningful mastery gain counts
// for the arm, anything else counts against it.
func UpdateReward(st *models.MasteryState, learningGain float64) {
	if learningGain > rewardGainThreshold {
		st.TSAlpha++
	} else {
		st.TSBeta++
	}
}

// betaSample draws from Beta(a, b) via two gamma variates.
func (s *Selector) betaSample(a, b float64) float64 {
	x := s.gammaSample(a)
	y := s.gammaSample(b)
	if x+y == 0 {
		return 0.5
	}
	return x / (x + y)
}

// gammaSample draws from Gamma(shape, 1) using Marsaglia-Tsang. Shapes
// below 1 are boosted and corrected with the standard power-of-uniform
// transform.
func (s *Selector) gammaSample(shape float64) float64 {
	if shape < 1 {
		u := s.rng.Float64()
		return s.gammaSample(shape+1) * math.Pow(u, 1/shape)
	}

	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9*d)
	for {
		x := s.rng.NormFloat64()
		v := 1 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := s.rng.Float64()
		if u < 1-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}
