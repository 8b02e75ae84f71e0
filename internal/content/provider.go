// Package content is the content boundary: it selects stored cards for
// a difficulty band and tops the batch up from a generative backend when
// the bank runs dry. Callers treat an empty result as a normal outcome.
package content

import (
	"context"
	"log"
	"math/rand"

	"github.com/AEYohn/Quizly-sub000/pkg/models"
)

// Multiple-choice cards are served with this many options, the answer
// included.
const optionCount = 4

// CardStore reads stored cards matching a request. Implemented by the
// database layer.
type CardStore interface {
	SelectByBand(ctx context.Context, req models.CardRequest) ([]models.Card, error)
	AnswersForConcept(ctx context.Context, topic, concept string, limit int) ([]string, error)
}

// Generator produces new cards on demand. Optional; a nil Generator
// means the bank is all there is.
type Generator interface {
	GenerateCards(ctx context.Context, req models.CardRequest) ([]models.Card, error)
}

// Provider implements the engine's content boundary.
type Provider struct {
	store CardStore
	gen   Generator
	rng   *rand.Rand
}

// NewProvider builds a Provider. gen may be nil.
func NewProvider(store CardStore, gen Generator, seed int64) *Provider {
	return &Provider{store: store, gen: gen, rng: rand.New(rand.NewSource(seed))}
}

// SelectCards returns up to req.Count cards for the request: stored
// cards first, generated cards to fill the remainder. Generation
// failures degrade to whatever the bank produced; only a store error is
// fatal.
func (p *Provider) SelectCards(ctx context.Context, req models.CardRequest) ([]models.Card, error) {
	cards, err := p.store.SelectByBand(ctx, req)
	if err != nil {
		return nil, err
	}

	for i := range cards {
		if cards[i].Type == models.CardMultipleChoice && len(cards[i].Options) < optionCount {
			p.fillOptions(ctx, &cards[i], cards)
		}
	}

	if len(cards) >= req.Count || p.gen == nil {
		return cards, nil
	}

	genReq := req
	genReq.Count = req.Count - len(cards)
	generated, err := p.gen.GenerateCards(ctx, genReq)
	if err != nil {
		log.Printf("content: generation failed, serving %d stored cards: %v", len(cards), err)
		return cards, nil
	}
	return append(cards, generated...), nil
}

// fillOptions completes a multiple-choice card's option list with
// distractors drawn from sibling cards' answers, batch first, then the
// bank. The answer is always among the options and the order is
// shuffled.
func (p *Provider) fillOptions(ctx context.Context, card *models.Card, batch []models.Card) {
	seen := map[string]bool{card.Answer: true}
	for _, o := range card.Options {
		seen[o] = true
	}
	options := append([]string{card.Answer}, card.Options...)

	for _, sib := range batch {
		if len(options) == optionCount {
			break
		}
		if sib.ID == card.ID || seen[sib.Answer] || sib.Answer == "" {
			continue
		}
		seen[sib.Answer] = true
		options = append(options, sib.Answer)
	}

	if len(options) < optionCount {
		answers, err := p.store.AnswersForConcept(ctx, card.Topic, card.Concept, optionCount*3)
		if err != nil {
			log.Printf("content: distractor lookup failed for %s: %v", card.ID, err)
		}
		for _, a := range answers {
			if len(options) == optionCount {
				break
			}
			if seen[a] || a == "" {
				continue
			}
			seen[a] = true
			options = append(options, a)
		}
	}

	p.rng.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	card.Options = options
}
