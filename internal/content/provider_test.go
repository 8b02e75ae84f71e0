package content

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AEYohn/Quizly-sub000/pkg/models"
)

type fakeStore struct {
	cards   []models.Card
	answers []string
	err     error
}

func (f *fakeStore) SelectByBand(_ context.Context, req models.CardRequest) ([]models.Card, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.cards) > req.Count {
		return f.cards[:req.Count], nil
	}
	return f.cards, nil
}

func (f *fakeStore) AnswersForConcept(_ context.Context, _, _ string, _ int) ([]string, error) {
	return f.answers, nil
}

type fakeGen struct {
	cards []models.Card
	calls int
	err   error
}

func (f *fakeGen) GenerateCards(_ context.Context, req models.CardRequest) ([]models.Card, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.cards) > req.Count {
		return f.cards[:req.Count], nil
	}
	return f.cards, nil
}

func mc(id, answer string) models.Card {
	return models.Card{ID: id, Topic: "algorithms", Concept: "recursion",
		Type: models.CardMultipleChoice, Prompt: "q-" + id, Answer: answer}
}

func TestSelectPassthrough(t *testing.T) {
	store := &fakeStore{cards: []models.Card{
		{ID: "a", Type: models.CardFlashcard, Answer: "x"},
		{ID: "b", Type: models.CardFlashcard, Answer: "y"},
	}}
	gen := &fakeGen{}
	p := NewProvider(store, gen, 1)

	cards, err := p.SelectCards(context.Background(), models.CardRequest{Count: 2})
	require.NoError(t, err)
	assert.Len(t, cards, 2)
	assert.Zero(t, gen.calls, "full batch from the bank skips generation")
}

func TestStoreErrorIsFatal(t *testing.T) {
	boom := errors.New("db down")
	p := NewProvider(&fakeStore{err: boom}, nil, 1)

	_, err := p.SelectCards(context.Background(), models.CardRequest{Count: 2})
	assert.ErrorIs(t, err, boom)
}

func TestDistractorFillFromBatch(t *testing.T) {
	store := &fakeStore{cards: []models.Card{
		mc("a", "stack"), mc("b", "heap"), mc("c", "queue"), mc("d", "tree"),
	}}
	p := NewProvider(store, nil, 1)

	cards, err := p.SelectCards(context.Background(), models.CardRequest{Count: 4})
	require.NoError(t, err)

	for _, c := range cards {
		assert.Len(t, c.Options, 4, "card %s", c.ID)
		assert.Contains(t, c.Options, c.Answer, "card %s", c.ID)
	}
}

func TestDistractorFillFromStoreWhenBatchIsThin(t *testing.T) {
	store := &fakeStore{
		cards:   []models.Card{mc("a", "stack")},
		answers: []string{"heap", "queue", "stack", "tree", "graph"},
	}
	p := NewProvider(store, nil, 1)

	cards, err := p.SelectCards(context.Background(), models.CardRequest{Count: 1})
	require.NoError(t, err)

	require.Len(t, cards, 1)
	assert.Len(t, cards[0].Options, 4)
	assert.Contains(t, cards[0].Options, "stack")
	// the answer must not be duplicated as a distractor
	count := 0
	for _, o := range cards[0].Options {
		if o == "stack" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestGeneratorTopsUpShortBatch(t *testing.T) {
	store := &fakeStore{cards: []models.Card{{ID: "a", Answer: "x", Prompt: "p"}}}
	gen := &fakeGen{cards: []models.Card{{ID: "g1", Answer: "y", Prompt: "gp"}, {ID: "g2", Answer: "z", Prompt: "gp2"}}}
	p := NewProvider(store, gen, 1)

	cards, err := p.SelectCards(context.Background(), models.CardRequest{Count: 3})
	require.NoError(t, err)
	assert.Len(t, cards, 3)
	assert.Equal(t, 1, gen.calls)
}

func TestGeneratorFailureDegradesToBank(t *testing.T) {
	store := &fakeStore{cards: []models.Card{{ID: "a", Answer: "x", Prompt: "p"}}}
	gen := &fakeGen{err: errors.New("rate limited")}
	p := NewProvider(store, gen, 1)

	cards, err := p.SelectCards(context.Background(), models.CardRequest{Count: 3})
	require.NoError(t, err)
	assert.Len(t, cards, 1, "stored cards still served")
}

func TestNilGeneratorReturnsShortBatch(t *testing.T) {
	store := &fakeStore{cards: []models.Card{{ID: "a", Answer: "x", Prompt: "p"}}}
	p := NewProvider(store, nil, 1)

	cards, err := p.SelectCards(context.Background(), models.CardRequest{Count: 3})
	require.NoError(t, err)
	assert.Len(t, cards, 1)
}
