package content

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/AEYohn/Quizly-sub000/pkg/models"
)

const generationSystemPrompt = `You write quiz cards for a learning feed.
Respond with a JSON array only, no prose. Each element:
{"concept": string, "type": "flashcard"|"multiple_choice"|"fill_blank",
"prompt": string, "options": [string] (multiple_choice only, 4 entries),
"answer": string, "explanation": string, "difficulty": number 0.1-0.95}.
Prompts must be self-contained and answerable in one line.`

// ChatCompleter is the slice of the OpenAI client the generator needs.
// Injected so tests run without a network.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIGenerator produces cards from a chat completion model.
type OpenAIGenerator struct {
	client ChatCompleter
	model  string
}

// NewOpenAIGenerator builds a generator. An empty model falls back to
// gpt-4o-mini.
func NewOpenAIGenerator(client ChatCompleter, model string) *OpenAIGenerator {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIGenerator{client: client, model: model}
}

// generatedCard is the wire shape the model is instructed to emit.
type generatedCard struct {
	Concept     string   `json:"concept"`
	Type        string   `json:"type"`
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options,omitempty"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation,omitempty"`
	Difficulty  float64  `json:"difficulty"`
}

// GenerateCards asks the model for req.Count cards inside the request's
// difficulty band. Cards that fail validation are dropped rather than
// failing the batch.
func (g *OpenAIGenerator) GenerateCards(ctx context.Context, req models.CardRequest) ([]models.Card, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: 0.7,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: generationSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(req)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion: empty response")
	}

	raw := extractJSONArray(resp.Choices[0].Message.Content)
	var parsed []generatedCard
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse generated cards: %w", err)
	}

	now := time.Now().UTC()
	cards := make([]models.Card, 0, len(parsed))
	for _, gc := range parsed {
		if gc.Prompt == "" || gc.Answer == "" {
			continue
		}
		card := models.Card{
			ID:          uuid.NewString(),
			Topic:       req.Topic,
			Concept:     gc.Concept,
			Type:        gc.Type,
			Prompt:      gc.Prompt,
			Options:     gc.Options,
			Answer:      gc.Answer,
			Explanation: gc.Explanation,
			Difficulty:  clampToBand(gc.Difficulty, req.MinDifficulty, req.MaxDifficulty),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if card.Concept == "" && len(req.Concepts) > 0 {
			card.Concept = req.Concepts[0]
		}
		switch card.Type {
		case models.CardFlashcard, models.CardMultipleChoice, models.CardFillBlank:
		default:
			card.Type = models.CardFlashcard
		}
		cards = append(cards, card)
		if len(cards) == req.Count {
			break
		}
	}
	return cards, nil
}

func buildUserPrompt(req models.CardRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write %d cards on the topic %q", req.Count, req.Topic)
	if len(req.Concepts) > 0 {
		fmt.Fprintf(&b, ", covering: %s", strings.Join(req.Concepts, ", "))
	}
	fmt.Fprintf(&b, ". Difficulty between %.2f and %.2f.", req.MinDifficulty, req.MaxDifficulty)
	return b.String()
}

// extractJSONArray tolerates models wrapping the array in code fences or
// a sentence of prose.
func extractJSONArray(s string) string {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}

func clampToBand(d, lo, hi float64) float64 {
	if lo <= 0 && hi <= 0 {
		return d
	}
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}
