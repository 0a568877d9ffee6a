package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"revi-backend/internal/metrics"
	"revi-backend/internal/models"
)

const (
	DefaultCardCount = 10
	MaxCardCount     = 50
	MinSourceChars   = 50

	maxPromptChars = 8000

	generatorSystemPrompt = "You are a flashcard generator. Return only JSON with no markdown formatting."

	SentinelQuestion = "Error: Could not generate flashcards with any AI model"
	SentinelAnswer   = "All AI models failed. Please check your internet connection and try again, or create flashcards manually."
)

// Prompt is a single system+user exchange.
type Prompt struct {
	System      string
	User        string
	Temperature float32
}

// Completer sends one prompt to one model and returns the raw reply text.
type Completer interface {
	Complete(ctx context.Context, model string, prompt Prompt) (string, error)
}

// ModelTarget pairs a model identifier with the provider that serves it.
type ModelTarget struct {
	Model     string
	Completer Completer
}

type CardGenerator struct {
	targets []ModelTarget
	metrics metrics.Recorder
	logger  *slog.Logger
}

func NewCardGenerator(targets []ModelTarget, rec metrics.Recorder, logger *slog.Logger) *CardGenerator {
	if rec == nil {
		rec = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CardGenerator{targets: targets, metrics: rec, logger: logger}
}

// ClampCardCount applies the default for unset counts and caps large ones.
func ClampCardCount(n int) int {
	switch {
	case n <= 0:
		return DefaultCardCount
	case n > MaxCardCount:
		return MaxCardCount
	}
	return n
}

// Generate walks the model chain in order and returns the first non-empty
// card set, truncated to numCards. It never fails: when every model is
// exhausted the result is a single sentinel card.
func (g *CardGenerator) Generate(ctx context.Context, text string, numCards int) []models.GeneratedCard {
	numCards = ClampCardCount(numCards)
	prompt := Prompt{
		System:      generatorSystemPrompt,
		User:        buildCardPrompt(text, numCards),
		Temperature: 0.3,
	}

	for i, target := range g.targets {
		log := g.logger.With(
			slog.String("model", target.Model),
			slog.Int("attempt", i+1),
			slog.Int("of", len(g.targets)),
		)

		if ctx.Err() != nil {
			g.metrics.RecordGenerationAttempt(target.Model, metrics.OutcomeSkipped)
			log.Warn("card generation cancelled", slog.String("error", ctx.Err().Error()))
			break
		}

		reply, err := target.Completer.Complete(ctx, target.Model, prompt)
		if err != nil {
			g.metrics.RecordGenerationAttempt(target.Model, metrics.OutcomeCallError)
			log.Warn("model call failed", slog.String("error", err.Error()))
			continue
		}

		cards, err := parseCards(reply)
		if err != nil {
			outcome := metrics.OutcomeParseError
			if errors.Is(err, errNoValidCards) {
				outcome = metrics.OutcomeNoCards
			}
			g.metrics.RecordGenerationAttempt(target.Model, outcome)
			log.Warn("model reply rejected", slog.String("error", err.Error()))
			continue
		}

		g.metrics.RecordGenerationAttempt(target.Model, metrics.OutcomeSuccess)
		log.Info("cards generated", slog.Int("valid", len(cards)), slog.Int("requested", numCards))
		if len(cards) > numCards {
			cards = cards[:numCards]
		}
		return cards
	}

	g.logger.Error("all models exhausted", slog.Int("models", len(g.targets)))
	return []models.GeneratedCard{{Question: SentinelQuestion, Answer: SentinelAnswer}}
}

func buildCardPrompt(text string, numCards int) string {
	return fmt.Sprintf(`You are an expert educational assistant. Generate exactly %d flashcard question-answer pairs from the following text.

CRITICAL: Return ONLY valid JSON in this exact format with no other text:
{
  "flashcards": [
    { "question": "What is...", "answer": "..." },
    { "question": "How does...", "answer": "..." }
  ]
}

Rules:
- Focus on key concepts, definitions, and important facts
- Questions should be clear and specific
- Answers should be concise (1-3 sentences)
- Cover different aspects of the material
- Return ONLY the JSON, no markdown, no explanations

Text to analyze:
%s

Return JSON only:`, numCards, truncateRunes(text, maxPromptChars))
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var errNoValidCards = errors.New("no valid cards in reply")

// parseCards takes the span from the first '{' to the last '}' so that
// code fences or prose around the object are ignored.
func parseCards(reply string) ([]models.GeneratedCard, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return nil, errors.New("reply contains no JSON object")
	}

	var envelope struct {
		Flashcards json.RawMessage `json:"flashcards"`
	}
	if err := json.Unmarshal([]byte(reply[start:end+1]), &envelope); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}

	var entries []map[string]any
	if len(envelope.Flashcards) == 0 || json.Unmarshal(envelope.Flashcards, &entries) != nil {
		return nil, errors.New("flashcards is missing or not a list")
	}

	cards := make([]models.GeneratedCard, 0, len(entries))
	for _, e := range entries {
		q, _ := e["question"].(string)
		a, _ := e["answer"].(string)
		q, a = strings.TrimSpace(q), strings.TrimSpace(a)
		if q == "" || a == "" {
			continue
		}
		cards = append(cards, models.GeneratedCard{Question: q, Answer: a})
	}
	if len(cards) == 0 {
		return nil, errNoValidCards
	}
	return cards, nil
}
