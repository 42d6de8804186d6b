package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/parley/pkg/domain"
	openaisdk "github.com/openai/openai-go"
)

// Bot describes the intents a bot id may classify into.
type Bot struct {
	Intents []string
	// Slots names the values to extract, e.g. "date" or "number".
	Slots []string
}

const systemPrompt = `You classify a single customer utterance for a contact centre.
Reply with one JSON object and nothing else:
{"intent": "<one of the allowed intents>", "confidence": <0..1>, "slots": {"<slot>": "<value>"}}
Use "fallback" when no allowed intent fits and "nodata" when the utterance carries no information.
Normalise dates to YYYY-MM-DD, times to HH:MM and numbers to plain digits.`

// Classifier implements ports.Classifier with chat completions.
type Classifier struct {
	client *openaisdk.Client
	model  string

	mu   sync.RWMutex
	bots map[string]Bot
}

// NewClassifier creates a classifier using model.
func NewClassifier(client *openaisdk.Client, model string) *Classifier {
	return &Classifier{
		client: client,
		model:  model,
		bots:   make(map[string]Bot),
	}
}

// RegisterBot declares the intents and slots of botID.
func (c *Classifier) RegisterBot(botID string, bot Bot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bots[botID] = bot
}

type classification struct {
	Intent     string         `json:"intent"`
	Confidence float64        `json:"confidence"`
	Slots      map[string]any `json:"slots"`
}

// Classify asks the model for an intent. Sentinel inputs never reach the model.
func (c *Classifier) Classify(ctx context.Context, botID, text, sessionID string) (*domain.Classification, error) {
	switch strings.TrimSpace(text) {
	case "", domain.InputNoInput:
		return &domain.Classification{Intent: domain.IntentNoData}, nil
	case domain.InputNoMatch:
		return &domain.Classification{Intent: domain.IntentFallback}, nil
	}

	c.mu.RLock()
	bot, ok := c.bots[botID]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown bot %q", botID)
	}

	resp, err := c.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(c.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(systemPrompt),
			openaisdk.UserMessage(userPrompt(bot, text)),
		},
		Temperature: openaisdk.Float(0),
		User:        openaisdk.String(sessionID),
	})
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("classify: empty response")
	}
	return parseClassification(resp.Choices[0].Message.Content, bot)
}

func userPrompt(bot Bot, text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Allowed intents: %s\n", strings.Join(bot.Intents, ", "))
	if len(bot.Slots) > 0 {
		fmt.Fprintf(&b, "Slots to extract: %s\n", strings.Join(bot.Slots, ", "))
	}
	fmt.Fprintf(&b, "Utterance: %q", text)
	return b.String()
}

// parseClassification reads the first JSON object in content. Intents outside
// the bot's list collapse to fallback.
func parseClassification(content string, bot Bot) (*domain.Classification, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("classify: no JSON object in response %q", content)
	}

	var raw classification
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("classify: decode response: %w", err)
	}

	out := &domain.Classification{
		Intent:     strings.TrimSpace(raw.Intent),
		Confidence: min(max(raw.Confidence, 0), 1),
	}
	if out.Intent != domain.IntentNoData && out.Intent != domain.IntentFallback && !allowed(bot.Intents, out.Intent) {
		out.Intent = domain.IntentFallback
	}
	if len(raw.Slots) > 0 {
		keys := make([]string, 0, len(raw.Slots))
		for k := range raw.Slots {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out.Slots = make(map[string]string, len(keys))
		for _, k := range keys {
			if v := domain.ToString(raw.Slots[k]); v != "" {
				out.Slots[k] = v
			}
		}
	}
	return out, nil
}

func allowed(intents []string, intent string) bool {
	if len(intents) == 0 {
		return true
	}
	for _, i := range intents {
		if strings.EqualFold(i, intent) {
			return true
		}
	}
	return false
}
