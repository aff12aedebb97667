package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	genai "google.golang.org/genai"

	"messenger/internal/pkg/logx"
)

// maxSuggestionLength drops suggestions too long to serve as a quick reply.
const maxSuggestionLength = 50

// fallbackSuggestions is the canned pair used when the model output cannot be parsed.
var fallbackSuggestions = []string{"Got it, thanks!", "Can you explain more?"}

// Gemini implements Generator using the Google GenAI SDK.
type Gemini struct {
	client         *genai.Client
	model          string
	maxSuggestions int
	logger         zerolog.Logger
}

// NewGemini creates a Gemini-backed generator for the given model. The
// maxSuggestions bound is fixed at construction.
func NewGemini(ctx context.Context, apiKey, model string, maxSuggestions int) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &Gemini{
		client:         client,
		model:          model,
		maxSuggestions: maxSuggestions,
		logger:         logx.Logger().With().Str("component", "assistant").Logger(),
	}, nil
}

// Reply answers a user message, degrading to ApologyReply on any fault.
func (g *Gemini) Reply(ctx context.Context, message string) string {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(message), nil)
	if err != nil {
		g.logger.Error().Err(err).Msg("Assistant reply generation failed")
		return ApologyReply
	}

	text := collectText(resp)
	if text == "" {
		g.logger.Warn().Msg("Assistant returned an empty reply")
		return ApologyReply
	}

	return text
}

// SuggestReplies proposes quick replies based on the most recent context
// messages. Generation faults return an empty list; parse faults return the
// canned fallback pair.
func (g *Gemini) SuggestReplies(ctx context.Context, contextMessages []ContextMessage) []string {
	recent := contextMessages
	if len(recent) > 2 {
		recent = recent[len(recent)-2:]
	}

	parts := make([]string, 0, len(recent))
	for _, m := range recent {
		parts = append(parts, m.Content)
	}

	prompt := fmt.Sprintf(`Generate %d concise, appropriate, and context-aware reply suggestions based on this conversation context:

Context: %s

Please provide short, natural responses that someone might use as a quick reply. Ensure they are:
1. Contextually relevant
2. Polite
3. Brief (under 30 words)
4. Actionable or responsive to the conversation

Format your response as a JSON array of strings.`, g.maxSuggestions, strings.Join(parts, " "))

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		g.logger.Error().Err(err).Msg("Smart reply generation failed")
		return []string{}
	}

	return g.parseSuggestions(collectText(resp))
}

// parseSuggestions extracts a suggestion list from the model's output,
// tolerating markdown fences and falling back to line splitting, then to the
// canned pair.
func (g *Gemini) parseSuggestions(text string) []string {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var suggestions []string
	if err := json.Unmarshal([]byte(trimmed), &suggestions); err != nil {
		if trimmed == "" {
			return append([]string{}, fallbackSuggestions...)
		}
		suggestions = strings.Split(trimmed, "\n")
	}

	cleaned := make([]string, 0, g.maxSuggestions)
	for _, s := range suggestions {
		s = strings.Trim(strings.TrimSpace(s), `"`)
		if s == "" || len(s) > maxSuggestionLength {
			continue
		}
		cleaned = append(cleaned, s)
		if len(cleaned) == g.maxSuggestions {
			break
		}
	}

	if len(cleaned) == 0 {
		return append([]string{}, fallbackSuggestions...)
	}

	return cleaned
}

// collectText concatenates the text parts of the first candidate.
func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil {
			continue
		}
		b.WriteString(part.Text)
	}

	return strings.TrimSpace(b.String())
}
