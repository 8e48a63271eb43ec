// Package analysis infers attributes the rule-based extraction cannot
// settle, such as a spending category or a merchant name buried in noisy
// text, using an OpenAI chat model. It is strictly an enrichment stage: the
// resolver consults it only for low-confidence records and absorbs every
// failure.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"invscan/internal/logger"
	"invscan/internal/resolve"
)

// AnalyzerConfig configures the text analyzer.
type AnalyzerConfig struct {
	Model       string  // gpt-4o-mini, gpt-4, gpt-3.5-turbo
	Temperature float32 // sampling temperature
	MaxRetries  int     // request retry attempts
}

// OpenAIAnalyzer implements resolve.Analyzer with an OpenAI chat model.
type OpenAIAnalyzer struct {
	client *openai.Client
	config AnalyzerConfig
	log    zerolog.Logger
}

// Known spending categories the model is asked to choose from. Free-form
// model output would fragment downstream reporting.
var knownCategories = []string{
	"Meals", "Groceries", "Transport", "Office Supplies",
	"Utilities", "Entertainment", "Health", "Travel", "Uncategorized",
}

// NewOpenAIAnalyzer creates an analyzer with configuration from environment.
// Requires OPENAI_API_KEY; OPENAI_MODEL, OPENAI_TEMPERATURE and
// ANALYSIS_MAX_RETRIES are optional.
func NewOpenAIAnalyzer() (*OpenAIAnalyzer, error) {
	const op = "NewOpenAIAnalyzer"

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("%s: OPENAI_API_KEY environment variable is required", op)
	}

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
	}

	config := AnalyzerConfig{
		Model:       model,
		Temperature: parseFloatEnv("OPENAI_TEMPERATURE", 0.1),
		MaxRetries:  parseIntEnv("ANALYSIS_MAX_RETRIES", 3),
	}

	return NewOpenAIAnalyzerWithDeps(openai.NewClient(apiKey), config), nil
}

// NewOpenAIAnalyzerWithDeps creates an analyzer with explicit dependencies.
func NewOpenAIAnalyzerWithDeps(client *openai.Client, config AnalyzerConfig) *OpenAIAnalyzer {
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	return &OpenAIAnalyzer{
		client: client,
		config: config,
		log:    logger.WithComponent("analysis"),
	}
}

// Suggest implements resolve.Analyzer. Responses that are not valid JSON are
// retried up to the configured limit.
func (a *OpenAIAnalyzer) Suggest(ctx context.Context, text string) (*resolve.Suggestion, error) {
	const op = "Suggest"

	var lastErr error
	for attempt := 1; attempt <= a.config.MaxRetries; attempt++ {
		resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       a.config.Model,
			Temperature: a.config.Temperature,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt()},
				{Role: openai.ChatMessageRoleUser, Content: userPrompt(text)},
			},
			MaxTokens: 300,
		})
		if err != nil {
			lastErr = err
			a.log.Warn().
				Err(err).
				Int("attempt", attempt).
				Int("max_retries", a.config.MaxRetries).
				Msg("analysis request failed, retrying")
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("no response choices")
			continue
		}

		content := resp.Choices[0].Message.Content

		// Models occasionally wrap JSON in a code fence despite instructions.
		var raw map[string]interface{}
		if err := json.Unmarshal([]byte(stripCodeFence(content)), &raw); err != nil {
			lastErr = fmt.Errorf("failed to parse analysis response: %w", err)
			a.log.Warn().
				Err(err).
				Str("response", content).
				Int("attempt", attempt).
				Msg("unparseable analysis response, retrying")
			continue
		}

		suggestion := &resolve.Suggestion{
			Category: normalizeCategory(getString(raw, "category")),
			Merchant: strings.TrimSpace(getString(raw, "merchant")),
		}

		a.log.Debug().
			Str("category", suggestion.Category).
			Str("merchant", suggestion.Merchant).
			Int("attempt", attempt).
			Msg("analysis completed")

		return suggestion, nil
	}

	return nil, fmt.Errorf("%s: all %d attempts failed, last error: %w", op, a.config.MaxRetries, lastErr)
}

func systemPrompt() string {
	return fmt.Sprintf(`You analyze receipt and invoice text, which may be in Chinese or English.
Identify the merchant name and choose the single best spending category from this list: %s.

IMPORTANT: Return ONLY valid JSON with NO trailing commas and no text before or after it:
{"merchant": "merchant name or empty string", "category": "one category from the list"}`,
		strings.Join(knownCategories, ", "))
}

func userPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Document text:\n")
	b.WriteString(text)
	b.WriteString("\n\nReturn the JSON object only.")
	return b.String()
}

// normalizeCategory maps model output onto the known category list,
// case-insensitively. Anything else becomes empty so the resolver keeps its
// default.
func normalizeCategory(category string) string {
	trimmed := strings.TrimSpace(category)
	for _, known := range knownCategories {
		if strings.EqualFold(trimmed, known) {
			return known
		}
	}
	return ""
}

// stripCodeFence removes a surrounding markdown code fence if present.
func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}

// getString safely extracts a string value from a map[string]interface{}.
func getString(m map[string]interface{}, key string) string {
	if value, exists := m[key]; exists && value != nil {
		if str, ok := value.(string); ok {
			return str
		}
	}
	return ""
}

func parseIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func parseFloatEnv(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(parsed)
		}
	}
	return defaultValue
}
