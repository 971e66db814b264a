package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/mfeldheim/hindsight/internal/config"
)

// maxTitlePromptChars bounds the transcript excerpt sent to the model.
const maxTitlePromptChars = 2000

// Titler generates short conversation titles from transcript excerpts.
type Titler struct {
	llm       llms.Model
	modelName string
}

// NewTitler creates a title generator based on configuration. Returns
// (nil, nil) when no LLM provider is configured; callers treat a nil
// Titler as "title backfill disabled".
func NewTitler(cfg config.Config) (*Titler, error) {
	var model llms.Model
	var err error

	switch cfg.LLMProvider {
	case config.ProviderNone, "":
		return nil, nil

	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.LLMModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	return &Titler{
		llm:       model,
		modelName: cfg.LLMModel,
	}, nil
}

// Model returns the LLM model name.
func (t *Titler) Model() string {
	return t.modelName
}

// GenerateTitle produces a one-line title for a conversation excerpt.
func (t *Titler) GenerateTitle(ctx context.Context, excerpt string) (string, error) {
	if len(excerpt) > maxTitlePromptChars {
		excerpt = excerpt[:maxTitlePromptChars]
	}

	systemPrompt := `You write short titles for coding-assistant conversations.
Given a transcript excerpt, answer with a single title of at most 8 words.
No quotes, no trailing punctuation, no explanation.`

	userPrompt := fmt.Sprintf("Transcript excerpt:\n%s\n\nTitle:", excerpt)

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	response, err := t.llm.GenerateContent(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("generate title: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	return CleanTitle(response.Choices[0].Content), nil
}

// CleanTitle normalizes model output into a usable single-line title.
func CleanTitle(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.Trim(s, `"'`)
	s = strings.TrimSuffix(s, ".")
	return strings.TrimSpace(s)
}
