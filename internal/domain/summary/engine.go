package summary

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/AnjaneyaBhardwaj/Deafine/internal/platform/logging"
)

// Engine produces an abstractive summary for a block of transcript
// text. Engines may fail; the summarizer falls back to extractive
// output on any error.
type Engine interface {
	Summarize(ctx context.Context, systemPrompt, text string) (string, error)
}

// Config tunes the AI summary engine.
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
}

// NewEngine returns the OpenAI engine when an API key is configured,
// nil otherwise. A nil engine means summaries are purely extractive;
// the capability is settled here at startup, never mid-session.
func NewEngine(config Config, logger *logging.Logger) Engine {
	if config.APIKey == "" {
		logger.InfoTag("SUMMARY", "no OpenAI key configured, summaries will be extractive")
		return nil
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	logger.InfoTag("SUMMARY", "OpenAI engine ready, model=%s", config.Model)
	return &openAIEngine{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       config.Model,
		maxTokens:   config.MaxTokens,
		temperature: config.Temperature,
	}
}

type openAIEngine struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

func (e *openAIEngine) Summarize(ctx context.Context, systemPrompt, text string) (string, error) {
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		MaxTokens:   e.maxTokens,
		Temperature: e.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
