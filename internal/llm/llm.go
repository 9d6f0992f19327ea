// Package llm talks to an OpenAI-compatible chat completion API to produce
// answer feedback and interview questions.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pavelanni/interviewer/internal/llm/prompts"
	"github.com/pavelanni/interviewer/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

const (
	feedbackSystemPrompt = "You are an expert interview coach providing helpful feedback."
	questionSystemPrompt = "You are an expert interviewer creating high-quality interview questions."
)

// Config holds the connection and prompt settings of a Client.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Variant prompts.PromptVariant
	Retry   RetryConfig
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api     *openai.Client
	model   string
	variant prompts.PromptVariant
	retry   RetryConfig
}

// New creates a new LLM client and loads the prompt templates.
func New(cfg Config) (*Client, error) {
	if cfg.Variant == "" {
		cfg.Variant = prompts.PromptStandard
	}
	if !prompts.IsValidVariant(string(cfg.Variant)) {
		return nil, fmt.Errorf("invalid feedback variant %q", cfg.Variant)
	}
	if err := prompts.Load(prompts.Templates); err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	return &Client{
		api:     openai.NewClientWithConfig(config),
		model:   cfg.Model,
		variant: cfg.Variant,
		retry:   cfg.Retry,
	}, nil
}

// Ping checks that the API is reachable by listing models.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return mapError(err)
	}
	return nil
}

// GenerateFeedback asks the model for 2-3 sentences of coaching on an answer.
func (c *Client) GenerateFeedback(ctx context.Context, q model.Question, answer string) (string, error) {
	prompt, err := prompts.BuildFeedbackPrompt(c.variant, q, answer)
	if err != nil {
		return "", fmt.Errorf("build feedback prompt: %w", err)
	}
	return c.complete(ctx, "feedback", openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: feedbackSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.7,
		MaxTokens:   200,
	})
}

// GenerateQuestion asks the model for one question and returns the raw
// response text. The caller parses and validates it.
func (c *Client) GenerateQuestion(ctx context.Context, d prompts.QuestionData) (string, error) {
	prompt, err := prompts.BuildQuestionPrompt(d)
	if err != nil {
		return "", fmt.Errorf("build question prompt: %w", err)
	}
	return c.complete(ctx, "question", openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: questionSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.8,
		MaxTokens:   500,
	})
}

func (c *Client) complete(ctx context.Context, op string, req openai.ChatCompletionRequest) (string, error) {
	return retry(ctx, c.retry, op, func(ctx context.Context) (string, error) {
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return "", err
			}
			return "", mapError(err)
		}
		if len(resp.Choices) == 0 {
			return "", &ErrInvalidResponse{Err: errors.New("no choices in response")}
		}
		raw := strings.TrimSpace(resp.Choices[0].Message.Content)
		slog.Debug("LLM response", "op", op, "raw", raw)
		if raw == "" {
			return "", &ErrInvalidResponse{Err: errors.New("empty content")}
		}
		return raw, nil
	})
}
