package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/hyunseo/mediascan/internal/models"
)

// UsageCounter tracks remote calls against the daily quota. Every
// attempted call increments it exactly once.
type UsageCounter interface {
	Increment() (int, error)
}

// Config holds the client settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	TopP        float32
	MaxTokens   int
	Language    string
}

// Client talks to the multimodal analysis service.
type Client struct {
	client *openai.Client
	cfg    Config
	usage  UsageCounter
	logger *zap.Logger
}

// NewClient creates a new analysis client. usage may be nil.
func NewClient(cfg Config, usage UsageCounter, logger *zap.Logger) *Client {
	var c *openai.Client
	if cfg.APIKey != "" {
		oc := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			oc.BaseURL = cfg.BaseURL
		}
		c = openai.NewClientWithConfig(oc)
	}
	return &Client{client: c, cfg: cfg, usage: usage, logger: logger}
}

// Enabled reports whether a credential is configured. When false the
// pipeline synthesizes a placeholder analysis instead of calling out.
func (c *Client) Enabled() bool {
	return c.client != nil
}

// Language returns the configured display language.
func (c *Client) Language() string {
	return c.cfg.Language
}

func (c *Client) trackUsage() {
	if c.usage == nil {
		return
	}
	if _, err := c.usage.Increment(); err != nil {
		c.logger.Warn("Failed to increment usage counter", zap.Error(err))
	}
}

// Analyze submits one media file for primary analysis and returns the raw
// response text. Callers parse it with ParseAnalysis.
func (c *Client) Analyze(ctx context.Context, rec models.FileRecord, data []byte, instr models.SystemInstructions, imageOCREnabled bool) (string, error) {
	if c.client == nil {
		return "", fmt.Errorf("no API credential configured")
	}

	systemInstruction := BuildSystemInstruction(rec, instr, c.cfg.Language)
	taskPrompt := BuildTaskPrompt(rec.MediaType, imageOCREnabled)

	c.trackUsage()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
		TopP:        c.cfg.TopP,
		MaxTokens:   c.cfg.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemInstruction,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL(rec.MimeType, data),
							Detail: openai.ImageURLDetailHigh,
						},
					},
					{
						Type: openai.ChatMessagePartTypeText,
						Text: taskPrompt,
					},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("analysis call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from analysis service")
	}
	return resp.Choices[0].Message.Content, nil
}

// Generate runs a secondary generation call (chat turns and studio tasks)
// over the same media file.
func (c *Client) Generate(ctx context.Context, rec models.FileRecord, data []byte, systemInstruction, prompt string, jsonOnly bool) (string, error) {
	if c.client == nil {
		return "", fmt.Errorf("no API credential configured")
	}

	c.trackUsage()

	req := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemInstruction,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: dataURL(rec.MimeType, data),
						},
					},
					{
						Type: openai.ChatMessagePartTypeText,
						Text: prompt,
					},
				},
			},
		},
	}
	if jsonOnly {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("generation call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from analysis service")
	}
	return resp.Choices[0].Message.Content, nil
}

// IsQuotaError detects rate-limit and quota failures by the substrings
// the service puts in its error messages.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota")
}

func dataURL(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}
