// Package gemini implements llm.Generator on Google's Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/sakif/interview-me/internal/llm"
)

const DefaultModel = "gemini-2.0-flash"

// Client talks to Gemini through the genai SDK.
type Client struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// New creates a client. Close it on shutdown.
func New(ctx context.Context, apiKey, model string, logger *slog.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, llm.ErrNotConfigured
	}
	if model == "" {
		model = DefaultModel
	}
	c, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}
	return &Client{client: c, model: model, logger: logger}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) GenerateQuestions(ctx context.Context, req llm.QuestionRequest) ([]string, error) {
	text, err := c.generate(ctx, llm.QuestionsPrompt(req))
	if err != nil {
		return nil, err
	}
	return llm.ParseQuestions(text, req.Amount)
}

func (c *Client) GenerateFeedback(ctx context.Context, req llm.FeedbackRequest) (*llm.FeedbackDraft, error) {
	text, err := c.generate(ctx, llm.FeedbackPrompt(req))
	if err != nil {
		return nil, err
	}
	return llm.ParseFeedback(text)
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	m := c.client.GenerativeModel(c.model)
	m.SetTemperature(0.2)
	m.ResponseMIMEType = "application/json"

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini: generating content: %w", err)
	}
	return responseText(resp)
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini: no content generated")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if b.Len() == 0 {
		return "", errors.New("gemini: response has no text")
	}
	return b.String(), nil
}
