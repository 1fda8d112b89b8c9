// Package voice talks to the hosted voice-call vendor.
//
// The vendor owns the real-time audio transport. This package only starts and
// stops calls over its REST API; call events come back to the service as
// webhook deliveries handled by the call package.
package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrNotConfigured is returned by every call when no API key is set.
var ErrNotConfigured = errors.New("voice: vendor API key not configured")

const defaultTimeout = 15 * time.Second

// StartRequest describes a call to start. Exactly one of WorkflowID and
// Assistant is set.
type StartRequest struct {
	WorkflowID string
	Assistant  *Assistant
	Variables  map[string]string
	// ServerURL receives the vendor's event webhooks for this call.
	ServerURL string
	Metadata  map[string]string
}

// Client is a small REST client for the vendor's call API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Client. An empty apiKey yields a client whose calls
// fail with ErrNotConfigured so the server can still start.
func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	httpClient := &http.Client{
		Timeout:   defaultTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger,
	}
}

type startPayload struct {
	WorkflowID string            `json:"workflowId,omitempty"`
	Assistant  *assistantPayload `json:"assistant,omitempty"`
	Overrides  *overridesPayload `json:"assistantOverrides,omitempty"`
	ServerURL  string            `json:"serverUrl,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type overridesPayload struct {
	VariableValues map[string]string `json:"variableValues"`
}

type assistantPayload struct {
	Name         string       `json:"name"`
	FirstMessage string       `json:"firstMessage"`
	Transcriber  Transcriber  `json:"transcriber"`
	Voice        Voice        `json:"voice"`
	Model        modelPayload `json:"model"`
}

type modelPayload struct {
	Provider string           `json:"provider"`
	Model    string           `json:"model"`
	Messages []messagePayload `json:"messages"`
}

type messagePayload struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type startResponse struct {
	ID string `json:"id"`
}

func newAssistantPayload(a *Assistant) *assistantPayload {
	return &assistantPayload{
		Name:         a.Name,
		FirstMessage: a.FirstMessage,
		Transcriber:  a.Transcriber,
		Voice:        a.Voice,
		Model: modelPayload{
			Provider: a.Model.Provider,
			Model:    a.Model.Model,
			Messages: []messagePayload{{Role: "system", Content: a.Model.SystemPrompt}},
		},
	}
}

// Start asks the vendor to start a call and returns the vendor call ID.
func (c *Client) Start(ctx context.Context, req StartRequest) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}
	if (req.WorkflowID == "") == (req.Assistant == nil) {
		return "", errors.New("voice: exactly one of workflow id or assistant is required")
	}

	payload := startPayload{
		WorkflowID: req.WorkflowID,
		ServerURL:  req.ServerURL,
		Metadata:   req.Metadata,
	}
	if req.Assistant != nil {
		payload.Assistant = newAssistantPayload(req.Assistant)
	}
	if len(req.Variables) > 0 {
		payload.Overrides = &overridesPayload{VariableValues: req.Variables}
	}

	var resp startResponse
	if err := c.do(ctx, http.MethodPost, "/call", payload, &resp); err != nil {
		return "", fmt.Errorf("voice: starting call: %w", err)
	}
	if resp.ID == "" {
		return "", errors.New("voice: vendor returned no call id")
	}

	c.logger.Info("voice call started", slog.String("callID", resp.ID))
	return resp.ID, nil
}

// Stop ends a call.
func (c *Client) Stop(ctx context.Context, callID string) error {
	if c.apiKey == "" {
		return ErrNotConfigured
	}
	if callID == "" {
		return errors.New("voice: call id is required")
	}
	if err := c.do(ctx, http.MethodPost, "/call/"+url.PathEscape(callID)+"/stop", nil, nil); err != nil {
		return fmt.Errorf("voice: stopping call %s: %w", callID, err)
	}
	c.logger.Info("voice call stopped", slog.String("callID", callID))
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("vendor returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
