package coach

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	DefaultEndpoint = "http://localhost:11434/api/generate"
	DefaultModel    = "gpt-oss:20b"
)

// DefaultContext is prepended to every prompt
const DefaultContext = "You are a master folkstyle wrestling coach and you need to give instructions and tips " +
	"to positions you see based on joint angles (degrees) given to you and questions that you may be asked. " +
	"You also may need to answer questions. Keep your response very short, within a sentence to three sentences. " +
	"Reply quickly. Reply in a way that makes sense if read out loud.\n"

// Generator produces a text completion for a prompt
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Client talks to an Ollama-compatible /api/generate endpoint
type Client struct {
	Endpoint string
	Model    string
	Context  string

	http *http.Client
}

// NewClient returns a client with the default context prefix
func NewClient(endpoint, model string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		Endpoint: endpoint,
		Model:    model,
		Context:  DefaultContext,
		http:     &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// Generate implements Generator
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.Model,
		Prompt: c.Context + prompt,
		Stream: false,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var out generateResponse
	if resp.StatusCode/100 != 2 {
		if json.Unmarshal(data, &out) == nil && out.Error != "" {
			return "", fmt.Errorf("generate failed (%d): %s", resp.StatusCode, out.Error)
		}
		return "", fmt.Errorf("generate failed: %s", resp.Status)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("invalid response: %w", err)
	}
	return out.Response, nil
}
