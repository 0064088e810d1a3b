// Package llm sends assembled prompts to a chat model.
package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Generator produces a completion for a single prompt.
type Generator interface {
	Generate(prompt string) (string, error)
}

// OllamaChat answers prompts through the Ollama /api/chat endpoint, one
// user turn per prompt.
type OllamaChat struct {
	endpoint string
	model    string
	client   *http.Client
}

func NewOllamaChat(baseURL, model string) *OllamaChat {
	return &OllamaChat{
		endpoint: strings.TrimRight(baseURL, "/") + "/api/chat",
		model:    model,
		client:   &http.Client{Timeout: 5 * time.Minute},
	}
}

type turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generate sends prompt as the only user turn of a non-streaming chat and
// returns the reply text.
func (c *OllamaChat) Generate(prompt string) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"model":    c.model,
		"stream":   false,
		"messages": []turn{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("encode prompt: %w", err)
	}

	resp, err := c.client.Post(c.endpoint, "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("ollama %s: %w", c.model, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("ollama %s: status %d: %s", c.model, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var reply struct {
		Message turn `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return "", fmt.Errorf("decode ollama reply: %w", err)
	}
	return reply.Message.Content, nil
}
