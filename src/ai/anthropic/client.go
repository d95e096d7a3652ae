// Package anthropic is a core.Client over the Anthropic Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/juju/errors"

	"github.com/stake-plus/solana-dao-radar/src/ai/core"
	"github.com/stake-plus/solana-dao-radar/src/webclient"
)

const (
	apiURL            = "https://api.anthropic.com/v1/messages"
	apiVersion        = "2023-06-01"
	defaultModel      = "claude-3-5-haiku-latest"
	defaultMaxTokens  = 300
	defaultTemp       = 0.3
	requestTimeout    = 20 * time.Second
	retryAttempts     = 2
	retryBackoff      = time.Second
	jsonOnlyDirective = "Respond with a single JSON object and nothing else."

	ExtraBaseURL = "anthropic.base_url"
)

func init() {
	core.RegisterProvider("anthropic", NewClient, "claude")
}

type client struct {
	url        string
	apiKey     string
	httpClient *http.Client
	defaults   core.Options
}

// NewClient constructs an Anthropic-backed implementation of core.Client.
func NewClient(cfg core.FactoryConfig) (core.Client, error) {
	if strings.TrimSpace(cfg.AnthropicKey) == "" {
		return nil, core.ErrNoAPIKey
	}
	return &client{
		url:        cfg.ExtraOr(ExtraBaseURL, apiURL),
		apiKey:     cfg.AnthropicKey,
		httpClient: webclient.NewDefault(requestTimeout),
		defaults: core.Options{
			Model:               valueOrDefault(cfg.Model, defaultModel),
			Temperature:         orFloat(cfg.Temperature, defaultTemp),
			MaxCompletionTokens: orInt(cfg.MaxCompletionTokens, defaultMaxTokens),
		},
	}, nil
}

type textBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type turn struct {
	Role    string      `json:"role"`
	Content []textBlock `json:"content"`
}

type messagesRequest struct {
	Model       string  `json:"model"`
	System      string  `json:"system,omitempty"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Messages    []turn  `json:"messages"`
}

type messagesResponse struct {
	Content []textBlock `json:"content"`
}

// split moves system turns into the top-level system field the Messages
// API expects.
func split(messages []core.Message, jsonMode bool) (string, []turn) {
	var system []string
	var turns []turn
	for _, m := range messages {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		turns = append(turns, turn{Role: m.Role, Content: []textBlock{{Type: "text", Text: m.Content}}})
	}
	if jsonMode {
		system = append(system, jsonOnlyDirective)
	}
	return strings.Join(system, "\n\n"), turns
}

func (c *client) Complete(ctx context.Context, messages []core.Message, opts core.Options) (string, error) {
	system, turns := split(messages, opts.JSONMode)
	payload, err := json.Marshal(messagesRequest{
		Model:       valueOrDefault(opts.Model, c.defaults.Model),
		System:      system,
		MaxTokens:   orInt(opts.MaxCompletionTokens, c.defaults.MaxCompletionTokens),
		Temperature: orFloat(opts.Temperature, c.defaults.Temperature),
		Messages:    turns,
	})
	if err != nil {
		return "", errors.Trace(err)
	}

	_, body, err := webclient.DoWithRetry(ctx, retryAttempts, retryBackoff, func() (int, []byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
		if err != nil {
			return 0, nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("anthropic-version", apiVersion)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return 0, nil, err
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return resp.StatusCode, nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return resp.StatusCode, b, fmt.Errorf("status %d", resp.StatusCode)
		}
		return resp.StatusCode, b, nil
	})
	if err != nil {
		return "", errors.Annotate(err, "anthropic messages")
	}

	var result messagesResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", errors.Annotate(err, "decode anthropic response")
	}
	text := extractText(result.Content)
	if text == "" {
		return "", errors.New("anthropic: empty response")
	}
	return text, nil
}

func extractText(chunks []textBlock) string {
	var b strings.Builder
	for _, chunk := range chunks {
		if chunk.Text != "" {
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(chunk.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

func valueOrDefault(val, def string) string {
	if strings.TrimSpace(val) != "" {
		return val
	}
	return def
}

func orInt(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func orFloat(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}
