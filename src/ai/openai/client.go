// Package openai is a chat-completions client for OpenAI and the
// providers that expose the same wire format.
package openai

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
	providerKey           = "openai"
	apiURL                = "https://api.openai.com/v1/chat/completions"
	defaultModel          = "gpt-4o-mini"
	defaultMaxTokens      = 300
	defaultTemperature    = 0.3
	defaultRequestTimeout = 15 * time.Second
	defaultRetryAttempts  = 2
	defaultRetryBackoff   = time.Second

	// ExtraBaseURL overrides the endpoint, e.g. for a proxy or a test server.
	ExtraBaseURL = "openai.base_url"
)

func init() {
	core.RegisterProvider(providerKey, func(cfg core.FactoryConfig) (core.Client, error) {
		return NewClient(Endpoint{URL: cfg.ExtraOr(ExtraBaseURL, apiURL), Key: cfg.OpenAIKey, DefaultModel: defaultModel}, cfg)
	})
}

// Endpoint names a chat-completions compatible service.
type Endpoint struct {
	URL          string
	Key          string
	DefaultModel string
}

type client struct {
	endpoint   Endpoint
	httpClient *http.Client
	defaults   core.Options
}

// NewClient builds a client for endpoint with cfg's model settings.
func NewClient(endpoint Endpoint, cfg core.FactoryConfig) (core.Client, error) {
	if strings.TrimSpace(endpoint.Key) == "" {
		return nil, core.ErrNoAPIKey
	}
	return &client{
		endpoint:   endpoint,
		httpClient: webclient.NewDefault(defaultRequestTimeout),
		defaults: core.Options{
			Model:               valueOrDefault(cfg.Model, endpoint.DefaultModel),
			Temperature:         orFloat(cfg.Temperature, defaultTemperature),
			MaxCompletionTokens: orInt(cfg.MaxCompletionTokens, defaultMaxTokens),
		},
	}, nil
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []core.Message    `json:"messages"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (r completionResponse) FirstMessage() string {
	for _, choice := range r.Choices {
		content := strings.TrimSpace(choice.Message.Content)
		if content != "" {
			return content
		}
	}
	return ""
}

func (c *client) Complete(ctx context.Context, messages []core.Message, opts core.Options) (string, error) {
	req := chatRequest{
		Model:       valueOrDefault(opts.Model, c.defaults.Model),
		Messages:    messages,
		Temperature: orFloat(opts.Temperature, c.defaults.Temperature),
		MaxTokens:   orInt(opts.MaxCompletionTokens, c.defaults.MaxCompletionTokens),
	}
	if opts.JSONMode {
		req.ResponseFormat = map[string]string{"type": "json_object"}
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return "", errors.Trace(err)
	}

	_, body, err := webclient.DoWithRetry(ctx, defaultRetryAttempts, defaultRetryBackoff, func() (int, []byte, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.URL, bytes.NewReader(payload))
		if err != nil {
			return 0, nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.endpoint.Key)
		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return 0, nil, err
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return resp.StatusCode, nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return resp.StatusCode, b, fmt.Errorf("status %d: %s", resp.StatusCode, truncateErrorBody(b))
		}
		return resp.StatusCode, b, nil
	})
	if err != nil {
		return "", errors.Annotate(err, "chat completion")
	}

	var result completionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", errors.Annotate(err, "decode chat completion")
	}
	text := result.FirstMessage()
	if text == "" {
		return "", errors.New("chat completion: empty response")
	}
	return text, nil
}

func truncateErrorBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return "no response body"
	}
	const limit = 300
	if len(text) > limit {
		return text[:limit] + "..."
	}
	return text
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
