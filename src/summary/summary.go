// Package summary produces short plain-English summaries of proposals,
// degrading to a truncated description when no model is available.
package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/microcosm-cc/bluemonday"

	"github.com/stake-plus/solana-dao-radar/src/ai/core"
	"github.com/stake-plus/solana-dao-radar/src/cache"
)

var logger = loggo.GetLogger("daoradar.summary")

const (
	MaxTitle       = 500
	MaxDescription = 10000
	UnknownImpact  = "Unknown"

	fallbackChars   = 200
	rawContentChars = 300
	maxSummary      = 1200
	maxImpact       = 200
	cacheTTL        = time.Hour

	systemPrompt = `You are a governance proposal analyst. Summarize the following DAO proposal in plain English. Return JSON with "summary" (2-3 sentences) and "impact" (Low/Medium/High with brief reason). Only return valid JSON, nothing else.`
)

type Result struct {
	Summary string `json:"summary"`
	Impact  string `json:"impact"`
}

type Service struct {
	client core.Client
	store  cache.Store
	policy *bluemonday.Policy
}

// NewService returns a summariser. A nil client runs in fallback mode; a
// nil store disables caching.
func NewService(client core.Client, store cache.Store) *Service {
	s := &Service{client: client, policy: bluemonday.StrictPolicy()}
	if store != nil {
		s.store = cache.Prefixed(store, "summary")
	}
	return s
}

// Summarize never fails on upstream trouble; only empty input is an error.
func (s *Service) Summarize(ctx context.Context, title, description string) (Result, error) {
	title = truncate(strings.TrimSpace(title), MaxTitle)
	description = truncate(strings.TrimSpace(description), MaxDescription)
	if title == "" && description == "" {
		return Result{}, errors.NotValidf("empty title and description")
	}
	if s.client == nil {
		return fallback(title, description), nil
	}

	key := cache.HashKey(title, truncate(description, fallbackChars))
	if r, ok := s.cached(ctx, key); ok {
		return r, nil
	}

	content, err := s.client.Complete(ctx, []core.Message{
		core.System(systemPrompt),
		core.User(fmt.Sprintf("Proposal Title: %s\n\nProposal Description:\n%s", title, description)),
	}, core.Options{JSONMode: true})
	if err != nil {
		logger.Warningf("summarize %q: %v", title, err)
		return fallback(title, description), nil
	}

	r := s.parse(content, title)
	s.remember(ctx, key, r)
	return r, nil
}

func fallback(title, description string) Result {
	if description != "" {
		return Result{Summary: truncate(description, fallbackChars), Impact: UnknownImpact}
	}
	return Result{Summary: title, Impact: UnknownImpact}
}

// parse treats model output as untrusted: tags are stripped and lengths clamped.
func (s *Service) parse(content, title string) Result {
	var raw struct {
		Summary any `json:"summary"`
		Impact  any `json:"impact"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		summary := s.clean(truncate(content, rawContentChars))
		if summary == "" {
			summary = title
		}
		return Result{Summary: summary, Impact: UnknownImpact}
	}
	r := Result{
		Summary: s.clean(truncate(text(raw.Summary), maxSummary)),
		Impact:  s.clean(truncate(text(raw.Impact), maxImpact)),
	}
	if r.Summary == "" {
		r.Summary = title
	}
	if r.Impact == "" {
		r.Impact = UnknownImpact
	}
	return r
}

// text accepts a string field, or renders whatever else the model returned.
func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	}
	b, _ := json.Marshal(v)
	return string(b)
}

// clean strips markup. The result is plain text, so entities are decoded again.
func (s *Service) clean(v string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(v)))
}

func (s *Service) cached(ctx context.Context, key string) (Result, bool) {
	if s.store == nil {
		return Result{}, false
	}
	b, ok, err := s.store.Get(ctx, key)
	if err != nil || !ok {
		return Result{}, false
	}
	var r Result
	if json.Unmarshal(b, &r) != nil {
		return Result{}, false
	}
	return r, true
}

func (s *Service) remember(ctx context.Context, key string, r Result) {
	if s.store == nil {
		return
	}
	b, err := json.Marshal(r)
	if err != nil {
		return
	}
	if err := s.store.Set(ctx, key, b, cacheTTL); err != nil {
		logger.Warningf("cache summary: %v", err)
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
