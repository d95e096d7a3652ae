package groq

import (
	"github.com/stake-plus/solana-dao-radar/src/ai/core"
	"github.com/stake-plus/solana-dao-radar/src/ai/openai"
)

const (
	apiURL       = "https://api.groq.com/openai/v1/chat/completions"
	defaultModel = "llama-3.1-8b-instant"

	ExtraBaseURL = "groq.base_url"
)

func init() {
	core.RegisterProvider("groq", newClient)
}

func newClient(cfg core.FactoryConfig) (core.Client, error) {
	return openai.NewClient(openai.Endpoint{
		URL:          cfg.ExtraOr(ExtraBaseURL, apiURL),
		Key:          cfg.GroqKey,
		DefaultModel: defaultModel,
	}, cfg)
}
