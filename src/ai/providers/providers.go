// Package providers registers every built-in AI provider with core.
package providers

import (
	_ "github.com/stake-plus/solana-dao-radar/src/ai/anthropic"
	_ "github.com/stake-plus/solana-dao-radar/src/ai/groq"
	_ "github.com/stake-plus/solana-dao-radar/src/ai/openai"
)
