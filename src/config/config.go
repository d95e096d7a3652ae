package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/juju/errors"
	"gorm.io/gorm"

	"github.com/stake-plus/solana-dao-radar/src/data"
)

// Config is the process configuration. Environment variables fill it first;
// rows in the optional settings table then take precedence.
type Config struct {
	Port      string   `env:"PORT" envDefault:"8080"`
	LogLevel  string   `env:"LOG_LEVEL"`
	JWTSecret string   `env:"JWT_SECRET"`
	CORS      []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	AppURL    string   `env:"APP_URL" envDefault:"https://app.realms.today"`
	Admins    []string `env:"ADMIN_WALLETS" envSeparator:","`
	TLSCert   string   `env:"TLS_CERT_FILE"`
	TLSKey    string   `env:"TLS_KEY_FILE"`

	RPCURL      string        `env:"SOLANA_RPC_URL" envDefault:"https://api.mainnet-beta.solana.com"`
	WSURL       string        `env:"SOLANA_WS_URL"`
	ProgramID   string        `env:"GOVERNANCE_PROGRAM_ID" envDefault:"GovER5Lthms3bLBqWub97yVrMmEogzX7xNjdXpPPCVZw"`
	RPCTimeout  time.Duration `env:"RPC_TIMEOUT" envDefault:"10s"`
	Concurrency int           `env:"AGGREGATION_CONCURRENCY" envDefault:"3"`

	RegistryURL       string        `env:"REGISTRY_URL" envDefault:"https://raw.githubusercontent.com/solana-labs/governance-ui/main/public/realms/mainnet-beta.json"`
	RegistryImageBase string        `env:"REGISTRY_IMAGE_BASE" envDefault:"https://app.realms.today"`
	RegistryTTL       time.Duration `env:"REGISTRY_TTL" envDefault:"1h"`
	BrowseTTL         time.Duration `env:"BROWSE_TTL" envDefault:"30m"`

	ProxyCapacity int     `env:"RPC_PROXY_CAPACITY" envDefault:"100"`
	ProxyRefill   float64 `env:"RPC_PROXY_REFILL" envDefault:"50"`

	RedisURL string `env:"REDIS_URL"`
	MySQLDSN string `env:"MYSQL_DSN"`

	AI      AI
	Discord Discord
}

type AI struct {
	Provider     string `env:"AI_PROVIDER" envDefault:"groq"`
	Model        string `env:"AI_MODEL"`
	GroqKey      string `env:"GROQ_API_KEY"`
	OpenAIKey    string `env:"OPENAI_API_KEY"`
	AnthropicKey string `env:"ANTHROPIC_API_KEY"`
}

// Discord configures the optional new-proposal alert sink.
type Discord struct {
	Token     string `env:"DISCORD_TOKEN"`
	ChannelID string `env:"DISCORD_ALERT_CHANNEL"`
}

func (d Discord) Enabled() bool { return d.Token != "" && d.ChannelID != "" }

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return errors.Annotate(err, "parse env")
	}
	return nil
}

// Load parses the environment and, when db is non-nil, overlays the
// settings table on top of it.
func Load(db *gorm.DB) (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	if db != nil {
		if err := data.LoadSettings(db); err != nil {
			// env values still apply
			logger.Warningf("settings unavailable: %v", err)
		}
	}
	if err := applySettings(&cfg, data.GetSetting); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// applySettings overrides cfg with any non-empty values lookup returns.
func applySettings(cfg *Config, lookup func(name string) string) error {
	strs := map[string]*string{
		"solana_rpc_url":        &cfg.RPCURL,
		"solana_ws_url":         &cfg.WSURL,
		"governance_program_id": &cfg.ProgramID,
		"registry_url":          &cfg.RegistryURL,
		"registry_image_base":   &cfg.RegistryImageBase,
		"log_level":             &cfg.LogLevel,
		"app_url":               &cfg.AppURL,
		"ai_provider":           &cfg.AI.Provider,
		"ai_model":              &cfg.AI.Model,
		"groq_api_key":          &cfg.AI.GroqKey,
		"discord_token":         &cfg.Discord.Token,
		"discord_alert_channel": &cfg.Discord.ChannelID,
	}
	for name, dst := range strs {
		if v := strings.TrimSpace(lookup(name)); v != "" {
			*dst = v
		}
	}
	if v := strings.TrimSpace(lookup("cors_origins")); v != "" {
		cfg.CORS = splitList(v)
	}
	if v := strings.TrimSpace(lookup("admin_wallets")); v != "" {
		cfg.Admins = splitList(v)
	}

	durs := map[string]*time.Duration{
		"registry_ttl": &cfg.RegistryTTL,
		"browse_ttl":   &cfg.BrowseTTL,
		"rpc_timeout":  &cfg.RPCTimeout,
	}
	for name, dst := range durs {
		v := strings.TrimSpace(lookup(name))
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.NewNotValid(err, "setting "+name)
		}
		*dst = d
	}
	return nil
}

// Validate rejects values the services cannot start with.
func (c Config) Validate() error {
	switch {
	case c.Concurrency < 1:
		return errors.NotValidf("AGGREGATION_CONCURRENCY %d", c.Concurrency)
	case c.ProxyCapacity < 1:
		return errors.NotValidf("RPC_PROXY_CAPACITY %d", c.ProxyCapacity)
	case c.ProxyRefill <= 0:
		return errors.NotValidf("RPC_PROXY_REFILL %v", c.ProxyRefill)
	case c.RPCURL == "":
		return errors.NotValidf("empty SOLANA_RPC_URL")
	case (c.TLSCert == "") != (c.TLSKey == ""):
		return errors.NotValidf("unpaired TLS_CERT_FILE/TLS_KEY_FILE")
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
