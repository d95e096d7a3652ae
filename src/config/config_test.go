package config

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/juju/errors"

	"github.com/stake-plus/solana-dao-radar/src/data"
)

func TestLoadDefaults(t *testing.T) {
	c := qt.New(t)
	cfg, err := Load(nil)
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Port, qt.Equals, "8080")
	c.Assert(cfg.RPCURL, qt.Equals, "https://api.mainnet-beta.solana.com")
	c.Assert(cfg.ProgramID, qt.Equals, "GovER5Lthms3bLBqWub97yVrMmEogzX7xNjdXpPPCVZw")
	c.Assert(cfg.Concurrency, qt.Equals, 3)
	c.Assert(cfg.RegistryTTL, qt.Equals, time.Hour)
	c.Assert(cfg.BrowseTTL, qt.Equals, 30*time.Minute)
	c.Assert(cfg.ProxyCapacity, qt.Equals, 100)
	c.Assert(cfg.ProxyRefill, qt.Equals, 50.0)
	c.Assert(cfg.AI.Provider, qt.Equals, "groq")
	c.Assert(cfg.Discord.Enabled(), qt.IsFalse)
}

func TestLoadFromEnv(t *testing.T) {
	c := qt.New(t)
	t.Setenv("SOLANA_RPC_URL", "https://rpc.example")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("BROWSE_TTL", "5m")
	t.Setenv("DISCORD_TOKEN", "tok")
	t.Setenv("DISCORD_ALERT_CHANNEL", "123")

	cfg, err := Load(nil)
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.RPCURL, qt.Equals, "https://rpc.example")
	c.Assert(cfg.CORS, qt.DeepEquals, []string{"https://a.example", "https://b.example"})
	c.Assert(cfg.BrowseTTL, qt.Equals, 5*time.Minute)
	c.Assert(cfg.Discord.Enabled(), qt.IsTrue)
}

func TestSettingsOverrideEnv(t *testing.T) {
	c := qt.New(t)
	t.Setenv("SOLANA_RPC_URL", "https://env.example")
	settings := map[string]string{
		"solana_rpc_url": "https://db.example",
		"registry_ttl":   "10m",
		"cors_origins":   " https://x.example , ",
	}

	var cfg Config
	c.Assert(ParseEnv(&cfg), qt.IsNil)
	c.Assert(applySettings(&cfg, func(n string) string { return settings[n] }), qt.IsNil)
	c.Assert(cfg.RPCURL, qt.Equals, "https://db.example")
	c.Assert(cfg.RegistryTTL, qt.Equals, 10*time.Minute)
	c.Assert(cfg.CORS, qt.DeepEquals, []string{"https://x.example"})
}

func TestBadDurationSetting(t *testing.T) {
	c := qt.New(t)
	var cfg Config
	err := applySettings(&cfg, func(n string) string {
		if n == "browse_ttl" {
			return "soon"
		}
		return ""
	})
	c.Assert(errors.Is(err, errors.NotValid), qt.IsTrue)
}

func TestValidate(t *testing.T) {
	c := qt.New(t)
	t.Setenv("AGGREGATION_CONCURRENCY", "0")
	_, err := Load(nil)
	c.Assert(errors.Is(err, errors.NotValid), qt.IsTrue)
}

func TestGetSettingLayers(t *testing.T) {
	c := qt.New(t)
	data.ReplaceSettings(map[string]string{"ai_model": "from-db"})
	defer data.ReplaceSettings(nil)
	t.Setenv("AI_MODEL", "from-env")
	t.Setenv("AI_PROVIDER", "from-env")

	c.Assert(GetSetting("ai_model", "AI_MODEL", "def"), qt.Equals, "from-db")
	c.Assert(GetSetting("ai_provider", "AI_PROVIDER", "def"), qt.Equals, "from-env")
	c.Assert(GetSetting("nothing", "RADAR_UNSET_KEY", "def"), qt.Equals, "def")
}
