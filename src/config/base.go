package config

import (
	"os"

	"github.com/juju/loggo/v2"

	"github.com/stake-plus/solana-dao-radar/src/data"
)

var logger = loggo.GetLogger("daoradar.config")

// GetSetting retrieves a setting with env fallback
func GetSetting(name, envKey, defaultValue string) string {
	val := data.GetSetting(name)
	if val == "" {
		val = os.Getenv(envKey)
	}
	if val == "" {
		val = defaultValue
	}
	return val
}
