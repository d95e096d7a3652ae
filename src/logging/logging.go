package logging

import (
	"strings"

	"github.com/juju/loggo/v2"
)

// Configure applies a loggo level string such as "INFO" or
// "<root>=INFO;daoradar.governance=DEBUG". An empty string keeps INFO.
func Configure(levels string) error {
	levels = strings.TrimSpace(levels)
	if levels == "" {
		levels = "<root>=INFO"
	} else if !strings.Contains(levels, "=") {
		levels = "<root>=" + strings.ToUpper(levels)
	}
	return loggo.ConfigureLoggers(levels)
}
