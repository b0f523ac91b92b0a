package logger

import (
	"os"

	"github.com/charmbracelet/log"
)

// Default creates a new default charm log that respects the global log level
func Default(prefix string) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          prefix,
		ReportCaller:    false,
		ReportTimestamp: false,
		Formatter:       log.TextFormatter,
		Level:           log.GetLevel(),
	})
}

// ApplyEnvLevel sets the global log level from WORDVAULT_LOG_LEVEL if present.
// Unknown values are ignored so a typo in an env file never silences errors.
func ApplyEnvLevel() {
	raw := os.Getenv("WORDVAULT_LOG_LEVEL")
	if raw == "" {
		return
	}
	level, err := log.ParseLevel(raw)
	if err != nil {
		log.Warnf("Unknown WORDVAULT_LOG_LEVEL %q: %v", raw, err)
		return
	}
	log.SetLevel(level)
}
