package observability

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/orderwire/internal/logging"
)

// InitLogger configures the global logger for a command and returns a
// child tagged with the app name. Level, timestamps, and color come
// from the runtime profile plus ORDERWIRE_LOG_* overrides.
func InitLogger(app string) zerolog.Logger {
	logging.ConfigureRuntime()
	logger := log.Logger.With().Str("app", app).Logger()
	log.Logger = logger
	return logger
}
