package config

import (
	"os"

	"github.com/apex/log"
	"github.com/apex/log/handlers/text"
)

// SetupLogger installs the text handler and applies the configured level.
func SetupLogger(level string) {
	log.SetHandler(text.New(os.Stderr))
	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.WithError(err).Warnf("Unknown log level %q, using info", level)
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}
