package common

import (
	"os"

	log "github.com/sirupsen/logrus"
)

// InitLogging configures the global logrus logger. Unknown levels fall back to info.
func InitLogging(level string) {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}
