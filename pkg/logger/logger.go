package logger

import (
	"github.com/sirupsen/logrus"
)

// NewLogger returns a text logger at level; an unparsable level falls back to debug.
func NewLogger(level string, json bool) *logrus.Logger {
	log := logrus.New()
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.DebugLevel
	}
	log.SetLevel(lvl)
	if json {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log
}
