// Package logging configures the process-wide logrus logger from the
// engine's LOG_LEVEL setting.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a JSON-formatted logrus logger at level, falling back to info
// on an unrecognized level string.
func New(level string) *logrus.Entry {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	return logrus.NewEntry(log)
}
