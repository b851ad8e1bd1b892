package logger

import (
	"os"

	log "github.com/sirupsen/logrus"
)

// New builds the process logger: text output while developing, JSON otherwise.
func New(env, level string) *log.Logger {
	l := log.New()
	l.SetOutput(os.Stdout)
	if env == "development" {
		l.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&log.JSONFormatter{})
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	l.SetLevel(lvl)
	return l
}
