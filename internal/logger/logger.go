// Package logger owns the process-wide logrus logger so every package logs
// with the same level and format.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu            sync.Mutex
	defaultLogger *logrus.Logger
)

// Setup configures and installs the default logger. level is a logrus level
// name ("debug", "info", "warn", "error"); unknown names fall back to info.
// format "json" selects the JSON formatter, anything else the text one.
func Setup(level, format string) *logrus.Logger {
	return SetupWithOutput(level, format, os.Stderr)
}

// SetupWithOutput is Setup with an explicit writer, used by tests.
func SetupWithOutput(level, format string, out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)

	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	if strings.ToLower(format) == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	mu.Lock()
	defaultLogger = l
	mu.Unlock()
	return l
}

// L returns the default logger, creating an info/text logger on first use.
func L() *logrus.Logger {
	mu.Lock()
	l := defaultLogger
	mu.Unlock()
	if l == nil {
		return Setup("info", "text")
	}
	return l
}
