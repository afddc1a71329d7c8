package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

var std = newLogger(os.Stdout)

func newLogger(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Setup applies level ("debug", "info", "warn", "error") and format ("json" or "text").
func Setup(level, format string) {
	if lvl, err := logrus.ParseLevel(level); err == nil {
		std.SetLevel(lvl)
	}
	if strings.EqualFold(format, "text") {
		std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	} else {
		std.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	}
}

// SetOutput redirects log output, mostly for tests.
func SetOutput(w io.Writer) { std.SetOutput(w) }

func Log(level logrus.Level, msg string, fields map[string]any) {
	std.WithFields(logrus.Fields(fields)).Log(level, msg)
}

func Debug(msg string, fields map[string]any) { Log(logrus.DebugLevel, msg, fields) }
func Info(msg string, fields map[string]any)  { Log(logrus.InfoLevel, msg, fields) }
func Warn(msg string, fields map[string]any)  { Log(logrus.WarnLevel, msg, fields) }
func Error(msg string, fields map[string]any) { Log(logrus.ErrorLevel, msg, fields) }

// Std returns the underlying logger for libraries that take a Printf-style logger.
func Std() *logrus.Logger { return std }
