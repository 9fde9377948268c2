package logger

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger is the log handle owned by one tap run. It wraps a logrus entry so
// fields such as the run id travel with every line.
type Logger struct {
	*logrus.Entry
}

// New creates a logger writing to w. Stdout carries the message stream, so
// callers normally pass os.Stderr.
func New(w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	log.SetLevel(logrus.InfoLevel)

	return &Logger{Entry: logrus.NewEntry(log)}
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *Logger {
	return New(io.Discard)
}

// SetLevel sets the logging level from its name; unknown names mean info.
func (l *Logger) SetLevel(level string) {
	switch level {
	case "debug":
		l.Logger.SetLevel(logrus.DebugLevel)
	case "warn":
		l.Logger.SetLevel(logrus.WarnLevel)
	case "error":
		l.Logger.SetLevel(logrus.ErrorLevel)
	default:
		l.Logger.SetLevel(logrus.InfoLevel)
	}
}

// WithRun tags every line with the run id.
func (l *Logger) WithRun(runID string) *Logger {
	return &Logger{Entry: l.Entry.WithField("run_id", runID)}
}

// WithStream tags every line with a stream id.
func (l *Logger) WithStream(stream string) *Logger {
	return &Logger{Entry: l.Entry.WithField("stream", stream)}
}
