// Package logging provides the structured logger every vaptord process
// shares — a thin wrapper around logrus adding scan/module-scoped fields,
// adapted from the platform's service logger.
package logging

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus.Logger with the fields every vaptord component logs.
type Logger struct {
	*logrus.Logger
	component string
}

// New builds a Logger at the given level ("debug", "info", ...), emitting
// JSON to stdout — the format every long-running vaptord process uses so
// log shipping doesn't need per-service parsing rules.
func New(component, level string) *Logger {
	l := logrus.New()

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	l.SetLevel(parsed)
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	l.SetOutput(os.Stdout)

	return &Logger{Logger: l, component: component}
}

// WithScan returns an entry tagged with the scan and module a log line
// concerns — every dispatcher, broker, and worker log line that refers to
// a specific scan goes through this so operators can grep one scan's
// lifecycle across every process.
func (l *Logger) WithScan(scanID string, module string) *logrus.Entry {
	entry := l.Logger.WithField("component", l.component).WithField("scan_id", scanID)
	if module != "" {
		entry = entry.WithField("module", module)
	}
	return entry
}

// WithError creates an entry carrying component + error, for the common
// case of logging a failure with no further context.
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{"component": l.component, "error": err.Error()})
}
