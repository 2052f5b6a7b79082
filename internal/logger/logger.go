package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus logger
type Logger struct {
	*logrus.Logger
	service string
}

// New creates a JSON logger tagged with the service name
func New(serviceName, level string) *Logger {
	return NewWithOutput(serviceName, level, os.Stdout)
}

// NewWithOutput is New with an explicit writer, used by tests
func NewWithOutput(serviceName, level string, out io.Writer) *Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	log.SetOutput(out)

	switch strings.ToLower(level) {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}

	return &Logger{Logger: log, service: serviceName}
}

// Entry returns an entry carrying the service field
func (l *Logger) Entry() *logrus.Entry {
	return l.WithField("service", l.service)
}

// WithUserID adds user ID to logger
func (l *Logger) WithUserID(userID string) *logrus.Entry {
	return l.Entry().WithField("user_id", userID)
}

// WithRequestID adds request ID to logger
func (l *Logger) WithRequestID(requestID string) *logrus.Entry {
	return l.Entry().WithField("request_id", requestID)
}

// Discard returns a logger that writes nowhere
func Discard() *Logger {
	return NewWithOutput("test", "error", io.Discard)
}
