package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a JSON logger tagged with the service name. Unknown levels fall
// back to info.
func New(service, level string) *logrus.Entry {
	return NewWithOutput(service, level, os.Stdout)
}

func NewWithOutput(service, level string, out io.Writer) *logrus.Entry {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	log.SetOutput(out)

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)

	return log.WithField("service", service)
}

// Discard is a logger for tests.
func Discard() *logrus.Entry {
	return NewWithOutput("test", "panic", io.Discard)
}
